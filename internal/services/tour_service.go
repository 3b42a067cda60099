package services

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joshua-takyi/tourdesk/internal/helpers"
	"github.com/joshua-takyi/tourdesk/internal/models"
)

// ImageUploader stores image files and returns their public URLs.
type ImageUploader func(ctx context.Context, paths []string, folder string) ([]string, error)

// CloudinaryUploader adapts a Cloudinary client to ImageUploader.
func CloudinaryUploader(cld *cloudinary.Cloudinary) ImageUploader {
	return func(ctx context.Context, paths []string, folder string) ([]string, error) {
		return helpers.UploadImages(ctx, cld, paths, folder)
	}
}

type TourService struct {
	repo   models.TourRepo
	upload ImageUploader
}

func NewTourService(repo models.TourRepo, upload ImageUploader) *TourService {
	return &TourService{
		repo:   repo,
		upload: upload,
	}
}

func (ts *TourService) Catalog(ctx context.Context, operatorID, accessToken string) (models.Catalog, error) {
	rows, err := ts.repo.ListTours(ctx, operatorID, accessToken)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("failed to list tours: %w", err)
	}
	return models.SplitCatalog(rows), nil
}

// UploadImages adds images to a tour, keeping the ones it already has.
func (ts *TourService) UploadImages(ctx context.Context, tourID string, paths []string, accessToken string) (*models.Tour, error) {
	if len(paths) == 0 {
		return nil, models.ValidationError{Field: "images", Msg: "at least one image is required"}
	}
	for i, p := range paths {
		if !helpers.IsRemoteImage(p) {
			return nil, models.ValidationError{Field: "images", Msg: fmt.Sprintf("image %d must be an http(s) URL or a data:image URI", i)}
		}
	}
	if ts.upload == nil {
		return nil, models.UpstreamError{Service: "cloudinary", Msg: "image uploads are not configured"}
	}
	tour, err := ts.repo.GetTour(ctx, tourID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}

	urls, err := ts.upload(ctx, paths, helpers.TourFolder+"/"+tour.ID)
	if err != nil {
		return nil, models.UpstreamError{Service: "cloudinary", Msg: "failed to upload images", Err: err}
	}

	images := append(append([]string{}, tour.Images...), urls...)
	updated, err := ts.repo.UpdateTourImages(ctx, tour.ID, images, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to save tour images: %w", err)
	}
	return updated, nil
}
