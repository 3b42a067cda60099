package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabase-community/postgrest-go"
)

type TourRepo interface {
	ListTours(ctx context.Context, operatorID string, accessToken string) ([]Tour, error)
	GetTour(ctx context.Context, id string, accessToken string) (*Tour, error)
	UpdateTourImages(ctx context.Context, id string, images []string, accessToken string) (*Tour, error)
}

// ListTours returns templates and instances in catalog order (date, then slot).
func (su *SupabaseRepo) ListTours(ctx context.Context, operatorID string, accessToken string) ([]Tour, error) {
	if strings.TrimSpace(operatorID) == "" {
		return nil, ValidationError{Field: "operator_id", Msg: "operator id is required"}
	}
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(ToursTable).
		Select("*", "exact", false).
		Eq("operator_id", operatorID).
		Order("tour_date", &postgrest.OrderOpts{Ascending: true, NullsFirst: true}).
		Order("time_slot", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, postgrestError("list tours", err)
	}
	return decodeRows[Tour](raw, "tour")
}

func (su *SupabaseRepo) GetTour(ctx context.Context, id string, accessToken string) (*Tour, error) {
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(ToursTable).
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, postgrestError("get tour", err)
	}
	tours, err := decodeRows[Tour](raw, "tour")
	if err != nil {
		return nil, err
	}
	if len(tours) == 0 {
		return nil, NotFoundError{Resource: "tour"}
	}
	return &tours[0], nil
}

func (su *SupabaseRepo) UpdateTourImages(ctx context.Context, id string, images []string, accessToken string) (*Tour, error) {
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, count, err := client.From(ToursTable).
		Update(map[string]interface{}{"images": images}, "", "exact").
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, postgrestError("update tour images", err)
	}
	if count == 0 {
		return nil, NotFoundError{Resource: "tour"}
	}
	tours, err := decodeRows[Tour](raw, "tour")
	if err != nil {
		return nil, err
	}
	if len(tours) == 0 {
		return nil, fmt.Errorf("no tour data returned after update")
	}
	return &tours[0], nil
}
