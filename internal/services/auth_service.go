package services

import (
	"context"
	"fmt"

	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/supabase-community/gotrue-go/types"
)

type AuthService struct {
	repo models.OperatorRepo
}

func NewAuthService(repo models.OperatorRepo) *AuthService {
	return &AuthService{
		repo: repo,
	}
}

func (as *AuthService) Login(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return nil, models.ValidationError{Field: "email", Msg: "invalid email format", Err: err}
	}
	if err := models.Validate.Var(password, "required,min=8"); err != nil {
		return nil, models.ValidationError{Field: "password", Msg: "password must be at least 8 characters", Err: err}
	}
	response, err := as.repo.AuthenticateUser(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return response, nil
}

func (as *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	if refreshToken == "" {
		return nil, models.ValidationError{Field: "refresh_token", Msg: "refresh token is required"}
	}
	response, err := as.repo.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return response, nil
}

func (as *AuthService) GetProfile(ctx context.Context, userID, accessToken string) (*models.Profile, error) {
	profile, err := as.repo.GetProfile(ctx, userID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetOperatorForUser finds the operator row owned by a user.
func (as *AuthService) GetOperatorForUser(ctx context.Context, userID, accessToken string) (*models.Operator, error) {
	op, err := as.repo.GetOperatorByUser(ctx, userID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return op, nil
}

func (as *AuthService) GetOperator(ctx context.Context, operatorID, accessToken string) (*models.Operator, error) {
	op, err := as.repo.GetOperator(ctx, operatorID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return op, nil
}
