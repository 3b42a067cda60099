package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabase-community/gotrue-go/types"
)

type OperatorRepo interface {
	AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
	GetProfile(ctx context.Context, userID string, accessToken string) (*Profile, error)
	GetOperatorByUser(ctx context.Context, userID string, accessToken string) (*Operator, error)
	GetOperator(ctx context.Context, id string, accessToken string) (*Operator, error)
}

func (su *SupabaseRepo) AuthenticateUser(ctx context.Context, email, password string) (*types.TokenResponse, error) {
	resp, err := su.supabaseClient.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "invalid login credentials") {
			return nil, ValidationError{Msg: "invalid email or password", Err: err}
		}
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}
	return resp, nil
}

func (su *SupabaseRepo) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	resp, err := su.supabaseClient.Auth.RefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return resp, nil
}

func (su *SupabaseRepo) GetProfile(ctx context.Context, userID string, accessToken string) (*Profile, error) {
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(ProfileTable).
		Select("id,email,fullname,role,phone_number,created_at", "", false).
		Eq("id", userID).
		Execute()
	if err != nil {
		return nil, postgrestError("get profile", err)
	}
	profiles, err := decodeRows[Profile](raw, "profile")
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, NotFoundError{Resource: "profile"}
	}
	if len(profiles) > 1 {
		return nil, fmt.Errorf("multiple profiles found for ID %s", userID)
	}
	return &profiles[0], nil
}

func (su *SupabaseRepo) GetOperatorByUser(ctx context.Context, userID string, accessToken string) (*Operator, error) {
	return su.getOperatorBy("user_id", userID, accessToken)
}

func (su *SupabaseRepo) GetOperator(ctx context.Context, id string, accessToken string) (*Operator, error) {
	return su.getOperatorBy("id", id, accessToken)
}

func (su *SupabaseRepo) getOperatorBy(column, value, accessToken string) (*Operator, error) {
	client, err := su.clientFor(accessToken)
	if err != nil {
		return nil, err
	}

	raw, _, err := client.From(OperatorsTable).
		Select("*", "", false).
		Eq(column, value).
		Execute()
	if err != nil {
		return nil, postgrestError("get operator", err)
	}
	operators, err := decodeRows[Operator](raw, "operator")
	if err != nil {
		return nil, err
	}
	if len(operators) == 0 {
		return nil, NotFoundError{Resource: "operator"}
	}
	return &operators[0], nil
}
