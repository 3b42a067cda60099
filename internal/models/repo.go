package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = validator.New()

const (
	BookingsTable  = "bookings"
	ToursTable     = "tours"
	MessagesTable  = "messages"
	OperatorsTable = "operators"
	ProfileTable   = "profiles"
	DBName         = "tourdesk"
)

type SupabaseRepo struct {
	supabaseClient *supabase.Client
	url            string
	key            string
	httpClient     *http.Client // edge function calls
}

func SupabaseNewRepo(supabaseClient *supabase.Client, url, key string) *SupabaseRepo {
	return &SupabaseRepo{
		supabaseClient: supabaseClient,
		url:            url,
		key:            key,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

// GetAuthenticatedClient returns a Supabase client with the given access token
func (su *SupabaseRepo) GetAuthenticatedClient(accessToken string) (*supabase.Client, error) {
	if su.url == "" || su.key == "" {
		// Without url and key a per-user client cannot be built; row level
		// security then applies to the anon client.
		return su.supabaseClient, nil
	}

	options := &supabase.ClientOptions{
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
		},
	}

	return supabase.NewClient(su.url, su.key, options)
}

// clientFor picks the authenticated client when a token is present.
func (su *SupabaseRepo) clientFor(accessToken string) (*supabase.Client, error) {
	if accessToken == "" {
		return su.supabaseClient, nil
	}
	client, err := su.GetAuthenticatedClient(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %w", err)
	}
	return client, nil
}

// postgrestError classifies a PostgREST failure. Constraint and trigger
// rejections become ConflictError, everything else UpstreamError.
func postgrestError(op string, err error) error {
	msg := err.Error()
	for _, code := range conflictCodes {
		if strings.Contains(msg, "("+code+")") {
			return ConflictError{Msg: fmt.Sprintf("failed to %s", op), Err: err}
		}
	}
	return UpstreamError{
		Service: "supabase",
		Msg:     fmt.Sprintf("failed to %s", op),
		Err:     err,
	}
}

// raise_exception, check_violation, unique_violation, foreign_key_violation
var conflictCodes = []string{"P0001", "23514", "23505", "23503"}

func decodeRows[T any](raw []byte, what string) ([]T, error) {
	// Supabase returns an array even for single results
	var rows []T
	if len(raw) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s rows: %w", what, err)
	}
	return rows, nil
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
}

func MongodbNewRepo(mongodbClient *mongo.Client) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
	}
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, dbName, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(dbName).Collection(colName), nil
}
