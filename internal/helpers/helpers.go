package helpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nyaruka/phonenumbers"
)

const (
	TourFolder = "tours"
)

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Provider  string   `json:"provider"`
		Providers []string `json:"providers"`
		Roles     []string `json:"roles,omitempty"`
	} `json:"app_metadata"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// TokenValidator checks Supabase access tokens against the project's JWKS.
// Keys are fetched once and refreshed in the background.
type TokenValidator struct {
	jwksURL         string
	allowUnverified bool
	logger          *slog.Logger

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

// NewTokenValidator builds a validator for a Supabase project. With
// allowUnverified set, tokens are parsed without a signature check when the
// JWKS cannot be fetched; only development should do that.
func NewTokenValidator(supabaseURL string, allowUnverified bool, logger *slog.Logger) *TokenValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenValidator{
		jwksURL:         strings.TrimRight(supabaseURL, "/") + "/auth/v1/.well-known/jwks.json",
		allowUnverified: allowUnverified,
		logger:          logger,
	}
}

func (v *TokenValidator) keys() (*keyfunc.JWKS, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		return v.jwks, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	jwks, err := keyfunc.Get(v.jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.logger.Warn("JWKS refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, err
	}
	v.jwks = jwks
	return jwks, nil
}

func (v *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, errors.New("token is empty")
	}

	jwks, err := v.keys()
	if err != nil {
		if !v.allowUnverified {
			return nil, fmt.Errorf("failed to load JWKS: %w", err)
		}
		v.logger.Warn("JWKS unavailable, parsing token unverified", "error", err)
		return ParseUnverified(tokenStr)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *TokenValidator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		v.jwks.EndBackground()
		v.jwks = nil
	}
}

// ParseUnverified reads claims without checking the signature. Expiry is
// still enforced.
func ParseUnverified(tokenStr string) (*CustomClaims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, &CustomClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token is expired")
	}
	return claims, nil
}

// NormalizePhone parses a phone number in the given default region and
// returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	raw = StringTrim(raw)
	if raw == "" {
		return "", errors.New("phone number is empty")
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("invalid phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func StringTrim(s string) string {
	return strings.TrimSpace(s)
}

// IsRemoteImage reports whether src is an http(s) URL or an inline data:image
// URI. Anything else would be read from the server's own filesystem by the
// Cloudinary uploader.
func IsRemoteImage(src string) bool {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(strings.ToLower(src), "data:image/") {
		return true
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func UploadImages(ctx context.Context, cld *cloudinary.Cloudinary, imageNames []string, imagePath string) ([]string, error) {
	if cld == nil {
		return nil, errors.New("cloudinary is not configured")
	}
	var urls []string

	for i, filePath := range imageNames {
		if strings.TrimSpace(filePath) == "" {
			slog.Debug("Skipping empty image path", "index", i)
			continue
		}
		if !IsRemoteImage(filePath) {
			return nil, fmt.Errorf("image %d must be an http(s) URL or a data:image URI", i)
		}
		uploadResult, err := cld.Upload.Upload(ctx, filePath, uploader.UploadParams{
			Folder: imagePath,
			Tags:   []string{"tourdesk"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload image %s: %w", filePath, err)
		}
		if uploadResult.Error.Message != "" {
			return nil, fmt.Errorf("failed to upload image %s: %s", filePath, uploadResult.Error.Message)
		}
		urls = append(urls, uploadResult.SecureURL)
	}

	return urls, nil
}
