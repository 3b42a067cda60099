package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/tourdesk/internal/helpers"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/supabase-community/gotrue-go/types"
)

// TokenValidator checks an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*helpers.CustomClaims, error)
}

// Authenticator is what AuthMiddleware needs from the auth service.
type Authenticator interface {
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
	GetProfile(ctx context.Context, userID, accessToken string) (*models.Profile, error)
	GetOperatorForUser(ctx context.Context, userID, accessToken string) (*models.Operator, error)
}

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get("request_id")

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// ErrorHandler provides centralized error handling
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			requestID, _ := c.Get("request_id")

			logger.Error("Request error",
				"request_id", requestID,
				"error", err.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)

			if c.Writer.Written() {
				return
			}
			// Don't return error details in production
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"request_id": requestID,
			})
		}
	}
}

// accessToken reads the token from the access_token cookie, falling back to a
// bearer header for non-browser clients.
func accessToken(c *gin.Context) string {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"message": "Unauthorized access",
		"error":   msg,
	})
	c.Abort()
}

func AuthMiddleware(validator TokenValidator, auth Authenticator, secureCookies bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			unauthorized(c, "JWT token not found")
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			// Token validation failed, try to refresh
			refreshToken, refreshErr := c.Cookie("refresh_token")
			if refreshErr != nil {
				unauthorized(c, err.Error())
				return
			}

			tokenRes, refreshErr := auth.RefreshToken(c.Request.Context(), refreshToken)
			if refreshErr != nil || tokenRes == nil || tokenRes.AccessToken == "" {
				logger.Error("Token refresh failed", "error", refreshErr)
				unauthorized(c, "Token expired and refresh failed")
				return
			}
			logger.Info("Token refreshed successfully",
				"user_id", tokenRes.User.ID,
				"expires_in", tokenRes.ExpiresIn,
			)
			SetAuthCookies(c, tokenRes, secureCookies)

			token = tokenRes.AccessToken
			claims, err = validator.ValidateToken(token)
			if err != nil {
				unauthorized(c, "Refreshed token validation failed")
				return
			}
		}

		enhanced := &helpers.EnhancedClaims{
			CustomClaims: claims,
			Role:         "guest",
			UserID:       claims.Subject,
			Email:        claims.Email,
			AccessToken:  token,
		}

		profile, err := auth.GetProfile(c.Request.Context(), claims.Subject, token)
		if err != nil {
			logger.Info("Profile not found, using default role",
				"user_id", claims.Subject,
				"error", err,
			)
		} else {
			if profile.Role != "" {
				enhanced.Role = profile.Role
			}
			enhanced.Fullname = profile.FullName
			enhanced.PhoneNumber = profile.PhoneNumber
		}

		if enhanced.Role == models.RoleOperator {
			op, err := auth.GetOperatorForUser(c.Request.Context(), claims.Subject, token)
			if err != nil {
				logger.Warn("Operator row missing for operator profile",
					"user_id", claims.Subject,
					"error", err,
				)
			} else {
				enhanced.OperatorID = op.ID
				enhanced.CompanyName = op.CompanyName
			}
		}

		// Store enhanced claims in context
		c.Set("user", enhanced)
		c.Next()
	}
}

// SetAuthCookies stores both tokens as http-only cookies.
func SetAuthCookies(c *gin.Context, tokenRes *types.TokenResponse, secure bool) {
	c.SetCookie(
		"access_token",
		tokenRes.AccessToken,
		tokenRes.ExpiresIn,
		"/",
		"", // let Gin pick current domain
		secure,
		true,
	)
	c.SetCookie(
		"refresh_token",
		tokenRes.RefreshToken,
		3600*24*30, // 30 days
		"/",
		"",
		secure,
		true,
	)
}

// ClearAuthCookies expires both auth cookies.
func ClearAuthCookies(c *gin.Context, secure bool) {
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// RequireOperator lets through operators and admins.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get("user")
		claims, ok := v.(*helpers.EnhancedClaims)
		if !ok || (!claims.IsOperator() && !claims.IsAdmin()) {
			c.JSON(http.StatusForbidden, models.ErrorResponse("operator access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
