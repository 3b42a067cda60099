package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/middleware"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/services"
)

func Login(auth *services.AuthService, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		tokenRes, err := auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if models.IsValidation(err) {
				c.JSON(http.StatusUnauthorized, models.ErrorResponse("invalid email or password"))
				return
			}
			respondError(c, err)
			return
		}
		if tokenRes == nil || tokenRes.AccessToken == "" {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse("invalid token response"))
			return
		}

		middleware.SetAuthCookies(c, tokenRes, secureCookies)

		// Return user info but not tokens
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"user":       tokenRes.User,
			"expires_in": tokenRes.ExpiresIn,
		}, "Logged in"))
	}
}

func Refresh(auth *services.AuthService, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		refreshToken, err := c.Cookie("refresh_token")
		if err != nil {
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			_ = c.ShouldBindJSON(&req)
			refreshToken = req.RefreshToken
		}

		tokenRes, err := auth.RefreshToken(c.Request.Context(), refreshToken)
		if err != nil {
			if models.IsValidation(err) {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusUnauthorized, models.ErrorResponse("token refresh failed"))
			return
		}

		middleware.SetAuthCookies(c, tokenRes, secureCookies)
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"expires_in": tokenRes.ExpiresIn}, "Token refreshed"))
	}
}

// Logout handler
func Logout(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.ClearAuthCookies(c, secureCookies)
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Logged out successfully"))
	}
}

func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentClaims(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"user_id":      claims.UserID,
			"email":        claims.Email,
			"role":         claims.GetSafeRole(),
			"fullname":     claims.Fullname,
			"operator_id":  claims.OperatorID,
			"company_name": claims.CompanyName,
			"is_admin":     claims.IsAdmin(),
		}, ""))
	}
}
