package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/helpers"
	"github.com/joshua-takyi/tourdesk/internal/models"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case models.IsNotFound(err):
		return http.StatusNotFound
	case models.IsConflict(err):
		return http.StatusConflict
	case models.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the ApiResponse envelope. Unclassified errors
// are handed to ErrorHandler so the details stay in the logs.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
		c.JSON(status, models.ErrorResponse("internal server error"))
		return
	}
	c.JSON(status, models.ErrorResponse(userMessage(err)))
}

// userMessage prefers the innermost typed error's text over the wrapping
// context.
func userMessage(err error) string {
	var (
		v models.ValidationError
		n models.NotFoundError
		k models.ConflictError
		u models.UpstreamError
	)
	switch {
	case errors.As(err, &v):
		return v.Error()
	case errors.As(err, &n):
		return n.Error()
	case errors.As(err, &k):
		return k.Error()
	case errors.As(err, &u):
		return u.Error()
	}
	return err.Error()
}

func currentClaims(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	v, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return nil, false
	}
	claims, ok := v.(*helpers.EnhancedClaims)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("invalid user claims"))
		return nil, false
	}
	return claims, true
}

// actingOperator resolves the operator a request works on, honouring
// ?operator_id= for admins.
func actingOperator(c *gin.Context) (*helpers.EnhancedClaims, string, bool) {
	claims, ok := currentClaims(c)
	if !ok {
		return nil, "", false
	}
	operatorID, ok := claims.ActingOperator(c.Query("operator_id"))
	if !ok {
		c.JSON(http.StatusForbidden, models.ErrorResponse("no operator to act for"))
		return nil, "", false
	}
	return claims, operatorID, true
}

// senderType is how the current user appears in chat threads.
func senderType(claims *helpers.EnhancedClaims) models.SenderType {
	if claims.IsAdmin() {
		return models.SenderAdmin
	}
	return models.SenderOperator
}
