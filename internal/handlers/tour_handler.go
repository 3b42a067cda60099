package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/services"
)

func ListTours(ts *services.TourService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		catalog, err := ts.Catalog(c.Request.Context(), operatorID, claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(catalog, ""))
	}
}

// UploadTourImages takes image URLs or data URIs and stores them on the tour.
func UploadTourImages(ts *services.TourService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentClaims(c)
		if !ok {
			return
		}
		var req struct {
			Images []string `json:"images" binding:"required,min=1,max=10"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("between 1 and 10 images are required"))
			return
		}
		tour, err := ts.UploadImages(c.Request.Context(), c.Param("id"), req.Images, claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(tour, "Images uploaded"))
	}
}
