package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/services"
)

func ListBookings(bs *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		bookings, err := bs.ListForOperator(c.Request.Context(), operatorID, claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		if status := models.BookingStatus(c.Query("status")); status != "" {
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid status filter"))
				return
			}
			filtered := bookings[:0:0]
			for _, b := range bookings {
				if b.Status == status {
					filtered = append(filtered, b)
				}
			}
			bookings = filtered
		}
		c.JSON(http.StatusOK, models.ListResponse(bookings, len(bookings)))
	}
}

// LookupBookings is the public tourist lookup by email or phone.
func LookupBookings(bs *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := bs.LookupByContact(c.Request.Context(), c.Query("email"), c.Query("phone"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(bookings, len(bookings)))
	}
}

func TransitionBooking(bs *services.BookingService, ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		var req struct {
			Action string `json:"action" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("action is required"))
			return
		}

		updated, err := bs.Transition(c.Request.Context(), c.Param("id"), services.Action(req.Action), claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		ds.Invalidate(operatorID)
		c.JSON(http.StatusOK, models.SuccessResponse(updated, "Booking updated"))
	}
}

func CaptureBooking(ps *services.PaymentService, ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		out, err := ps.Capture(c.Request.Context(), c.Param("id"), claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		ds.Invalidate(operatorID)
		c.JSON(http.StatusOK, models.SuccessResponse(out, "Payment captured"))
	}
}

func RefundBooking(ps *services.PaymentService, ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		var req struct {
			Amount float64 `json:"amount"`
			Reason string  `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}
		out, err := ps.Refund(c.Request.Context(), c.Param("id"), req.Amount, req.Reason, claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		ds.Invalidate(operatorID)
		c.JSON(http.StatusOK, models.SuccessResponse(out, "Payment refunded"))
	}
}
