package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/services"
)

func ListMessages(cs *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentClaims(c)
		if !ok {
			return
		}
		msgs, err := cs.List(c.Request.Context(), c.Param("id"), claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(msgs, len(msgs)))
	}
}

func SendMessage(cs *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentClaims(c)
		if !ok {
			return
		}
		var req struct {
			Message string `json:"message" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("message is required"))
			return
		}
		msg, err := cs.Send(c.Request.Context(), c.Param("id"), senderType(claims), claims.UserID, req.Message, claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(msg, "Message sent"))
	}
}

func MarkMessagesRead(cs *services.ChatService, ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentClaims(c)
		if !ok {
			return
		}
		n, err := cs.MarkRead(c.Request.Context(), c.Param("id"), senderType(claims), claims.AccessToken)
		if err != nil {
			respondError(c, err)
			return
		}
		if claims.OperatorID != "" {
			ds.Invalidate(claims.OperatorID)
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"marked": n}, ""))
	}
}
