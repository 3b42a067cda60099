package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/dashboard"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/realtime"
	"github.com/joshua-takyi/tourdesk/internal/report"
	"github.com/joshua-takyi/tourdesk/internal/services"
)

const streamKeepAlive = 30 * time.Second

type dashboardPayload struct {
	*services.DashboardResult
	Groups []*dashboard.TemplateGroup `json:"groups,omitempty"`
}

func dashboardResponse(res *services.DashboardResult, sortBy string) models.ApiResponse {
	payload := dashboardPayload{DashboardResult: res}
	if sortBy == "priority" {
		payload.Groups = dashboard.SortByPriority(res.View.Tree)
	} else {
		payload.Groups = res.View.Tree.Ordered()
	}
	if res.Stale {
		return models.StaleResponse(payload, res.StaleReason)
	}
	return models.SuccessResponse(payload, "")
}

// GetDashboard serves the operator dashboard. ?refresh=true skips the
// debounce cache, ?sort=priority orders groups by urgency.
func GetDashboard(ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		force, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

		res, err := ds.Build(c.Request.Context(), operatorID, claims.AccessToken, force)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dashboardResponse(res, c.Query("sort")))
	}
}

// StreamDashboard pushes a fresh dashboard over server-sent events whenever
// the operator's bookings change.
func StreamDashboard(ds *services.DashboardService, rt *realtime.Manager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		if rt == nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse("live updates are not available"))
			return
		}
		ctx := c.Request.Context()
		sortBy := c.Query("sort")

		key := operatorID + ":" + c.GetString("request_id")
		sub, err := rt.Subscribe(ctx, key, realtime.Filter{
			Table:  models.BookingsTable,
			Filter: "operator_id=eq." + operatorID,
		}, claims.AccessToken)
		if err != nil {
			logger.Warn("Realtime subscribe failed", "operator_id", operatorID, "error", err)
			c.JSON(http.StatusBadGateway, models.ErrorResponse("live updates could not be started"))
			return
		}
		defer rt.Close(key)

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		push := func(force bool) {
			res, err := ds.Build(ctx, operatorID, claims.AccessToken, force)
			if err != nil {
				c.SSEvent("error", models.ErrorResponse(userMessage(err)))
				return
			}
			c.SSEvent("dashboard", dashboardResponse(res, sortBy))
		}
		push(false)

		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case _, open := <-sub.Events():
				if !open || !drainPending(sub.Events()) {
					c.SSEvent("error", models.ErrorResponse("live updates stopped"))
					return false
				}
				push(true)
				return true
			case t := <-ticker.C:
				c.SSEvent("ping", t.Unix())
				return true
			}
		})
	}
}

// drainPending discards changes already queued so a burst triggers one rebuild.
// It reports false once the channel is closed.
func drainPending(events <-chan realtime.Change) bool {
	for {
		select {
		case _, open := <-events:
			if !open {
				return false
			}
		default:
			return true
		}
	}
}

func DashboardHistory(ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid limit parameter"))
			return
		}
		snaps, err := ds.History(c.Request.Context(), operatorID, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ListResponse(snaps, len(snaps)))
	}
}

func ExportBookings(ds *services.DashboardService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		res, err := ds.Build(c.Request.Context(), operatorID, claims.AccessToken, false)
		if err != nil {
			respondError(c, err)
			return
		}
		data, err := report.BookingsWorkbook(res.View, loc)
		if err != nil {
			respondError(c, err)
			return
		}
		name := report.Filename(operatorID, "xlsx", res.View.GeneratedAt)
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

func RevenueStatement(ds *services.DashboardService, auth *services.AuthService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, operatorID, ok := actingOperator(c)
		if !ok {
			return
		}
		res, err := ds.Build(c.Request.Context(), operatorID, claims.AccessToken, false)
		if err != nil {
			respondError(c, err)
			return
		}

		company := claims.CompanyName
		if operatorID != claims.OperatorID {
			if op, err := auth.GetOperator(c.Request.Context(), operatorID, claims.AccessToken); err == nil {
				company = op.CompanyName
			} else {
				company = ""
			}
		}

		data, err := report.RevenueStatement(res.View, company, loc)
		if err != nil {
			respondError(c, err)
			return
		}
		name := report.Filename(operatorID, "pdf", res.View.GeneratedAt)
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "application/pdf", data)
	}
}
