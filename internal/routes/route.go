package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/tourdesk/internal/container"
	"github.com/joshua-takyi/tourdesk/internal/handlers"
	"github.com/joshua-takyi/tourdesk/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	secureCookies := cfg.IsProduction()
	loc := cfg.Dashboard.Location()

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":   "OK",
				"service":  "tourdesk-api",
				"realtime": container.Realtime != nil,
				"jobs":     len(container.Scheduler.Jobs()),
			})
		})

		// public routes
		v1.POST("/login", handlers.Login(container.AuthService, secureCookies))
		v1.POST("/refresh", handlers.Refresh(container.AuthService, secureCookies))
		v1.POST("/logout", handlers.Logout(secureCookies))
		v1.GET("/bookings/lookup", handlers.LookupBookings(container.BookingService))
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.Tokens, container.AuthService, secureCookies, container.Logger))
	protected.GET("/me", handlers.Me())

	operator := protected.Group("/")
	operator.Use(middleware.RequireOperator())

	dashboardRoutes := operator.Group("/dashboard")
	{
		dashboardRoutes.GET("", handlers.GetDashboard(container.DashboardService))
		dashboardRoutes.GET("/stream", handlers.StreamDashboard(container.DashboardService, container.Realtime, container.Logger))
		dashboardRoutes.GET("/history", handlers.DashboardHistory(container.DashboardService))
		dashboardRoutes.GET("/export.xlsx", handlers.ExportBookings(container.DashboardService, loc))
		dashboardRoutes.GET("/statement.pdf", handlers.RevenueStatement(container.DashboardService, container.AuthService, loc))
	}

	bookingRoutes := operator.Group("/bookings")
	{
		bookingRoutes.GET("", handlers.ListBookings(container.BookingService))
		bookingRoutes.POST("/:id/transition", handlers.TransitionBooking(container.BookingService, container.DashboardService))
		bookingRoutes.POST("/:id/capture", handlers.CaptureBooking(container.PaymentService, container.DashboardService))
		bookingRoutes.POST("/:id/refund", handlers.RefundBooking(container.PaymentService, container.DashboardService))

		bookingRoutes.GET("/:id/messages", handlers.ListMessages(container.ChatService))
		bookingRoutes.POST("/:id/messages", handlers.SendMessage(container.ChatService))
		bookingRoutes.POST("/:id/messages/read", handlers.MarkMessagesRead(container.ChatService, container.DashboardService))
	}

	tourRoutes := operator.Group("/tours")
	{
		tourRoutes.GET("", handlers.ListTours(container.TourService))
		tourRoutes.POST("/:id/images", handlers.UploadTourImages(container.TourService))
	}

	return r
}
