package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/tourdesk/internal/config"
	"github.com/joshua-takyi/tourdesk/internal/connect"
	"github.com/joshua-takyi/tourdesk/internal/container"
	"github.com/joshua-takyi/tourdesk/internal/routes"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting tourdesk API server", "environment", cfg.Environment)

	cld, err := connect.CloudinaryCredentials(cfg)
	if err != nil {
		logger.Error("Failed to connect to Cloudinary", "error", err)
		os.Exit(1)
	}
	if cld == nil {
		logger.Warn("Cloudinary not configured, tour image uploads are disabled")
	}

	// Initialize database connections
	supaClient, err := connect.InitSupabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Supabase successfully")

	mongoClient, err := connect.MongoDBConnect(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB successfully")

	// Initialize dependency container
	appContainer, err := container.NewContainer(cfg, logger, cld, supaClient, mongoClient)
	if err != nil {
		logger.Error("Failed to build container", "error", err)
		os.Exit(1)
	}

	if appContainer.Snapshots != nil {
		indexCtx, cancelIndex := context.WithTimeout(context.Background(), 15*time.Second)
		if err := appContainer.Snapshots.EnsureIndexes(indexCtx); err != nil {
			logger.Warn("Failed to ensure snapshot indexes", "error", err)
		}
		cancelIndex()
	}

	if err := scheduleRefresh(appContainer, cfg); err != nil {
		logger.Error("Failed to schedule dashboard refresh", "error", err)
		os.Exit(1)
	}
	appContainer.Scheduler.Start()

	// Setup routes
	router := routes.SetupRoutes(appContainer)

	// WriteTimeout stays off so /dashboard/stream connections are not cut.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Live streams end once their subscriptions close, so release those first.
	appContainer.Close()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Close database connections
	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

// scheduleRefresh rebuilds dashboards for recently active operators and
// records a snapshot of each.
func scheduleRefresh(c *container.Container, cfg *config.Config) error {
	_, err := c.Scheduler.AddJob("dashboard_refresh", cfg.Dashboard.RefreshCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		n, err := c.DashboardService.RefreshTracked(ctx)
		if err != nil {
			c.Logger.Warn("Dashboard refresh finished with errors", "snapshots", n, "error", err)
			return
		}
		c.Logger.Info("Dashboard refresh finished", "snapshots", n)
	})
	return err
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	}

	return slog.New(handler)
}
