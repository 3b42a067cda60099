package container

import (
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joshua-takyi/tourdesk/internal/config"
	"github.com/joshua-takyi/tourdesk/internal/helpers"
	"github.com/joshua-takyi/tourdesk/internal/models"
	"github.com/joshua-takyi/tourdesk/internal/realtime"
	"github.com/joshua-takyi/tourdesk/internal/scheduler"
	"github.com/joshua-takyi/tourdesk/internal/services"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *slog.Logger
	Cloudinary *cloudinary.Cloudinary
	// Database clients
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	Snapshots      models.SnapshotRepo

	Tokens    *helpers.TokenValidator
	Realtime  *realtime.Manager
	Scheduler *scheduler.Service

	AuthService      *services.AuthService
	BookingService   *services.BookingService
	DashboardService *services.DashboardService
	ChatService      *services.ChatService
	PaymentService   *services.PaymentService
	TourService      *services.TourService
}

// NewContainer creates a new dependency injection container. mongoDBClient
// and cld may be nil; snapshot history and image uploads are then disabled.
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	cld *cloudinary.Cloudinary,
	supabaseClient *supabase.Client,
	mongoDBClient *mongo.Client,
) (*Container, error) {
	// Initialize repositories
	supa := models.SupabaseNewRepo(supabaseClient, cfg.SupabaseURL, cfg.SupabaseAnonKey)
	var snapshots models.SnapshotRepo
	if mongoDBClient != nil {
		snapshots = models.MongodbNewRepo(mongoDBClient)
	}

	var upload services.ImageUploader
	if cld != nil {
		upload = services.CloudinaryUploader(cld)
	}

	sched, err := scheduler.New(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	var live *realtime.Manager
	rtClient, err := realtime.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, realtime.WithLogger(logger))
	if err != nil {
		logger.Warn("Realtime disabled", "error", err)
	} else {
		live = realtime.NewManager(rtClient)
	}

	dashboardService := services.NewDashboardService(supa, supa, snapshots, services.DashboardOptions{
		Location:       cfg.Dashboard.Location(),
		DebounceWindow: cfg.Dashboard.DebounceWindow,
		SnapshotTTL:    cfg.Dashboard.SnapshotTTL,
		TrackFor:       cfg.Dashboard.TrackFor,
		Logger:         logger,
	})

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Cloudinary:       cld,
		SupabaseClient:   supabaseClient,
		MongoDBClient:    mongoDBClient,
		Snapshots:        snapshots,
		Tokens:           helpers.NewTokenValidator(cfg.SupabaseURL, cfg.IsDevelopment(), logger),
		Realtime:         live,
		Scheduler:        sched,
		AuthService:      services.NewAuthService(supa),
		BookingService:   services.NewBookingService(supa, cfg.Dashboard.PhoneRegion),
		DashboardService: dashboardService,
		ChatService:      services.NewChatService(supa, supa),
		PaymentService:   services.NewPaymentService(supa, supa, logger),
		TourService:      services.NewTourService(supa, upload),
	}, nil
}

// Close releases background workers. Database clients are closed by the caller.
func (c *Container) Close() {
	if err := c.Scheduler.Stop(); err != nil {
		c.Logger.Error("Failed to stop scheduler", "error", err)
	}
	if c.Realtime != nil {
		c.Realtime.CloseAll()
	}
	c.Tokens.Close()
}
