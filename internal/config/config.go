package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            string
	SupabaseURL     string
	SupabaseAnonKey string
	MongoDBURI      string
	MongoDBPassword string
	Environment     string
	LogLevel        string
	FrontendOrigins []string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	Dashboard DashboardConfig
}

// DashboardConfig tunes dashboard refreshes. It is read from the YAML file
// named by DASHBOARD_CONFIG; every field has a default.
type DashboardConfig struct {
	Timezone       string        `yaml:"timezone"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
	RefreshCron    string        `yaml:"refresh_cron"`
	SnapshotTTL    time.Duration `yaml:"snapshot_ttl"`
	TrackFor       time.Duration `yaml:"track_for"` // how long an operator stays in scheduled refreshes after its last visit
	PhoneRegion    string        `yaml:"phone_region"`
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Timezone:       "UTC",
		DebounceWindow: 2 * time.Second,
		RefreshCron:    "*/5 * * * *",
		SnapshotTTL:    90 * 24 * time.Hour,
		TrackFor:       24 * time.Hour,
		PhoneRegion:    "GH",
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnvWithDefault("PORT", "8080"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey: os.Getenv("SUPABASE_URL_ANON_KEY"),
		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		FrontendOrigins: splitList(getEnvWithDefault("FRONTEND_ORIGINS", "http://localhost:3000")),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
	}

	// Validate required fields
	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
	}
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}

	dash, err := LoadDashboardConfig(os.Getenv("DASHBOARD_CONFIG"))
	if err != nil {
		return nil, err
	}
	cfg.Dashboard = dash

	return cfg, nil
}

// LoadDashboardConfig reads the YAML file at path over the defaults. An
// empty path yields the defaults.
func LoadDashboardConfig(path string) (DashboardConfig, error) {
	cfg := DefaultDashboardConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading dashboard config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing dashboard config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid dashboard config: %w", err)
	}
	return cfg, nil
}

func (d DashboardConfig) Validate() error {
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", d.Timezone)
	}
	if d.DebounceWindow < 0 {
		return fmt.Errorf("debounce_window must not be negative")
	}
	if strings.TrimSpace(d.RefreshCron) == "" {
		return fmt.Errorf("refresh_cron is required")
	}
	if d.SnapshotTTL <= 0 {
		return fmt.Errorf("snapshot_ttl must be positive")
	}
	if len(d.PhoneRegion) != 2 {
		return fmt.Errorf("phone_region must be a two-letter region code")
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (d DashboardConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) HasCloudinary() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// SlogLevel maps LOG_LEVEL onto slog. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
