// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Telemetry exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL      string
	LogLevel         string
	LogFormat        string
	HTTPAddr         string
	TelegramBotToken string
	DefaultCurrency  string
	Timezone         string

	RecommendationInterval time.Duration
	ReminderInterval       time.Duration
	PendingInterval        time.Duration
	JobTimeout             time.Duration
	DismissCooldown        time.Duration

	OTelExporter    string
	OTelServiceName string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(envOr("LOG_FORMAT", "console")),
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DefaultCurrency:  strings.ToUpper(envOr("DEFAULT_CURRENCY", "TRY")),
		Timezone:         envOr("TIMEZONE", "UTC"),
		OTelExporter:     strings.ToLower(envOr("OTEL_EXPORTER", ExporterNone)),
		OTelServiceName:  envOr("OTEL_SERVICE_NAME", "subnest"),
	}

	var errs []string

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"RECOMMENDATION_INTERVAL", 24 * time.Hour, &cfg.RecommendationInterval},
		{"REMINDER_INTERVAL", time.Hour, &cfg.ReminderInterval},
		{"PENDING_NOTIFICATION_INTERVAL", 5 * time.Minute, &cfg.PendingInterval},
		{"JOB_TIMEOUT", 10 * time.Minute, &cfg.JobTimeout},
		{"DISMISS_COOLDOWN", 0, &cfg.DismissCooldown},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		*d.dst = v
	}

	if err := cfg.validate(errs); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PushEnabled reports whether a Telegram token is configured.
func (c *Config) PushEnabled() bool {
	return c.TelegramBotToken != ""
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s must be a duration like 30m or 24h", key)
	}
	if d < 0 {
		return def, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate(errs []string) error {
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, "LOG_FORMAT must be console or json")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE %q is not a valid location", c.Timezone))
	}

	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, "DEFAULT_CURRENCY must be a 3-letter code")
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC:
	default:
		errs = append(errs, "OTEL_EXPORTER must be one of none, stdout, otlp-http, otlp-grpc")
	}

	if c.RecommendationInterval == 0 {
		errs = append(errs, "RECOMMENDATION_INTERVAL must be positive")
	}
	if c.ReminderInterval == 0 {
		errs = append(errs, "REMINDER_INTERVAL must be positive")
	}
	if c.PendingInterval == 0 {
		errs = append(errs, "PENDING_NOTIFICATION_INTERVAL must be positive")
	}
	if c.JobTimeout == 0 {
		errs = append(errs, "JOB_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
