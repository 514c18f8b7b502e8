package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	DatabaseURL          string
	JWTSecret            string
	JWTRefreshSecret     string
	JWTIssuer            string
	AccessTTLSeconds     int64
	RefreshTTLDays       int
	CorsOrigins          []string
	MetricsDiskPath      string
	MetricsSampleSeconds int

	// Telemetry tuning constants. These drive the status deriver and are
	// configuration, not protocol.
	StatusWindowSize  int
	MaxEventsPerBatch int
}

func Load() Config {
	secret := mustEnv("JWT_SECRET")
	return Config{
		DatabaseURL:          mustEnv("DATABASE_URL"),
		JWTSecret:            secret,
		JWTRefreshSecret:     envOr("JWT_REFRESH_SECRET", secret+".refresh"),
		JWTIssuer:            envOr("JWT_ISSUER", "learnpath"),
		AccessTTLSeconds:     int64(envOrInt("ACCESS_TTL_SECONDS", 3600)),
		RefreshTTLDays:       envOrInt("REFRESH_TTL_DAYS", 30),
		CorsOrigins:          parseCSV(envOr("CORS_ORIGINS", "")),
		MetricsDiskPath:      envOr("METRICS_DISK_PATH", "/"),
		MetricsSampleSeconds: envOrInt("METRICS_SAMPLE_INTERVAL", 15),
		StatusWindowSize:     envOrInt("STATUS_WINDOW_SIZE", 20),
		MaxEventsPerBatch:    envOrInt("MAX_EVENTS_PER_BATCH", 50),
	}
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		panic("missing env var: " + key)
	}
	return value
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
