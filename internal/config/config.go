package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel        slog.Level
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	OTDFeedURL      string
	OTDAPIKey       string
	SnapshotMaxAge  time.Duration
	FetchTimeout    time.Duration

	VehicleStaleAfter time.Duration
	SweepInterval     time.Duration
	SearchRadiiKm     []float64

	MetroGTFSURL  string
	MetroGTFSPath string

	RateLimitPerWindow int
	RateLimitWindow    time.Duration
	RateLimitWhitelist []string
}

func Load() (*Config, error) {
	apiKey := os.Getenv("OTD_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OTD_API_KEY environment variable is required")
	}

	return &Config{
		LogLevel:        getLogLevelEnv("LOG_LEVEL", slog.LevelInfo),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		OTDFeedURL:     getEnv("OTD_FEED_URL", "https://otd.delhi.gov.in/api/realtime/VehiclePositions.pb"),
		OTDAPIKey:      apiKey,
		SnapshotMaxAge: getDurationEnv("SNAPSHOT_MAX_AGE", time.Minute),
		FetchTimeout:   getDurationEnv("FETCH_TIMEOUT", 15*time.Second),

		VehicleStaleAfter: getDurationEnv("VEHICLE_STALE_AFTER", 5*time.Minute),
		SweepInterval:     getDurationEnv("SWEEP_INTERVAL", time.Hour),
		SearchRadiiKm:     getFloatsEnv("SEARCH_RADII_KM", []float64{2.0, 4.0}),

		MetroGTFSURL:  getEnv("METRO_GTFS_URL", "https://otd.delhi.gov.in/data/static/DMRC_GTFS.zip"),
		MetroGTFSPath: getEnv("METRO_GTFS_PATH", ""),

		RateLimitPerWindow: getIntEnv("RATE_LIMIT_PER_WINDOW", 120),
		RateLimitWindow:    getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitWhitelist: getCSVEnv("RATE_LIMIT_WHITELIST"),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}

func getCSVEnv(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}

func getFloatsEnv(key string, defaultVal []float64) []float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}

	parts := strings.Split(v, ",")
	result := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultVal
		}
		result = append(result, f)
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
