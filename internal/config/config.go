package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// Camera / barcode acquisition.
	CameraDevice   string
	CaptureTimeout time.Duration
	ScanInterval   time.Duration

	// Staged preview images are revoked after this TTL even if never
	// superseded, so an abandoned upload cannot hold memory forever.
	PreviewTTL time.Duration

	// Optional directory of static frontend assets. Empty disables serving.
	StaticDir string

	// Remote classification service. GeminiAPIKey may legitimately be empty
	// at load time; its absence is surfaced as a fatal config error the first
	// time a classification is attempted, never as a startup failure.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// .env is optional; real environments configure the process directly.
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 45*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		CameraDevice:       getEnvOrDefault("CAMERA_DEVICE", "/dev/video0"),
		CaptureTimeout:     parseDurationOrDefault("CAPTURE_TIMEOUT", 5*time.Second),
		ScanInterval:       parseDurationOrDefault("SCAN_INTERVAL", 100*time.Millisecond),
		PreviewTTL:         parseDurationOrDefault("PREVIEW_TTL", 15*time.Minute),
		StaticDir:          os.Getenv("STATIC_DIR"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:      getEnvOrDefault("GEMINI_BASE_URL", defaultGeminiBaseURL),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.AnalysisTimeout <= 0 || cfg.CaptureTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, analysis=%s, capture=%s)",
			cfg.RequestTimeout, cfg.AnalysisTimeout, cfg.CaptureTimeout)
	}
	if cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("SCAN_INTERVAL must be > 0 (got %s)", cfg.ScanInterval)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
