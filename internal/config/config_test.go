package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %s, want 60s", cfg.RequestTimeout)
	}
	if cfg.MaxRequestBodySize != 10*1024*1024 {
		t.Errorf("MaxRequestBodySize = %d, want 10MB", cfg.MaxRequestBodySize)
	}
	if cfg.CameraDevice != "/dev/video0" {
		t.Errorf("CameraDevice = %q, want /dev/video0", cfg.CameraDevice)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("GeminiModel = %q, want gemini-2.5-flash", cfg.GeminiModel)
	}
}

func TestLoadFromEnv_MissingAPIKeyIsNotFatal(t *testing.T) {
	// The credential's absence surfaces at the first classification attempt,
	// not at startup.
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, want empty", cfg.GeminiAPIKey)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ANALYSIS_TIMEOUT", "90s")
	t.Setenv("SCAN_INTERVAL", "250ms")
	t.Setenv("GEMINI_API_KEY", "secret")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.AnalysisTimeout != 90*time.Second {
		t.Errorf("AnalysisTimeout = %s, want 90s", cfg.AnalysisTimeout)
	}
	if cfg.ScanInterval != 250*time.Millisecond {
		t.Errorf("ScanInterval = %s, want 250ms", cfg.ScanInterval)
	}
	if cfg.GeminiAPIKey != "secret" {
		t.Errorf("GeminiAPIKey = %q, want secret", cfg.GeminiAPIKey)
	}
}

func TestLoadFromEnv_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port string
	}{
		{name: "not a number", port: "http"},
		{name: "zero", port: "0"},
		{name: "out of range", port: "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", tt.port)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("LoadFromEnv() with PORT=%q succeeded, want error", tt.port)
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := &Config{Host: " 127.0.0.1 ", Port: " 8080 "}
	if got, want := cfg.ServerAddress(), "127.0.0.1:8080"; got != want {
		t.Errorf("ServerAddress() = %q, want %q", got, want)
	}
}
