// Package container wires the application dependency graph.
package container

import (
	"fmt"
	"net/http"

	"github.com/WahaajTauqir/hallal-classifier/internal/barcode"
	"github.com/WahaajTauqir/hallal-classifier/internal/camera"
	"github.com/WahaajTauqir/hallal-classifier/internal/config"
	"github.com/WahaajTauqir/hallal-classifier/internal/coordinator"
	"github.com/WahaajTauqir/hallal-classifier/internal/ecodes"
	"github.com/WahaajTauqir/hallal-classifier/internal/gateway"
	"github.com/WahaajTauqir/hallal-classifier/internal/imaging"
	"github.com/WahaajTauqir/hallal-classifier/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config      *config.Config
	device      *camera.Manager
	scanner     *barcode.Session
	codec       imaging.Codec
	gateway     *gateway.Client
	coordinator *coordinator.Coordinator
	handler     http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	// Build dependency graph
	device := camera.NewManager(cfg.CameraDevice, cfg.CaptureTimeout)
	// The decoder toolkit initializes on the first scan session start.
	scanner := barcode.NewSession(device, nil, cfg.ScanInterval)
	codec := imaging.NewCodec()
	client := gateway.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.AnalysisTimeout, ecodes.PromptBlock())
	previews := coordinator.NewPreviewStore(cfg.PreviewTTL)
	coord := coordinator.New(device, scanner, codec, client, previews, cfg.AnalysisTimeout)
	handler := transport.NewHandler(coord, client, codec, cfg)

	return &Container{
		config:      cfg,
		device:      device,
		scanner:     scanner,
		codec:       codec,
		gateway:     client,
		coordinator: coord,
		handler:     handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases the camera and any active scan session.
func (c *Container) Close() error {
	return c.coordinator.Close()
}
