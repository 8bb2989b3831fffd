// Package camera manages the host-attached capture device. At most one
// stream is open at any time; Stop is idempotent and releases the hardware
// synchronously.
package camera

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
	"github.com/WahaajTauqir/hallal-classifier/internal/logger"
)

// Device is the narrow surface the coordinator and the barcode session need.
type Device interface {
	Start(ctx context.Context) error
	Stop() error
	CaptureFrame(ctx context.Context) ([]byte, error)
	Frames() <-chan []byte
}

// Manager owns a single V4L2 device. Calling Start while already started
// stops the previous stream first, so two hardware handles can never be open
// at once.
type Manager struct {
	mu sync.Mutex

	devName        string
	captureTimeout time.Duration

	dev    *device.Device
	cancel context.CancelFunc
	frames <-chan []byte
}

// NewManager binds a manager to a device path such as /dev/video0.
func NewManager(devName string, captureTimeout time.Duration) *Manager {
	return &Manager{devName: devName, captureTimeout: captureTimeout}
}

// Start opens the device in JPEG pixel format and begins streaming.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dev != nil {
		logger.Warn("capture device already started, stopping previous stream")
		m.stopLocked()
	}

	dev, err := device.Open(
		m.devName,
		device.WithBufferSize(1),
		device.WithPixFormat(v4l2.PixFormat{PixelFormat: v4l2.PixelFmtJPEG}),
	)
	if err != nil {
		return mapDeviceErr(m.devName, err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	if err := dev.Start(streamCtx); err != nil {
		cancel()
		_ = dev.Close()
		return mapDeviceErr(m.devName, err)
	}

	m.dev = dev
	m.cancel = cancel
	m.frames = dev.GetOutput()
	return nil
}

// Stop releases the device. Safe to call when no stream is active.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Manager) stopLocked() error {
	if m.cancel != nil {
		// Cancel first so the driver goroutine reaches its ctx.Done branch
		// before the device handle is closed underneath it.
		m.cancel()
		time.Sleep(100 * time.Millisecond)
		m.cancel = nil
	}
	if m.dev == nil {
		return nil
	}
	err := m.dev.Close()
	m.dev = nil
	m.frames = nil
	if err != nil {
		logger.WithError(err).Warn("failed to close capture device")
	}
	return err
}

// Frames exposes the live stream for consumers that sample continuously,
// such as the barcode scan loop. Nil when the device is stopped.
func (m *Manager) Frames() <-chan []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// CaptureFrame snapshots one frame at the stream's native resolution. It
// fails if the stream has not produced a frame before the capture deadline,
// which covers the window before the sensor delivers its first frame.
func (m *Manager) CaptureFrame(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	frames := m.frames
	m.mu.Unlock()

	if frames == nil {
		return nil, apperrors.NewCaptureError("The camera is not running.", nil)
	}

	timeout, cancel := context.WithTimeout(ctx, m.captureTimeout)
	defer cancel()

	select {
	case frame, ok := <-frames:
		if !ok || len(frame) == 0 {
			return nil, apperrors.NewCaptureError("The camera stopped before a frame was captured.", nil)
		}
		// The driver reuses the frame buffer; the snapshot must own its bytes.
		img := make([]byte, len(frame))
		copy(img, frame)
		return img, nil
	case <-timeout.Done():
		return nil, apperrors.NewCaptureError("The camera did not deliver a frame in time. Try again once the preview is visible.", timeout.Err())
	}
}

// mapDeviceErr translates driver failures into the user-facing taxonomy.
func mapDeviceErr(devName string, err error) error {
	switch {
	case errors.Is(err, os.ErrPermission), containsAny(err, "permission denied", "operation not permitted"):
		return apperrors.NewPermissionDeniedError(
			"Camera access was denied. Grant the service permission to use the camera.", err)
	case errors.Is(err, os.ErrNotExist), containsAny(err, "no such file", "no such device"):
		return apperrors.NewDeviceUnavailableError(
			"No camera was found at "+devName+".", err)
	case containsAny(err, "busy", "ebusy"):
		return apperrors.NewDeviceUnavailableError(
			"The camera is in use by another application.", err)
	default:
		return apperrors.NewDeviceUnavailableError(
			"Could not start the camera. Ensure it is connected and not in use.", err)
	}
}

func containsAny(err error, substrs ...string) bool {
	s := strings.ToLower(err.Error())
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
