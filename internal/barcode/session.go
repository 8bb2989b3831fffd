package barcode

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	"sync"
	"time"

	"github.com/WahaajTauqir/hallal-classifier/internal/logger"
)

// FrameSource supplies live frames, typically the capture device.
type FrameSource interface {
	Start(ctx context.Context) error
	Stop() error
	Frames() <-chan []byte
}

// frameDecoder is what the session needs from the decoder toolkit.
type frameDecoder interface {
	Decode(img image.Image) (string, error)
}

// ErrSessionRunning is returned when Start is called on an active session.
var ErrSessionRunning = errors.New("scan session already running")

// Session binds a continuous scanning loop to a frame source. Frames are
// sampled at a fixed interval and decoded against the centered region. The
// first successful decode invokes the callback exactly once; the session then
// suppresses further decodes until Stop. Raw decode hits can repeat many
// times per second while the same physical code stays in frame, so the
// session collapses the burst into a single logical event.
type Session struct {
	mu sync.Mutex

	source   FrameSource
	decoder  frameDecoder
	interval time.Duration

	running bool
	fired   bool
	cancel  context.CancelFunc
	done    chan struct{}
	// stopped is closed once teardown, including the source stop, has
	// finished. Concurrent Stop callers wait on it so that no caller returns
	// while the source release is still pending.
	stopped chan struct{}
}

// NewSession creates a session over source. A nil decoder defers toolkit
// initialization to the first Start, so a toolkit failure surfaces when
// scanning is requested rather than at construction.
func NewSession(source FrameSource, decoder frameDecoder, interval time.Duration) *Session {
	return &Session{source: source, decoder: decoder, interval: interval}
}

// Start begins scanning and delivers the first decoded value to onDecode.
// The callback runs on the scan goroutine.
func (s *Session) Start(ctx context.Context, onDecode func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSessionRunning
	}

	if s.decoder == nil {
		d, err := SharedDecoder()
		if err != nil {
			return err
		}
		s.decoder = d
	}

	if err := s.source.Start(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	s.running = true
	s.fired = false

	go s.scanLoop(loopCtx, onDecode)
	return nil
}

// Stop ends the session and releases the frame source. Idempotent: calling
// it on a stopped session is a no-op. When another caller is mid-teardown,
// Stop blocks until that teardown has released the source, so no caller ever
// returns while a source stop is still pending against it.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		stopped := s.stopped
		s.mu.Unlock()
		if stopped != nil {
			<-stopped
		}
		return nil
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	stopped := s.stopped
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-done
	err := s.source.Stop()
	close(stopped)
	return err
}

func (s *Session) scanLoop(ctx context.Context, onDecode func(string)) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frames := s.source.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var frame []byte
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			frame = f
		default:
			// No frame ready this tick.
			continue
		}

		s.mu.Lock()
		suppressed := s.fired
		s.mu.Unlock()
		if suppressed {
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(frame))
		if err != nil {
			continue
		}

		value, err := s.decoder.Decode(img)
		if err != nil {
			continue
		}

		s.mu.Lock()
		if s.fired || !s.running {
			s.mu.Unlock()
			continue
		}
		s.fired = true
		s.mu.Unlock()

		logger.WithField("value", value).Info("barcode decoded")
		onDecode(value)
	}
}
