package barcode

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource feeds the same JPEG frame on every read.
type fakeSource struct {
	frames chan []byte

	startCalls int32
	stopCalls  int32

	mu     sync.Mutex
	events []string
}

func newFakeSource(t *testing.T) *fakeSource {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16)), nil); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	frame := buf.Bytes()

	frames := make(chan []byte, 64)
	s := &fakeSource{frames: frames}
	go func() {
		for i := 0; i < cap(frames); i++ {
			frames <- frame
		}
	}()
	return s
}

func (f *fakeSource) Start(ctx context.Context) error {
	atomic.AddInt32(&f.startCalls, 1)
	f.record("start")
	return nil
}

func (f *fakeSource) Stop() error {
	atomic.AddInt32(&f.stopCalls, 1)
	f.record("stop")
	return nil
}

func (f *fakeSource) Frames() <-chan []byte { return f.frames }

func (f *fakeSource) record(event string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeSource) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// fixedDecoder decodes every frame to the same value.
type fixedDecoder struct {
	value string
}

func (d *fixedDecoder) Decode(img image.Image) (string, error) {
	return d.value, nil
}

// stuckDecoder parks the scan goroutine inside a decode until released.
type stuckDecoder struct {
	entered chan struct{}
	release chan struct{}
}

func (d *stuckDecoder) Decode(img image.Image) (string, error) {
	select {
	case d.entered <- struct{}{}:
	default:
	}
	<-d.release
	return "", ErrNoCode
}

func TestSession_FiresExactlyOnce(t *testing.T) {
	source := newFakeSource(t)
	session := NewSession(source, &fixedDecoder{value: "5901234123457"}, 5*time.Millisecond)

	var mu sync.Mutex
	var decoded []string
	err := session.Start(context.Background(), func(value string) {
		mu.Lock()
		decoded = append(decoded, value)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Many decode-capable frames arrive while the session runs; the burst
	// must collapse to one callback.
	time.Sleep(200 * time.Millisecond)
	if err := session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(decoded) != 1 {
		t.Fatalf("callback fired %d times, want 1", len(decoded))
	}
	if decoded[0] != "5901234123457" {
		t.Errorf("decoded value = %q, want %q", decoded[0], "5901234123457")
	}
}

func TestSession_StartWhileRunning(t *testing.T) {
	source := newFakeSource(t)
	session := NewSession(source, &fixedDecoder{value: "x"}, time.Millisecond)

	if err := session.Start(context.Background(), func(string) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer session.Stop()

	if err := session.Start(context.Background(), func(string) {}); err != ErrSessionRunning {
		t.Errorf("second Start() error = %v, want ErrSessionRunning", err)
	}
}

func TestSession_StopIdempotent(t *testing.T) {
	source := newFakeSource(t)
	session := NewSession(source, &fixedDecoder{value: "x"}, time.Millisecond)

	// Stopping a never-started session is a no-op.
	if err := session.Stop(); err != nil {
		t.Fatalf("Stop() on idle session error = %v", err)
	}
	if n := atomic.LoadInt32(&source.stopCalls); n != 0 {
		t.Errorf("source stopped %d times before start, want 0", n)
	}

	if err := session.Start(context.Background(), func(string) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("redundant Stop() error = %v", err)
	}

	if n := atomic.LoadInt32(&source.stopCalls); n != 1 {
		t.Errorf("source stopped %d times, want 1", n)
	}
}

func TestSession_ConcurrentStopWaitsForTeardown(t *testing.T) {
	source := newFakeSource(t)
	decoder := &stuckDecoder{entered: make(chan struct{}, 1), release: make(chan struct{})}
	session := NewSession(source, decoder, time.Millisecond)

	if err := session.Start(context.Background(), func(string) {}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Wait until the scan goroutine is held inside the decoder; teardown
	// cannot finish until it is released.
	select {
	case <-decoder.entered:
	case <-time.After(time.Second):
		t.Fatal("scan loop never reached the decoder")
	}

	first := make(chan struct{})
	go func() {
		session.Stop()
		close(first)
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan struct{})
	go func() {
		// A concurrent Stop must not return until the source has actually
		// been released; only then may the next owner start the source.
		session.Stop()
		source.Start(context.Background())
		close(second)
	}()
	time.Sleep(20 * time.Millisecond)

	close(decoder.release)
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("first Stop() did not finish")
	}
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second Stop() did not finish")
	}

	events := source.eventLog()
	want := []string{"start", "stop", "start"}
	if len(events) != len(want) {
		t.Fatalf("source events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("source events = %v, want %v", events, want)
		}
	}
}

func TestSession_Restart(t *testing.T) {
	source := newFakeSource(t)
	session := NewSession(source, &fixedDecoder{value: "restarted"}, 5*time.Millisecond)

	var fires int32
	onDecode := func(string) { atomic.AddInt32(&fires, 1) }

	for i := 0; i < 2; i++ {
		if err := session.Start(context.Background(), onDecode); err != nil {
			t.Fatalf("Start() #%d error = %v", i+1, err)
		}
		time.Sleep(50 * time.Millisecond)
		if err := session.Stop(); err != nil {
			t.Fatalf("Stop() #%d error = %v", i+1, err)
		}
	}

	// Suppression resets on restart, so each run fires once.
	if n := atomic.LoadInt32(&fires); n != 2 {
		t.Errorf("callback fired %d times across two runs, want 2", n)
	}
}
