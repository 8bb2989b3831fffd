// Package coordinator owns the acquisition state machine. Exactly one
// acquisition mode is active at any time; switching modes tears down the
// previous mode's device or session before the new one starts. At most one
// classification request is in flight per coordinator; concurrent
// submissions are rejected, never queued.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
	"github.com/WahaajTauqir/hallal-classifier/internal/logger"
	"github.com/WahaajTauqir/hallal-classifier/pkg/models"
)

// Mode is the current acquisition mode.
type Mode string

const (
	ModeUpload  Mode = "upload"
	ModeCapture Mode = "capture"
	ModeBarcode Mode = "barcode"
)

// Progress labels shown while a request is in flight. Informational only.
const (
	phasePreprocessing = "Preprocessing & Analyzing..."
	phaseClassifying   = "Analyzing Ingredients & Logo..."
)

// CaptureDevice is the camera surface the coordinator drives.
type CaptureDevice interface {
	Start(ctx context.Context) error
	Stop() error
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// ScanSession is the barcode scanning surface the coordinator drives.
type ScanSession interface {
	Start(ctx context.Context, onDecode func(string)) error
	Stop() error
}

// Codec produces the two image encodings submitted for classification.
type Codec interface {
	EncodeOriginal(blob []byte) (string, error)
	PreprocessForOCR(blob []byte) (string, error)
}

// Classifier is the remote classification gateway.
type Classifier interface {
	ClassifyImage(ctx context.Context, processedB64, originalB64 string) (*models.AnalysisResult, error)
	ClassifyBarcode(ctx context.Context, code string) (*models.AnalysisResult, error)
}

// Status is a point-in-time snapshot of the coordinator.
type Status struct {
	Mode            Mode                   `json:"mode"`
	Busy            bool                   `json:"busy"`
	Phase           string                 `json:"phase,omitempty"`
	AwaitingScanner bool                   `json:"awaitingScanner,omitempty"`
	PreviewID       string                 `json:"previewId,omitempty"`
	Result          *models.AnalysisResult `json:"result,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

type pendingImage struct {
	blob      []byte
	previewID string
}

// Coordinator implements the acquisition state machine.
type Coordinator struct {
	device   CaptureDevice
	scanner  ScanSession
	codec    Codec
	gateway  Classifier
	previews *PreviewStore

	analysisTimeout time.Duration

	// opMu serializes mode transitions and analysis triggers. It is never
	// taken by the decode callback or by result application, so a session
	// teardown can always drain the scan loop.
	opMu sync.Mutex

	// mu guards the fields below.
	mu sync.Mutex
	// generation is the completion token: it is bumped on every mode change,
	// and a finished request only applies its outcome if its generation is
	// still current. In-flight remote calls are never cancelled; their stale
	// results are dropped here instead.
	generation      uint64
	mode            Mode
	awaitingScanner bool
	inFlight        bool
	phase           string
	pending         *pendingImage
	result          *models.AnalysisResult
	lastErr         error
}

// New creates a coordinator in Upload mode.
func New(device CaptureDevice, scanner ScanSession, codec Codec, gateway Classifier, previews *PreviewStore, analysisTimeout time.Duration) *Coordinator {
	return &Coordinator{
		device:          device,
		scanner:         scanner,
		codec:           codec,
		gateway:         gateway,
		previews:        previews,
		analysisTimeout: analysisTimeout,
		mode:            ModeUpload,
	}
}

// SetMode switches the acquisition mode. The previous mode's device or
// session is always stopped before the new mode's acquisition path starts,
// and any pending image, result, and error state is cleared.
func (c *Coordinator) SetMode(ctx context.Context, mode Mode) error {
	switch mode {
	case ModeUpload, ModeCapture, ModeBarcode:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown mode %q", mode), nil)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	from := c.mode
	c.mode = mode
	c.awaitingScanner = mode == ModeBarcode
	c.releasePendingLocked()
	c.result = nil
	c.lastErr = nil
	c.mu.Unlock()

	logger.WithFields(logrus.Fields{"from": from, "to": mode}).Info("mode change")

	// Teardown before activation; both stops are idempotent.
	if err := c.scanner.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop barcode session on mode change")
	}
	if err := c.device.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop capture device on mode change")
	}

	if mode == ModeCapture {
		if err := c.device.Start(ctx); err != nil {
			c.failToUpload(gen, err)
			return err
		}
	}
	// Barcode mode waits for ConfirmScannerReady before binding the session:
	// the scan viewport must be mounted before the scanner can attach to it.
	return nil
}

// ConfirmScannerReady is the readiness handshake for barcode mode. The scan
// session only binds once the client confirms the viewport is mounted,
// instead of guessing with a timer.
func (c *Coordinator) ConfirmScannerReady(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.mode != ModeBarcode {
		c.mu.Unlock()
		return apperrors.NewValidationError("not in barcode mode", nil)
	}
	if !c.awaitingScanner {
		c.mu.Unlock()
		return nil
	}
	c.awaitingScanner = false
	gen := c.generation
	c.mu.Unlock()

	if err := c.scanner.Start(ctx, c.handleDecode); err != nil {
		c.failToUpload(gen, err)
		return err
	}
	return nil
}

// StageImage stores an uploaded image as the pending image, superseding and
// releasing any previously staged one. Upload mode only.
func (c *Coordinator) StageImage(blob []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeUpload {
		return "", apperrors.NewValidationError("switch to upload mode before staging an image", nil)
	}
	if c.inFlight {
		return "", apperrors.NewBusyError("An analysis is already in progress.")
	}

	c.releasePendingLocked()
	id := c.previews.Put(blob)
	c.pending = &pendingImage{blob: blob, previewID: id}
	c.result = nil
	c.lastErr = nil
	return id, nil
}

// Preview fetches a staged preview blob by handle.
func (c *Coordinator) Preview(id string) ([]byte, error) {
	blob, ok := c.previews.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("Preview not found or expired.", nil)
	}
	return blob, nil
}

// Analyze classifies the staged image. Explicit user trigger in Upload mode;
// blocks until the verdict is in. Gateway failures leave the mode unchanged
// so the user can simply re-submit.
func (c *Coordinator) Analyze(ctx context.Context) (*models.AnalysisResult, error) {
	c.mu.Lock()
	if c.mode != ModeUpload {
		c.mu.Unlock()
		return nil, apperrors.NewValidationError("image analysis requires upload mode", nil)
	}
	if c.pending == nil {
		c.mu.Unlock()
		return nil, apperrors.NewValidationError("no image staged for analysis", nil)
	}
	blob := c.pending.blob
	gen := c.generation
	c.mu.Unlock()

	if err := c.beginFlight(phasePreprocessing); err != nil {
		return nil, err
	}
	defer c.endFlight()

	return c.classifyImage(ctx, gen, blob)
}

// CaptureAndAnalyze is the Capture-mode one-shot: snapshot a frame, release
// the camera, then autonomously encode and classify. The coordinator returns
// to Upload mode on completion, success or failure, so the camera is never
// left running.
func (c *Coordinator) CaptureAndAnalyze(ctx context.Context) (*models.AnalysisResult, error) {
	c.opMu.Lock()
	c.mu.Lock()
	if c.mode != ModeCapture {
		c.mu.Unlock()
		c.opMu.Unlock()
		return nil, apperrors.NewValidationError("frame capture requires capture mode", nil)
	}
	gen := c.generation
	c.mu.Unlock()

	if err := c.beginFlight(phasePreprocessing); err != nil {
		c.opMu.Unlock()
		return nil, err
	}

	frame, err := c.device.CaptureFrame(ctx)
	if stopErr := c.device.Stop(); stopErr != nil {
		logger.WithError(stopErr).Warn("failed to stop capture device after capture")
	}
	if err != nil {
		c.endFlight()
		c.failToUpload(gen, err)
		c.opMu.Unlock()
		return nil, err
	}

	// One-shot policy: back to Upload with the frame staged before the slow
	// remote call, so the hardware is already released.
	c.mu.Lock()
	if gen == c.generation {
		c.mode = ModeUpload
		c.releasePendingLocked()
		id := c.previews.Put(frame)
		c.pending = &pendingImage{blob: frame, previewID: id}
	}
	c.mu.Unlock()
	c.opMu.Unlock()

	defer c.endFlight()
	return c.classifyImage(ctx, gen, frame)
}

// classifyImage runs the preprocessing pipeline and the remote call, then
// applies the outcome if it still belongs to the current mode context.
func (c *Coordinator) classifyImage(ctx context.Context, gen uint64, blob []byte) (*models.AnalysisResult, error) {
	processed, err := c.codec.PreprocessForOCR(blob)
	if err != nil {
		c.recordError(gen, err)
		return nil, err
	}
	original, err := c.codec.EncodeOriginal(blob)
	if err != nil {
		c.recordError(gen, err)
		return nil, err
	}

	c.setPhase(phaseClassifying)
	result, err := c.gateway.ClassifyImage(ctx, processed, original)
	if err != nil {
		c.recordError(gen, err)
		return nil, err
	}
	c.applyResult(gen, result)
	return result, nil
}

// handleDecode receives the single decoded value from the scan session and
// autonomously triggers barcode classification. Runs on the scan goroutine;
// the remote call is pushed to its own goroutine so the session can be torn
// down without waiting on the network.
func (c *Coordinator) handleDecode(code string) {
	c.mu.Lock()
	if c.mode != ModeBarcode {
		c.mu.Unlock()
		return
	}
	gen := c.generation
	c.mu.Unlock()

	if err := c.beginFlight(fmt.Sprintf("Looking up barcode: %s...", code)); err != nil {
		return
	}

	go func() {
		defer c.endFlight()

		ctx, cancel := context.WithTimeout(context.Background(), c.analysisTimeout)
		defer cancel()
		result, err := c.gateway.ClassifyBarcode(ctx, code)

		// One-shot policy: the scanner is released on completion regardless
		// of outcome.
		if stopErr := c.scanner.Stop(); stopErr != nil {
			logger.WithError(stopErr).Warn("failed to stop barcode session after lookup")
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation {
			logger.Debug("dropping stale barcode lookup outcome")
			return
		}
		c.mode = ModeUpload
		c.awaitingScanner = false
		if err != nil {
			c.lastErr = err
			return
		}
		c.result = result
	}()
}

// Status returns a snapshot for presentation.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Mode:            c.mode,
		Busy:            c.inFlight,
		Phase:           c.phase,
		AwaitingScanner: c.awaitingScanner,
		Result:          c.result,
	}
	if c.pending != nil {
		s.PreviewID = c.pending.previewID
	}
	if c.lastErr != nil {
		s.Error = apperrors.UserMessage(c.lastErr)
	}
	return s
}

// Close releases the camera and the scan session unconditionally. Called on
// shutdown regardless of which mode was last active.
func (c *Coordinator) Close() error {
	if err := c.scanner.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop barcode session on close")
	}
	if err := c.device.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop capture device on close")
	}
	c.mu.Lock()
	c.releasePendingLocked()
	c.mu.Unlock()
	return nil
}

// beginFlight enforces the single-flight invariant.
func (c *Coordinator) beginFlight(phase string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return apperrors.NewBusyError("An analysis is already in progress.")
	}
	c.inFlight = true
	c.phase = phase
	c.result = nil
	c.lastErr = nil
	return nil
}

func (c *Coordinator) endFlight() {
	c.mu.Lock()
	c.inFlight = false
	c.phase = ""
	c.mu.Unlock()
}

func (c *Coordinator) setPhase(phase string) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
}

// applyResult installs a finished verdict unless a mode change made it stale.
func (c *Coordinator) applyResult(gen uint64, result *models.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		logger.Debug("dropping stale analysis result")
		return
	}
	c.result = result
}

func (c *Coordinator) recordError(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		logger.Debug("dropping stale analysis error")
		return
	}
	c.lastErr = err
}

// failToUpload records a device or toolkit failure and forces the
// coordinator back to Upload so the UI is never stuck in a broken
// Capture/Barcode state.
func (c *Coordinator) failToUpload(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.mode = ModeUpload
	c.awaitingScanner = false
	c.lastErr = err
}

// releasePendingLocked revokes the staged preview handle. Callers hold c.mu.
func (c *Coordinator) releasePendingLocked() {
	if c.pending == nil {
		return
	}
	c.previews.Release(c.pending.previewID)
	c.pending = nil
}
