// Package barcode wraps a multi-format barcode decoder and the continuous
// scan session that feeds it camera frames.
package barcode

import (
	"errors"
	"image"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
)

// ErrNoCode is returned when a frame contains no decodable barcode. The scan
// loop treats it as a normal miss, not a failure.
var ErrNoCode = errors.New("no barcode found")

// Fraction of the smaller frame dimension covered by the centered decode
// region. Restricting the region excludes peripheral noise and improves
// accuracy on handheld frames.
const decodeRegionFraction = 0.7

// Decoder tries a fixed set of 1D product formats plus QR against the
// centered region of a frame.
type Decoder struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

var (
	toolkitOnce sync.Once
	toolkit     *Decoder
	toolkitErr  error
)

// SharedDecoder returns the process-wide decoder, initializing it on first
// use. Initialization happens at most once; concurrent callers block on the
// same attempt and observe the same outcome. A failed initialization is
// permanent and reported as a toolchain error.
func SharedDecoder() (*Decoder, error) {
	toolkitOnce.Do(func() {
		toolkit, toolkitErr = newDecoder()
	})
	if toolkitErr != nil {
		return nil, apperrors.NewToolchainUnavailableError(
			"The barcode decoder failed to initialize. Restart the service.", toolkitErr)
	}
	return toolkit, nil
}

func newDecoder() (*Decoder, error) {
	readers := []gozxing.Reader{
		oned.NewEAN13Reader(),
		oned.NewEAN8Reader(),
		oned.NewUPCAReader(),
		oned.NewUPCEReader(),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewITFReader(),
		qrcode.NewQRCodeReader(),
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	return &Decoder{readers: readers, hints: hints}, nil
}

// Decode attempts to read one barcode from the centered region of img.
// Returns ErrNoCode when nothing decodable is present.
func (d *Decoder) Decode(img image.Image) (string, error) {
	region := centerRegion(img)

	bmp, err := gozxing.NewBinaryBitmapFromImage(region)
	if err != nil {
		return "", ErrNoCode
	}

	for _, reader := range d.readers {
		result, err := reader.Decode(bmp, d.hints)
		if err == nil && result != nil && result.GetText() != "" {
			return result.GetText(), nil
		}
	}
	return "", ErrNoCode
}

// centerRegion crops a centered square covering decodeRegionFraction of the
// smaller image dimension. Images too small to crop are used whole.
func centerRegion(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	side := int(float64(min(w, h)) * decodeRegionFraction)
	if side < 1 {
		return img
	}

	x0 := bounds.Min.X + (w-side)/2
	y0 := bounds.Min.Y + (h-side)/2
	rect := image.Rect(x0, y0, x0+side, y0+side)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(rect)
	}

	cropped := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			cropped.Set(x, y, img.At(x0+x, y0+y))
		}
	}
	return cropped
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
