package imaging

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"image/png"
	"testing"

	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
)

func pngBlob(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradientImage(w, h)); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestEncodeOriginal_RoundTrip(t *testing.T) {
	blob := pngBlob(t, 24, 24)
	c := NewCodec()

	encoded, err := c.EncodeOriginal(blob)
	if err != nil {
		t.Fatalf("EncodeOriginal() error = %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	if !bytes.Equal(decoded, blob) {
		t.Error("decoding the output did not reproduce the original bytes")
	}
}

func TestEncodeOriginal_RejectsNonImage(t *testing.T) {
	c := NewCodec()

	_, err := c.EncodeOriginal([]byte("definitely not an image"))
	if err == nil {
		t.Fatal("expected error for non-image input")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeImageProcessing) {
		t.Errorf("error type = %v, want image_processing", err)
	}
}

func TestPreprocessForOCR(t *testing.T) {
	blob := pngBlob(t, 48, 32)
	c := NewCodec()

	encoded, err := c.PreprocessForOCR(blob)
	if err != nil {
		t.Fatalf("PreprocessForOCR() error = %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(decoded))
	if err != nil {
		t.Fatalf("output is not a decodable JPEG: %v", err)
	}
	if got, want := img.Bounds().Dx(), 48; got != want {
		t.Errorf("width = %d, want %d", got, want)
	}

	// Same input, same derivative.
	again, err := c.PreprocessForOCR(blob)
	if err != nil {
		t.Fatalf("second PreprocessForOCR() error = %v", err)
	}
	if again != encoded {
		t.Error("preprocessing is not deterministic for identical input")
	}
}

func TestPreprocessForOCR_RejectsNonImage(t *testing.T) {
	c := NewCodec()

	_, err := c.PreprocessForOCR([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for non-image input")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeImageProcessing) {
		t.Errorf("error type = %v, want image_processing", err)
	}
}

func TestDimensions(t *testing.T) {
	c := NewCodec()

	w, h, err := c.Dimensions(pngBlob(t, 60, 45))
	if err != nil {
		t.Fatalf("Dimensions() error = %v", err)
	}
	if w != 60 || h != 45 {
		t.Errorf("dimensions = %dx%d, want 60x45", w, h)
	}
}
