// Package imaging converts raw image uploads into the payloads the
// classification service expects: a lossless base64 encoding of the original
// bytes, and an OCR-enhanced derivative (grayscale plus adaptive threshold)
// re-encoded as JPEG.
package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
)

// JPEG re-encode quality for the preprocessed derivative.
const jpegQuality = 95

// Codec implements the two encodings of the image pipeline.
type Codec interface {
	EncodeOriginal(blob []byte) (string, error)
	PreprocessForOCR(blob []byte) (string, error)
	Dimensions(blob []byte) (width, height int, err error)
}

type codec struct {
	window int
	bias   int
}

// NewCodec creates a codec with the default threshold parameters.
func NewCodec() Codec {
	return &codec{window: DefaultWindowSize, bias: DefaultBias}
}

// EncodeOriginal returns the base64 encoding of blob unchanged. The blob must
// still decode as a supported raster format; undecodable input fails rather
// than being passed through to the remote service.
func (c *codec) EncodeOriginal(blob []byte) (string, error) {
	if _, _, err := image.Decode(bytes.NewReader(blob)); err != nil {
		return "", apperrors.NewImageProcessingError("The selected file could not be read as an image.", err)
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// PreprocessForOCR produces the high-contrast derivative: decode, grayscale,
// adaptive threshold, JPEG re-encode, base64.
func (c *codec) PreprocessForOCR(blob []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return "", apperrors.NewImageProcessingError("The selected file could not be read as an image.", err)
	}

	binarized := AdaptiveThreshold(Grayscale(img), c.window, c.bias)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, binarized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", apperrors.NewImageProcessingError("Failed to prepare the image for analysis.", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Dimensions reports the pixel size of blob without decoding pixel data.
func (c *codec) Dimensions(blob []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return 0, 0, apperrors.NewImageProcessingError("The selected file could not be read as an image.", err)
	}
	return cfg.Width, cfg.Height, nil
}
