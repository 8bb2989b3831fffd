package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / max(w-1, 1))
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestGrayscale(t *testing.T) {
	img := gradientImage(32, 16)
	gray := Grayscale(img)

	if got, want := gray.Bounds(), img.Bounds(); got != want {
		t.Errorf("bounds = %v, want %v", got, want)
	}
	if gray.GrayAt(0, 0).Y >= gray.GrayAt(31, 0).Y {
		t.Errorf("expected luminance to increase along gradient, got %d >= %d",
			gray.GrayAt(0, 0).Y, gray.GrayAt(31, 0).Y)
	}
}

func TestAdaptiveThreshold_Binarization(t *testing.T) {
	tests := []struct {
		name   string
		window int
		bias   int
	}{
		{name: "default parameters", window: DefaultWindowSize, bias: DefaultBias},
		{name: "tiny window clamped", window: 1, bias: 0},
		{name: "even window widened", window: 8, bias: 2},
		{name: "large window", window: 31, bias: 5},
	}

	gray := Grayscale(gradientImage(64, 48))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := AdaptiveThreshold(gray, tt.window, tt.bias)
			for i, v := range out.Pix {
				if v != 0 && v != 255 {
					t.Fatalf("pixel %d = %d, want 0 or 255", i, v)
				}
			}
		})
	}
}

func TestAdaptiveThreshold_Deterministic(t *testing.T) {
	gray := Grayscale(gradientImage(40, 40))

	first := AdaptiveThreshold(gray, DefaultWindowSize, DefaultBias)
	second := AdaptiveThreshold(gray, DefaultWindowSize, DefaultBias)

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("identical input and parameters produced different output")
	}
}

func TestAdaptiveThreshold_UniformImage(t *testing.T) {
	// With a positive bias every pixel sits above its local threshold, so a
	// flat image binarizes to all white.
	gray := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}

	out := AdaptiveThreshold(gray, DefaultWindowSize, DefaultBias)
	for i, v := range out.Pix {
		if v != 255 {
			t.Fatalf("pixel %d = %d, want 255", i, v)
		}
	}
}

func TestAdaptiveThreshold_EmptyImage(t *testing.T) {
	out := AdaptiveThreshold(image.NewGray(image.Rect(0, 0, 0, 0)), DefaultWindowSize, DefaultBias)
	if len(out.Pix) != 0 {
		t.Errorf("expected empty output, got %d pixels", len(out.Pix))
	}
}

func TestAdaptiveThreshold_DarkTextOnLightBackground(t *testing.T) {
	// A dark stroke on a light field must come out black on white, the
	// contrast the downstream OCR relies on.
	gray := image.NewGray(image.Rect(0, 0, 30, 30))
	for i := range gray.Pix {
		gray.Pix[i] = 220
	}
	for x := 10; x < 20; x++ {
		gray.SetGray(x, 15, color.Gray{Y: 20})
	}

	out := AdaptiveThreshold(gray, DefaultWindowSize, DefaultBias)
	if out.GrayAt(15, 15).Y != 0 {
		t.Errorf("stroke pixel = %d, want 0", out.GrayAt(15, 15).Y)
	}
	if out.GrayAt(2, 2).Y != 255 {
		t.Errorf("background pixel = %d, want 255", out.GrayAt(2, 2).Y)
	}
}
