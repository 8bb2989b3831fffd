package imaging

import (
	"image"
	"image/draw"
)

// Default adaptive-threshold parameters. An 11x11 neighborhood with a small
// bias holds up well on phone photos of product labels, where a single global
// threshold fails on partially shadowed text.
const (
	DefaultWindowSize = 11
	DefaultBias       = 2
)

// Grayscale reduces img to a single luminance channel using the standard
// library's color conversion.
func Grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// AdaptiveThreshold binarizes gray against a per-pixel local mean. Each pixel
// is compared against the mean of its window x window neighborhood minus
// bias, and set to 255 if above, 0 otherwise. An even window is widened to
// the next odd value so the neighborhood stays centered. Windows are clipped
// at the image border.
//
// The result is deterministic for a fixed input and fixed parameters.
func AdaptiveThreshold(gray *image.Gray, window, bias int) *image.Gray {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}

	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)
	if w == 0 || h == 0 {
		return out
	}

	// Summed-area table over the luminance values, (w+1)x(h+1) with a zero
	// border, so any clipped window mean is one subtraction away.
	integral := make([]uint64, (w+1)*(h+1))
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum uint64
		srcRow := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x := 0; x < w; x++ {
			rowSum += uint64(srcRow[x])
			integral[(y+1)*stride+(x+1)] = integral[y*stride+(x+1)] + rowSum
		}
	}

	half := window / 2
	for y := 0; y < h; y++ {
		y0 := max(0, y-half)
		y1 := min(h-1, y+half)
		dstRow := out.Pix[y*out.Stride : y*out.Stride+w]
		srcRow := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x := 0; x < w; x++ {
			x0 := max(0, x-half)
			x1 := min(w-1, x+half)

			sum := integral[(y1+1)*stride+(x1+1)] -
				integral[(y0)*stride+(x1+1)] -
				integral[(y1+1)*stride+(x0)] +
				integral[(y0)*stride+(x0)]
			count := uint64((y1 - y0 + 1) * (x1 - x0 + 1))

			threshold := int64(sum/count) - int64(bias)
			if int64(srcRow[x]) > threshold {
				dstRow[x] = 255
			} else {
				dstRow[x] = 0
			}
		}
	}

	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
