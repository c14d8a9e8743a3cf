package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// PrepareForOCR converts an image into the high contrast form the fallback
// text recognizer works best on: grayscale, upscaled to at least minWidth
// pixels wide, sharpened, then thresholded to black and white.
//
// This path exists only for the OCR fallback backend. Images handed to the
// native plate engine are never preprocessed; it receives the original
// bytes.
func PrepareForOCR(img image.Image, minWidth int) image.Image {
	work := imaging.Grayscale(img)
	if minWidth > 0 && work.Bounds().Dx() < minWidth {
		work = imaging.Resize(work, minWidth, 0, imaging.Lanczos)
	}
	sharpened := effect.Sharpen(work)
	return segment.Threshold(sharpened, 128)
}

// EncodePNG encodes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail returns a PNG thumbnail bounded by maxPx on the longer edge,
// preserving aspect ratio. Images already inside the box are encoded as is.
func Thumbnail(img image.Image, maxPx int) ([]byte, error) {
	if maxPx <= 0 {
		return nil, fmt.Errorf("thumbnail size must be positive, got %d", maxPx)
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxPx || bounds.Dy() > maxPx {
		img = imaging.Fit(img, maxPx, maxPx, imaging.Lanczos)
	}
	return EncodePNG(img)
}
