//go:build ocr

package recognize

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/plateflow/dtklpr"
	"github.com/plateflow/dtklpr/internal/detection"
	"github.com/plateflow/dtklpr/internal/imaging"
)

// Localization knobs for the fallback path. Candidates below the confidence
// floor are noise, and OCRing more than a few regions per frame costs more
// than it finds.
const (
	plateMinConfidence = 0.25
	maxPlateRegions    = 4
)

// tesseract is the fallback backend for installations without the vendor
// library. Frames are scanned for plate-shaped regions, each region is
// binarized and upscaled, and the OCR output is filtered down to
// plate-shaped tokens. Recognition quality is nowhere near the vendor
// engine; this exists so the daemon can run end to end without a license.
type tesseract struct {
	minWidth int
}

// NewTesseract builds the fallback OCR backend. minWidth is the narrowest
// frame handed to tesseract; narrower input is upscaled first. The backend
// needs the tesseract native libraries and "eng" training data installed.
func NewTesseract(minWidth int) (Recognizer, error) {
	return &tesseract{minWidth: minWidth}, nil
}

func (t *tesseract) Recognize(ctx context.Context, img []byte) (*dtklpr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded, err := imaging.Decode(img)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// OCR plate-shaped regions first. The full frame is the backstop when
	// localization comes up empty.
	candidates := detection.FindPlateCandidates(decoded, plateMinConfidence)
	if len(candidates) > maxPlateRegions {
		candidates = candidates[:maxPlateRegions]
	}

	var texts []string
	for _, cand := range candidates {
		region, cerr := imaging.CropRegion(decoded, cand.Bounds.Rect())
		if cerr != nil {
			continue
		}
		text, oerr := t.ocr(ctx, region, gosseract.PSM_SINGLE_LINE)
		if oerr != nil {
			return nil, oerr
		}
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		text, oerr := t.ocr(ctx, decoded, gosseract.PSM_SPARSE_TEXT)
		if oerr != nil {
			return nil, oerr
		}
		texts = append(texts, text)
	}

	plates := PlateTokens(strings.Join(texts, "\n"))
	return &dtklpr.Recognition{Found: len(plates), Plates: plates}, nil
}

// ocr prepares one image and runs tesseract over it with a plate character
// whitelist. Localized crops read best as a single line; whole frames use
// sparse text mode instead.
func (t *tesseract) ocr(ctx context.Context, img image.Image, psm gosseract.PageSegMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prepared, err := imaging.EncodePNG(imaging.PrepareForOCR(img, t.minWidth))
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage("eng"); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetWhitelist("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// LicenseOK is always false: the fallback never holds a vendor license.
func (t *tesseract) LicenseOK() bool { return false }

// Close is a no-op; each Recognize call uses its own tesseract client.
func (t *tesseract) Close() error { return nil }
