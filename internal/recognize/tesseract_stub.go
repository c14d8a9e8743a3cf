//go:build !ocr

package recognize

// NewTesseract reports that the OCR backend is not part of this build.
// Building with -tags ocr replaces this stub with the gosseract-backed
// implementation.
func NewTesseract(minWidth int) (Recognizer, error) {
	return nil, ErrOCRNotEnabled
}
