//go:build !ocr

package recognize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTesseractNotCompiledIn(t *testing.T) {
	_, err := NewTesseract(600)
	require.ErrorIs(t, err, ErrOCRNotEnabled)
}
