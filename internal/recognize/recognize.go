// Package recognize puts the plate recognition backends behind one interface.
//
// The primary backend drives the vendor DTK engine through the dtklpr binding.
// Builds tagged "ocr" additionally provide a tesseract backend for
// installations without the vendor library; it is strictly best-effort and
// reports itself unlicensed.
package recognize

import (
	"context"
	"errors"
	"fmt"

	"github.com/plateflow/dtklpr"
)

// ErrOCRNotEnabled is returned by NewTesseract when the binary was built
// without the "ocr" tag.
var ErrOCRNotEnabled = errors.New("tesseract backend not compiled in (build with -tags ocr)")

// Recognizer turns encoded image bytes into license plate text.
type Recognizer interface {
	// Recognize scans one encoded image and returns the plates found in it.
	// Implementations receive the caller's bytes as is and must not retain img.
	Recognize(ctx context.Context, img []byte) (*dtklpr.Recognition, error)

	// LicenseOK reports whether the backend currently holds a valid license.
	LicenseOK() bool

	// Close releases backend resources. The Recognizer is unusable afterwards.
	Close() error
}

// engine is the slice of dtklpr.Engine the DTK backend uses, split out so
// tests can substitute a stub.
type engine interface {
	Process(img []byte) (*dtklpr.Recognition, error)
	IsLicensed() (bool, error)
	Activate(key string) (bool, error)
	Close() error
}

// DTKOptions configures the native backend.
type DTKOptions struct {
	// LibraryPath locates the vendor shared library.
	LibraryPath string

	// TextBufferSize is the scratch buffer size for plate text reads.
	// Zero means dtklpr.DefaultTextBufferSize.
	TextBufferSize int

	// LicenseKey is activated online during construction when ActivateOnStart
	// is set. A key rejected by the vendor fails construction.
	LicenseKey      string
	ActivateOnStart bool
}

// DTK recognizes plates with the vendor engine.
type DTK struct {
	eng engine
}

// NewDTK loads the vendor library and creates an engine with default
// parameters. An unlicensed engine is not an error; callers decide via
// LicenseOK whether degraded results are acceptable.
func NewDTK(opts DTKOptions) (*DTK, error) {
	size := opts.TextBufferSize
	if size <= 0 {
		size = dtklpr.DefaultTextBufferSize
	}

	lib, err := dtklpr.Open(opts.LibraryPath, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open plate engine library: %w", err)
	}
	eng, err := lib.NewEngine(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create plate engine: %w", err)
	}

	if opts.ActivateOnStart && opts.LicenseKey != "" {
		ok, err := eng.Activate(opts.LicenseKey)
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("failed to activate license: %w", err)
		}
		if !ok {
			eng.Close()
			return nil, errors.New("license key was rejected by the activation service")
		}
	}

	return &DTK{eng: eng}, nil
}

// Recognize hands the caller's bytes to the native engine untouched. The
// native call itself cannot be canceled; ctx is only observed before it.
func (d *DTK) Recognize(ctx context.Context, img []byte) (*dtklpr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, errors.New("empty image data")
	}
	return d.eng.Process(img)
}

// LicenseOK reports whether the engine holds a valid license. Errors from a
// closed engine read as unlicensed.
func (d *DTK) LicenseOK() bool {
	ok, err := d.eng.IsLicensed()
	return err == nil && ok
}

// Activate submits a license key to the vendor activation service. The
// boolean reports whether the service accepted the key.
func (d *DTK) Activate(key string) (bool, error) {
	if key == "" {
		return false, errors.New("license key is empty")
	}
	return d.eng.Activate(key)
}

// Close destroys the native engine.
func (d *DTK) Close() error {
	return d.eng.Close()
}
