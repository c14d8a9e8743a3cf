package dtklpr

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// DefaultTextBufferSize is a plate text scratch buffer length comfortably
// larger than any real plate string.
const DefaultTextBufferSize = 64

// Lib is a loaded copy of the DTK LPR native library together with its
// resolved function table. Open one per process; it is never unloaded.
type Lib struct {
	mu          sync.Mutex
	textBufSize int

	paramsCreate  func() uintptr
	paramsDestroy func(params uintptr)
	engineCreate  func(params uintptr, videoMode int32, callback uintptr) uintptr
	engineDestroy func(engine uintptr)
	readFromMem   func(engine uintptr, data []byte, size int32) uintptr
	resultDestroy func(result uintptr)
	platesCount   func(result uintptr) int32
	plateAt       func(result uintptr, index int32) uintptr
	plateDestroy  func(plate uintptr)
	plateText     func(plate uintptr, buf []byte, size int32) int32
	isLicensed    func(engine uintptr) int32
	activate      func(key string) int32
}

// Open loads the native library at path and resolves the fixed set of entry
// points it must export. textBufSize is the scratch buffer length in bytes
// used for plate text extraction; the native library truncates longer text,
// so size it generously (DefaultTextBufferSize is a safe choice).
//
// The returned Lib lives for the rest of the process. Native modules are not
// safely unloadable, so there is no corresponding close.
func Open(path string, textBufSize int) (*Lib, error) {
	if textBufSize <= 0 {
		return nil, fmt.Errorf("text buffer size must be positive, got %d", textBufSize)
	}

	handle, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load library %s: %w", path, err)
	}

	l := &Lib{textBufSize: textBufSize}
	symbols := []struct {
		name string
		fn   interface{}
	}{
		{"LPRParams_Create", &l.paramsCreate},
		{"LPRParams_Destroy", &l.paramsDestroy},
		{"LPREngine_Create", &l.engineCreate},
		{"LPREngine_Destroy", &l.engineDestroy},
		{"LPREngine_ReadFromMemFile", &l.readFromMem},
		{"LPRResult_Destroy", &l.resultDestroy},
		{"LPRResult_GetPlatesCount", &l.platesCount},
		{"LPRResult_GetPlate", &l.plateAt},
		{"LicensePlate_Destroy", &l.plateDestroy},
		{"LicensePlate_GetText", &l.plateText},
		{"LPREngine_IsLicensed", &l.isLicensed},
		{"LPREngine_ActivateLicenseOnline", &l.activate},
	}
	for _, s := range symbols {
		addr, err := loadSymbol(handle, s.name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve symbol %s: %w", s.name, err)
		}
		purego.RegisterFunc(s.fn, addr)
	}
	return l, nil
}

// TextBufferSize returns the plate text scratch buffer length configured at
// Open time.
func (l *Lib) TextBufferSize() int {
	return l.textBufSize
}

// readFromMemory invokes the native recognition entry point with a copy of
// img. The native call wants a NUL terminated buffer alongside an explicit
// length and does not retain the buffer past the call.
func (l *Lib) readFromMemory(engine uintptr, img []byte) uintptr {
	buf := make([]byte, len(img)+1)
	copy(buf, img)
	return l.readFromMem(engine, buf, int32(len(img)))
}

// readPlateText copies a plate's text out of native memory through the
// scratch buffer. The native call reports how many bytes it wrote; only
// those bytes are kept, clamped to the buffer, and cut at an embedded NUL if
// the native side wrote one. The plate handle itself is left untouched.
func (l *Lib) readPlateText(plate uintptr) string {
	buf := make([]byte, l.textBufSize)
	n := int(l.plateText(plate, buf, int32(l.textBufSize)))
	if n < 0 {
		n = 0
	}
	if n > l.textBufSize {
		n = l.textBufSize
	}
	text := buf[:n]
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	return string(text)
}

// plateTextAt extracts the text of the index-th plate of a result. The plate
// handle is destroyed before returning on every path.
func (l *Lib) plateTextAt(result uintptr, index int) (string, error) {
	plate := l.plateAt(result, int32(index))
	if plate == 0 {
		return "", fmt.Errorf("failed to get plate %d: %w", index, ErrNativeCall)
	}
	defer l.plateDestroy(plate)
	return l.readPlateText(plate), nil
}
