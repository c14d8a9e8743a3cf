package dtklpr

import (
	"errors"
	"fmt"
)

// Recognition is the detached outcome of one Process call. Plates preserves
// the native enumeration order; Found is the count the native engine
// reported at the moment of the call.
type Recognition struct {
	Found  int      `json:"found"`
	Plates []string `json:"plates"`
}

// Engine is an opaque recognition engine handle. Obtain one from
// Lib.NewEngine or Lib.NewVideoEngine and release it with Close.
type Engine struct {
	lib    *Lib
	handle uintptr
	video  bool
}

// NewEngine creates a still image recognition engine. params may be nil, in
// which case a temporary parameter object is created for the call and
// destroyed as soon as the engine exists.
func (l *Lib) NewEngine(params *Params) (*Engine, error) {
	return l.newEngine(params, 0, 0)
}

// NewVideoEngine creates a video mode engine whose detections are delivered
// to handler. Notifications fire on the native call stack during Process;
// see PlateHandler for the constraints that places on the handler. params
// follows the same rules as in NewEngine.
func (l *Lib) NewVideoEngine(params *Params, handler PlateHandler) (*Engine, error) {
	if handler == nil {
		return nil, errors.New("video engine requires a plate handler")
	}
	eng, err := l.newEngine(params, 1, plateTrampoline())
	if err != nil {
		return nil, err
	}
	registerHandler(eng.handle, l, handler)
	return eng, nil
}

func (l *Lib) newEngine(params *Params, videoMode int32, callback uintptr) (*Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ph uintptr
	if params != nil {
		if params.handle == 0 {
			return nil, ErrParamsClosed
		}
		ph = params.handle
	} else {
		ph = l.paramsCreate()
		if ph == 0 {
			return nil, fmt.Errorf("failed to create params: %w", ErrNativeCall)
		}
		defer l.paramsDestroy(ph)
	}

	h := l.engineCreate(ph, videoMode, callback)
	if h == 0 {
		return nil, fmt.Errorf("failed to create engine: %w", ErrNativeCall)
	}
	return &Engine{lib: l, handle: h, video: videoMode != 0}, nil
}

// Process runs recognition over one in-memory image. img goes to the native
// engine untouched (no decoding happens at this layer) and is not retained
// past the call.
//
// The result and plate handles the call produces are destroyed on every
// path before Process returns; the Recognition is fully detached from
// native memory. A null handle anywhere in the sequence fails the whole
// call.
func (e *Engine) Process(img []byte) (*Recognition, error) {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()

	if e.handle == 0 {
		return nil, ErrEngineClosed
	}

	result := e.lib.readFromMemory(e.handle, img)
	if result == 0 {
		return nil, fmt.Errorf("failed to read image from memory: %w", ErrNativeCall)
	}
	defer e.lib.resultDestroy(result)

	count := int(e.lib.platesCount(result))
	if count < 0 {
		count = 0
	}
	plates := make([]string, 0, count)
	for i := 0; i < count; i++ {
		text, err := e.lib.plateTextAt(result, i)
		if err != nil {
			return nil, err
		}
		plates = append(plates, text)
	}
	return &Recognition{Found: count, Plates: plates}, nil
}

// LicenseStatus returns the raw license status code from the native engine.
// Zero means licensed; the meaning of nonzero codes is internal to the
// vendor.
func (e *Engine) LicenseStatus() (int, error) {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()

	if e.handle == 0 {
		return 0, ErrEngineClosed
	}
	return int(e.lib.isLicensed(e.handle)), nil
}

// IsLicensed reports whether the engine holds a valid license.
func (e *Engine) IsLicensed() (bool, error) {
	status, err := e.LicenseStatus()
	if err != nil {
		return false, err
	}
	return status == 0, nil
}

// Activate performs online license activation with the given key. The key
// reaches the native library as a NUL terminated string; the network
// exchange behind the call is entirely internal to the vendor module.
// Returns true when the native library reports success.
func (e *Engine) Activate(key string) (bool, error) {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()

	if e.handle == 0 {
		return false, ErrEngineClosed
	}
	return e.lib.activate(key) == 0, nil
}

// Close destroys the native engine. Closing twice returns ErrEngineClosed.
func (e *Engine) Close() error {
	e.lib.mu.Lock()
	defer e.lib.mu.Unlock()

	if e.handle == 0 {
		return ErrEngineClosed
	}
	if e.video {
		unregisterHandler(e.handle)
	}
	e.lib.engineDestroy(e.handle)
	e.handle = 0
	return nil
}
