package dtklpr

import "fmt"

// Params is an opaque engine configuration handle. The bound entry points
// expose no setters, so a Params only carries the vendor defaults today; it
// exists because engine creation takes one and the create/destroy pair must
// be honored regardless.
//
// Obtain one from Lib.NewParams and release it with Close. The engine copies
// what it needs at creation time, so a Params may be closed as soon as the
// engine exists.
type Params struct {
	lib    *Lib
	handle uintptr
}

// NewParams creates a native parameter object.
func (l *Lib) NewParams() (*Params, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h := l.paramsCreate()
	if h == 0 {
		return nil, fmt.Errorf("failed to create params: %w", ErrNativeCall)
	}
	return &Params{lib: l, handle: h}, nil
}

// Close destroys the native parameter object. Closing twice returns
// ErrParamsClosed.
func (p *Params) Close() error {
	p.lib.mu.Lock()
	defer p.lib.mu.Unlock()

	if p.handle == 0 {
		return ErrParamsClosed
	}
	p.lib.paramsDestroy(p.handle)
	p.handle = 0
	return nil
}
