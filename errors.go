package dtklpr

import "errors"

var (
	// ErrNativeCall indicates a create style native call returned a null
	// handle. Errors wrapping it name the call that failed; test with
	// errors.Is.
	ErrNativeCall = errors.New("native call returned null handle")

	// ErrParamsClosed is returned when a parameter handle is used or
	// closed again after Close.
	ErrParamsClosed = errors.New("params handle already closed")

	// ErrEngineClosed is returned when an engine handle is used or closed
	// again after Close.
	ErrEngineClosed = errors.New("engine handle already closed")
)
