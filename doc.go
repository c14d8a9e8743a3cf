// Package dtklpr binds the DTK license plate recognition engine, shipped as
// a closed precompiled dynamic library with a C style ABI, into Go.
//
// The package contains no recognition logic of its own. Its whole job is to
// load the vendor module, marshal a small set of opaque handles across the
// foreign boundary, copy image bytes into a native buffer, invoke
// recognition, and copy the resulting plate text back out with strict
// create/destroy lifecycle management for every native object.
//
// # Lifecycle
//
// A Lib is opened once per process and never unloaded; the vendor module
// stays mapped until the process exits. Every other native object is scoped:
//
//	lib, err := dtklpr.Open("/opt/dtk/libdtklpr.so", dtklpr.DefaultTextBufferSize)
//	if err != nil {
//		return err
//	}
//	engine, err := lib.NewEngine(nil)
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	rec, err := engine.Process(imageBytes)
//	if err != nil {
//		return err
//	}
//	fmt.Println(rec.Found, rec.Plates)
//
// Result and plate handles never escape this package: Process eagerly copies
// the plate count and every plate's text into a plain Recognition value and
// destroys the native handles before returning, on success and failure
// alike.
//
// # Concurrency
//
// The vendor does not document thread safety, so every call into the native
// library is serialized on a per-Lib mutex. A Lib and its engines are safe
// for concurrent use from multiple goroutines, but at most one native call
// runs at a time. Callers that need parallel recognition throughput should
// run independent processes. There is no cancellation: a native call that
// hangs blocks its caller indefinitely.
//
// # Licensing
//
// Engine.IsLicensed and Engine.Activate surface the vendor's license state
// as plain booleans; the activation network exchange is entirely internal to
// the vendor module. License failures are never reported as Go errors.
//
// # Limitations
//
// Plate text is extracted through a fixed scratch buffer sized at Open time.
// Text longer than the buffer is truncated by the native library; size the
// buffer generously. Image bytes are passed to the engine untouched, so the
// caller is responsible for providing a format the vendor module decodes.
package dtklpr
