package dtklpr

import (
	"sync"

	"github.com/ebitengine/purego"
)

// PlateHandler receives plate notifications from a video mode engine.
//
// The handler runs on the native library's call stack, inside the Process
// call that produced the detection. It must return promptly and must not
// call back into the engine or the library; doing so would deadlock on the
// serialization mutex.
type PlateHandler interface {
	HandlePlate(text string)
}

// PlateHandlerFunc adapts a plain function to a PlateHandler.
type PlateHandlerFunc func(text string)

// HandlePlate calls f(text).
func (f PlateHandlerFunc) HandlePlate(text string) {
	f(text)
}

// The native callback slot is a bare function pointer with no user data
// argument, so dispatch is keyed on the engine handle the native side
// passes back. One process wide trampoline serves every video engine;
// callback trampolines are a finite process resource and must not be minted
// per engine.
var (
	handlerMu sync.RWMutex
	handlers  = make(map[uintptr]*videoHandler)

	trampolineOnce sync.Once
	trampolineAddr uintptr
)

type videoHandler struct {
	lib     *Lib
	handler PlateHandler
}

func registerHandler(engine uintptr, lib *Lib, h PlateHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	handlers[engine] = &videoHandler{lib: lib, handler: h}
}

func unregisterHandler(engine uintptr) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	delete(handlers, engine)
}

func plateTrampoline() uintptr {
	trampolineOnce.Do(func() {
		trampolineAddr = purego.NewCallback(dispatchPlate)
	})
	return trampolineAddr
}

// dispatchPlate is the Go side of the native notification trampoline. The
// plate's text is copied out and the plate handle destroyed before the
// handler runs, so the handler only ever sees a detached string. It
// deliberately does not take the library mutex: the native engine invokes
// it from inside an already serialized call.
func dispatchPlate(engine, plate uintptr) uintptr {
	handlerMu.RLock()
	vh := handlers[engine]
	handlerMu.RUnlock()

	if vh == nil || plate == 0 {
		return 0
	}
	text := vh.lib.readPlateText(plate)
	vh.lib.plateDestroy(plate)
	vh.handler.HandlePlate(text)
	return 0
}
