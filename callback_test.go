package dtklpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVideoEngineRequiresHandler(t *testing.T) {
	l, _ := newStubLib(t, 32, nil)

	eng, err := l.NewVideoEngine(nil, nil)
	require.Error(t, err)
	assert.Nil(t, eng)
}

func TestNewVideoEnginePassesVideoMode(t *testing.T) {
	l, counts := newStubLib(t, 32, nil)

	var gotMode int32
	var gotCallback uintptr
	inner := l.engineCreate
	l.engineCreate = func(params uintptr, videoMode int32, callback uintptr) uintptr {
		gotMode = videoMode
		gotCallback = callback
		return inner(params, videoMode, callback)
	}

	eng, err := l.NewVideoEngine(nil, PlateHandlerFunc(func(string) {}))
	require.NoError(t, err)
	assert.Equal(t, int32(1), gotMode)
	assert.NotZero(t, gotCallback, "video engine must receive the trampoline address")

	require.NoError(t, eng.Close())
	counts.assertBalanced(t)
}

func TestTrampolineAddressStable(t *testing.T) {
	first := plateTrampoline()
	second := plateTrampoline()
	assert.NotZero(t, first)
	assert.Equal(t, first, second)
}

// Simulates the native engine reporting a detection: the handler sees the
// detached text and the plate handle is destroyed before the handler runs.
func TestDispatchPlateDeliversText(t *testing.T) {
	l, counts := newStubLib(t, 32, nil)
	l.plateText = func(plate uintptr, buf []byte, size int32) int32 {
		return int32(copy(buf, "KA01AB1234"))
	}

	var got []string
	destroyedBeforeHandler := false
	eng, err := l.NewVideoEngine(nil, PlateHandlerFunc(func(text string) {
		destroyedBeforeHandler = counts.platesDestroyed == 1
		got = append(got, text)
	}))
	require.NoError(t, err)
	defer eng.Close()

	dispatchPlate(eng.handle, 0xBEEF)

	require.Equal(t, []string{"KA01AB1234"}, got)
	assert.True(t, destroyedBeforeHandler, "plate handle must be released before the handler runs")
}

func TestDispatchPlateUnknownEngine(t *testing.T) {
	_, counts := newStubLib(t, 32, nil)

	handlerMu.RLock()
	_, tracked := handlers[0xDEAD]
	handlerMu.RUnlock()
	require.False(t, tracked)

	// No handler is registered for this engine; dispatch must be a no-op.
	dispatchPlate(0xDEAD, 0xBEEF)
	assert.Equal(t, 0, counts.platesDestroyed)
}

func TestDispatchPlateNullPlate(t *testing.T) {
	l, counts := newStubLib(t, 32, nil)

	called := false
	eng, err := l.NewVideoEngine(nil, PlateHandlerFunc(func(string) { called = true }))
	require.NoError(t, err)
	defer eng.Close()

	dispatchPlate(eng.handle, 0)
	assert.False(t, called)
	assert.Equal(t, 0, counts.platesDestroyed)
}

func TestVideoEngineCloseUnregisters(t *testing.T) {
	l, _ := newStubLib(t, 32, nil)

	eng, err := l.NewVideoEngine(nil, PlateHandlerFunc(func(string) {}))
	require.NoError(t, err)
	handle := eng.handle

	handlerMu.RLock()
	_, tracked := handlers[handle]
	handlerMu.RUnlock()
	assert.True(t, tracked)

	require.NoError(t, eng.Close())

	handlerMu.RLock()
	_, tracked = handlers[handle]
	handlerMu.RUnlock()
	assert.False(t, tracked)
}

func TestPlateHandlerFunc(t *testing.T) {
	var got string
	h := PlateHandlerFunc(func(text string) { got = text })
	h.HandlePlate("AB123CD")
	assert.Equal(t, "AB123CD", got)
}
