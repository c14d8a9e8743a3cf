package dtklpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nativeCounts tracks create and destroy traffic through the stubbed native
// layer so tests can assert the lifecycle invariant: every create is matched
// by exactly one destroy.
type nativeCounts struct {
	paramsCreated    int
	paramsDestroyed  int
	enginesCreated   int
	enginesDestroyed int
	resultsCreated   int
	resultsDestroyed int
	platesCreated    int
	platesDestroyed  int
}

func (c *nativeCounts) assertBalanced(t *testing.T) {
	t.Helper()
	assert.Equal(t, c.paramsCreated, c.paramsDestroyed, "params create/destroy mismatch")
	assert.Equal(t, c.enginesCreated, c.enginesDestroyed, "engine create/destroy mismatch")
	assert.Equal(t, c.resultsCreated, c.resultsDestroyed, "result create/destroy mismatch")
	assert.Equal(t, c.platesCreated, c.platesDestroyed, "plate create/destroy mismatch")
}

// newStubLib builds a Lib whose native layer is simulated in process. Every
// Process call reports the given plates. Individual function fields can be
// overridden by tests to inject failures.
func newStubLib(t *testing.T, bufSize int, plates []string) (*Lib, *nativeCounts) {
	t.Helper()

	counts := &nativeCounts{}
	next := uintptr(0x1000)
	newHandle := func() uintptr {
		next++
		return next
	}
	plateTexts := make(map[uintptr]string)

	l := &Lib{textBufSize: bufSize}
	l.paramsCreate = func() uintptr {
		counts.paramsCreated++
		return newHandle()
	}
	l.paramsDestroy = func(uintptr) {
		counts.paramsDestroyed++
	}
	l.engineCreate = func(params uintptr, videoMode int32, callback uintptr) uintptr {
		if params == 0 {
			return 0
		}
		counts.enginesCreated++
		return newHandle()
	}
	l.engineDestroy = func(uintptr) {
		counts.enginesDestroyed++
	}
	l.readFromMem = func(engine uintptr, data []byte, size int32) uintptr {
		counts.resultsCreated++
		return newHandle()
	}
	l.resultDestroy = func(uintptr) {
		counts.resultsDestroyed++
	}
	l.platesCount = func(uintptr) int32 {
		return int32(len(plates))
	}
	l.plateAt = func(result uintptr, index int32) uintptr {
		counts.platesCreated++
		h := newHandle()
		plateTexts[h] = plates[index]
		return h
	}
	l.plateDestroy = func(uintptr) {
		counts.platesDestroyed++
	}
	l.plateText = func(plate uintptr, buf []byte, size int32) int32 {
		return int32(copy(buf, plateTexts[plate]))
	}
	l.isLicensed = func(uintptr) int32 {
		return 0
	}
	l.activate = func(string) int32 {
		return 0
	}
	return l, counts
}

func TestOpenRejectsBufferSize(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"zero", 0},
		{"negative", -8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, err := Open("/opt/dtk/libdtklpr.so", tt.size)
			require.Error(t, err)
			assert.Nil(t, lib)
			assert.Contains(t, err.Error(), "text buffer size")
		})
	}
}

func TestOpenMissingLibrary(t *testing.T) {
	lib, err := Open("/nonexistent/libdtklpr.so", DefaultTextBufferSize)
	require.Error(t, err)
	assert.Nil(t, lib)
	assert.Contains(t, err.Error(), "failed to load library")
}

func TestTextBufferSize(t *testing.T) {
	l, _ := newStubLib(t, 48, nil)
	assert.Equal(t, 48, l.TextBufferSize())
}

func TestReadFromMemoryNulTerminatesCopy(t *testing.T) {
	l, _ := newStubLib(t, DefaultTextBufferSize, nil)

	img := []byte("fake image bytes")
	var gotData []byte
	var gotSize int32
	l.readFromMem = func(engine uintptr, data []byte, size int32) uintptr {
		gotData = data
		gotSize = size
		return 0x42
	}

	l.readFromMemory(0x1, img)

	require.Len(t, gotData, len(img)+1)
	assert.Equal(t, img, gotData[:len(img)])
	assert.Equal(t, byte(0), gotData[len(img)])
	assert.Equal(t, int32(len(img)), gotSize)

	// The native side must see a copy, not the caller's slice.
	img[0] = 'X'
	assert.Equal(t, byte('f'), gotData[0])
}

func TestReadPlateTextClamping(t *testing.T) {
	tests := []struct {
		name    string
		bufSize int
		write   string
		written int32
		want    string
	}{
		{"exact", 32, "AB123CD", 7, "AB123CD"},
		{"shorter than written buffer", 32, "AB123CDXXXX", 3, "AB1"},
		{"written exceeds buffer", 4, "ABCDEFGH", 99, "ABCD"},
		{"negative written", 32, "AB123CD", -1, ""},
		{"embedded nul", 32, "AB\x00CD", 5, "AB"},
		{"zero written", 32, "AB123CD", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newStubLib(t, tt.bufSize, nil)
			l.plateText = func(plate uintptr, buf []byte, size int32) int32 {
				copy(buf, tt.write)
				return tt.written
			}
			assert.Equal(t, tt.want, l.readPlateText(0x99))
		})
	}
}

func TestParamsLifecycle(t *testing.T) {
	l, counts := newStubLib(t, DefaultTextBufferSize, nil)

	p, err := l.NewParams()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, counts.paramsCreated)
	assert.Equal(t, 0, counts.paramsDestroyed)

	require.NoError(t, p.Close())
	counts.assertBalanced(t)

	err = p.Close()
	assert.ErrorIs(t, err, ErrParamsClosed)
	assert.Equal(t, 1, counts.paramsDestroyed, "second Close must not destroy again")
}

func TestNewParamsNullHandle(t *testing.T) {
	l, counts := newStubLib(t, DefaultTextBufferSize, nil)
	l.paramsCreate = func() uintptr { return 0 }

	p, err := l.NewParams()
	require.ErrorIs(t, err, ErrNativeCall)
	assert.Nil(t, p)
	assert.Equal(t, 0, counts.paramsDestroyed)
}
