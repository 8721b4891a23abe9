package simplecpu

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Gametech-Dev/ngraph-neon/engine"
	"github.com/Gametech-Dev/ngraph-neon/types/shapes"
)

func newTestEngine(t *testing.T, config string) *Engine {
	t.Helper()
	e, err := New(config)
	require.NoError(t, err)
	return e.(*Engine)
}

func TestConfigParsing(t *testing.T) {
	e := newTestEngine(t, "")
	require.Equal(t, EngineName, e.Name())

	e = newTestEngine(t, "parallelism=2,maxmem=1KiB")
	require.Equal(t, 2, e.workers.MaxParallelism())
	require.Equal(t, int64(1024), e.maxBytes)

	for _, config := range []string{"bogus", "parallelism=abc", "maxmem=12nonsense", "frobnicate=1"} {
		_, err := New(config)
		require.Error(t, err, "config %q", config)
	}
}

func TestRegisteredConstructor(t *testing.T) {
	e, err := engine.NewWithConfig("cpu:parallelism=0")
	require.NoError(t, err)
	cpu, ok := e.(*Engine)
	require.True(t, ok)
	require.False(t, cpu.workers.IsEnabled())
}

func TestNewMemoryValidation(t *testing.T) {
	e := newTestEngine(t, "")

	_, err := e.NewMemory(engine.NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 3), engine.FormatAny))
	require.ErrorContains(t, err, "unresolved")

	_, err = e.NewMemory(engine.MemoryDesc{Format: engine.FormatNCHW})
	require.Error(t, err)

	_, err = e.NewMemory(engine.NewMemoryDesc(shapes.Make(dtypes.Int64, 2, 3), engine.FormatNCHW))
	require.ErrorContains(t, err, "not supported")
}

func TestMemoryRoundTrip(t *testing.T) {
	e := newTestEngine(t, "")
	desc := engine.NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 3), engine.FormatNCHW)
	mem, err := e.NewMemory(desc)
	require.NoError(t, err)
	defer mem.Finalize()

	require.True(t, desc.Equal(mem.Desc()))
	require.True(t, desc.Shape.Equal(mem.Shape()))

	flat, ok := mem.Flat().([]float32)
	require.True(t, ok)
	require.Len(t, flat, 6)
	for _, v := range flat {
		require.Zero(t, v)
	}

	values := []float32{1, 2, 3, 4, 5, 6}
	require.NoError(t, mem.FromFlat(values))
	require.Equal(t, values, mem.Flat().([]float32))

	// FromFlat copies, so later mutation of the caller slice is not seen.
	values[0] = 100
	require.Equal(t, float32(1), mem.Flat().([]float32)[0])
}

func TestFromFlatErrors(t *testing.T) {
	e := newTestEngine(t, "")
	mem, err := e.NewMemory(engine.NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 3), engine.FormatNCHW))
	require.NoError(t, err)
	defer mem.Finalize()

	require.Error(t, mem.FromFlat(3.0))
	require.Error(t, mem.FromFlat([]float64{1, 2, 3, 4, 5, 6}))
	require.Error(t, mem.FromFlat([]float32{1, 2, 3}))
}

func TestMemoryAccounting(t *testing.T) {
	e := newTestEngine(t, "")
	require.Zero(t, e.LiveBytes())

	desc := engine.NewMemoryDesc(shapes.Make(dtypes.Float32, 16, 16), engine.FormatNCHW)
	mem, err := e.NewMemory(desc)
	require.NoError(t, err)
	require.Equal(t, int64(1024), e.LiveBytes())

	mem.Finalize()
	require.Zero(t, e.LiveBytes())

	// Finalize is idempotent.
	mem.Finalize()
	require.Zero(t, e.LiveBytes())
}

func TestMemoryBudget(t *testing.T) {
	e := newTestEngine(t, "maxmem=1KiB")
	desc := engine.NewMemoryDesc(shapes.Make(dtypes.Float32, 16, 16), engine.FormatNCHW)

	first, err := e.NewMemory(desc)
	require.NoError(t, err)

	_, err = e.NewMemory(desc)
	require.Error(t, err)
	require.True(t, errors.Is(err, engine.ErrOutOfMemory))
	require.Equal(t, int64(1024), e.LiveBytes())

	first.Finalize()
	second, err := e.NewMemory(desc)
	require.NoError(t, err)
	second.Finalize()
}

func TestRecycledMemoryIsZeroed(t *testing.T) {
	e := newTestEngine(t, "")
	desc := engine.NewMemoryDesc(shapes.Make(dtypes.Float32, 4, 4), engine.FormatNCHW)

	mem, err := e.NewMemory(desc)
	require.NoError(t, err)
	garbage := make([]float32, 16)
	for i := range garbage {
		garbage[i] = float32(i) + 1
	}
	require.NoError(t, mem.FromFlat(garbage))
	mem.Finalize()

	// A fresh tensor starts zeroed even when its buffer is recycled.
	mem, err = e.NewMemory(desc)
	require.NoError(t, err)
	defer mem.Finalize()
	for _, v := range mem.Flat().([]float32) {
		require.Zero(t, v)
	}
}
