package engine

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/Gametech-Dev/ngraph-neon/types/shapes"
)

func TestPoolingOutputDims(t *testing.T) {
	out, err := PoolingOutputDims([]int{32, 32}, []int{2, 2}, []int{2, 2}, []int{0, 0}, []int{0, 0})
	require.NoError(t, err)
	require.Equal(t, []int{16, 16}, out)

	// Non-divisible extents floor.
	out, err = PoolingOutputDims([]int{7}, []int{3}, []int{2}, []int{0}, []int{0})
	require.NoError(t, err)
	require.Equal(t, []int{3}, out)

	// Padding enlarges the input.
	out, err = PoolingOutputDims([]int{6, 6}, []int{3, 3}, []int{1, 1}, []int{1, 1}, []int{1, 1})
	require.NoError(t, err)
	require.Equal(t, []int{6, 6}, out)

	_, err = PoolingOutputDims([]int{8, 8}, []int{2}, []int{2, 2}, []int{0, 0}, []int{0, 0})
	require.Error(t, err)
	_, err = PoolingOutputDims([]int{8}, []int{0}, []int{1}, []int{0}, []int{0})
	require.Error(t, err)
	_, err = PoolingOutputDims([]int{8}, []int{2}, []int{0}, []int{0}, []int{0})
	require.Error(t, err)
	_, err = PoolingOutputDims([]int{8}, []int{2}, []int{1}, []int{-1}, []int{0})
	require.Error(t, err)
	_, err = PoolingOutputDims([]int{2}, []int{4}, []int{1}, []int{0}, []int{1})
	require.Error(t, err)
}

func fwdDesc(kind PoolingKind, prop PropKind) PoolingForwardDesc {
	return PoolingForwardDesc{
		Kind:        kind,
		Prop:        prop,
		Src:         NewMemoryDesc(shapes.Make(dtypes.Float32, 8, 16, 32, 32), FormatCHWN),
		Dst:         NewMemoryDesc(shapes.Make(dtypes.Float32, 8, 16, 16, 16), FormatAny),
		Window:      []int{2, 2},
		Strides:     []int{2, 2},
		PaddingLow:  []int{0, 0},
		PaddingHigh: []int{0, 0},
	}
}

func TestPoolingForwardDescValidate(t *testing.T) {
	require.NoError(t, fwdDesc(PoolingMax, ForwardTraining).Validate())
	require.NoError(t, fwdDesc(PoolingAvg, ForwardInference).Validate())

	d := fwdDesc(PoolingMax, ForwardTraining)
	d.Prop = PropKind(9)
	require.Error(t, d.Validate())

	d = fwdDesc(PoolingMax, ForwardTraining)
	d.Kind = PoolingKind(-1)
	require.Error(t, d.Validate())

	d = fwdDesc(PoolingMax, ForwardTraining)
	d.Dst.Shape = shapes.Make(dtypes.Float32, 8, 16, 15, 16)
	require.Error(t, d.Validate())

	d = fwdDesc(PoolingMax, ForwardTraining)
	d.Dst.Shape = shapes.Make(dtypes.Float32, 8, 8, 16, 16)
	require.Error(t, d.Validate())

	d = fwdDesc(PoolingMax, ForwardTraining)
	d.Dst.Shape = shapes.Make(dtypes.Float64, 8, 16, 16, 16)
	require.Error(t, d.Validate())

	d = fwdDesc(PoolingMax, ForwardTraining)
	d.Src.Shape = shapes.Make(dtypes.Int32, 8, 16, 32, 32)
	d.Dst.Shape = shapes.Make(dtypes.Int32, 8, 16, 16, 16)
	require.Error(t, d.Validate())

	d = fwdDesc(PoolingMax, ForwardTraining)
	d.Src.Shape = shapes.Make(dtypes.Float32, 8, 16)
	d.Dst.Shape = shapes.Make(dtypes.Float32, 8, 16)
	require.Error(t, d.Validate())

	d = fwdDesc(PoolingMax, ForwardTraining)
	d.Window = []int{2}
	require.Error(t, d.Validate())
}

func TestPoolingForwardDescNeedsWorkspace(t *testing.T) {
	require.True(t, fwdDesc(PoolingMax, ForwardTraining).NeedsWorkspace())
	require.False(t, fwdDesc(PoolingMax, ForwardInference).NeedsWorkspace())
	require.False(t, fwdDesc(PoolingAvg, ForwardTraining).NeedsWorkspace())
	require.False(t, fwdDesc(PoolingAvg, ForwardInference).NeedsWorkspace())
}

func TestPoolingBackwardDescValidate(t *testing.T) {
	d := PoolingBackwardDesc{
		Kind:        PoolingMax,
		DiffSrc:     NewMemoryDesc(shapes.Make(dtypes.Float32, 8, 16, 32, 32), FormatAny),
		DiffDst:     NewMemoryDesc(shapes.Make(dtypes.Float32, 8, 16, 16, 16), FormatCHWN),
		Window:      []int{2, 2},
		Strides:     []int{2, 2},
		PaddingLow:  []int{0, 0},
		PaddingHigh: []int{0, 0},
	}
	require.NoError(t, d.Validate())

	bad := d
	bad.DiffDst.Shape = shapes.Make(dtypes.Float32, 8, 16, 17, 16)
	require.Error(t, bad.Validate())

	bad = d
	bad.Strides = []int{2, 2, 2}
	require.Error(t, bad.Validate())
}

func TestKindStrings(t *testing.T) {
	require.Equal(t, "Max", PoolingMax.String())
	require.Equal(t, "Avg", PoolingAvg.String())
	k, err := PoolingKindString("avg")
	require.NoError(t, err)
	require.Equal(t, PoolingAvg, k)
	_, err = PoolingKindString("median")
	require.Error(t, err)

	require.Equal(t, "ForwardTraining", ForwardTraining.String())
	require.Equal(t, "ForwardInference", ForwardInference.String())
	p, err := PropKindString("ForwardInference")
	require.NoError(t, err)
	require.Equal(t, ForwardInference, p)
	require.False(t, PropKind(3).IsAPropKind())
}
