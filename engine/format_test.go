package engine

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"

	"github.com/Gametech-Dev/ngraph-neon/types/shapes"
)

func TestFormatProperties(t *testing.T) {
	require.False(t, FormatNCHW.Blocked())
	require.False(t, FormatCHWN.Blocked())
	require.True(t, FormatNChw8c.Blocked())
	require.True(t, FormatNChw16c.Blocked())

	require.Equal(t, 0, FormatAny.BlockSize())
	require.Equal(t, 1, FormatNCHW.BlockSize())
	require.Equal(t, 8, FormatNChw8c.BlockSize())
	require.Equal(t, 16, FormatNChw16c.BlockSize())
}

func TestFormatCheckRank(t *testing.T) {
	require.NoError(t, FormatAny.CheckRank(0))
	require.NoError(t, FormatAny.CheckRank(7))
	require.NoError(t, FormatNCHW.CheckRank(2))
	require.Error(t, FormatNCHW.CheckRank(0))
	require.NoError(t, FormatNHWC.CheckRank(3))
	require.Error(t, FormatNHWC.CheckRank(2))
	require.NoError(t, FormatCHWN.CheckRank(5))
	require.Error(t, FormatCHWN.CheckRank(2))
	require.NoError(t, FormatNChw8c.CheckRank(4))
	require.Error(t, FormatNChw8c.CheckRank(3))
	require.Error(t, FormatNChw16c.CheckRank(5))
	require.Error(t, Format(99).CheckRank(4))
}

func TestFormatAxisOrder(t *testing.T) {
	order, ok := FormatNCHW.AxisOrder(4)
	require.True(t, ok)
	require.Equal(t, []int{0, 1, 2, 3}, order)

	order, ok = FormatNHWC.AxisOrder(4)
	require.True(t, ok)
	require.Equal(t, []int{0, 2, 3, 1}, order)

	order, ok = FormatCHWN.AxisOrder(4)
	require.True(t, ok)
	require.Equal(t, []int{1, 2, 3, 0}, order)

	order, ok = FormatCHWN.AxisOrder(5)
	require.True(t, ok)
	require.Equal(t, []int{1, 2, 3, 4, 0}, order)

	_, ok = FormatAny.AxisOrder(4)
	require.False(t, ok)
	_, ok = FormatNChw8c.AxisOrder(4)
	require.False(t, ok)
}

func TestFormatStrings(t *testing.T) {
	require.Equal(t, "CHWN", FormatCHWN.String())
	require.Equal(t, "NChw16c", FormatNChw16c.String())

	f, err := FormatString("NHWC")
	require.NoError(t, err)
	require.Equal(t, FormatNHWC, f)
	f, err = FormatString("nchw8c")
	require.NoError(t, err)
	require.Equal(t, FormatNChw8c, f)
	_, err = FormatString("bogus")
	require.Error(t, err)

	require.True(t, FormatNCHW.IsAFormat())
	require.False(t, Format(42).IsAFormat())
	require.Len(t, FormatValues(), 6)
}

func TestMemoryDescValidate(t *testing.T) {
	good := NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 16, 8, 8), FormatNCHW)
	require.NoError(t, good.Validate())
	require.True(t, good.Ok())
	require.True(t, good.Resolved())
	require.Equal(t, "(Float32)[2 16 8 8]@NCHW", good.String())

	anyFmt := NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 16, 8, 8), FormatAny)
	require.NoError(t, anyFmt.Validate())
	require.False(t, anyFmt.Resolved())

	require.Error(t, MemoryDesc{Format: FormatNCHW}.Validate())

	badRank := NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 16), FormatNChw8c)
	require.Error(t, badRank.Validate())

	badBlock := NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 12, 8, 8), FormatNChw8c)
	require.Error(t, badBlock.Validate())

	blocked16 := NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 32, 8, 8), FormatNChw16c)
	require.NoError(t, blocked16.Validate())

	require.True(t, good.Equal(NewMemoryDesc(shapes.Make(dtypes.Float32, 2, 16, 8, 8), FormatNCHW)))
	require.False(t, good.Equal(anyFmt))
	require.False(t, good.Equal(NewMemoryDesc(shapes.Make(dtypes.Float64, 2, 16, 8, 8), FormatNCHW)))
}
