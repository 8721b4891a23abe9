package engine

import (
	"github.com/pkg/errors"
)

// Format tags how a tensor's elements are arranged in memory: which logical
// axis varies slowest to fastest, and whether the channel axis is split into
// hardware-friendly blocks.
//
// Logical dimensions are always batch-major [N, C, spatial...]; the format
// only describes the physical arrangement. FormatAny is a placeholder: it
// asks the engine to pick the layout when the primitive descriptor is
// created, and never describes materialized memory.
type Format int

//go:generate go tool enumer -type=Format -trimprefix=Format -output=gen_format_enumer.go format.go

const (
	// FormatAny lets the engine choose. Only valid inside operator
	// descriptors, before layout resolution.
	FormatAny Format = iota

	// FormatNCHW is the canonical batch-major, row-major layout. For ranks
	// other than 4 it generalizes to NCW, NCDHW and so on.
	FormatNCHW

	// FormatNHWC keeps channels innermost (channels-last).
	FormatNHWC

	// FormatCHWN keeps the batch innermost with channels outermost. This is
	// the default source-side convention of the kernel-construction layer.
	FormatCHWN

	// FormatNChw8c is the rank-4 layout with channels split into blocks of
	// 8: [N, C/8, H, W, 8].
	FormatNChw8c

	// FormatNChw16c is the rank-4 layout with channels split into blocks of
	// 16: [N, C/16, H, W, 16].
	FormatNChw16c
)

// Blocked returns whether the format splits the channel axis into blocks.
func (f Format) Blocked() bool {
	return f == FormatNChw8c || f == FormatNChw16c
}

// BlockSize returns the channel block size for blocked formats, 1 for plain
// formats and 0 for FormatAny.
func (f Format) BlockSize() int {
	switch f {
	case FormatNChw8c:
		return 8
	case FormatNChw16c:
		return 16
	case FormatAny:
		return 0
	default:
		return 1
	}
}

// CheckRank returns an error if the format cannot describe a tensor of the
// given rank. FormatAny accepts any rank; plain permutation formats need a
// batch, channel and at least one spatial axis; blocked formats are rank-4
// only.
func (f Format) CheckRank(rank int) error {
	switch f {
	case FormatAny:
		return nil
	case FormatNCHW:
		if rank < 1 {
			return errors.Errorf("format %s requires rank >= 1, got %d", f, rank)
		}
	case FormatNHWC, FormatCHWN:
		if rank < 3 {
			return errors.Errorf("format %s requires rank >= 3 (batch, channels, spatial...), got %d", f, rank)
		}
	case FormatNChw8c, FormatNChw16c:
		if rank != 4 {
			return errors.Errorf("blocked format %s requires rank 4, got %d", f, rank)
		}
	default:
		return errors.Errorf("invalid format %d", int(f))
	}
	return nil
}

// AxisOrder returns the physical nesting order of the logical axes for a
// plain format, outermost first. The second result is false for FormatAny
// and for blocked formats, whose layout is not a plain axis permutation.
func (f Format) AxisOrder(rank int) ([]int, bool) {
	switch f {
	case FormatNCHW:
		order := make([]int, rank)
		for ii := range order {
			order[ii] = ii
		}
		return order, true
	case FormatNHWC:
		order := make([]int, 0, rank)
		order = append(order, 0)
		for axis := 2; axis < rank; axis++ {
			order = append(order, axis)
		}
		order = append(order, 1)
		return order, true
	case FormatCHWN:
		order := make([]int, 0, rank)
		order = append(order, 1)
		for axis := 2; axis < rank; axis++ {
			order = append(order, axis)
		}
		order = append(order, 0)
		return order, true
	default:
		return nil, false
	}
}
