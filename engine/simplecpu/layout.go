package simplecpu

import (
	"github.com/gomlx/exceptions"

	"github.com/Gametech-Dev/ngraph-neon/engine"
)

// layout precomputes the mapping from logical [N, C, spatial...] indices to
// positions in a tensor's flat storage, for a resolved memory descriptor.
//
// For every supported format the offset decomposes as
// planeBase(n, c) + dot(spatialIdx, spatialStrides()), which is the form the
// pooling kernels iterate in.
type layout struct {
	dims []int

	// strides per logical axis, for plain permutation formats.
	strides []int

	// Channel-blocked [N, C/B, H, W, B] nesting, when blockSize > 1.
	blockSize                               int
	strideN, strideCBlock, strideH, strideW int
}

// newLayout builds the offset calculator. The descriptor must be resolved;
// it panics otherwise (descriptors are validated before they get here).
func newLayout(md engine.MemoryDesc) layout {
	dims := md.Shape.Dimensions
	l := layout{dims: dims, blockSize: 1}
	if order, ok := md.Format.AxisOrder(len(dims)); ok {
		l.strides = make([]int, len(dims))
		stride := 1
		for i := len(order) - 1; i >= 0; i-- {
			axis := order[i]
			l.strides[axis] = stride
			stride *= dims[axis]
		}
		return l
	}
	if !md.Format.Blocked() {
		exceptions.Panicf("simplecpu: cannot compute layout for unresolved descriptor %s", md)
	}
	b := md.Format.BlockSize()
	c, h, w := dims[1], dims[2], dims[3]
	l.blockSize = b
	l.strideW = b
	l.strideH = w * b
	l.strideCBlock = h * w * b
	l.strideN = (c / b) * h * w * b
	return l
}

// planeBase returns the offset of logical element (n, c, 0, 0, ...).
func (l layout) planeBase(n, c int) int {
	if l.blockSize == 1 {
		return n*l.strides[0] + c*l.strides[1]
	}
	return n*l.strideN + (c/l.blockSize)*l.strideCBlock + c%l.blockSize
}

// spatialStrides returns the per-spatial-axis strides, aligned with
// Shape.Spatial().
func (l layout) spatialStrides() []int {
	if l.blockSize == 1 {
		return l.strides[2:]
	}
	return []int{l.strideH, l.strideW}
}

// offset of the element at a full logical index.
func (l layout) offset(idx []int) int {
	if l.blockSize == 1 {
		off := 0
		for i, x := range idx {
			off += x * l.strides[i]
		}
		return off
	}
	n, c, h, w := idx[0], idx[1], idx[2], idx[3]
	return n*l.strideN + (c/l.blockSize)*l.strideCBlock + h*l.strideH + w*l.strideW + c%l.blockSize
}
