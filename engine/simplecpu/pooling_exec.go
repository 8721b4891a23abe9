package simplecpu

import (
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/Gametech-Dev/ngraph-neon/engine"
	"github.com/Gametech-Dev/ngraph-neon/internal/workerspool"
)

// poolGeom gathers the geometry both executors iterate over. The "src" side
// is the pre-pooling geometry and the "dst" side the post-pooling one; for
// the backward pass they describe diff-source and diff-destination.
type poolGeom struct {
	batch, channels         int
	srcSpatial, dstSpatial  []int
	window, strides, padLow []int
	windowSize              int
}

func newPoolGeom(src, dst engine.MemoryDesc, window, strides, padLow []int) *poolGeom {
	g := &poolGeom{
		batch:      src.Shape.Batch(),
		channels:   src.Shape.Channels(),
		srcSpatial: src.Shape.Spatial(),
		dstSpatial: dst.Shape.Spatial(),
		window:     window,
		strides:    strides,
		padLow:     padLow,
		windowSize: 1,
	}
	for _, w := range window {
		g.windowSize *= w
	}
	return g
}

// incIndex advances a multi-dimensional index in row-major order (last axis
// fastest), returning false once it wraps around back to all-zeros.
func incIndex(idx, dims []int) bool {
	for axis := len(idx) - 1; axis >= 0; axis-- {
		idx[axis]++
		if idx[axis] < dims[axis] {
			return true
		}
		idx[axis] = 0
	}
	return false
}

func dot(idx, strides []int) int {
	off := 0
	for i, x := range idx {
		off += x * strides[i]
	}
	return off
}

// execPoolingForward runs one forward pass. Each (batch, channel) plane is
// an independent work unit. Max pooling scans only the in-bounds part of
// each window (a window entirely inside the padding yields -Inf) and
// records the window-relative position of the winner in wsFlat when it is
// non-nil; average pooling sums the in-bounds values and divides by the
// full window size, so padding contributes zeros.
func execPoolingForward[T podFloatConstraints](workers *workerspool.Pool, g *poolGeom, kind engine.PoolingKind,
	srcL, dstL, wsL layout, srcFlat, dstFlat []T, wsFlat []int32) {
	spatialRank := len(g.srcSpatial)
	srcStrides := srcL.spatialStrides()
	dstStrides := dstL.spatialStrides()
	var wsStrides []int
	if wsFlat != nil {
		wsStrides = wsL.spatialStrides()
	}
	lowest := T(math.Inf(-1))

	workers.Parallelize(g.batch*g.channels, func(plane int) {
		n := plane / g.channels
		c := plane % g.channels
		srcBase := srcL.planeBase(n, c)
		dstBase := dstL.planeBase(n, c)
		wsBase := 0
		if wsFlat != nil {
			wsBase = wsL.planeBase(n, c)
		}
		outIdx := make([]int, spatialRank)
		winIdx := make([]int, spatialRank)
		for {
			dstOff := dstBase + dot(outIdx, dstStrides)
			if kind == engine.PoolingMax {
				best := lowest
				bestPos := int32(0)
				winPos := int32(0)
				for {
					srcOff := srcBase
					inBounds := true
					for i := 0; i < spatialRank; i++ {
						pos := outIdx[i]*g.strides[i] - g.padLow[i] + winIdx[i]
						if pos < 0 || pos >= g.srcSpatial[i] {
							inBounds = false
							break
						}
						srcOff += pos * srcStrides[i]
					}
					if inBounds {
						if v := srcFlat[srcOff]; v > best {
							best = v
							bestPos = winPos
						}
					}
					winPos++
					if !incIndex(winIdx, g.window) {
						break
					}
				}
				dstFlat[dstOff] = best
				if wsFlat != nil {
					wsFlat[wsBase+dot(outIdx, wsStrides)] = bestPos
				}
			} else {
				sum := T(0)
				for {
					srcOff := srcBase
					inBounds := true
					for i := 0; i < spatialRank; i++ {
						pos := outIdx[i]*g.strides[i] - g.padLow[i] + winIdx[i]
						if pos < 0 || pos >= g.srcSpatial[i] {
							inBounds = false
							break
						}
						srcOff += pos * srcStrides[i]
					}
					if inBounds {
						sum += srcFlat[srcOff]
					}
					if !incIndex(winIdx, g.window) {
						break
					}
				}
				dstFlat[dstOff] = sum / T(g.windowSize)
			}
			if !incIndex(outIdx, g.dstSpatial) {
				break
			}
		}
	})
}

// execPoolingBackward routes gradients back through the windows. For max
// pooling each incoming gradient element goes to the position its workspace
// entry recorded, accumulating where windows overlap; positions that decode
// into the padding (possible only when a window lay entirely inside the
// padding) are dropped. Average pooling spreads each element's share over
// the in-bounds window positions.
func execPoolingBackward[T podFloatConstraints](workers *workerspool.Pool, g *poolGeom, kind engine.PoolingKind,
	diffSrcL, diffDstL, wsL layout, diffSrcFlat, diffDstFlat []T, wsFlat []int32) {
	spatialRank := len(g.srcSpatial)
	diffSrcStrides := diffSrcL.spatialStrides()
	diffDstStrides := diffDstL.spatialStrides()
	var wsStrides []int
	if wsFlat != nil {
		wsStrides = wsL.spatialStrides()
	}
	clear(diffSrcFlat)

	workers.Parallelize(g.batch*g.channels, func(plane int) {
		n := plane / g.channels
		c := plane % g.channels
		diffSrcBase := diffSrcL.planeBase(n, c)
		diffDstBase := diffDstL.planeBase(n, c)
		wsBase := 0
		if wsFlat != nil {
			wsBase = wsL.planeBase(n, c)
		}
		outIdx := make([]int, spatialRank)
		winIdx := make([]int, spatialRank)
		for {
			gradVal := diffDstFlat[diffDstBase+dot(outIdx, diffDstStrides)]
			if kind == engine.PoolingMax {
				pos := int(wsFlat[wsBase+dot(outIdx, wsStrides)])
				for i := spatialRank - 1; i >= 0; i-- {
					winIdx[i] = pos % g.window[i]
					pos /= g.window[i]
				}
				srcOff := diffSrcBase
				inBounds := true
				for i := 0; i < spatialRank; i++ {
					p := outIdx[i]*g.strides[i] - g.padLow[i] + winIdx[i]
					if p < 0 || p >= g.srcSpatial[i] {
						inBounds = false
						break
					}
					srcOff += p * diffSrcStrides[i]
				}
				if inBounds {
					diffSrcFlat[srcOff] += gradVal
				}
			} else {
				share := gradVal / T(g.windowSize)
				for {
					srcOff := diffSrcBase
					inBounds := true
					for i := 0; i < spatialRank; i++ {
						p := outIdx[i]*g.strides[i] - g.padLow[i] + winIdx[i]
						if p < 0 || p >= g.srcSpatial[i] {
							inBounds = false
							break
						}
						srcOff += p * diffSrcStrides[i]
					}
					if inBounds {
						diffSrcFlat[srcOff] += share
					}
					if !incIndex(winIdx, g.window) {
						break
					}
				}
			}
			if !incIndex(outIdx, g.dstSpatial) {
				break
			}
		}
	})
}

// toFloat32 widens a half-precision flat slice into a float32 scratch.
func toFloat32[T interface{ Float32() float32 }](dst []float32, src []T) {
	for i, v := range src {
		dst[i] = v.Float32()
	}
}

func fromFloat32[T any](dst []T, src []float32, conv func(float32) T) {
	for i, v := range src {
		dst[i] = conv(v)
	}
}

// poolingFwdPrim is the executable forward primitive: the resolved
// descriptor bound to concrete buffers. ws is nil when the descriptor
// carries no workspace.
type poolingFwdPrim struct {
	pd           *poolingForward
	src, dst, ws *buffer
}

var _ engine.Primitive = (*poolingFwdPrim)(nil)

func (p *poolingFwdPrim) Execute() error {
	d := p.pd
	eng := d.eng
	g := newPoolGeom(d.src, d.dst, d.desc.Window, d.desc.Strides, d.desc.PaddingLow)
	srcL, dstL := newLayout(d.src), newLayout(d.dst)
	var wsL layout
	var wsFlat []int32
	if p.ws != nil {
		wsL = newLayout(d.workspace)
		wsFlat = p.ws.flat.([]int32)
	}
	switch dtype := d.src.Shape.DType; dtype {
	case dtypes.Float32:
		execPoolingForward(eng.workers, g, d.desc.Kind, srcL, dstL, wsL,
			p.src.flat.([]float32), p.dst.flat.([]float32), wsFlat)
	case dtypes.Float64:
		execPoolingForward(eng.workers, g, d.desc.Kind, srcL, dstL, wsL,
			p.src.flat.([]float64), p.dst.flat.([]float64), wsFlat)
	case dtypes.Float16:
		srcFlat := p.src.flat.([]float16.Float16)
		dstFlat := p.dst.flat.([]float16.Float16)
		src32 := eng.getBuffer(dtypes.Float32, len(srcFlat))
		dst32 := eng.getBuffer(dtypes.Float32, len(dstFlat))
		toFloat32(src32.flat.([]float32), srcFlat)
		execPoolingForward(eng.workers, g, d.desc.Kind, srcL, dstL, wsL,
			src32.flat.([]float32), dst32.flat.([]float32), wsFlat)
		fromFloat32(dstFlat, dst32.flat.([]float32), float16.Fromfloat32)
		eng.putBuffer(src32)
		eng.putBuffer(dst32)
	case dtypes.BFloat16:
		srcFlat := p.src.flat.([]bfloat16.BFloat16)
		dstFlat := p.dst.flat.([]bfloat16.BFloat16)
		src32 := eng.getBuffer(dtypes.Float32, len(srcFlat))
		dst32 := eng.getBuffer(dtypes.Float32, len(dstFlat))
		toFloat32(src32.flat.([]float32), srcFlat)
		execPoolingForward(eng.workers, g, d.desc.Kind, srcL, dstL, wsL,
			src32.flat.([]float32), dst32.flat.([]float32), wsFlat)
		fromFloat32(dstFlat, dst32.flat.([]float32), bfloat16.FromFloat32)
		eng.putBuffer(src32)
		eng.putBuffer(dst32)
	default:
		return errors.Errorf("simplecpu: pooling forward over unsupported dtype %s", dtype)
	}
	return nil
}

// poolingBwdPrim is the executable backward primitive. ws is nil for
// average pooling.
type poolingBwdPrim struct {
	pd                   *poolingBackward
	diffDst, diffSrc, ws *buffer
}

var _ engine.Primitive = (*poolingBwdPrim)(nil)

func (p *poolingBwdPrim) Execute() error {
	d := p.pd
	eng := d.eng
	g := newPoolGeom(d.diffSrc, d.diffDst, d.desc.Window, d.desc.Strides, d.desc.PaddingLow)
	diffSrcL, diffDstL := newLayout(d.diffSrc), newLayout(d.diffDst)
	var wsL layout
	var wsFlat []int32
	if p.ws != nil {
		wsL = newLayout(d.workspace)
		wsFlat = p.ws.flat.([]int32)
	}
	switch dtype := d.diffSrc.Shape.DType; dtype {
	case dtypes.Float32:
		execPoolingBackward(eng.workers, g, d.desc.Kind, diffSrcL, diffDstL, wsL,
			p.diffSrc.flat.([]float32), p.diffDst.flat.([]float32), wsFlat)
	case dtypes.Float64:
		execPoolingBackward(eng.workers, g, d.desc.Kind, diffSrcL, diffDstL, wsL,
			p.diffSrc.flat.([]float64), p.diffDst.flat.([]float64), wsFlat)
	case dtypes.Float16:
		diffDstFlat := p.diffDst.flat.([]float16.Float16)
		diffSrcFlat := p.diffSrc.flat.([]float16.Float16)
		diffDst32 := eng.getBuffer(dtypes.Float32, len(diffDstFlat))
		diffSrc32 := eng.getBuffer(dtypes.Float32, len(diffSrcFlat))
		toFloat32(diffDst32.flat.([]float32), diffDstFlat)
		execPoolingBackward(eng.workers, g, d.desc.Kind, diffSrcL, diffDstL, wsL,
			diffSrc32.flat.([]float32), diffDst32.flat.([]float32), wsFlat)
		fromFloat32(diffSrcFlat, diffSrc32.flat.([]float32), float16.Fromfloat32)
		eng.putBuffer(diffDst32)
		eng.putBuffer(diffSrc32)
	case dtypes.BFloat16:
		diffDstFlat := p.diffDst.flat.([]bfloat16.BFloat16)
		diffSrcFlat := p.diffSrc.flat.([]bfloat16.BFloat16)
		diffDst32 := eng.getBuffer(dtypes.Float32, len(diffDstFlat))
		diffSrc32 := eng.getBuffer(dtypes.Float32, len(diffSrcFlat))
		toFloat32(diffDst32.flat.([]float32), diffDstFlat)
		execPoolingBackward(eng.workers, g, d.desc.Kind, diffSrcL, diffDstL, wsL,
			diffSrc32.flat.([]float32), diffDst32.flat.([]float32), wsFlat)
		fromFloat32(diffSrcFlat, diffSrc32.flat.([]float32), bfloat16.FromFloat32)
		eng.putBuffer(diffDst32)
		eng.putBuffer(diffSrc32)
	default:
		return errors.Errorf("simplecpu: pooling backward over unsupported dtype %s", dtype)
	}
	return nil
}
