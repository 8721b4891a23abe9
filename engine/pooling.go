package engine

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/Gametech-Dev/ngraph-neon/types/shapes"
)

// PoolingKind selects the pooling reduction.
type PoolingKind int

//go:generate go tool enumer -type=PoolingKind -trimprefix=Pooling -output=gen_poolingkind_enumer.go pooling.go

const (
	// PoolingMax takes the maximum over each window and, in training mode,
	// records which window position won so the backward pass can route
	// gradients there.
	PoolingMax PoolingKind = iota

	// PoolingAvg averages each window. Padded positions contribute zero to
	// the sum and stay in the denominator.
	PoolingAvg
)

// PropKind is the propagation kind a forward primitive is created for.
// Training-mode forward plans for a later backward pass: with PoolingMax it
// adds the workspace tensor holding the selected window positions.
type PropKind int

//go:generate go tool enumer -type=PropKind -output=gen_propkind_enumer.go pooling.go

const (
	ForwardTraining PropKind = iota
	ForwardInference
)

// WorkspaceDType is the element type of the auxiliary workspace tensor max
// pooling produces in training mode: each element is the window-relative
// position (row-major over the window extents) of the maximum.
const WorkspaceDType = dtypes.Int32

// PoolingForwardDesc describes a forward pooling operator: the reduction
// kind, the propagation kind, the source and destination memory descriptors
// and the per-spatial-axis window geometry.
//
// Src and Dst shapes are batch-major [N, C, spatial...] of equal rank; the
// geometry slices cover the spatial axes only (length rank-2). Dst.Format is
// typically FormatAny, leaving the layout choice to the engine.
type PoolingForwardDesc struct {
	Kind PoolingKind
	Prop PropKind

	Src, Dst MemoryDesc

	Window, Strides         []int
	PaddingLow, PaddingHigh []int
}

// PoolingBackwardDesc describes the corresponding backward operator:
// DiffDst is the incoming gradient (post-pooling geometry, the forward
// destination side) and DiffSrc the outgoing gradient (pre-pooling geometry,
// the forward source side). The geometry slices must repeat the forward
// ones.
type PoolingBackwardDesc struct {
	Kind PoolingKind

	DiffSrc, DiffDst MemoryDesc

	Window, Strides         []int
	PaddingLow, PaddingHigh []int
}

// PoolingOutputDims computes the pooled spatial dimensions:
// out[i] = (in[i] + paddingLow[i] + paddingHigh[i] - window[i])/strides[i] + 1.
//
// All slices must have the same length as srcSpatial. It validates the
// per-axis parameters and returns an error if any window does not fit its
// padded input.
func PoolingOutputDims(srcSpatial, window, strides, paddingLow, paddingHigh []int) ([]int, error) {
	spatialRank := len(srcSpatial)
	if len(window) != spatialRank {
		return nil, errors.Errorf("pooling: len(window)=%d, but there are %d spatial axes", len(window), spatialRank)
	}
	if len(strides) != spatialRank {
		return nil, errors.Errorf("pooling: len(strides)=%d, but there are %d spatial axes", len(strides), spatialRank)
	}
	if len(paddingLow) != spatialRank {
		return nil, errors.Errorf("pooling: len(paddingLow)=%d, but there are %d spatial axes", len(paddingLow), spatialRank)
	}
	if len(paddingHigh) != spatialRank {
		return nil, errors.Errorf("pooling: len(paddingHigh)=%d, but there are %d spatial axes", len(paddingHigh), spatialRank)
	}
	out := make([]int, spatialRank)
	for i := 0; i < spatialRank; i++ {
		if window[i] < 1 {
			return nil, errors.Errorf("pooling: window[%d]=%d must be >= 1", i, window[i])
		}
		if strides[i] < 1 {
			return nil, errors.Errorf("pooling: strides[%d]=%d must be >= 1", i, strides[i])
		}
		if paddingLow[i] < 0 || paddingHigh[i] < 0 {
			return nil, errors.Errorf("pooling: padding[%d]=[%d, %d] must be non-negative", i, paddingLow[i], paddingHigh[i])
		}
		padded := srcSpatial[i] + paddingLow[i] + paddingHigh[i]
		if padded < window[i] {
			return nil, errors.Errorf("pooling: window[%d]=%d larger than padded input %d", i, window[i], padded)
		}
		out[i] = (padded-window[i])/strides[i] + 1
	}
	return out, nil
}

// poolingGeometryCheck validates the parts shared by the forward and
// backward descriptors: the pre-pooling (src) and post-pooling (dst) sides
// against the window geometry. The FormatAny placeholder is allowed on
// either side; the engine resolves it.
func poolingGeometryCheck(what string, kind PoolingKind, src, dst MemoryDesc, window, strides, paddingLow, paddingHigh []int) error {
	if !kind.IsAPoolingKind() {
		return errors.Errorf("%s: invalid pooling kind %d", what, int(kind))
	}
	if err := src.Validate(); err != nil {
		return errors.WithMessagef(err, "%s: source side", what)
	}
	if err := dst.Validate(); err != nil {
		return errors.WithMessagef(err, "%s: destination side", what)
	}
	rank := src.Shape.Rank()
	if rank < 3 {
		return errors.Errorf("%s: rank %d below minimum 3 (batch, channels, spatial...)", what, rank)
	}
	if dst.Shape.Rank() != rank {
		return errors.Errorf("%s: source rank %d != destination rank %d", what, rank, dst.Shape.Rank())
	}
	if src.Shape.DType != dst.Shape.DType {
		return errors.Errorf("%s: source dtype %s != destination dtype %s", what, src.Shape.DType, dst.Shape.DType)
	}
	if !src.Shape.DType.IsFloat() {
		return errors.Errorf("%s: pooling requires a float dtype, got %s", what, src.Shape.DType)
	}
	if src.Shape.Batch() != dst.Shape.Batch() || src.Shape.Channels() != dst.Shape.Channels() {
		return errors.Errorf("%s: batch/channels must be preserved, source %s vs destination %s",
			what, src.Shape, dst.Shape)
	}
	outDims, err := PoolingOutputDims(src.Shape.Spatial(), window, strides, paddingLow, paddingHigh)
	if err != nil {
		return errors.WithMessage(err, what)
	}
	for i, want := range outDims {
		if got := dst.Shape.Spatial()[i]; got != want {
			return errors.Errorf("%s: destination spatial dim %d is %d, but window geometry yields %d (source %s, window %v, strides %v, padding %v/%v)",
				what, i, got, want, src.Shape, window, strides, paddingLow, paddingHigh)
		}
	}
	return nil
}

// Validate checks the descriptor is internally consistent: valid kind and
// propagation kind, compatible shapes and formats, and destination spatial
// dimensions matching the window geometry.
func (d PoolingForwardDesc) Validate() error {
	if !d.Prop.IsAPropKind() {
		return errors.Errorf("pooling forward: invalid propagation kind %d", int(d.Prop))
	}
	return poolingGeometryCheck("pooling forward", d.Kind, d.Src, d.Dst, d.Window, d.Strides, d.PaddingLow, d.PaddingHigh)
}

// NeedsWorkspace returns whether primitives for this descriptor carry the
// auxiliary workspace tensor: max pooling in training mode.
func (d PoolingForwardDesc) NeedsWorkspace() bool {
	return d.Kind == PoolingMax && d.Prop == ForwardTraining
}

// Validate checks the backward descriptor the same way, with DiffSrc in the
// pre-pooling role and DiffDst in the post-pooling role.
func (d PoolingBackwardDesc) Validate() error {
	return poolingGeometryCheck("pooling backward", d.Kind, d.DiffSrc, d.DiffDst, d.Window, d.Strides, d.PaddingLow, d.PaddingHigh)
}

// PoolingForward is a resolved forward primitive descriptor: the operator
// descriptor with every layout placeholder replaced by the engine's choice,
// plus the workspace descriptor when one is needed.
//
// Instantiate binds memory to the descriptor's slots and returns the
// executable primitive. Inputs are [src]; outputs are [dst] or
// [dst, workspace] when WorkspaceDesc is present. Every bound memory must
// have been created by the same engine with exactly the resolved descriptor
// of its slot; pooling binds no layout-conversion steps.
type PoolingForward interface {
	Desc() PoolingForwardDesc
	SrcDesc() MemoryDesc
	DstDesc() MemoryDesc
	WorkspaceDesc() (MemoryDesc, bool)
	Instantiate(inputs, outputs []Memory) (Primitive, error)
}

// PoolingBackward is the resolved backward primitive descriptor, created
// with the corresponding forward descriptor as hint.
//
// Inputs are [diffDst] or [diffDst, workspace] when WorkspaceDesc is
// present; outputs are [diffSrc].
type PoolingBackward interface {
	Desc() PoolingBackwardDesc
	DiffDstDesc() MemoryDesc
	DiffSrcDesc() MemoryDesc
	WorkspaceDesc() (MemoryDesc, bool)
	Instantiate(inputs, outputs []Memory) (Primitive, error)
}
