package kernels

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Gametech-Dev/ngraph-neon/engine"
	"github.com/Gametech-Dev/ngraph-neon/types/shapes"
)

// This file contains the forward and backward pooling kernel builders.

// DefaultSourceFormat is the layout convention used for the source-side
// tensor when the caller supplies no explicit layout.
const DefaultSourceFormat = engine.FormatCHWN

// SourceLayout optionally pins the source-side tensor layout. The zero value
// selects the default convention (DefaultSourceFormat); ExplicitSourceLayout
// pins a concrete format instead. In a backward build the source side is the
// incoming gradient.
type SourceLayout struct {
	format   engine.Format
	explicit bool
}

// ExplicitSourceLayout pins the source-side layout to format.
func ExplicitSourceLayout(format engine.Format) SourceLayout {
	return SourceLayout{format: format, explicit: true}
}

// Explicit returns the pinned format, or false when the default convention
// applies.
func (l SourceLayout) Explicit() (engine.Format, bool) {
	return l.format, l.explicit
}

// resolve returns the concrete source-side format.
func (l SourceLayout) resolve() engine.Format {
	if l.explicit {
		return l.format
	}
	return DefaultSourceFormat
}

// String implements fmt.Stringer.
func (l SourceLayout) String() string {
	if l.explicit {
		return l.format.String()
	}
	return "default (" + DefaultSourceFormat.String() + ")"
}

// Pooling holds the shape and attribute parameters a pooling kernel is built
// from. The same parameters describe the forward pass and its backward pass.
//
// Extents are batch-major, [batch, channels, spatial...], and must match the
// declared ranks. The attribute arrays Window, Strides and Padding cover the
// spatial axes only, so their length is rank-2; Padding applies
// symmetrically to both ends of each spatial axis, padding with zeros.
type Pooling struct {
	// Kind selects the reduction, PoolingMax or PoolingAvg.
	Kind engine.PoolingKind

	// DType is the element type of the source, destination and gradient
	// tensors.
	DType dtypes.DType

	// SourceRank and SourceExtents describe the pre-pooling tensor;
	// DestRank and DestExtents the post-pooling one. Ranks must agree and
	// DestExtents must match the window geometry applied to SourceExtents.
	SourceRank    int
	SourceExtents []int
	DestRank      int
	DestExtents   []int

	// Window, Strides and Padding are per-spatial-axis, length rank-2.
	Window  []int
	Strides []int
	Padding []int

	// SourceLayout optionally pins the source-side layout; the zero value
	// uses DefaultSourceFormat.
	SourceLayout SourceLayout

	// Prop selects the forward propagation kind. The zero value,
	// ForwardTraining, plans for a later backward pass; ForwardInference
	// skips the max-pooling workspace, and no backward kernel can be built
	// against such a forward kernel.
	Prop engine.PropKind
}

// validate checks the parameters against the declared ranks, before any
// engine call.
func (p Pooling) validate() error {
	if !p.Kind.IsAPoolingKind() {
		return errContractf("invalid pooling kind %d", int(p.Kind))
	}
	if !p.Prop.IsAPropKind() {
		return errContractf("invalid propagation kind %d", int(p.Prop))
	}
	if p.DType == dtypes.InvalidDType {
		return errConfigurationf("data type must be specified")
	}
	if len(p.SourceExtents) != p.SourceRank {
		return errContractf("%d source extents for declared rank %d", len(p.SourceExtents), p.SourceRank)
	}
	if len(p.DestExtents) != p.DestRank {
		return errContractf("%d destination extents for declared rank %d", len(p.DestExtents), p.DestRank)
	}
	if p.SourceRank != p.DestRank {
		return errContractf("source rank %d != destination rank %d", p.SourceRank, p.DestRank)
	}
	spatialRank := p.SourceRank - 2
	if len(p.Window) != spatialRank {
		return errContractf("%d window extents for %d spatial axes", len(p.Window), spatialRank)
	}
	if len(p.Strides) != spatialRank {
		return errContractf("%d strides for %d spatial axes", len(p.Strides), spatialRank)
	}
	if len(p.Padding) != spatialRank {
		return errContractf("%d padding amounts for %d spatial axes", len(p.Padding), spatialRank)
	}
	if format, explicit := p.SourceLayout.Explicit(); explicit {
		if !format.IsAFormat() || format == engine.FormatAny {
			return errContractf("explicit source layout must name a concrete format, got %s", format)
		}
	}
	for i, dim := range p.SourceExtents {
		if dim <= 0 {
			return errConfigurationf("source extent %d is %d, must be positive", i, dim)
		}
	}
	for i, dim := range p.DestExtents {
		if dim <= 0 {
			return errConfigurationf("destination extent %d is %d, must be positive", i, dim)
		}
	}
	return nil
}

// checkBuildTarget validates the engine/net pair every build takes.
func checkBuildTarget(what string, eng engine.Engine, net *Net) error {
	if eng == nil {
		return errContractf("%s: engine is nil", what)
	}
	if net == nil {
		return errContractf("%s: net is nil", what)
	}
	if net.Engine() != eng {
		return errContractf("%s: net is bound to engine %q, not %q", what, net.Engine().Name(), eng.Name())
	}
	return nil
}

// BuildPoolingForward constructs the forward pooling kernel: it resolves the
// source layout (explicit or default convention), leaves the destination
// layout to the engine, creates the primitive descriptor, materializes the
// source and destination tensors (plus the workspace tensor for max pooling
// in training mode), binds the executable primitive and appends it to net.
//
// On failure nothing is materialized, the net is untouched and the error
// matches ErrConfiguration or ErrContract.
func BuildPoolingForward(eng engine.Engine, net *Net, p Pooling) (*OpKernel, error) {
	const what = "pooling forward"
	if err := checkBuildTarget(what, eng, net); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, errors.WithMessage(err, what)
	}

	pd, err := eng.NewPoolingForward(engine.PoolingForwardDesc{
		Kind: p.Kind,
		Prop: p.Prop,
		Src:  engine.NewMemoryDesc(shapes.Make(p.DType, p.SourceExtents...), p.SourceLayout.resolve()),
		Dst:  engine.NewMemoryDesc(shapes.Make(p.DType, p.DestExtents...), engine.FormatAny),

		Window:      p.Window,
		Strides:     p.Strides,
		PaddingLow:  p.Padding,
		PaddingHigh: p.Padding,
	})
	if err != nil {
		return nil, errConfiguration(err, "%s: creating primitive descriptor", what)
	}

	var owned []engine.Memory
	src, err := eng.NewMemory(pd.SrcDesc())
	if err != nil {
		return nil, errConfiguration(err, "%s: materializing source tensor", what)
	}
	owned = append(owned, src)
	dst, err := eng.NewMemory(pd.DstDesc())
	if err != nil {
		finalizeAll(owned)
		return nil, errConfiguration(err, "%s: materializing destination tensor", what)
	}
	owned = append(owned, dst)

	outputs := []engine.Memory{dst}
	var workspace engine.Memory
	if wsDesc, has := pd.WorkspaceDesc(); has {
		workspace, err = eng.NewMemory(wsDesc)
		if err != nil {
			finalizeAll(owned)
			return nil, errConfiguration(err, "%s: materializing workspace tensor", what)
		}
		owned = append(owned, workspace)
		outputs = append(outputs, workspace)
	}

	prim, err := pd.Instantiate([]engine.Memory{src}, outputs)
	if err != nil {
		finalizeAll(owned)
		return nil, errConfiguration(err, "%s: binding primitive", what)
	}
	k, err := newOpKernel(OpPoolingForward, eng, prim, []engine.Memory{src}, outputs, owned)
	if err != nil {
		finalizeAll(owned)
		return nil, err
	}
	k.fwdPD = pd
	k.workspace = workspace
	net.append(k)
	if klog.V(1).Enabled() {
		klog.Infof("kernels: built %s (%s, %s): src=%s dst=%s workspace=%v",
			k.ID(), p.Kind, p.Prop, pd.SrcDesc(), pd.DstDesc(), workspace != nil)
	}
	return k, nil
}

// BuildPoolingBackward constructs the backward kernel for a previously built
// forward kernel: it consumes the gradient at the forward destination and
// produces the gradient at the forward source. The forward kernel's resolved
// primitive descriptor is passed to the engine as hint, which pins the
// gradient layouts to the forward layouts; for max pooling the forward
// kernel's workspace tensor is wired in as the second input, so the backward
// pass reads the argmax positions the forward pass recorded.
//
// The same failure contract as BuildPoolingForward applies; calling without
// a valid forward kernel from the same engine is a contract violation.
func BuildPoolingBackward(eng engine.Engine, net *Net, p Pooling, fwd *OpKernel) (*OpKernel, error) {
	const what = "pooling backward"
	if err := checkBuildTarget(what, eng, net); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, errors.WithMessage(err, what)
	}
	if fwd == nil {
		return nil, errContractf("%s: missing the forward kernel", what)
	}
	fwdPD, ok := fwd.ForwardDescriptor()
	if !ok {
		return nil, errContractf("%s: kernel %s is a %s, not a %s", what, fwd.ID(), fwd.Type(), OpPoolingForward)
	}
	if fwd.Engine() != eng {
		return nil, errContractf("%s: forward kernel %s was built against engine %q, not %q",
			what, fwd.ID(), fwd.Engine().Name(), eng.Name())
	}

	pd, err := eng.NewPoolingBackward(engine.PoolingBackwardDesc{
		Kind:    p.Kind,
		DiffSrc: engine.NewMemoryDesc(shapes.Make(p.DType, p.SourceExtents...), engine.FormatAny),
		DiffDst: engine.NewMemoryDesc(shapes.Make(p.DType, p.DestExtents...), p.SourceLayout.resolve()),

		Window:      p.Window,
		Strides:     p.Strides,
		PaddingLow:  p.Padding,
		PaddingHigh: p.Padding,
	}, fwdPD)
	if err != nil {
		return nil, errConfiguration(err, "%s: creating primitive descriptor", what)
	}

	var owned []engine.Memory
	diffDst, err := eng.NewMemory(pd.DiffDstDesc())
	if err != nil {
		return nil, errConfiguration(err, "%s: materializing incoming-gradient tensor", what)
	}
	owned = append(owned, diffDst)

	inputs := []engine.Memory{diffDst}
	var workspace engine.Memory
	if _, has := pd.WorkspaceDesc(); has {
		workspace, ok = fwd.Workspace()
		if !ok {
			finalizeAll(owned)
			return nil, errContractf("%s: forward kernel %s carries no workspace tensor", what, fwd.ID())
		}
		inputs = append(inputs, workspace)
	}

	diffSrc, err := eng.NewMemory(pd.DiffSrcDesc())
	if err != nil {
		finalizeAll(owned)
		return nil, errConfiguration(err, "%s: materializing outgoing-gradient tensor", what)
	}
	owned = append(owned, diffSrc)

	prim, err := pd.Instantiate(inputs, []engine.Memory{diffSrc})
	if err != nil {
		finalizeAll(owned)
		return nil, errConfiguration(err, "%s: binding primitive", what)
	}
	k, err := newOpKernel(OpPoolingBackward, eng, prim, inputs, []engine.Memory{diffSrc}, owned)
	if err != nil {
		finalizeAll(owned)
		return nil, err
	}
	k.bwdPD = pd
	k.workspace = workspace
	net.append(k)
	if klog.V(1).Enabled() {
		klog.Infof("kernels: built %s (%s): diffDst=%s diffSrc=%s workspace=%v",
			k.ID(), p.Kind, pd.DiffDstDesc(), pd.DiffSrcDesc(), workspace != nil)
	}
	return k, nil
}

// MustBuildPoolingForward is BuildPoolingForward, converting any
// construction error into a panic. For callers at the outermost
// graph-construction boundary, where a failed build aborts the whole graph.
func MustBuildPoolingForward(eng engine.Engine, net *Net, p Pooling) *OpKernel {
	return must.M1(BuildPoolingForward(eng, net, p))
}

// MustBuildPoolingBackward is BuildPoolingBackward, converting any
// construction error into a panic.
func MustBuildPoolingBackward(eng engine.Engine, net *Net, p Pooling, fwd *OpKernel) *OpKernel {
	return must.M1(BuildPoolingBackward(eng, net, p, fwd))
}
