package simplecpu

import (
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Gametech-Dev/ngraph-neon/engine"
)

// poolingForward implements engine.PoolingForward: the operator descriptor
// with its layout placeholders resolved to this engine's choices.
type poolingForward struct {
	eng  *Engine
	desc engine.PoolingForwardDesc

	src, dst     engine.MemoryDesc
	workspace    engine.MemoryDesc
	hasWorkspace bool
}

// Compile-time check:
var _ engine.PoolingForward = (*poolingForward)(nil)

// NewPoolingForward validates the descriptor and resolves its layouts. A
// FormatAny source becomes the engine default (CHWN); a FormatAny
// destination follows the resolved source, since pooling preserves the
// layout family and binds no reorders. The workspace descriptor, present
// for max pooling in training mode, has the destination extents with Int32
// elements in the destination layout.
func (e *Engine) NewPoolingForward(desc engine.PoolingForwardDesc) (engine.PoolingForward, error) {
	if err := desc.Validate(); err != nil {
		return nil, errors.WithMessage(err, "simplecpu")
	}
	if !poolingDTypes[desc.Src.Shape.DType] {
		return nil, errors.Errorf("simplecpu: pooling over dtype %s not supported (supported: Float32, Float64, Float16, BFloat16)",
			desc.Src.Shape.DType)
	}
	src := desc.Src
	if src.Format == engine.FormatAny {
		src.Format = defaultFormat
	}
	if err := src.Validate(); err != nil {
		return nil, errors.WithMessage(err, "simplecpu: resolved source layout")
	}
	dst := desc.Dst
	if dst.Format == engine.FormatAny {
		dst.Format = src.Format
	}
	if err := dst.Validate(); err != nil {
		return nil, errors.WithMessage(err, "simplecpu: resolved destination layout")
	}
	pd := &poolingForward{eng: e, desc: desc, src: src, dst: dst}
	if desc.NeedsWorkspace() {
		pd.hasWorkspace = true
		pd.workspace = engine.NewMemoryDesc(dst.Shape.WithDType(engine.WorkspaceDType), dst.Format)
	}
	if klog.V(1).Enabled() {
		klog.Infof("simplecpu: pooling forward pd (%s, %s): src=%s dst=%s workspace=%v",
			desc.Kind, desc.Prop, pd.src, pd.dst, pd.hasWorkspace)
	}
	return pd, nil
}

func (p *poolingForward) Desc() engine.PoolingForwardDesc { return p.desc }
func (p *poolingForward) SrcDesc() engine.MemoryDesc      { return p.src }
func (p *poolingForward) DstDesc() engine.MemoryDesc      { return p.dst }

func (p *poolingForward) WorkspaceDesc() (engine.MemoryDesc, bool) {
	return p.workspace, p.hasWorkspace
}

// Instantiate binds [src] and [dst] (plus [workspace] when present) and
// returns the executable primitive.
func (p *poolingForward) Instantiate(inputs, outputs []engine.Memory) (engine.Primitive, error) {
	wantOutputs := 1
	if p.hasWorkspace {
		wantOutputs = 2
	}
	if len(inputs) != 1 {
		return nil, errors.Errorf("simplecpu: pooling forward binds 1 input, got %d", len(inputs))
	}
	if len(outputs) != wantOutputs {
		return nil, errors.Errorf("simplecpu: pooling forward binds %d output(s), got %d", wantOutputs, len(outputs))
	}
	src, err := p.eng.checkMemory(inputs[0], p.src, "source")
	if err != nil {
		return nil, err
	}
	dst, err := p.eng.checkMemory(outputs[0], p.dst, "destination")
	if err != nil {
		return nil, err
	}
	var ws *buffer
	if p.hasWorkspace {
		ws, err = p.eng.checkMemory(outputs[1], p.workspace, "workspace")
		if err != nil {
			return nil, err
		}
	}
	return &poolingFwdPrim{pd: p, src: src, dst: dst, ws: ws}, nil
}

// poolingBackward implements engine.PoolingBackward. It is created with the
// forward primitive descriptor as hint, which pins the gradient layouts and
// supplies the workspace descriptor.
type poolingBackward struct {
	eng  *Engine
	desc engine.PoolingBackwardDesc
	hint *poolingForward

	diffSrc, diffDst engine.MemoryDesc
	workspace        engine.MemoryDesc
	hasWorkspace     bool
}

// Compile-time check:
var _ engine.PoolingBackward = (*poolingBackward)(nil)

// NewPoolingBackward validates the descriptor against the hint: same
// pooling kind and window geometry, gradient shapes matching the forward
// source/destination shapes, and a training-mode hint. Layout resolution
// follows the hint: a FormatAny diff-source takes the hint's resolved
// source layout and a FormatAny diff-destination the hint's destination
// layout; explicit formats must already match the hint, because pooling
// participates in layout propagation without boundary reorders.
func (e *Engine) NewPoolingBackward(desc engine.PoolingBackwardDesc, hint engine.PoolingForward) (engine.PoolingBackward, error) {
	if err := desc.Validate(); err != nil {
		return nil, errors.WithMessage(err, "simplecpu")
	}
	if hint == nil {
		return nil, errors.Errorf("simplecpu: pooling backward requires the forward primitive descriptor as hint")
	}
	fwd, ok := hint.(*poolingForward)
	if !ok || fwd.eng != e {
		return nil, errors.Errorf("simplecpu: hint primitive descriptor was not created by this engine")
	}
	if fwd.desc.Prop != engine.ForwardTraining {
		return nil, errors.Errorf("simplecpu: hint was created for %s; backward needs a %s forward",
			fwd.desc.Prop, engine.ForwardTraining)
	}
	if desc.Kind != fwd.desc.Kind {
		return nil, errors.Errorf("simplecpu: backward kind %s does not match hint kind %s", desc.Kind, fwd.desc.Kind)
	}
	if !slices.Equal(desc.Window, fwd.desc.Window) ||
		!slices.Equal(desc.Strides, fwd.desc.Strides) ||
		!slices.Equal(desc.PaddingLow, fwd.desc.PaddingLow) ||
		!slices.Equal(desc.PaddingHigh, fwd.desc.PaddingHigh) {
		return nil, errors.Errorf("simplecpu: backward window geometry (window %v, strides %v, padding %v/%v) does not match hint (window %v, strides %v, padding %v/%v)",
			desc.Window, desc.Strides, desc.PaddingLow, desc.PaddingHigh,
			fwd.desc.Window, fwd.desc.Strides, fwd.desc.PaddingLow, fwd.desc.PaddingHigh)
	}
	if !desc.DiffSrc.Shape.Equal(fwd.src.Shape) {
		return nil, errors.Errorf("simplecpu: diff-source shape %s does not match hint source shape %s",
			desc.DiffSrc.Shape, fwd.src.Shape)
	}
	if !desc.DiffDst.Shape.Equal(fwd.dst.Shape) {
		return nil, errors.Errorf("simplecpu: diff-destination shape %s does not match hint destination shape %s",
			desc.DiffDst.Shape, fwd.dst.Shape)
	}
	diffDst := desc.DiffDst
	if diffDst.Format == engine.FormatAny {
		diffDst.Format = fwd.dst.Format
	} else if diffDst.Format != fwd.dst.Format {
		return nil, errors.Errorf("simplecpu: diff-destination layout %s does not match hint destination layout %s and pooling binds no reorder",
			diffDst.Format, fwd.dst.Format)
	}
	diffSrc := desc.DiffSrc
	if diffSrc.Format == engine.FormatAny {
		diffSrc.Format = fwd.src.Format
	} else if diffSrc.Format != fwd.src.Format {
		return nil, errors.Errorf("simplecpu: diff-source layout %s does not match hint source layout %s and pooling binds no reorder",
			diffSrc.Format, fwd.src.Format)
	}
	pd := &poolingBackward{eng: e, desc: desc, hint: fwd, diffSrc: diffSrc, diffDst: diffDst}
	if ws, has := fwd.WorkspaceDesc(); has {
		pd.hasWorkspace = true
		pd.workspace = ws
	}
	if klog.V(1).Enabled() {
		klog.Infof("simplecpu: pooling backward pd (%s): diffDst=%s diffSrc=%s workspace=%v",
			desc.Kind, pd.diffDst, pd.diffSrc, pd.hasWorkspace)
	}
	return pd, nil
}

func (p *poolingBackward) Desc() engine.PoolingBackwardDesc { return p.desc }
func (p *poolingBackward) DiffDstDesc() engine.MemoryDesc   { return p.diffDst }
func (p *poolingBackward) DiffSrcDesc() engine.MemoryDesc   { return p.diffSrc }

func (p *poolingBackward) WorkspaceDesc() (engine.MemoryDesc, bool) {
	return p.workspace, p.hasWorkspace
}

// Instantiate binds [diffDst] (plus [workspace] when present) and [diffSrc]
// and returns the executable primitive.
func (p *poolingBackward) Instantiate(inputs, outputs []engine.Memory) (engine.Primitive, error) {
	wantInputs := 1
	if p.hasWorkspace {
		wantInputs = 2
	}
	if len(inputs) != wantInputs {
		return nil, errors.Errorf("simplecpu: pooling backward binds %d input(s), got %d", wantInputs, len(inputs))
	}
	if len(outputs) != 1 {
		return nil, errors.Errorf("simplecpu: pooling backward binds 1 output, got %d", len(outputs))
	}
	diffDst, err := p.eng.checkMemory(inputs[0], p.diffDst, "diff-destination")
	if err != nil {
		return nil, err
	}
	var ws *buffer
	if p.hasWorkspace {
		ws, err = p.eng.checkMemory(inputs[1], p.workspace, "workspace")
		if err != nil {
			return nil, err
		}
	}
	diffSrc, err := p.eng.checkMemory(outputs[0], p.diffSrc, "diff-source")
	if err != nil {
		return nil, err
	}
	return &poolingBwdPrim{pd: p, diffDst: diffDst, diffSrc: diffSrc, ws: ws}, nil
}

// checkMemory asserts a bound memory belongs to this engine, is live and
// carries exactly the descriptor of the slot it is bound to.
func (e *Engine) checkMemory(mem engine.Memory, want engine.MemoryDesc, role string) (*buffer, error) {
	if mem == nil {
		return nil, errors.Errorf("simplecpu: nil memory bound for %s", role)
	}
	buf, ok := mem.(*buffer)
	if !ok || buf.eng != e {
		return nil, errors.Errorf("simplecpu: %s memory was not created by this engine", role)
	}
	if !buf.valid {
		return nil, errors.Errorf("simplecpu: %s memory was already finalized (%s)", role, buf.desc)
	}
	if !buf.desc.Equal(want) {
		return nil, errors.Errorf("simplecpu: %s memory is %s but the primitive slot needs %s and pooling binds no reorder",
			role, buf.desc, want)
	}
	return buf, nil
}
