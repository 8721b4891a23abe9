// Package kernels builds executable operator kernels against a compute
// engine and accumulates them into an ordered execution Net.
//
// Construction is a one-shot graph-compilation step: the builders negotiate
// memory layouts with the engine, materialize the kernel's tensors, bind the
// executable primitive and append it to the Net, in that order. A build
// either returns a fully wired OpKernel or an error with nothing
// materialized and the Net untouched; errors carry the taxonomy sentinels
// ErrConfiguration and ErrContract. The Must* variants convert errors to
// panics for callers at the outermost graph-construction boundary.
package kernels

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Gametech-Dev/ngraph-neon/engine"
)

// OpType identifies which pass of an operator a kernel implements.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=Op -output=gen_optype_enumer.go kernel.go

const (
	OpPoolingForward OpType = iota
	OpPoolingBackward
)

// kernelSlugs name kernels for IDs and diagnostics.
var kernelSlugs = map[OpType]string{
	OpPoolingForward:  "pooling-forward",
	OpPoolingBackward: "pooling-backward",
}

// maxPoolingRoles caps the memory roles a pooling kernel binds per side:
// source and workspace in, destination and workspace out.
const maxPoolingRoles = 2

// OpKernel is one constructed operator pass: the resolved primitive
// descriptor, the executable primitive and the ordered tensors bound to it.
// It is immutable once the builder returns it and owns the tensors it
// materialized; the workspace tensor is owned by the forward kernel and only
// borrowed by the corresponding backward kernel.
type OpKernel struct {
	id     string
	opType OpType
	eng    engine.Engine

	fwdPD engine.PoolingForward
	bwdPD engine.PoolingBackward

	prim            engine.Primitive
	inputs, outputs []engine.Memory

	// Per-slot layout-conversion steps. Pooling consumes and produces its
	// tensors in the resolved layouts directly, so these are always nil; the
	// slots model the general kernel record.
	inputReorders, outputReorders []engine.Primitive

	// workspace is the auxiliary argmax tensor, set only for max pooling in
	// training mode. It doubles as outputs[1] on the forward kernel and
	// inputs[1] on the backward one.
	workspace engine.Memory

	// owned are the tensors this kernel materialized and finalizes.
	owned []engine.Memory

	finalized bool
}

// newOpKernel wires the common kernel record and checks the role capacity
// invariant. The builders fill the descriptor and workspace fields before
// publishing the kernel.
func newOpKernel(opType OpType, eng engine.Engine, prim engine.Primitive, inputs, outputs, owned []engine.Memory) (*OpKernel, error) {
	if len(inputs) < 1 || len(inputs) > maxPoolingRoles {
		return nil, errContractf("%s kernel binds between 1 and %d inputs, got %d", kernelSlugs[opType], maxPoolingRoles, len(inputs))
	}
	if len(outputs) < 1 || len(outputs) > maxPoolingRoles {
		return nil, errContractf("%s kernel binds between 1 and %d outputs, got %d", kernelSlugs[opType], maxPoolingRoles, len(outputs))
	}
	return &OpKernel{
		id:             fmt.Sprintf("%s/%s", kernelSlugs[opType], uuid.NewString()),
		opType:         opType,
		eng:            eng,
		prim:           prim,
		inputs:         inputs,
		outputs:        outputs,
		inputReorders:  make([]engine.Primitive, len(inputs)),
		outputReorders: make([]engine.Primitive, len(outputs)),
		owned:          owned,
	}, nil
}

// ID returns the kernel's unique identifier, "<pass-slug>/<uuid>".
func (k *OpKernel) ID() string { return k.id }

// Type returns which operator pass this kernel implements.
func (k *OpKernel) Type() OpType { return k.opType }

// Engine returns the engine the kernel was built against.
func (k *OpKernel) Engine() engine.Engine { return k.eng }

// Primitive returns the bound executable primitive.
func (k *OpKernel) Primitive() engine.Primitive { return k.prim }

// NumInputs returns how many tensors the kernel consumes.
func (k *OpKernel) NumInputs() int { return len(k.inputs) }

// NumOutputs returns how many tensors the kernel produces.
func (k *OpKernel) NumOutputs() int { return len(k.outputs) }

// Input returns the i-th bound input tensor.
func (k *OpKernel) Input(i int) engine.Memory { return k.inputs[i] }

// Output returns the i-th bound output tensor.
func (k *OpKernel) Output(i int) engine.Memory { return k.outputs[i] }

// InputReorder returns the layout-conversion step bound before the i-th
// input. It is nil for every pooling slot.
func (k *OpKernel) InputReorder(i int) engine.Primitive { return k.inputReorders[i] }

// OutputReorder returns the layout-conversion step bound after the i-th
// output. It is nil for every pooling slot.
func (k *OpKernel) OutputReorder(i int) engine.Primitive { return k.outputReorders[i] }

// Workspace returns the auxiliary argmax tensor shared between a max-pooling
// forward kernel and its backward kernel, if this kernel carries one.
func (k *OpKernel) Workspace() (engine.Memory, bool) {
	return k.workspace, k.workspace != nil
}

// ForwardDescriptor returns the resolved forward primitive descriptor for
// forward kernels. It is the hint a backward build takes.
func (k *OpKernel) ForwardDescriptor() (engine.PoolingForward, bool) {
	return k.fwdPD, k.fwdPD != nil
}

// BackwardDescriptor returns the resolved backward primitive descriptor for
// backward kernels.
func (k *OpKernel) BackwardDescriptor() (engine.PoolingBackward, bool) {
	return k.bwdPD, k.bwdPD != nil
}

// String implements fmt.Stringer.
func (k *OpKernel) String() string {
	return fmt.Sprintf("OpKernel[%s: %d inputs, %d outputs]", k.id, len(k.inputs), len(k.outputs))
}

// Finalize releases the tensors the kernel owns. Borrowed tensors (a
// backward kernel's workspace input) are left to their owning kernel. It is
// idempotent.
func (k *OpKernel) Finalize() {
	if k.finalized {
		return
	}
	k.finalized = true
	for _, mem := range k.owned {
		mem.Finalize()
	}
}

// finalizeAll releases already-materialized tensors when a later
// construction step fails, keeping the no-partial-kernel contract.
func finalizeAll(mems []engine.Memory) {
	for _, mem := range mems {
		mem.Finalize()
	}
}
