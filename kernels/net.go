package kernels

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Gametech-Dev/ngraph-neon/engine"
)

// Net is the execution sequence the builders append to: an ordered,
// append-only list of constructed kernels, executed in construction order.
// A backward kernel always lands after the forward kernel it was built
// against, because the builder requires the forward kernel as input.
//
// A Net is bound to one engine and is not safe for concurrent construction;
// callers building kernels from multiple goroutines against the same Net
// must serialize externally.
type Net struct {
	eng     engine.Engine
	kernels []*OpKernel
	valid   bool
}

// NewNet returns an empty execution sequence bound to the engine.
func NewNet(eng engine.Engine) *Net {
	if eng == nil {
		exceptions.Panicf("kernels: NewNet requires an engine")
	}
	return &Net{eng: eng, valid: true}
}

// Engine returns the engine every kernel in this net is built against.
func (n *Net) Engine() engine.Engine { return n.eng }

// Len returns the number of kernels appended so far.
func (n *Net) Len() int { return len(n.kernels) }

// Kernel returns the i-th appended kernel.
func (n *Net) Kernel(i int) *OpKernel { return n.kernels[i] }

// Kernels returns the kernels in execution order.
func (n *Net) Kernels() []*OpKernel { return slices.Clone(n.kernels) }

// assertValid panics if the net was finalized.
func (n *Net) assertValid() {
	if !n.valid {
		exceptions.Panicf("kernels: Net already finalized")
	}
}

// append records one more constructed kernel. Only the builders call it;
// appending is the only mutation a Net supports.
func (n *Net) append(k *OpKernel) {
	n.assertValid()
	n.kernels = append(n.kernels, k)
}

// Run executes the appended kernels in order against their bound tensors.
// It stops at the first failing step.
func (n *Net) Run() error {
	n.assertValid()
	for i, k := range n.kernels {
		if klog.V(2).Enabled() {
			klog.Infof("kernels: net step %d: %s", i, k)
		}
		if err := k.prim.Execute(); err != nil {
			return errors.WithMessagef(err, "net step %d (%s)", i, k.ID())
		}
	}
	return nil
}

// Finalize releases every kernel's tensors and invalidates the net.
func (n *Net) Finalize() {
	if !n.valid {
		return
	}
	n.valid = false
	for _, k := range n.kernels {
		k.Finalize()
	}
	n.kernels = nil
}
