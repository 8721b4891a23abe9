package kernels

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gametech-Dev/ngraph-neon/engine"
	"github.com/Gametech-Dev/ngraph-neon/engine/simplecpu"
)

func TestNewNetRequiresEngine(t *testing.T) {
	require.Panics(t, func() { NewNet(nil) })
}

func TestNetKernelsIsACopy(t *testing.T) {
	eng := testEngine(t, "parallelism=0")
	net := NewNet(eng)
	defer net.Finalize()

	fwd := MustBuildPoolingForward(eng, net, pool4x4(engine.PoolingMax))
	kernels := net.Kernels()
	kernels[0] = nil
	require.Same(t, fwd, net.Kernel(0))
}

func TestNetFinalize(t *testing.T) {
	e := testEngine(t, "parallelism=0")
	cpu := e.(*simplecpu.Engine)
	net := NewNet(e)

	fwd := MustBuildPoolingForward(e, net, pool4x4(engine.PoolingMax))
	MustBuildPoolingBackward(e, net, pool4x4(engine.PoolingMax), fwd)
	require.Greater(t, cpu.LiveBytes(), int64(0))

	net.Finalize()
	require.Zero(t, cpu.LiveBytes())
	require.Zero(t, net.Len())

	// Finalizing again is a no-op; running a finalized net is misuse.
	net.Finalize()
	require.Panics(t, func() { _ = net.Run() })

	// Kernel finalization is idempotent too.
	fwd.Finalize()
}
