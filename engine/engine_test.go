package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// stubEngine implements Engine for registry tests only.
type stubEngine struct {
	config string
}

func (e *stubEngine) Name() string        { return "stub" }
func (e *stubEngine) Description() string { return "registry test stub" }
func (e *stubEngine) NewMemory(desc MemoryDesc) (Memory, error) {
	return nil, errors.New("not implemented")
}
func (e *stubEngine) NewPoolingForward(desc PoolingForwardDesc) (PoolingForward, error) {
	return nil, errors.New("not implemented")
}
func (e *stubEngine) NewPoolingBackward(desc PoolingBackwardDesc, hint PoolingForward) (PoolingBackward, error) {
	return nil, errors.New("not implemented")
}
func (e *stubEngine) Finalize() {}

func TestRegistry(t *testing.T) {
	Register("stub", func(config string) (Engine, error) {
		if config == "explode" {
			return nil, errors.New("bad config")
		}
		return &stubEngine{config: config}, nil
	})

	eng, err := NewWithConfig("stub")
	require.NoError(t, err)
	require.Equal(t, "stub", eng.Name())

	eng, err = NewWithConfig("stub:somesetting=1")
	require.NoError(t, err)
	require.Equal(t, "somesetting=1", eng.(*stubEngine).config)

	_, err = NewWithConfig("no-such-engine:")
	require.Error(t, err)

	_, err = NewWithConfig("stub:explode")
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad config")

	// Empty name falls back to the first registered engine.
	eng, err = NewWithConfig(":opt")
	require.NoError(t, err)
	require.Equal(t, "opt", eng.(*stubEngine).config)

	t.Setenv(EnvVarName, "stub:fromenv")
	eng, err = New()
	require.NoError(t, err)
	require.Equal(t, "fromenv", eng.(*stubEngine).config)
	require.NotPanics(t, func() { MustNew() })

	t.Setenv(EnvVarName, "no-such-engine")
	require.Panics(t, func() { MustNew() })
}
