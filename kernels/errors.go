package kernels

import (
	"github.com/pkg/errors"
)

// The error taxonomy of kernel construction. Every failure returned by the
// builders matches exactly one of these sentinels under errors.Is; the
// underlying cause (engine errors included) stays inspectable in the same
// chain.
var (
	// ErrConfiguration marks shape, window, layout or data-type combinations
	// the engine cannot build a kernel for, including the engine declining to
	// allocate tensor memory.
	ErrConfiguration = errors.New("configuration error")

	// ErrContract marks caller misuse: attribute arrays inconsistent with the
	// declared ranks, or a backward build against a missing or foreign
	// forward kernel.
	ErrContract = errors.New("contract violation")
)

// classified ties a taxonomy sentinel to an underlying cause, so errors.Is
// matches both.
type classified struct {
	class error
	cause error
}

func (e *classified) Error() string   { return e.cause.Error() }
func (e *classified) Unwrap() []error { return []error{e.class, e.cause} }

func classify(class, cause error, format string, args ...any) error {
	if cause == nil {
		return errors.WithMessagef(class, format, args...)
	}
	return errors.WithMessagef(&classified{class: class, cause: cause}, format, args...)
}

func errContractf(format string, args ...any) error {
	return classify(ErrContract, nil, format, args...)
}

func errConfigurationf(format string, args ...any) error {
	return classify(ErrConfiguration, nil, format, args...)
}

// errConfiguration wraps an engine failure as a configuration error while
// keeping the engine's chain (engine.ErrOutOfMemory in particular) intact.
func errConfiguration(cause error, format string, args ...any) error {
	return classify(ErrConfiguration, cause, format, args...)
}
