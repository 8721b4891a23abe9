// Package engine defines the interface a compute engine must implement to
// back kernel construction: memory materialization, layout resolution and
// the creation of executable pooling primitives.
//
// An engine is the device handle every kernel is built against. Engines
// register themselves by name (see Register) and are selected at runtime
// with New, honoring the NGRAPH_ENGINE environment variable. The pure-Go
// reference engine lives in engine/simplecpu and registers itself as "cpu".
//
// All construction entry points return errors; panics (with stack traces,
// see github.com/gomlx/exceptions) are reserved for programmer misuse, like
// building against a nil engine or forgetting to import an engine package.
package engine

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Engine is the API a compute engine implements.
//
// Primitive descriptors returned by NewPoolingForward/NewPoolingBackward are
// engine-specific: handles from one engine must not be passed to another.
type Engine interface {
	// Name returns the short name the engine was registered under, e.g. "cpu".
	Name() string

	// Description is a longer description of the engine for pretty-printing.
	Description() string

	// NewMemory materializes a tensor for the given descriptor. The
	// descriptor must be fully resolved (no FormatAny) and valid for this
	// engine. Contents start zero-initialized.
	NewMemory(desc MemoryDesc) (Memory, error)

	// NewPoolingForward validates the operator descriptor and creates the
	// resolved primitive descriptor for it, replacing any FormatAny
	// placeholder with the engine's layout choice.
	NewPoolingForward(desc PoolingForwardDesc) (PoolingForward, error)

	// NewPoolingBackward is the backward counterpart. The hint must be the
	// forward primitive descriptor the backward pass corresponds to; it
	// drives layout resolution for the gradient tensors and supplies the
	// workspace descriptor. A nil or foreign hint is rejected.
	NewPoolingBackward(desc PoolingBackwardDesc, hint PoolingForward) (PoolingBackward, error)

	// Finalize releases all associated resources immediately and makes the
	// engine invalid.
	Finalize()
}

// Constructor takes an engine-specific config string (possibly empty) and
// returns the initialized engine.
type Constructor func(config string) (Engine, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register an engine constructor under the given name. The constructor
// receives the configuration string that follows "<name>:" in NGRAPH_ENGINE
// or in the string given to NewWithConfig.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the engine configuration used by New when NGRAPH_ENGINE
// is not set. See NewWithConfig for the format.
var DefaultConfig string

// EnvVarName is the environment variable with the default engine
// configuration.
//
// The format is "<engine_name>:<engine_configuration>". "<engine_name>" is
// the name of a registered engine (e.g. "cpu") and "<engine_configuration>"
// is engine specific (for "cpu", comma-separated key=value options).
const EnvVarName = "NGRAPH_ENGINE"

// New returns a new engine using the default configuration:
//
//  1. The environment variable NGRAPH_ENGINE, if set.
//  2. The package variable DefaultConfig, if not empty.
//  3. The first registered engine with an empty configuration.
//
// It panics if no engine was registered at all (import an engine package,
// e.g. _ "github.com/Gametech-Dev/ngraph-neon/engine/simplecpu").
func New() (Engine, error) {
	config, found := os.LookupEnv(EnvVarName)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// MustNew is New panicking on error. Handy for tests and tools.
func MustNew() Engine {
	eng, err := New()
	if err != nil {
		panic(err)
	}
	return eng
}

// NewWithConfig creates an engine from a configuration string formatted as
// "<engine_name>:<engine_configuration>". An empty name selects the first
// registered engine.
func NewWithConfig(config string) (Engine, error) {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no engines registered -- import one, e.g. import _ "github.com/Gametech-Dev/ngraph-neon/engine/simplecpu"`)
	}
	engineName := config
	engineConfig := ""
	if idx := strings.Index(config, ":"); idx != -1 {
		engineName = config[:idx]
		engineConfig = config[idx+1:]
	}
	if engineName == "" {
		engineName = firstRegistered
	}
	constructor, found := registeredConstructors[engineName]
	if !found {
		return nil, errors.Errorf("can't find engine %q for configuration %q", engineName, config)
	}
	eng, err := constructor(engineConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "initializing engine %q", engineName)
	}
	return eng, nil
}
