// Package simplecpu implements the pure-Go reference engine, registered
// under the name "cpu".
//
// It is not the fastest possible CPU engine, but it is portable, has no
// native dependencies, and implements the full engine contract: pooled
// tensor memory with an optional allocation budget, layout resolution
// (plain and channel-blocked formats) and executable forward/backward
// pooling primitives parallelized over batch x channel planes.
package simplecpu

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Gametech-Dev/ngraph-neon/engine"
	"github.com/Gametech-Dev/ngraph-neon/internal/workerspool"
)

// EngineName to be used in NGRAPH_ENGINE to select this engine.
const EngineName = "cpu"

// Registers New as the constructor for the "cpu" engine.
func init() {
	engine.Register(EngineName, New)
}

// defaultFormat is the layout the engine picks when a source-side descriptor
// leaves its format as FormatAny. Destination placeholders follow the
// resolved source format instead; see Engine.NewPoolingForward.
const defaultFormat = engine.FormatCHWN

// New constructs a cpu Engine. The config string is a comma-separated list
// of key=value options:
//
//   - parallelism=<n>: cap on concurrently executing work units; 0 disables
//     parallel execution, -1 removes the cap. Defaults to runtime.NumCPU().
//   - maxmem=<size>: budget for live tensor memory, parsed with
//     humanize.ParseBytes (e.g. "512MiB", "2GB"). Unset means unlimited.
func New(config string) (engine.Engine, error) {
	e := &Engine{workers: workerspool.New()}
	if config != "" {
		for _, opt := range strings.Split(config, ",") {
			key, value, found := strings.Cut(opt, "=")
			if !found {
				return nil, errors.Errorf("simplecpu: option %q is not in key=value form (config %q)", opt, config)
			}
			switch key {
			case "parallelism":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, errors.Wrapf(err, "simplecpu: parsing parallelism=%q", value)
				}
				e.workers.SetMaxParallelism(n)
			case "maxmem":
				maxBytes, err := humanize.ParseBytes(value)
				if err != nil {
					return nil, errors.Wrapf(err, "simplecpu: parsing maxmem=%q", value)
				}
				e.maxBytes = int64(maxBytes)
			default:
				return nil, errors.Errorf("simplecpu: unknown option %q (config %q)", key, config)
			}
		}
	}
	if klog.V(1).Enabled() {
		klog.Infof("simplecpu: engine created, parallelism=%d (cpus=%d), maxmem=%s",
			e.workers.MaxParallelism(), runtime.NumCPU(), humanizeBudget(e.maxBytes))
	}
	return e, nil
}

func humanizeBudget(maxBytes int64) string {
	if maxBytes <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(maxBytes))
}

// Engine implements engine.Engine on plain Go slices.
type Engine struct {
	workers *workerspool.Pool

	// bufferPools are a map to pools of reusable flat buffers.
	// The underlying type is map[bufferPoolKey]*sync.Pool.
	bufferPools sync.Map

	// liveBytes tracks memory held by live (not finalized) tensors.
	liveBytes atomic.Int64

	// maxBytes caps liveBytes when > 0.
	maxBytes int64
}

// Compile-time check that simplecpu.Engine implements engine.Engine.
var _ engine.Engine = (*Engine)(nil)

// Name returns the name the engine is registered under ("cpu").
func (e *Engine) Name() string { return EngineName }

// Description is a longer description of the engine for pretty-printing.
func (e *Engine) Description() string {
	return "Pure Go reference engine"
}

// LiveBytes returns the memory currently held by live tensors.
func (e *Engine) LiveBytes() int64 { return e.liveBytes.Load() }

// Finalize releases all the associated resources immediately, and makes the
// engine invalid.
func (e *Engine) Finalize() {
	if live := e.liveBytes.Load(); live > 0 {
		klog.Warningf("simplecpu: engine finalized with %s of live tensor memory still allocated",
			humanize.IBytes(uint64(live)))
	}
	e.bufferPools.Clear()
}
