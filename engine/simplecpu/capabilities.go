package simplecpu

import (
	"github.com/gomlx/gopjrt/dtypes"
)

// poolingDTypes are the element types pooling primitives accept.
// Float16 and BFloat16 are computed through float32 arithmetic.
var poolingDTypes = map[dtypes.DType]bool{
	dtypes.Float32:  true,
	dtypes.Float64:  true,
	dtypes.Float16:  true,
	dtypes.BFloat16: true,
}

// memoryDTypes are the element types the engine can materialize: the pooling
// dtypes plus the workspace index type.
var memoryDTypes = map[dtypes.DType]bool{
	dtypes.Float32:  true,
	dtypes.Float64:  true,
	dtypes.Float16:  true,
	dtypes.BFloat16: true,
	dtypes.Int32:    true,
}

// podFloatConstraints are the Golang pod (plain-old-data) float types the
// numeric kernels are instantiated for. Float16/BFloat16 are not included:
// they are specialized types handled by conversion wrappers.
type podFloatConstraints interface {
	float32 | float64
}
