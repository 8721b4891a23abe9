package simplecpu

import (
	"reflect"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/Gametech-Dev/ngraph-neon/engine"
	"github.com/Gametech-Dev/ngraph-neon/types/shapes"
)

// buffer implements engine.Memory for the cpu engine: a descriptor plus a
// reference to the flat data, which is shared directly with the caller.
//
// Buffers are recycled through per-(dtype, length) pools, so a new tensor
// usually costs no allocation.
type buffer struct {
	eng   *Engine
	desc  engine.MemoryDesc
	valid bool

	// flat is always a slice of the underlying data type (desc.Shape.DType).
	flat any
}

// Compile-time check:
var _ engine.Memory = (*buffer)(nil)

type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}

// getBufferPool for given dtype/length.
func (e *Engine) getBufferPool(dtype dtypes.DType, length int) *sync.Pool {
	key := bufferPoolKey{dtype: dtype, length: length}
	poolInterface, ok := e.bufferPools.Load(key)
	if !ok {
		poolInterface, _ = e.bufferPools.LoadOrStore(key, &sync.Pool{
			New: func() interface{} {
				return &buffer{
					flat: reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface(),
					desc: engine.NewMemoryDesc(shapes.Make(dtype, length), engine.FormatNCHW),
				}
			},
		})
	}
	return poolInterface.(*sync.Pool)
}

// getBuffer from the engine pool of buffers.
func (e *Engine) getBuffer(dtype dtypes.DType, length int) *buffer {
	pool := e.getBufferPool(dtype, length)
	buf := pool.Get().(*buffer)
	buf.eng = e
	buf.valid = true
	return buf
}

// putBuffer back into the engine pool of buffers.
// After this any references to the buffer should be dropped.
func (e *Engine) putBuffer(buf *buffer) {
	if buf == nil || !buf.desc.Ok() {
		return
	}
	buf.valid = false
	pool := e.getBufferPool(buf.desc.Shape.DType, buf.desc.Shape.Size())
	pool.Put(buf)
}

// NewMemory materializes a zero-initialized tensor for the descriptor. The
// descriptor must be valid and fully resolved (no FormatAny). The
// allocation counts against the engine's maxmem budget when one is set; on
// exhaustion the returned error wraps engine.ErrOutOfMemory.
func (e *Engine) NewMemory(desc engine.MemoryDesc) (engine.Memory, error) {
	if err := desc.Validate(); err != nil {
		return nil, errors.WithMessage(err, "simplecpu: NewMemory")
	}
	if !desc.Resolved() {
		return nil, errors.Errorf("simplecpu: cannot materialize memory with unresolved layout placeholder (%s)", desc)
	}
	if !memoryDTypes[desc.Shape.DType] {
		return nil, errors.Errorf("simplecpu: dtype %s not supported for tensor memory", desc.Shape.DType)
	}
	size := int64(desc.Shape.Memory())
	newLive := e.liveBytes.Add(size)
	if e.maxBytes > 0 && newLive > e.maxBytes {
		e.liveBytes.Add(-size)
		return nil, errors.Wrapf(engine.ErrOutOfMemory,
			"simplecpu: allocating %s for %s would exceed the %s budget (%s live)",
			humanize.IBytes(uint64(size)), desc, humanize.IBytes(uint64(e.maxBytes)),
			humanize.IBytes(uint64(newLive-size)))
	}
	buf := e.getBuffer(desc.Shape.DType, desc.Shape.Size())
	buf.desc = engine.NewMemoryDesc(desc.Shape.Clone(), desc.Format)
	zeroFlat(buf.flat)
	if klog.V(2).Enabled() {
		klog.Infof("simplecpu: materialized %s (%s live)", buf.desc, humanize.IBytes(uint64(newLive)))
	}
	return buf, nil
}

// zeroFlat clears a flat slice of any supported dtype.
func zeroFlat(flat any) {
	switch s := flat.(type) {
	case []float32:
		clear(s)
	case []float64:
		clear(s)
	case []float16.Float16:
		clear(s)
	case []bfloat16.BFloat16:
		clear(s)
	case []int32:
		clear(s)
	default:
		exceptions.Panicf("simplecpu: zeroFlat on unsupported flat type %T", flat)
	}
}

// Desc returns the resolved descriptor the memory was created with.
func (b *buffer) Desc() engine.MemoryDesc { return b.desc }

// Shape returns the logical shape. It implements shapes.HasShape.
func (b *buffer) Shape() shapes.Shape { return b.desc.Shape }

// Flat returns the backing flat slice, in the physical order described by
// the descriptor's format.
func (b *buffer) Flat() any {
	if !b.valid {
		exceptions.Panicf("simplecpu: Flat() on finalized memory %s", b.desc)
	}
	return b.flat
}

// FromFlat copies values in. The flat slice must have the memory's dtype
// and exactly Shape().Size() elements, in physical order.
func (b *buffer) FromFlat(flat any) error {
	if !b.valid {
		return errors.Errorf("simplecpu: FromFlat on finalized memory %s", b.desc)
	}
	v := reflect.ValueOf(flat)
	if v.Kind() != reflect.Slice {
		return errors.Errorf("simplecpu: FromFlat requires a slice, got %T", flat)
	}
	if got := dtypes.FromGoType(v.Type().Elem()); got != b.desc.Shape.DType {
		return errors.Errorf("simplecpu: flat data type %s does not match memory dtype %s", got, b.desc.Shape.DType)
	}
	if v.Len() != b.desc.Shape.Size() {
		return errors.Errorf("simplecpu: flat slice has %d elements, memory %s needs %d", v.Len(), b.desc, b.desc.Shape.Size())
	}
	reflect.Copy(reflect.ValueOf(b.flat), v)
	return nil
}

// Finalize returns the memory to the engine pool. Finalizing twice is a
// no-op with a warning.
func (b *buffer) Finalize() {
	if b == nil {
		return
	}
	if !b.valid {
		klog.Warningf("simplecpu: Finalize on already finalized memory %s", b.desc)
		return
	}
	b.eng.liveBytes.Add(-int64(b.desc.Shape.Memory()))
	b.eng.putBuffer(b)
}
