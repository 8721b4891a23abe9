package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Gametech-Dev/ngraph-neon/types/shapes"
)

// MemoryDesc pairs the logical shape of a tensor with the physical layout
// tag describing how its elements are arranged.
//
// Inside operator descriptors the Format may be FormatAny, asking the engine
// to pick; a descriptor used to materialize memory must be fully resolved.
type MemoryDesc struct {
	Shape  shapes.Shape
	Format Format
}

// NewMemoryDesc builds a MemoryDesc. It does not validate; see Validate.
func NewMemoryDesc(shape shapes.Shape, format Format) MemoryDesc {
	return MemoryDesc{Shape: shape, Format: format}
}

// Ok returns whether the descriptor holds a valid shape.
func (m MemoryDesc) Ok() bool { return m.Shape.Ok() }

// Resolved returns whether the layout placeholder has been replaced by a
// concrete format.
func (m MemoryDesc) Resolved() bool { return m.Format != FormatAny }

// Validate checks shape/format consistency: the shape must be valid, the
// format must be able to describe the shape's rank, and blocked formats
// require the channel dimension to be a multiple of the block size.
func (m MemoryDesc) Validate() error {
	if !m.Shape.Ok() {
		return errors.Errorf("memory descriptor has invalid shape %s", m.Shape)
	}
	if err := m.Format.CheckRank(m.Shape.Rank()); err != nil {
		return err
	}
	if m.Format.Blocked() {
		blockSize := m.Format.BlockSize()
		if channels := m.Shape.Channels(); channels%blockSize != 0 {
			return errors.Errorf("blocked format %s requires channels divisible by %d, got %d (shape=%s)",
				m.Format, blockSize, channels, m.Shape)
		}
	}
	return nil
}

// Equal compares shape and format.
func (m MemoryDesc) Equal(other MemoryDesc) bool {
	return m.Format == other.Format && m.Shape.Equal(other.Shape)
}

// String implements fmt.Stringer, e.g. "(Float32)[8 16 32 32]@CHWN".
func (m MemoryDesc) String() string {
	return fmt.Sprintf("%s@%s", m.Shape, m.Format)
}

// Memory is a materialized tensor owned by an engine.
//
// CPU engines back it with ordinary Go slices shared directly with the
// caller through Flat; there is no device transfer step.
type Memory interface {
	// Desc returns the resolved descriptor the memory was created with.
	Desc() MemoryDesc

	// Shape returns the logical shape. It implements shapes.HasShape.
	Shape() shapes.Shape

	// Flat returns the backing flat slice of the memory's dtype (e.g.
	// []float32). Elements are in the physical order described by the
	// descriptor's format. The caller may read and write it in place.
	Flat() any

	// FromFlat copies values in. The flat slice must have the memory's
	// dtype and exactly Shape().Size() elements, in physical order.
	FromFlat(flat any) error

	// Finalize returns the memory to the engine. Using the handle after
	// Finalize is undefined.
	Finalize()
}

// ErrOutOfMemory is returned (wrapped) by Engine.NewMemory when an engine
// configured with an allocation budget would exceed it.
var ErrOutOfMemory = errors.New("engine memory budget exhausted")
