package xslices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceWithValue(t *testing.T) {
	s := SliceWithValue(4, 2)
	assert.Equal(t, []int{2, 2, 2, 2}, s)
	assert.Empty(t, SliceWithValue(0, 1.0))
}

func TestFillSlice(t *testing.T) {
	s := []float32{1, 2, 3}
	FillSlice(s, 0)
	assert.Equal(t, []float32{0, 0, 0}, s)
}

func TestIota(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, Iota(0, 4))
	assert.Equal(t, []float32{1, 2, 3}, Iota(float32(1), 3))
}

func TestMap(t *testing.T) {
	in := Iota(0, 5)
	out := Map(in, func(v int) string { return strconv.Itoa(v + 1) })
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, out)
}

func TestLast(t *testing.T) {
	assert.Equal(t, 5, Last([]int{0, 1, 5}))
	assert.Panics(t, func() { Last([]int{}) })
}
