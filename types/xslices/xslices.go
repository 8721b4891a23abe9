// Package xslices provides the handful of generic slice helpers used by the
// tools and tests in this repository.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// Number is the set of scalar types slices are built from here.
type Number interface {
	constraints.Integer | constraints.Float
}

// SliceWithValue creates a slice of the given size filled with the given
// value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	for ii := range s {
		s[ii] = value
	}
	return s
}

// FillSlice sets every element of the slice to value, in place.
func FillSlice[T any](slice []T, value T) {
	for ii := range slice {
		slice[ii] = value
	}
}

// Iota returns a slice of the given size with values starting at start and
// counting up by one: [start, start+1, ..., start+size-1].
func Iota[T Number](start T, size int) []T {
	s := make([]T, size)
	v := start
	for ii := range s {
		s[ii] = v
		v += 1
	}
	return s
}

// Map applies fn to each element of in, returning the new slice. The output
// is allocated even when in is empty.
func Map[In, Out any](in []In, fn func(In) Out) []Out {
	out := make([]Out, len(in))
	for ii, v := range in {
		out[ii] = fn(v)
	}
	return out
}

// Last returns the last element of the slice. It panics on an empty slice.
func Last[T any](slice []T) T {
	return slice[len(slice)-1]
}
