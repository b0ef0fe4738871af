package tensor

import "fmt"

// Shape is an ordered sequence of positive dimensions (spec.md §3).
type Shape []int

// Elements returns the total element count, the product of all
// dimensions; it is recomputed on each call, not cached.
func (s Shape) Elements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// dim resolves a possibly-negative axis index against len(s).
func (s Shape) dim(axis int) int {
	if axis < 0 {
		axis += len(s)
	}
	return axis
}

// At returns dimension axis, supporting negative indexing.
func (s Shape) At(axis int) int {
	return s[s.dim(axis)]
}

// SetDim returns a copy of s with dimension axis replaced by n. Used for
// last-axis replacement when building output shapes (spec.md §3).
func (s Shape) SetDim(axis, n int) Shape {
	out := s.Clone()
	out[s.dim(axis)] = n
	return out
}

// Transpose returns a copy of s with axes i and j swapped.
func (s Shape) Transpose(i, j int) Shape {
	out := s.Clone()
	i, j = s.dim(i), s.dim(j)
	out[i], out[j] = out[j], out[i]
	return out
}

// Equal is pointwise dimension equality (spec.md §3).
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Strides returns row-major (last-axis-contiguous) strides for s.
func (s Shape) Strides() []int {
	stride := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		stride[i] = acc
		acc *= s[i]
	}
	return stride
}

func (s Shape) String() string {
	return fmt.Sprintf("%v", []int(s))
}
