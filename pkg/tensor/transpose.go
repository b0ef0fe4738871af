package tensor

// Transpose10 permutes a 2D tensor's axes to (1, 0): out[j][i] = a[i][j].
func Transpose10(dst, a *Tensor) error {
	return permute(dst, a, []int{1, 0})
}

// permute writes a copy of a with axes reordered per perm (perm[i] names
// the source axis that becomes destination axis i) into dst. dst's shape
// must already equal the permuted shape of a.
func permute(dst, a *Tensor, perm []int) error {
	if len(a.shape) != len(perm) {
		return ErrInvalidShape
	}
	want := make(Shape, len(perm))
	for i, p := range perm {
		want[i] = a.shape.At(p)
	}
	if !dst.shape.Equal(want) {
		return ErrShapeMismatch
	}
	srcStrides := a.shape.Strides()
	dstStrides := dst.shape.Strides()
	n := a.shape.Elements()
	av, dv := a.Float32s(), dst.Float32s()
	rank := len(perm)

	parallelChunks(n, func(lo, hi int) {
		srcIdx := make([]int, rank)
		for flat := lo; flat < hi; flat++ {
			rem := flat
			for i := 0; i < rank; i++ {
				srcIdx[i] = rem / dstStrides[i]
				rem %= dstStrides[i]
			}
			srcFlat := 0
			for destAxis, srcAxis := range perm {
				srcFlat += srcIdx[destAxis] * srcStrides[srcAxis]
			}
			dv[flat] = av[srcFlat]
		}
	})
	return nil
}
