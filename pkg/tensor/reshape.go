package tensor

// FromViewSameBacking returns a new Tensor sharing x's backing buffer but
// presenting a different shape with the same element count. Used to
// reinterpret a [B,L,H] activation as [B*L,H] (and back) without a copy.
func FromViewSameBacking(x *Tensor, shape Shape) (*Tensor, error) {
	if shape.Elements() != x.shape.Elements() {
		return nil, ErrShapeMismatch
	}
	return &Tensor{Name: x.Name, kind: x.kind, shape: shape, buf: x.buf}, nil
}

// Transpose10Batched swaps the last two axes of a [batch,m,n] tensor,
// producing [batch,n,m]. Used by attention to transpose K for the Q@K^T
// product without a general n-d permutation.
func Transpose10Batched(dst, a *Tensor) error {
	if len(a.shape) != 3 || len(dst.shape) != 3 {
		return ErrInvalidShape
	}
	batch, m, n := a.shape.At(0), a.shape.At(1), a.shape.At(2)
	want := Shape{batch, n, m}
	if !dst.shape.Equal(want) {
		return ErrShapeMismatch
	}
	av, dv := a.Float32s(), dst.Float32s()
	parallelChunks(batch, func(lo, hi int) {
		for bi := lo; bi < hi; bi++ {
			aBase := bi * m * n
			dBase := bi * m * n
			for i := 0; i < m; i++ {
				for j := 0; j < n; j++ {
					dv[dBase+j*m+i] = av[aBase+i*n+j]
				}
			}
		}
	})
	return nil
}
