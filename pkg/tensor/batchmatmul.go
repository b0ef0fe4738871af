package tensor

// BatchMatMul computes dst[b] = a[b] @ b_[b] for every leading batch index,
// where a is [batch, m, k] and b_ is [batch, k, n], producing dst
// [batch, m, n]. Grounded on the teacher's MatMul
// (pkg/bitnet/tensor/tensor.go), generalized from a single 2D ternary
// matmul to a batched F32 one; used for attention's probability@value
// product and for alignment marginalization (spec.md §4.13).
func BatchMatMul(dst, a, b *Tensor) error {
	if len(a.shape) != 3 || len(b.shape) != 3 || len(dst.shape) != 3 {
		return ErrInvalidShape
	}
	batch, m, k := a.shape.At(0), a.shape.At(1), a.shape.At(2)
	if b.shape.At(0) != batch || b.shape.At(1) != k {
		return ErrShapeMismatch
	}
	n := b.shape.At(2)
	want := Shape{batch, m, n}
	if !dst.shape.Equal(want) {
		return ErrShapeMismatch
	}
	av, bv, dv := a.Float32s(), b.Float32s(), dst.Float32s()
	parallelChunks(batch, func(lo, hi int) {
		for bi := lo; bi < hi; bi++ {
			aBase := bi * m * k
			bBase := bi * k * n
			dBase := bi * m * n
			for i := 0; i < m; i++ {
				for j := 0; j < n; j++ {
					var sum float32
					for p := 0; p < k; p++ {
						sum += av[aBase+i*k+p] * bv[bBase+p*n+j]
					}
					dv[dBase+i*n+j] = sum
				}
			}
		}
	})
	return nil
}
