package tensor

// IndexSelect gathers rows of a (a 2D [vocab, dim] tensor) at the given
// row indices, producing a [len(indices), dim] F32 tensor. Used for
// embedding lookup (spec.md §4.1): embeddings are stored F32, looked up by
// token id, then scaled by the caller.
func IndexSelect(dst, a *Tensor, indices []uint32) error {
	if len(a.shape) != 2 {
		return ErrInvalidShape
	}
	dim := a.shape.At(1)
	want := Shape{len(indices), dim}
	if !dst.shape.Equal(want) {
		return ErrShapeMismatch
	}
	av, dv := a.Float32s(), dst.Float32s()
	parallelChunks(len(indices), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := int(indices[i])
			copy(dv[i*dim:(i+1)*dim], av[row*dim:(row+1)*dim])
		}
	})
	return nil
}
