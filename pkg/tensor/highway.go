package tensor

// Highway computes dst = sigmoid(g)*x + (1-sigmoid(g))*y elementwise
// (spec.md §4.1: highway(x,y,g) = σ(g)·x + (1−σ(g))·y), the gating
// function the SSRU decoder recurrence uses to blend its recurrent state
// with the current projection.
func Highway(dst, x, y, g *Tensor) error {
	if !x.shape.Equal(y.shape) || !x.shape.Equal(g.shape) || !x.shape.Equal(dst.shape) {
		return ErrShapeMismatch
	}
	xv, yv, gv, dv := x.Float32s(), y.Float32s(), g.Float32s(), dst.Float32s()
	parallelChunks(len(dv), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s := sigmoid1(gv[i])
			dv[i] = s*xv[i] + (1-s)*yv[i]
		}
	})
	return nil
}
