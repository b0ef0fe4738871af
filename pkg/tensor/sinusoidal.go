package tensor

import "math"

// SinusoidalSignal fills dst ([L, H]) with the fixed positional signal
// spec.md §4.1 defines: pos[p,i] = sin(v) for i < H/2, cos(v) for i >= H/2,
// where v = p*exp(-i*ln(10000)/(H/2-1)), p ranging over [start, start+L).
func SinusoidalSignal(dst *Tensor, start, length, h int) error {
	want := Shape{length, h}
	if !dst.shape.Equal(want) {
		return ErrShapeMismatch
	}
	if h < 2 {
		return ErrInvalidShape
	}
	half := h / 2
	dv := dst.Float32s()
	logBase := math.Log(10000)
	denom := float64(half - 1)
	if denom == 0 {
		denom = 1
	}
	parallelChunks(length, func(lo, hi int) {
		for li := lo; li < hi; li++ {
			p := float64(start + li)
			base := li * h
			for i := 0; i < half; i++ {
				v := p * math.Exp(-float64(i)*logBase/denom)
				dv[base+i] = float32(math.Sin(v))
				dv[base+half+i] = float32(math.Cos(v))
			}
			if h%2 == 1 {
				dv[base+h-1] = 0
			}
		}
	})
	return nil
}
