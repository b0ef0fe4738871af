package tensor

import "math"

// expNeg returns exp(-x) computed in float64 and rounded back to float32,
// matching the teacher's preference for math.Exp-backed softmax/sigmoid
// (pkg/bitnet/internal/math/attention.go's stable softmax uses math.Exp
// the same way).
func expNeg(x float32) float32 {
	return float32(math.Exp(-float64(x)))
}

func expF(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

func sqrtF(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
