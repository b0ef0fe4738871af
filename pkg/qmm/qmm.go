// Package qmm is the quantized GEMM provider (spec.md §4.2, C3): INT8 x
// INT8 -> F32 affine/dot/affine-with-column-select, and the two weight
// preparation entry points the model loader calls into.
//
// Grounded on the teacher's pkg/bitnet/tensor/bitlinear.go (BitLinear):
// the sync.Pool-backed scratch buffer for the quantized activation row,
// the batch-chunked parallel-goroutine loop, and the saturating int8 clamp
// on the quantize step are all reused here, generalized from BitLinear's
// fixed ternary weights to general INT8 weights with the shift-style
// bias correction spec.md §4.2 specifies.
package qmm

import (
	"errors"

	"github.com/slimtgo/slimt/pkg/tensor"
)

var (
	ErrShape = errors.New("qmm: shape mismatch")
)

// quantizeShifted rounds a_quant*x to [-127,127], then shifts to an
// unsigned [0,254] representation (adding 127) so the inner product can
// be computed as an unsigned*signed accumulation, matching the teacher's
// preference for a single saturating clamp helper.
func quantizeShifted(a []float32, aQuant float32, dst []uint8) {
	for i, x := range a {
		v := int32(x*aQuant + sign(x)*0.5) // round-half-away-from-zero
		if v > 127 {
			v = 127
		} else if v < -127 {
			v = -127
		}
		dst[i] = uint8(v + 127)
	}
}

func sign(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}

// colSums returns, for a [k,n] row-major prepared weight, the sum over k
// of each column j: the "shift_correction(B)" callback spec.md §4.2 calls
// for. Column j's contribution is later multiplied by bias_multiplier and
// folded into the output bias once per call.
func colSums(w []int8, k, n int) []int32 {
	sums := make([]int32, n)
	for ki := 0; ki < k; ki++ {
		row := w[ki*n : ki*n+n]
		for j, v := range row {
			sums[j] += int32(v)
		}
	}
	return sums
}
