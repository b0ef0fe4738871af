package qmm

import (
	"github.com/slimtgo/slimt/pkg/tensor"
)

// PrepareWeightTransposed quantizes a float weight W stored row-major as
// [cols,rows] into a prepared IG8 tensor shaped [rows,cols] (spec.md §4.2:
// "prepare_weight_transposed(float_W, out_int8, b_quant, cols, rows)"),
// i.e. the GEMM-oriented [k,n] layout Affine/Dot expect.
func PrepareWeightTransposed(floatW []float32, cols, rows int, bQuant float32) (*tensor.Tensor, error) {
	if len(floatW) != cols*rows {
		return nil, ErrShape
	}
	out, err := tensor.NewPrepared(rows, cols)
	if err != nil {
		return nil, err
	}
	quantized := make([]int8, rows*cols)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			x := floatW[c*rows+r]
			v := int32(x*bQuant + sign(x)*0.5)
			if v > 127 {
				v = 127
			} else if v < -127 {
				v = -127
			}
			quantized[r*cols+c] = int8(v)
		}
	}
	if err := out.WriteIG8(quantized, bQuant); err != nil {
		return nil, err
	}
	return out, nil
}

// PrepareWeightQuantizedTransposed re-tiles an already-quantized weight
// stored row-major as [cols,rows] into the [rows,cols] GEMM layout,
// preserving its b_quant multiplier (spec.md §4.3: "preserve the trailing
// b_quant float").
func PrepareWeightQuantizedTransposed(int8W []int8, cols, rows int, bQuant float32) (*tensor.Tensor, error) {
	if len(int8W) != cols*rows {
		return nil, ErrShape
	}
	out, err := tensor.NewPrepared(rows, cols)
	if err != nil {
		return nil, err
	}
	retiled := make([]int8, rows*cols)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			retiled[r*cols+c] = int8W[c*rows+r]
		}
	}
	if err := out.WriteIG8(retiled, bQuant); err != nil {
		return nil, err
	}
	return out, nil
}
