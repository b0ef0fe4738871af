package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slimtgo/slimt/pkg/qmm"
	"github.com/slimtgo/slimt/pkg/tensor"
)

func TestFFNSingleLayerIsPlainAffine(t *testing.T) {
	w, err := qmm.PrepareWeightTransposed([]float32{1, -0.5, 0.5, -1, 1, 0}, 2, 3, 100)
	require.NoError(t, err)
	bias, err := tensor.New(tensor.F32, 2)
	require.NoError(t, err)
	copy(bias.Float32s(), []float32{0.1, -0.2})

	src := stubSource{
		"ffn_W1_W":          w,
		"ffn_W1_b":          bias,
		"ffn_W1_QuantMultA": scalarF32(t, 50),
	}
	f := NewFFN("ffn", 1, 2)
	require.NoError(t, f.Bind(src))

	x, err := tensor.New(tensor.F32, 2, 3)
	require.NoError(t, err)
	copy(x.Float32s(), []float32{1, 2, -1, -2, 0, 1})

	out, err := f.Forward(x)
	require.NoError(t, err)

	expected := []float32{-0.4, 0.8, -1.4, 1.8}
	ov := out.Float32s()
	for i := range expected {
		assert.InDelta(t, expected[i], ov[i], 1e-3)
	}
}

func TestFFNTwoLayersApplyReLUBetween(t *testing.T) {
	w1, err := qmm.PrepareWeightTransposed([]float32{1, -0.5, 0.5, -1, 1, 0}, 2, 3, 100)
	require.NoError(t, err)
	bias1, err := tensor.New(tensor.F32, 2)
	require.NoError(t, err)
	copy(bias1.Float32s(), []float32{0.1, -0.2})

	w2, err := qmm.PrepareWeightTransposed([]float32{1, 0, 0, 1}, 2, 2, 100)
	require.NoError(t, err)
	bias2, err := tensor.New(tensor.F32, 2)
	require.NoError(t, err)

	src := stubSource{
		"ffn_W1_W":          w1,
		"ffn_W1_b":          bias1,
		"ffn_W1_QuantMultA": scalarF32(t, 50),
		"ffn_W2_W":          w2,
		"ffn_W2_b":          bias2,
		"ffn_W2_QuantMultA": scalarF32(t, 50),
	}
	f := NewFFN("ffn", 2, 2)
	require.NoError(t, f.Bind(src))

	x, err := tensor.New(tensor.F32, 2, 3)
	require.NoError(t, err)
	copy(x.Float32s(), []float32{1, 2, -1, -2, 0, 1})

	out, err := f.Forward(x)
	require.NoError(t, err)

	// layer1 -> [-0.4, 0.8, -1.4, 1.8], ReLU -> [0, 0.8, 0, 1.8], layer2
	// (identity, zero bias) passes it through unchanged.
	expected := []float32{0, 0.8, 0, 1.8}
	ov := out.Float32s()
	for i := range expected {
		assert.InDelta(t, expected[i], ov[i], 1e-3)
	}
}
