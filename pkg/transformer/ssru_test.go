package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slimtgo/slimt/pkg/qmm"
	"github.com/slimtgo/slimt/pkg/tensor"
)

func TestSSRUForwardBlendsStateAndUpdatesInPlace(t *testing.T) {
	gateW, err := qmm.PrepareWeightTransposed([]float32{0}, 1, 1, 100)
	require.NoError(t, err)
	gateB, err := tensor.New(tensor.F32, 1)
	require.NoError(t, err)
	outW, err := qmm.PrepareWeightTransposed([]float32{1}, 1, 1, 100)
	require.NoError(t, err)

	scale, err := tensor.New(tensor.F32, 1)
	require.NoError(t, err)
	scale.Float32s()[0] = 1
	bias, err := tensor.New(tensor.F32, 1)
	require.NoError(t, err)

	src := stubSource{
		"ssru_f_W":          gateW,
		"ssru_f_b":          gateB,
		"ssru_f_QuantMultA": scalarF32(t, 50),
		"ssru_o_W":          outW,
		"ssru_o_QuantMultA": scalarF32(t, 50),
		"ssru_ln_scale":     scale,
		"ssru_ln_bias":      bias,
	}
	cell := NewSSRU("ssru", 1)
	require.NoError(t, cell.Bind(src))

	x, err := tensor.New(tensor.F32, 1, 1)
	require.NoError(t, err)
	x.Float32s()[0] = 2

	state, err := tensor.New(tensor.F32, 1, 1)
	require.NoError(t, err)
	state.Float32s()[0] = 4

	h, err := cell.Forward(x, state)
	require.NoError(t, err)

	// gate pre-sigmoid is 0 (zero weight, zero bias) so f=0.5;
	// c' = 0.5*4 + 0.5*2 = 3, which Forward writes back into state.
	assert.InDelta(t, 3.0, state.Float32s()[0], 1e-3)
	// a single-feature row always normalizes to exactly zero.
	assert.InDelta(t, 0.0, h.Float32s()[0], 1e-3)
}
