package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slimtgo/slimt/internal/config"
	"github.com/slimtgo/slimt/pkg/qmm"
	"github.com/slimtgo/slimt/pkg/tensor"
)

// addAffine registers the three bindings an Affine/Linear at prefix
// expects. bias == nil means a Linear-style binding (no "_b" key).
func addAffine(t *testing.T, src stubSource, prefix string, cols, rows int, floatW []float32, bias []float32, quant float32) {
	t.Helper()
	w, err := qmm.PrepareWeightTransposed(floatW, cols, rows, 100)
	require.NoError(t, err)
	src[prefix+"_W"] = w
	if bias != nil {
		b, err := tensor.New(tensor.F32, len(bias))
		require.NoError(t, err)
		copy(b.Float32s(), bias)
		src[prefix+"_b"] = b
	}
	src[prefix+"_QuantMultA"] = scalarF32(t, quant)
}

func addLN(t *testing.T, src stubSource, prefix string, hidden int) {
	t.Helper()
	scale, err := tensor.New(tensor.F32, hidden)
	require.NoError(t, err)
	for i := range scale.Float32s() {
		scale.Float32s()[i] = 1
	}
	src[prefix+"_ln_scale"] = scale
	bias, err := tensor.New(tensor.F32, hidden)
	require.NoError(t, err)
	src[prefix+"_ln_bias"] = bias
}

// identityParams wires a minimal 1-encoder-layer/1-decoder-layer, 1-head,
// hidden=2 transformer with identity-ish weights: enough to exercise the
// full bind+forward wiring without claiming to model a trained network.
func identityParams(t *testing.T, vocab int) (config.Options, stubSource) {
	t.Helper()
	const hidden = 2
	opts := config.Default().WithOverrides(func(o *config.Options) {
		o.EncoderLayers = 1
		o.DecoderLayers = 1
		o.NumHeads = 1
		o.FeedForwardDepth = 1
	})

	src := stubSource{}
	emb, err := tensor.New(tensor.F32, vocab, hidden)
	require.NoError(t, err)
	for i := range emb.Float32s() {
		emb.Float32s()[i] = float32(i)
	}
	src["Wemb"] = emb

	identity := []float32{1, 0, 0, 1}
	zeroBias := []float32{0, 0}

	for _, sub := range []string{"Wq", "Wk", "Wv", "Wo"} {
		addAffine(t, src, "encoder_l1_self_"+sub, hidden, hidden, identity, zeroBias, 50)
	}
	addLN(t, src, "encoder_l1_self", hidden)
	addAffine(t, src, "encoder_l1_ffn_W1", hidden, hidden, identity, zeroBias, 50)
	addLN(t, src, "encoder_l1_ffn", hidden)

	addAffine(t, src, "decoder_l1_rnn_f", hidden, hidden, []float32{0, 0, 0, 0}, zeroBias, 50)
	addAffine(t, src, "decoder_l1_rnn_o", hidden, hidden, identity, nil, 50)
	addLN(t, src, "decoder_l1_rnn", hidden)
	for _, sub := range []string{"Wq", "Wk", "Wv", "Wo"} {
		addAffine(t, src, "decoder_l1_context_"+sub, hidden, hidden, identity, zeroBias, 50)
	}
	addLN(t, src, "decoder_l1_context", hidden)
	addAffine(t, src, "decoder_l1_ffn_W1", hidden, hidden, identity, zeroBias, 50)
	addLN(t, src, "decoder_l1_ffn", hidden)

	outW, err := qmm.PrepareWeightTransposed(make([]float32, vocab*hidden), vocab, hidden, 100)
	require.NoError(t, err)
	src["Wemb_intgemm8"] = outW
	outB, err := tensor.New(tensor.F32, vocab)
	require.NoError(t, err)
	src["decoder_ff_logit_out_b"] = outB
	src["decoder_ff_logit_out_QuantMultA"] = scalarF32(t, 50)

	return opts, src
}

func TestTransformerBindAndEncodeDecodeRoundTrip(t *testing.T) {
	const vocab = 4
	opts, src := identityParams(t, vocab)
	xf := New(opts, 2)
	require.NoError(t, xf.Bind(src))

	idx, err := tensor.New(tensor.U32, 1, 3)
	require.NoError(t, err)
	copy(idx.Uint32s(), []uint32{1, 2, 3})
	mask, err := tensor.New(tensor.F32, 1, 3)
	require.NoError(t, err)
	for i := range mask.Float32s() {
		mask.Float32s()[i] = 1
	}

	encOut, err := xf.Encoder.Forward(idx, mask)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2}, []int(encOut.Shape()))
	for _, v := range encOut.Float32s() {
		assert.False(t, isNaNOrInf(v))
	}

	states, err := xf.Decoder.StartStates(1)
	require.NoError(t, err)
	require.Len(t, states, 1)

	logits, attn, err := xf.Decoder.Step(encOut, mask, states, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, vocab}, []int(logits.Shape()))
	assert.Equal(t, []int{1, 1, 1, 3}, []int(attn.Shape()))

	// second step, now with a previous word, must not error and must keep
	// the logits width fixed at vocab.
	logits2, _, err := xf.Decoder.Step(encOut, mask, states, []uint32{2}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, vocab, logits2.Shape().At(1))

	shortLogits, _, err := xf.Decoder.Step(encOut, mask, states, []uint32{2}, 1, []uint32{0, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, shortLogits.Shape().At(1))
}

func isNaNOrInf(f float32) bool {
	return f != f || f > 3.4e38 || f < -3.4e38
}
