package frontend

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slimtgo/slimt/internal/config"
	"github.com/slimtgo/slimt/pkg/qmm"
	"github.com/slimtgo/slimt/pkg/schedule"
	"github.com/slimtgo/slimt/pkg/tensor"
	"github.com/slimtgo/slimt/pkg/transformer"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// wordVocab round-trips "w<id>"-tokenized strings, enough to exercise
// Blocking/Async/Pivot without a real tokenizer.
type wordVocab struct{ size int }

func (wordVocab) PadID() uint32 { return 0 }
func (wordVocab) EosID() uint32 { return 1 }
func (v wordVocab) Size() int   { return v.size }

func (wordVocab) Decode(ids []uint32) (string, [][2]int, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("w%d", id)
	}
	return strings.Join(parts, " "), nil, nil
}

func (wordVocab) Encode(s string) ([]uint32, [][2]int, error) {
	if s == "" {
		return nil, nil, nil
	}
	fields := strings.Fields(s)
	ids := make([]uint32, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimPrefix(f, "w"))
		if err != nil {
			return nil, nil, err
		}
		ids[i] = uint32(n)
	}
	return ids, nil, nil
}

type stubParams map[string]*tensor.Tensor

func (s stubParams) Get(name string) *tensor.Tensor { return s[name] }

func scalarF32(t *testing.T, v float32) *tensor.Tensor {
	t.Helper()
	ts, err := tensor.New(tensor.F32, 1)
	require.NoError(t, err)
	ts.Float32s()[0] = v
	return ts
}

func addAffine(t *testing.T, src stubParams, prefix string, floatW, bias []float32) {
	t.Helper()
	dim := len(bias)
	w, err := qmm.PrepareWeightTransposed(floatW, dim, dim, 100)
	require.NoError(t, err)
	src[prefix+"_W"] = w
	b, err := tensor.New(tensor.F32, dim)
	require.NoError(t, err)
	copy(b.Float32s(), bias)
	src[prefix+"_b"] = b
	src[prefix+"_QuantMultA"] = scalarF32(t, 50)
}

func addLinear(t *testing.T, src stubParams, prefix string, floatW []float32, dim int) {
	t.Helper()
	w, err := qmm.PrepareWeightTransposed(floatW, dim, dim, 100)
	require.NoError(t, err)
	src[prefix+"_W"] = w
	src[prefix+"_QuantMultA"] = scalarF32(t, 50)
}

func addLN(t *testing.T, src stubParams, prefix string, hidden int) {
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

// buildModel wires a 1-layer, 1-head, hidden=2 identity-weighted model
// bound over vocab ids [0,vocab), enough to exercise the frontend drivers
// end to end without claiming to model a trained network.
func buildModel(t *testing.T, id string, vocab int) *Model {
	t.Helper()
	const hidden = 2
	opts := config.Default().WithOverrides(func(o *config.Options) {
		o.EncoderLayers = 1
		o.DecoderLayers = 1
		o.NumHeads = 1
		o.FeedForwardDepth = 1
	})

	src := stubParams{}
	emb, err := tensor.New(tensor.F32, vocab, hidden)
	require.NoError(t, err)
	for i := range emb.Float32s() {
		emb.Float32s()[i] = float32(i) * 0.1
	}
	src["Wemb"] = emb

	identity := []float32{1, 0, 0, 1}
	zeroBias := []float32{0, 0}

	for _, sub := range []string{"Wq", "Wk", "Wv", "Wo"} {
		addAffine(t, src, "encoder_l1_self_"+sub, identity, zeroBias)
	}
	addLN(t, src, "encoder_l1_self", hidden)
	addAffine(t, src, "encoder_l1_ffn_W1", identity, zeroBias)
	addLN(t, src, "encoder_l1_ffn", hidden)

	addAffine(t, src, "decoder_l1_rnn_f", []float32{0, 0, 0, 0}, zeroBias)
	addLinear(t, src, "decoder_l1_rnn_o", identity, hidden)
	addLN(t, src, "decoder_l1_rnn", hidden)
	for _, sub := range []string{"Wq", "Wk", "Wv", "Wo"} {
		addAffine(t, src, "decoder_l1_context_"+sub, identity, zeroBias)
	}
	addLN(t, src, "decoder_l1_context", hidden)
	addAffine(t, src, "decoder_l1_ffn_W1", identity, zeroBias)
	addLN(t, src, "decoder_l1_ffn", hidden)

	outW, err := qmm.PrepareWeightTransposed(make([]float32, vocab*hidden), vocab, hidden, 100)
	require.NoError(t, err)
	src["Wemb_intgemm8"] = outW
	outB, err := tensor.New(tensor.F32, vocab)
	require.NoError(t, err)
	src["decoder_ff_logit_out_b"] = outB
	src["decoder_ff_logit_out_QuantMultA"] = scalarF32(t, 50)

	xf := transformer.New(opts, hidden)
	require.NoError(t, xf.Bind(src))

	return &Model{ID: id, Transformer: xf, Vocab: wordVocab{size: vocab}, PadID: 0, EosID: 1}
}

func TestBlockingTranslateReturnsResponsesInInputOrder(t *testing.T) {
	model := buildModel(t, "m", 5)
	segments := [][]xlate.Segment{
		{{2, 3}},
		{{4}},
	}
	gaps := [][]string{{""}, {""}}
	sourceTexts := []string{"w2 w3", "w4"}
	sourceSpans := [][][2]int{{{0, 5}}, {{0, 2}}}

	resps, err := (Blocking{}).Translate(model, segments, gaps, sourceTexts, sourceSpans, nil, 1024, 2.0)
	require.NoError(t, err)
	require.Len(t, resps, 2)
	for i, r := range resps {
		require.NotNil(t, r)
		assert.NotEmpty(t, r.TargetText)
		assert.Equal(t, sourceTexts[i], r.SourceText)
		assert.Equal(t, sourceSpans[i], r.SourceSpans)
	}
}

func TestPivotChainsTwoHopsAndCombinesAlignment(t *testing.T) {
	first := buildModel(t, "src-piv", 5)
	second := buildModel(t, "piv-tgt", 5)

	segments := [][]xlate.Segment{{{2, 3}}}
	gaps := [][]string{{""}}
	sourceTexts := []string{"w2 w3"}
	sourceSpans := [][][2]int{{{0, 5}}}

	resps, err := (Blocking{}).Pivot(first, second, segments, gaps, sourceTexts, sourceSpans, nil, 1024, 2.0)
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0])
	assert.NotEmpty(t, resps[0].TargetText)
	assert.Equal(t, sourceTexts[0], resps[0].SourceText)
	assert.Equal(t, sourceSpans[0], resps[0].SourceSpans)
}

func TestAsyncTranslateFulfillsHandle(t *testing.T) {
	model := buildModel(t, "m", 5)
	agg := schedule.NewAggregateBatcher()
	mon := schedule.NewAggregateMonitor(agg)
	a := NewAsync(mon, 1)
	a.RegisterModel(model, schedule.NewBatcher(model.PadID, 1024, 2.0))

	h := a.Translate(model, []xlate.Segment{{2, 3}}, []string{""}, "w2 w3", [][2]int{{0, 5}}, nil)

	select {
	case <-waitFor(h):
		resp, err := h.Future()
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.NotEmpty(t, resp.TargetText)
		assert.Equal(t, "w2 w3", resp.SourceText)
		assert.Equal(t, [][2]int{{0, 5}}, resp.SourceSpans)
	case <-time.After(5 * time.Second):
		t.Fatal("translate did not complete in time")
	}

	require.NoError(t, a.Shutdown())
}

func waitFor(h *Handle) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		h.Future()
		close(done)
	}()
	return done
}
