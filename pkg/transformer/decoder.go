package transformer

import (
	"math"
	"strconv"

	"github.com/slimtgo/slimt/pkg/tensor"
)

// DecoderLayer is one decoder stack layer (spec.md §4.4): SSRU recurrence
// in place of self-attention, cross-attention against the (cached)
// encoder output, then a feed-forward block.
type DecoderLayer struct {
	SSRU      *SSRU
	CrossAttn *Attention
	FFN       *FFN
	PostLN    *LayerNorm
	hidden    int
}

func NewDecoderLayer(prefix string, numHeads, hidden, ffnDepth int) *DecoderLayer {
	return &DecoderLayer{
		SSRU:      NewSSRU(prefix+"_rnn", hidden),
		CrossAttn: NewAttention(prefix+"_context", numHeads, hidden),
		FFN:       NewFFN(prefix+"_ffn", ffnDepth, hidden),
		PostLN:    NewLayerNorm(prefix+"_ffn", 1e-9),
		hidden:    hidden,
	}
}

func (l *DecoderLayer) Bind(src ParamSource) error {
	if err := l.SSRU.Bind(src); err != nil {
		return err
	}
	if err := l.CrossAttn.Bind(src); err != nil {
		return err
	}
	if err := l.FFN.Bind(src); err != nil {
		return err
	}
	return l.PostLN.Bind(src)
}

// Forward runs one decoder step. x is [B,H] (a single decoding position),
// state is the layer's running SSRU cell [B,H] and is mutated in place,
// encOut is the cached [B,Lenc,H] encoder output, mask is [B,Lenc].
// Returns the layer output [B,1,H] and the cross-attention weights
// [B,h,1,Lenc].
func (l *DecoderLayer) Forward(x, state, encOut, mask *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	h, err := l.SSRU.Forward(x, state)
	if err != nil {
		return nil, nil, err
	}
	b := h.Shape().At(0)
	hq, err := tensor.FromViewSameBacking(h, tensor.Shape{b, 1, l.hidden})
	if err != nil {
		return nil, nil, err
	}
	attnOut, attn, err := l.CrossAttn.Forward(hq, encOut, mask)
	if err != nil {
		return nil, nil, err
	}
	flat, err := tensor.FromViewSameBacking(attnOut, tensor.Shape{b, l.hidden})
	if err != nil {
		return nil, nil, err
	}
	ffnOut, err := l.FFN.Forward(flat)
	if err != nil {
		return nil, nil, err
	}
	summed, err := tensor.New(tensor.F32, b, l.hidden)
	if err != nil {
		return nil, nil, err
	}
	if err := tensor.Add(summed, ffnOut, flat); err != nil {
		return nil, nil, err
	}
	out, err := tensor.New(tensor.F32, b, l.hidden)
	if err != nil {
		return nil, nil, err
	}
	if err := l.PostLN.Forward(out, summed); err != nil {
		return nil, nil, err
	}
	outSeq, err := tensor.FromViewSameBacking(out, tensor.Shape{b, 1, l.hidden})
	return outSeq, attn, err
}

// Decoder is the full decoder stack plus the output projection (spec.md
// §4.4).
type Decoder struct {
	Layers      []*DecoderLayer
	Embedding   *tensor.Tensor // F32 Wemb, shared with the encoder
	OutputProj  *Affine        // Wemb_intgemm8 + decoder_ff_logit_out_b
	hidden      int
	numLayers   int
}

func NewDecoder(numLayers, numHeads, hidden, ffnDepth int) *Decoder {
	d := &Decoder{hidden: hidden, numLayers: numLayers}
	for i := 1; i <= numLayers; i++ {
		d.Layers = append(d.Layers, NewDecoderLayer("decoder_l"+strconv.Itoa(i), numHeads, hidden, ffnDepth))
	}
	d.OutputProj = NewAffine("decoder_ff_logit_out")
	return d
}

func (d *Decoder) Bind(src ParamSource) error {
	emb, err := getRequired(src, "Wemb")
	if err != nil {
		return err
	}
	d.Embedding = emb
	for _, l := range d.Layers {
		if err := l.Bind(src); err != nil {
			return err
		}
	}
	w, err := getRequired(src, "Wemb_intgemm8")
	if err != nil {
		return err
	}
	b, err := getRequired(src, "decoder_ff_logit_out_b")
	if err != nil {
		return err
	}
	qma := getOptional(src, "decoder_ff_logit_out_QuantMultA")
	d.OutputProj.W = w
	d.OutputProj.B = b
	if qma != nil {
		if qv := qma.Float32s(); len(qv) > 0 {
			d.OutputProj.QuantMultA = qv[0]
		}
	}
	return nil
}

// StartStates returns one zero [B,H] state tensor per decoder layer
// (spec.md §4.4: "start_states(B): a zero [B,H] tensor per decoder layer").
func (d *Decoder) StartStates(b int) ([]*tensor.Tensor, error) {
	states := make([]*tensor.Tensor, d.numLayers)
	for i := range states {
		t, err := tensor.New(tensor.F32, b, d.hidden)
		if err != nil {
			return nil, err
		}
		states[i] = t
	}
	return states, nil
}

// Step runs one decoding step (spec.md §4.4): builds the embedded
// previous-token input (or an all-zero vector on the first step), threads
// it through every decoder layer, and projects to logits restricted to
// shortlistIdx when non-nil. Returns logits [B,classes] and the last
// layer's cross-attention weights [B,h,1,Lenc].
func (d *Decoder) Step(encOut, mask *tensor.Tensor, states []*tensor.Tensor, prevWords []uint32, pos int, shortlistIdx []uint32) (*tensor.Tensor, *tensor.Tensor, error) {
	b := encOut.Shape().At(0)
	embed, err := tensor.New(tensor.F32, b, d.hidden)
	if err != nil {
		return nil, nil, err
	}
	if len(prevWords) == b {
		if err := tensor.IndexSelect(embed, d.Embedding, prevWords); err != nil {
			return nil, nil, err
		}
		scale := float32(math.Sqrt(float64(d.hidden)))
		if err := tensor.MulScalar(embed, embed, scale); err != nil {
			return nil, nil, err
		}
		posSig, err := tensor.New(tensor.F32, 1, d.hidden)
		if err != nil {
			return nil, nil, err
		}
		if err := tensor.SinusoidalSignal(posSig, pos, 1, d.hidden); err != nil {
			return nil, nil, err
		}
		ev, pv := embed.Float32s(), posSig.Float32s()
		for bi := 0; bi < b; bi++ {
			base := bi * d.hidden
			for di := 0; di < d.hidden; di++ {
				ev[base+di] += pv[di]
			}
		}
	}
	// else: very first step, prevWords is empty, decoder_embed stays zero.

	var attn *tensor.Tensor
	x := embed
	for i, l := range d.Layers {
		out, a, err := l.Forward(x, states[i], encOut, mask)
		if err != nil {
			return nil, nil, err
		}
		flat, err := tensor.FromViewSameBacking(out, tensor.Shape{b, d.hidden})
		if err != nil {
			return nil, nil, err
		}
		x = flat
		attn = a
	}

	classes := shortlistIdx
	n := d.OutputProj.W.Shape().At(1)
	if classes != nil {
		n = len(classes)
	}
	logits, err := tensor.New(tensor.F32, b, n)
	if err != nil {
		return nil, nil, err
	}
	if classes != nil {
		err = d.OutputProj.ForwardWithSelect(logits, x, classes)
	} else {
		err = d.OutputProj.Forward(logits, x)
	}
	if err != nil {
		return nil, nil, err
	}
	return logits, attn, nil
}
