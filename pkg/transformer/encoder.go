package transformer

import (
	"math"
	"strconv"

	"github.com/slimtgo/slimt/pkg/tensor"
)

// EncoderLayer is one stack layer (spec.md §4.4): self-attention, then a
// feed-forward block with its own residual and LayerNorm.
type EncoderLayer struct {
	SelfAttn *Attention
	FFN      *FFN
	PostLN   *LayerNorm
	hidden   int
}

func NewEncoderLayer(prefix string, numHeads, hidden, ffnDepth int) *EncoderLayer {
	return &EncoderLayer{
		SelfAttn: NewAttention(prefix+"_self", numHeads, hidden),
		FFN:      NewFFN(prefix+"_ffn", ffnDepth, hidden),
		PostLN:   NewLayerNorm(prefix+"_ffn", 1e-9),
		hidden:   hidden,
	}
}

func (l *EncoderLayer) Bind(src ParamSource) error {
	if err := l.SelfAttn.Bind(src); err != nil {
		return err
	}
	if err := l.FFN.Bind(src); err != nil {
		return err
	}
	return l.PostLN.Bind(src)
}

// Forward runs x[B,L,H] through self-attention and the FFN block,
// returning [B,L,H].
func (l *EncoderLayer) Forward(x, mask *tensor.Tensor) (*tensor.Tensor, error) {
	attnOut, _, err := l.SelfAttn.Forward(x, x, mask)
	if err != nil {
		return nil, err
	}
	b, seqLen := attnOut.Shape().At(0), attnOut.Shape().At(1)
	flat, err := tensor.FromViewSameBacking(attnOut, tensor.Shape{b * seqLen, l.hidden})
	if err != nil {
		return nil, err
	}
	ffnOut, err := l.FFN.Forward(flat)
	if err != nil {
		return nil, err
	}
	summed, err := tensor.New(tensor.F32, b*seqLen, l.hidden)
	if err != nil {
		return nil, err
	}
	if err := tensor.Add(summed, ffnOut, flat); err != nil {
		return nil, err
	}
	out, err := tensor.New(tensor.F32, b*seqLen, l.hidden)
	if err != nil {
		return nil, err
	}
	if err := l.PostLN.Forward(out, summed); err != nil {
		return nil, err
	}
	return tensor.FromViewSameBacking(out, tensor.Shape{b, seqLen, l.hidden})
}

// Encoder is the full encoder stack (spec.md §4.4).
type Encoder struct {
	Layers     []*EncoderLayer
	Embedding  *tensor.Tensor // bound externally: the shared Wemb F32 table
	hidden     int
}

func NewEncoder(numLayers, numHeads, hidden, ffnDepth int) *Encoder {
	e := &Encoder{hidden: hidden}
	for i := 1; i <= numLayers; i++ {
		e.Layers = append(e.Layers, NewEncoderLayer("encoder_l"+strconv.Itoa(i), numHeads, hidden, ffnDepth))
	}
	return e
}

func (e *Encoder) Bind(src ParamSource) error {
	emb, err := getRequired(src, "Wemb")
	if err != nil {
		return err
	}
	e.Embedding = emb
	for _, l := range e.Layers {
		if err := l.Bind(src); err != nil {
			return err
		}
	}
	return nil
}

// Forward embeds indices[B,L], scales by sqrt(H), adds the sinusoidal
// positional signal, then runs every layer, returning the last layer's
// output [B,L,H] (spec.md §4.4: "Encoder... applied to
// embedding(indices)·√H + sinusoidal(0,L,H)... Returns last-layer output").
func (e *Encoder) Forward(indices, mask *tensor.Tensor) (*tensor.Tensor, error) {
	b, seqLen := indices.Shape().At(0), indices.Shape().At(1)
	flatIdx := indices.Uint32s()

	embFlat, err := tensor.New(tensor.F32, b*seqLen, e.hidden)
	if err != nil {
		return nil, err
	}
	if err := tensor.IndexSelect(embFlat, e.Embedding, flatIdx); err != nil {
		return nil, err
	}
	scale := float32(math.Sqrt(float64(e.hidden)))
	if err := tensor.MulScalar(embFlat, embFlat, scale); err != nil {
		return nil, err
	}

	pos, err := tensor.New(tensor.F32, seqLen, e.hidden)
	if err != nil {
		return nil, err
	}
	if err := tensor.SinusoidalSignal(pos, 0, seqLen, e.hidden); err != nil {
		return nil, err
	}
	ev := embFlat.Float32s()
	pv := pos.Float32s()
	for bi := 0; bi < b; bi++ {
		for li := 0; li < seqLen; li++ {
			base := (bi*seqLen + li) * e.hidden
			pbase := li * e.hidden
			for d := 0; d < e.hidden; d++ {
				ev[base+d] += pv[pbase+d]
			}
		}
	}

	x, err := tensor.FromViewSameBacking(embFlat, tensor.Shape{b, seqLen, e.hidden})
	if err != nil {
		return nil, err
	}
	for _, l := range e.Layers {
		x, err = l.Forward(x, mask)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}
