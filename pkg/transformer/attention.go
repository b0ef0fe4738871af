package transformer

import (
	"math"

	"github.com/slimtgo/slimt/pkg/tensor"
)

// Attention implements spec.md §4.4's multi-head attention, usable as
// either self-attention (query == keyValue) or cross/"context" attention
// (keyValue is the encoder output). Grounded on the teacher's
// internal/math/attention.go for the scaled-dot-product shape discipline
// (4D batch/head/seq/dim tensors, parallel per-batch-chunk goroutines,
// manual stable softmax) generalized from the teacher's single fixed
// head count to spec.md's configurable NumHeads, and from the teacher's
// unmasked attention to §4.4's additive mask broadcast.
type Attention struct {
	prefix   string
	numHeads int
	hidden   int

	Q, K, V, O *Affine
	PostLN     *LayerNorm
}

func NewAttention(prefix string, numHeads, hidden int) *Attention {
	return &Attention{
		prefix:   prefix,
		numHeads: numHeads,
		hidden:   hidden,
		Q:        NewAffine(prefix + "_Wq"),
		K:        NewAffine(prefix + "_Wk"),
		V:        NewAffine(prefix + "_Wv"),
		O:        NewAffine(prefix + "_Wo"),
		PostLN:   NewLayerNorm(prefix, 1e-9),
	}
}

func (a *Attention) Bind(src ParamSource) error {
	for _, sub := range []*Affine{a.Q, a.K, a.V, a.O} {
		if err := sub.Bind(src); err != nil {
			return err
		}
	}
	return a.PostLN.Bind(src)
}

// Forward computes attention over query [B,Lq,H] against keyValue
// [B,Lkv,H], with additive mask [B,Lkv] broadcast across every head and
// query position. Returns the post-residual-LayerNorm output [B,Lq,H]
// and the raw per-head attention weights [B,h,Lq,Lkv] (spec.md §4.4:
// "attn is retained only by the last decoder layer for alignment
// reporting").
func (a *Attention) Forward(query, keyValue, mask *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	b, lq := query.Shape().At(0), query.Shape().At(1)
	lkv := keyValue.Shape().At(1)
	h := a.numHeads
	hd := a.hidden / h

	qFlat, err := flatten2D(query)
	if err != nil {
		return nil, nil, err
	}
	kvFlat, err := flatten2D(keyValue)
	if err != nil {
		return nil, nil, err
	}

	q2, err := tensor.New(tensor.F32, b*lq, a.hidden)
	if err != nil {
		return nil, nil, err
	}
	k2, err := tensor.New(tensor.F32, b*lkv, a.hidden)
	if err != nil {
		return nil, nil, err
	}
	v2, err := tensor.New(tensor.F32, b*lkv, a.hidden)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Q.Forward(q2, qFlat); err != nil {
		return nil, nil, err
	}
	if err := a.K.Forward(k2, kvFlat); err != nil {
		return nil, nil, err
	}
	if err := a.V.Forward(v2, kvFlat); err != nil {
		return nil, nil, err
	}

	qh := splitHeads(q2, b, lq, h, hd)
	kh := splitHeads(k2, b, lkv, h, hd)
	vh := splitHeads(v2, b, lkv, h, hd)

	scale := float32(1.0 / math.Sqrt(float64(hd)))
	scores, err := tensor.New(tensor.F32, b*h, lq, lkv)
	if err != nil {
		return nil, nil, err
	}
	khT, err := tensor.New(tensor.F32, b*h, hd, lkv)
	if err != nil {
		return nil, nil, err
	}
	if err := tensor.Transpose10Batched(khT, kh); err != nil {
		return nil, nil, err
	}
	if err := tensor.BatchMatMul(scores, qh, khT); err != nil {
		return nil, nil, err
	}
	if err := tensor.MulScalar(scores, scores, scale); err != nil {
		return nil, nil, err
	}
	if mask != nil {
		addMaskBroadcast(scores, mask, b, h, lq, lkv)
	}
	attnW, err := tensor.New(tensor.F32, b*h, lq, lkv)
	if err != nil {
		return nil, nil, err
	}
	if err := tensor.Softmax(attnW, scores); err != nil {
		return nil, nil, err
	}

	ctx, err := tensor.New(tensor.F32, b*h, lq, hd)
	if err != nil {
		return nil, nil, err
	}
	if err := tensor.BatchMatMul(ctx, attnW, vh); err != nil {
		return nil, nil, err
	}

	joined := joinHeads(ctx, b, lq, h, hd)
	oOut, err := tensor.New(tensor.F32, b*lq, a.hidden)
	if err != nil {
		return nil, nil, err
	}
	if err := a.O.Forward(oOut, joined); err != nil {
		return nil, nil, err
	}

	resid, err := tensor.New(tensor.F32, b*lq, a.hidden)
	if err != nil {
		return nil, nil, err
	}
	if err := tensor.Add(resid, oOut, qFlat); err != nil {
		return nil, nil, err
	}
	out, err := tensor.New(tensor.F32, b*lq, a.hidden)
	if err != nil {
		return nil, nil, err
	}
	if err := a.PostLN.Forward(out, resid); err != nil {
		return nil, nil, err
	}

	attnShaped, err := tensor.New(tensor.F32, b, h, lq, lkv)
	if err != nil {
		return nil, nil, err
	}
	copy(attnShaped.Float32s(), attnW.Float32s())

	outShaped, err := tensor.New(tensor.F32, b, lq, a.hidden)
	if err != nil {
		return nil, nil, err
	}
	copy(outShaped.Float32s(), out.Float32s())

	return outShaped, attnShaped, nil
}

// flatten2D returns a [B*L,H] view sharing storage with a [B,L,H] tensor.
func flatten2D(x *tensor.Tensor) (*tensor.Tensor, error) {
	b, l, h := x.Shape().At(0), x.Shape().At(1), x.Shape().At(2)
	return tensor.FromViewSameBacking(x, tensor.Shape{b * l, h})
}

// splitHeads reshapes a [B*L,H] activation into [B*h,L,hd] (batch and
// head axes merged for BatchMatMul), copying because the head axis is
// not contiguous in the source layout.
func splitHeads(x *tensor.Tensor, b, l, h, hd int) *tensor.Tensor {
	out, _ := tensor.New(tensor.F32, b*h, l, hd)
	src := x.Float32s()
	dst := out.Float32s()
	hidden := h * hd
	for bi := 0; bi < b; bi++ {
		for li := 0; li < l; li++ {
			srcBase := (bi*l + li) * hidden
			for hi := 0; hi < h; hi++ {
				dstBase := ((bi*h+hi)*l + li) * hd
				copy(dst[dstBase:dstBase+hd], src[srcBase+hi*hd:srcBase+hi*hd+hd])
			}
		}
	}
	return out
}

// joinHeads is splitHeads's inverse: [B*h,L,hd] -> [B*L,H].
func joinHeads(x *tensor.Tensor, b, l, h, hd int) *tensor.Tensor {
	out, _ := tensor.New(tensor.F32, b*l, h*hd)
	src := x.Float32s()
	dst := out.Float32s()
	hidden := h * hd
	for bi := 0; bi < b; bi++ {
		for li := 0; li < l; li++ {
			dstBase := (bi*l + li) * hidden
			for hi := 0; hi < h; hi++ {
				srcBase := ((bi*h+hi)*l + li) * hd
				copy(dst[dstBase+hi*hd:dstBase+hi*hd+hd], src[srcBase:srcBase+hd])
			}
		}
	}
	return out
}

// addMaskBroadcast adds -1e9 wherever mask[b,j] is 0 (padding) and
// nothing where it is 1, into every (head, query) row of scores
// [B*h,Lq,Lkv].
func addMaskBroadcast(scores, mask *tensor.Tensor, b, h, lq, lkv int) {
	sv := scores.Float32s()
	mv := mask.Float32s()
	const negInf = -1e9
	for bi := 0; bi < b; bi++ {
		for hi := 0; hi < h; hi++ {
			base := (bi*h+hi)*lq*lkv
			for qi := 0; qi < lq; qi++ {
				row := sv[base+qi*lkv : base+qi*lkv+lkv]
				for ki := 0; ki < lkv; ki++ {
					if mv[bi*lkv+ki] == 0 {
						row[ki] += negInf
					}
				}
			}
		}
	}
}
