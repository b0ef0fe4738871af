package transformer

import "github.com/slimtgo/slimt/pkg/tensor"

// SSRU is the decoder's recurrent cell (spec.md §4.4), replacing decoder
// self-attention with a cheap per-step recurrence: a sigmoid-gated
// highway blend of the running state and a linear projection of the
// current input, normalized by a residual LayerNorm. Spec.md notes no
// prior teacher module implements this (it has no analogue in the
// teacher's ternary transformer, which has no decoder recurrence at
// all); written fresh from the spec's formula in the teacher's module
// idiom (bind-then-forward, parameter struct per sub-module).
type SSRU struct {
	prefix string
	hidden int

	Gate   *Affine // W_f, b_f + sigmoid
	Output *Linear // W_o, no bias
	PostLN *LayerNorm
}

func NewSSRU(prefix string, hidden int) *SSRU {
	return &SSRU{
		prefix: prefix,
		hidden: hidden,
		Gate:   NewAffine(prefix + "_f"),
		Output: NewLinear(prefix + "_o"),
		PostLN: NewLayerNorm(prefix, 1e-9),
	}
}

func (s *SSRU) Bind(src ParamSource) error {
	if err := s.Gate.Bind(src); err != nil {
		return err
	}
	if err := s.Output.Bind(src); err != nil {
		return err
	}
	return s.PostLN.Bind(src)
}

// Forward advances the recurrence one step: x is [B,H] (decoding is
// always one token at a time), state is [B,H] and is overwritten in
// place with the new cell value c'. Returns h = LayerNorm(x + relu(c')).
func (s *SSRU) Forward(x, state *tensor.Tensor) (*tensor.Tensor, error) {
	b := x.Shape().At(0)

	f, err := tensor.New(tensor.F32, b, s.hidden)
	if err != nil {
		return nil, err
	}
	if err := s.Gate.Forward(f, x); err != nil {
		return nil, err
	}
	if err := tensor.Sigmoid(f, f); err != nil {
		return nil, err
	}

	wx, err := tensor.New(tensor.F32, b, s.hidden)
	if err != nil {
		return nil, err
	}
	if err := s.Output.Forward(wx, x); err != nil {
		return nil, err
	}

	// c' = f ⊙ c + (1−f) ⊙ Wx (spec.md §4.4). f is already sigmoid-activated
	// above, so this blends directly rather than going through the generic
	// highway(x,y,g) kernel, which applies its own sigmoid to g.
	fv, cv, wxv := f.Float32s(), state.Float32s(), wx.Float32s()
	newState, err := tensor.New(tensor.F32, b, s.hidden)
	if err != nil {
		return nil, err
	}
	nv := newState.Float32s()
	for i := range nv {
		nv[i] = fv[i]*cv[i] + (1-fv[i])*wxv[i]
	}
	copy(cv, nv)

	y, err := tensor.New(tensor.F32, b, s.hidden)
	if err != nil {
		return nil, err
	}
	if err := tensor.ReLU(y, newState); err != nil {
		return nil, err
	}

	resid, err := tensor.New(tensor.F32, b, s.hidden)
	if err != nil {
		return nil, err
	}
	if err := tensor.Add(resid, x, y); err != nil {
		return nil, err
	}

	h, err := tensor.New(tensor.F32, b, s.hidden)
	if err != nil {
		return nil, err
	}
	if err := s.PostLN.Forward(h, resid); err != nil {
		return nil, err
	}
	return h, nil
}
