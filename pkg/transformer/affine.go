package transformer

import (
	"github.com/slimtgo/slimt/pkg/qmm"
	"github.com/slimtgo/slimt/pkg/tensor"
)

// Affine binds a prepared INT8 weight W, its F32 bias b, and the learned
// activation quantization multiplier QuantMultA (spec.md §4.4: "a scalar
// F32, the activation quantization multiplier learned at model conversion
// time"). Forward applies spec.md §4.2's affine.
type Affine struct {
	prefix     string
	W          *tensor.Tensor
	B          *tensor.Tensor
	QuantMultA float32
}

func NewAffine(prefix string) *Affine { return &Affine{prefix: prefix} }

func (a *Affine) Bind(src ParamSource) error {
	w, err := getRequired(src, a.prefix+"_W")
	if err != nil {
		return err
	}
	b, err := getRequired(src, a.prefix+"_b")
	if err != nil {
		return err
	}
	qma, err := getRequired(src, a.prefix+"_QuantMultA")
	if err != nil {
		return err
	}
	a.W, a.B = w, b
	if qv := qma.Float32s(); len(qv) > 0 {
		a.QuantMultA = qv[0]
	}
	return nil
}

// Forward computes dst = x @ W + b for a 2D activation x[m,k].
func (a *Affine) Forward(dst, x *tensor.Tensor) error {
	return qmm.Affine(dst, x, a.W, a.B, a.QuantMultA)
}

// ForwardWithSelect computes dst = x @ select_columns(W, idx) + b[idx],
// used by the decoder's output projection when a shortlist restricts the
// target classes (spec.md §4.4 step 3).
func (a *Affine) ForwardWithSelect(dst, x *tensor.Tensor, idx []uint32) error {
	return qmm.AffineWithSelect(dst, x, a.W, a.B, a.QuantMultA, idx)
}

// Linear is Affine without a bias term (spec.md §4.4: "like Affine minus
// bias (used in SSRU)").
type Linear struct {
	prefix     string
	W          *tensor.Tensor
	QuantMultA float32
}

func NewLinear(prefix string) *Linear { return &Linear{prefix: prefix} }

func (l *Linear) Bind(src ParamSource) error {
	w, err := getRequired(src, l.prefix+"_W")
	if err != nil {
		return err
	}
	qma, err := getRequired(src, l.prefix+"_QuantMultA")
	if err != nil {
		return err
	}
	l.W = w
	if qv := qma.Float32s(); len(qv) > 0 {
		l.QuantMultA = qv[0]
	}
	return nil
}

func (l *Linear) Forward(dst, x *tensor.Tensor) error {
	return qmm.Dot(dst, x, l.W, l.QuantMultA)
}
