package transformer

import "github.com/slimtgo/slimt/pkg/tensor"

// LayerNorm binds the _ln_scale[H]/_ln_bias[H] parameter pair spec.md
// §4.4 names and applies pkg/tensor.LayerNorm.
type LayerNorm struct {
	prefix string
	Scale  *tensor.Tensor
	Bias   *tensor.Tensor
	Eps    float32
}

func NewLayerNorm(prefix string, eps float32) *LayerNorm {
	return &LayerNorm{prefix: prefix, Eps: eps}
}

func (l *LayerNorm) Bind(src ParamSource) error {
	scale, err := getRequired(src, l.prefix+"_ln_scale")
	if err != nil {
		return err
	}
	bias, err := getRequired(src, l.prefix+"_ln_bias")
	if err != nil {
		return err
	}
	l.Scale, l.Bias = scale, bias
	return nil
}

// Forward writes LayerNorm(x) into dst.
func (l *LayerNorm) Forward(dst, x *tensor.Tensor) error {
	return tensor.LayerNorm(dst, x, l.Scale, l.Bias, l.Eps)
}
