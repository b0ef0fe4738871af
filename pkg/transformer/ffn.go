package transformer

import (
	"strconv"

	"github.com/slimtgo/slimt/pkg/tensor"
)

// FFN is the two-layer feed-forward block spec.md §4.4 defines: Affine
// W_i,b_i for i in {1,2}, ReLU between them. Depth beyond two layers
// (spec.md §6's feed_forward_depth) chains additional Affine+ReLU pairs
// before the final projection, generalizing the spec's minimal two-layer
// description to the configurable depth the config recognizes.
type FFN struct {
	prefix string
	layers []*Affine
	hidden int
}

func NewFFN(prefix string, depth, hidden int) *FFN {
	f := &FFN{prefix: prefix, hidden: hidden}
	for i := 1; i <= depth; i++ {
		f.layers = append(f.layers, NewAffine(prefixForFFNLayer(prefix, i)))
	}
	return f
}

func prefixForFFNLayer(prefix string, i int) string {
	return prefix + "_W" + strconv.Itoa(i)
}

func (f *FFN) Bind(src ParamSource) error {
	for _, l := range f.layers {
		if err := l.Bind(src); err != nil {
			return err
		}
	}
	return nil
}

// Forward applies the full FFN chain (relu between every pair, none
// after the last) over a 2D activation [m,H].
func (f *FFN) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	cur := x
	for i, l := range f.layers {
		m := cur.Shape().At(0)
		out, err := tensor.New(tensor.F32, m, f.hidden)
		if err != nil {
			return nil, err
		}
		if err := l.Forward(out, cur); err != nil {
			return nil, err
		}
		if i < len(f.layers)-1 {
			relu, err := tensor.New(tensor.F32, m, f.hidden)
			if err != nil {
				return nil, err
			}
			if err := tensor.ReLU(relu, out); err != nil {
				return nil, err
			}
			cur = relu
		} else {
			cur = out
		}
	}
	return cur, nil
}
