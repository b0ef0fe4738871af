// Package transformer implements the encoder/decoder forward path of
// spec.md §4.4 (C5): multi-head attention with head split/join, the
// feed-forward block, the SSRU decoder recurrence, and the encoder and
// decoder stacks built from them.
//
// Parameter binding: every module is constructed with its name prefix,
// and its Bind(src ParamSource) looks up each underscored name it needs
// (satisfied by a loaded internal/modelfile.Model). Grounded on the teacher's
// model/model.go setAttentionWeights/setFFNWeights/setFinalNormWeights
// helpers, which bind a Model's raw tensors into a TransformerBlock's
// typed fields by name in the same way.
package transformer

import (
	"fmt"

	"github.com/slimtgo/slimt/internal/modelfile"
	"github.com/slimtgo/slimt/pkg/tensor"
)

// ParamSource resolves a bound tensor by name; satisfied by
// *modelfile.Model.
type ParamSource interface {
	Get(name string) *tensor.Tensor
}

var _ ParamSource = (*modelfile.Model)(nil)

// getRequired fetches name from src and returns an error if it is
// missing; getOptional returns nil for a missing name. Neither logs, and
// a missing required parameter makes Bind fail.
func getRequired(src ParamSource, name string) (*tensor.Tensor, error) {
	t := src.Get(name)
	if t == nil {
		return nil, fmt.Errorf("transformer: missing required parameter %q", name)
	}
	return t, nil
}

func getOptional(src ParamSource, name string) *tensor.Tensor {
	return src.Get(name)
}
