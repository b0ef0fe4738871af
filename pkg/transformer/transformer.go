package transformer

import "github.com/slimtgo/slimt/internal/config"

// Transformer bundles the bound encoder and decoder for one loaded model
// (spec.md §4.4), sized from internal/config.Options.
type Transformer struct {
	Encoder *Encoder
	Decoder *Decoder
	Hidden  int
}

// New constructs an unbound Transformer shaped per opts; Bind must be
// called with the loaded model's parameter source before use.
func New(opts config.Options, hidden int) *Transformer {
	return &Transformer{
		Encoder: NewEncoder(opts.EncoderLayers, opts.NumHeads, hidden, opts.FeedForwardDepth),
		Decoder: NewDecoder(opts.DecoderLayers, opts.NumHeads, hidden, opts.FeedForwardDepth),
		Hidden:  hidden,
	}
}

func (t *Transformer) Bind(src ParamSource) error {
	if err := t.Encoder.Bind(src); err != nil {
		return err
	}
	return t.Decoder.Bind(src)
}
