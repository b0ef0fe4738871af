// Package config holds the engine's recognized configuration options
// (spec.md §6) plus defaults and YAML loading, following the teacher's
// defaults-struct-then-override pattern (bitnet/internal/config.go).
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// SplitMode selects how the external splitter chunks a source string.
type SplitMode string

const (
	SplitSentence    SplitMode = "sentence"
	SplitParagraph   SplitMode = "paragraph"
	SplitWrappedText SplitMode = "wrapped_text"
)

// Options is the full set of recognized configuration scalars from spec.md §6.
type Options struct {
	EncoderLayers        int       `yaml:"encoder_layers"`
	DecoderLayers        int       `yaml:"decoder_layers"`
	FeedForwardDepth     int       `yaml:"feed_forward_depth"`
	NumHeads             int       `yaml:"num_heads"`
	MaxWords             int       `yaml:"max_words"`
	WrapLength           int       `yaml:"wrap_length"`
	TargetLengthFactor   float64   `yaml:"tgt_length_limit_factor"`
	CacheSize            int       `yaml:"cache_size"`
	Workers              int       `yaml:"workers"`
	SplitMode            SplitMode `yaml:"split_mode"`
}

// Default returns the spec-mandated defaults.
func Default() Options {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	return Options{
		EncoderLayers:      6,
		DecoderLayers:      2,
		FeedForwardDepth:   2,
		NumHeads:           8,
		MaxWords:           1024,
		WrapLength:         128,
		TargetLengthFactor: 2.5,
		CacheSize:          0,
		Workers:            workers,
		SplitMode:          SplitSentence,
	}
}

// Option mutates an Options value; used with WithOverrides.
type Option func(*Options)

// WithOverrides applies functional overrides on top of a base Options.
func (o Options) WithOverrides(opts ...Option) Options {
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Load reads YAML-encoded options from path, starting from Default() and
// overlaying whatever keys are present in the file.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Validate checks invariants spec.md §6 implies (workers >= 1, etc).
func (o Options) Validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", o.Workers)
	}
	if o.MaxWords < 1 {
		return fmt.Errorf("config: max_words must be >= 1, got %d", o.MaxWords)
	}
	if o.WrapLength < 1 {
		return fmt.Errorf("config: wrap_length must be >= 1, got %d", o.WrapLength)
	}
	switch o.SplitMode {
	case SplitSentence, SplitParagraph, SplitWrappedText, "":
	default:
		return fmt.Errorf("config: unknown split_mode %q", o.SplitMode)
	}
	return nil
}

func WithWorkers(n int) Option           { return func(o *Options) { o.Workers = n } }
func WithMaxWords(n int) Option          { return func(o *Options) { o.MaxWords = n } }
func WithCacheSize(n int) Option         { return func(o *Options) { o.CacheSize = n } }
func WithSplitMode(m SplitMode) Option   { return func(o *Options) { o.SplitMode = m } }
