package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	require.NoError(t, d.Validate())
	assert.GreaterOrEqual(t, d.Workers, 1)
	assert.Equal(t, SplitSentence, d.SplitMode)
}

func TestWithOverridesAppliesFunctionalOptions(t *testing.T) {
	o := Default().WithOverrides(WithWorkers(3), WithMaxWords(42), WithCacheSize(7), WithSplitMode(SplitParagraph))
	assert.Equal(t, 3, o.Workers)
	assert.Equal(t, 42, o.MaxWords)
	assert.Equal(t, 7, o.CacheSize)
	assert.Equal(t, SplitParagraph, o.SplitMode)
}

func TestLoadOverlaysYAMLOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encoder_layers: 3\nworkers: 2\n"), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, o.EncoderLayers)
	assert.Equal(t, 2, o.Workers)
	// untouched keys keep their Default() value.
	assert.Equal(t, Default().MaxWords, o.MaxWords)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadScalars(t *testing.T) {
	cases := []Options{
		Default().WithOverrides(WithWorkers(0)),
		Default().WithOverrides(WithMaxWords(0)),
		Default().WithOverrides(WithSplitMode("bogus")),
	}
	for _, o := range cases {
		assert.Error(t, o.Validate())
	}
}

func TestValidateAcceptsEmptySplitMode(t *testing.T) {
	o := Default().WithOverrides(WithSplitMode(""))
	assert.NoError(t, o.Validate())
}
