package main

import (
	"fmt"

	"github.com/slimtgo/slimt/internal/config"
	"github.com/slimtgo/slimt/internal/logging"
	"github.com/slimtgo/slimt/internal/modelfile"
	"github.com/slimtgo/slimt/pkg/frontend"
	"github.com/slimtgo/slimt/pkg/shortlist"
	"github.com/slimtgo/slimt/pkg/transformer"
)

// loadedModel bundles the on-disk resources a frontend.Model needs, so
// the CLI can Close them together on exit.
type loadedModel struct {
	frontend  *frontend.Model
	shortlist *shortlist.Table
	file      *modelfile.Model
}

func (lm *loadedModel) Close() {
	if lm.shortlist != nil {
		lm.shortlist.Close()
	}
	if lm.file != nil {
		lm.file.Close()
	}
}

// loadModel memory-maps modelPath (and shortlistPath, if non-empty),
// binds a transformer.Transformer against it, and wraps the result as a
// frontend.Model under id, using the id-vocabulary demo adapter
// (vocab.go in this package) as its Vocabulary.
func loadModel(id, modelPath, shortlistPath string, opts config.Options, padID, eosID uint32) (*loadedModel, error) {
	mf, err := modelfile.Load(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", modelPath, err)
	}

	wemb := mf.Get("Wemb")
	if wemb == nil {
		mf.Close()
		return nil, fmt.Errorf("load model %q: missing Wemb entry", modelPath)
	}
	hidden := wemb.Shape().At(1)
	vocabSize := wemb.Shape().At(0)

	tf := transformer.New(opts, hidden)
	if err := tf.Bind(mf); err != nil {
		mf.Close()
		return nil, fmt.Errorf("bind model %q: %w", modelPath, err)
	}

	var sl *shortlist.Table
	if shortlistPath != "" {
		sl, err = shortlist.Load(shortlistPath, vocabSize)
		if err != nil {
			mf.Close()
			return nil, fmt.Errorf("load shortlist %q: %w", shortlistPath, err)
		}
	}

	logging.Infof("loaded model %q: hidden=%d vocab=%d shortlist=%v", id, hidden, vocabSize, sl != nil)

	return &loadedModel{
		frontend: &frontend.Model{
			ID:          id,
			Transformer: tf,
			Vocab:       newIDVocab(padID, eosID, vocabSize),
			PadID:       padID,
			EosID:       eosID,
		},
		shortlist: sl,
		file:      mf,
	}, nil
}
