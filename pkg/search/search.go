// Package search implements the greedy autoregressive generation loop of
// spec.md §4.6 (C7): encode once, decode token-by-token, greedily sample,
// record alignment, and stop each batch row independently on EOS.
//
// Grounded on the teacher's model/model.go Infer/forward loop (argmax
// sampling, a fixed step budget, an explicit per-row "done" tracking
// array) generalized from the teacher's single-sequence generation to
// batched per-row early stopping and alignment capture, which the
// teacher's encoder-only ternary model has no analogue for.
package search

import (
	"math"

	"github.com/slimtgo/slimt/pkg/shortlist"
	"github.com/slimtgo/slimt/pkg/tensor"
	"github.com/slimtgo/slimt/pkg/transformer"
)

// History is one segment's decoded result: the target token ids and one
// alignment distribution per decoding step (spec.md §3).
type History struct {
	Words     []uint32
	Alignment [][]float32 // per step, length == that row's true source length
}

// alignmentHead is the attention head used to report alignment: "head 0
// of the last decoder layer's cross-attention" (spec.md §9's convention).
const alignmentHead = 0

// Generate runs spec.md §4.6's pseudocode for one Input batch, returning
// one History per row. lengths holds each row's true (unpadded) source
// token count; sl may be nil (full vocabulary).
func Generate(tf *transformer.Transformer, indices, mask *tensor.Tensor, lengths []int, limitFactor float64, eosID uint32, sl *shortlist.Table, sourceWords [][]uint32) ([]History, error) {
	b, l := indices.Shape().At(0), indices.Shape().At(1)

	enc, err := tf.Encoder.Forward(indices, mask)
	if err != nil {
		return nil, err
	}

	maxSteps := int(math.Ceil(float64(l) * limitFactor))
	if maxSteps < 1 {
		maxSteps = 1
	}

	states, err := tf.Decoder.StartStates(b)
	if err != nil {
		return nil, err
	}

	// The shortlist is generated once over the whole batch's combined
	// source words, not per sentence: For already pads its own result to
	// a multiple of 8, and unioning several independently padded sets
	// does not preserve that property (spec.md §4.5/§8).
	var shortlistIdx []uint32
	if sl != nil {
		var batchWords []uint32
		for _, words := range sourceWords {
			batchWords = append(batchWords, words...)
		}
		shortlistIdx = sl.For(batchWords, false)
	}

	histories := make([]History, b)
	complete := make([]bool, b)
	var prev []uint32

	for step := 0; step < maxSteps; step++ {
		logits, attn, err := tf.Decoder.Step(enc, mask, states, prev, step, shortlistIdx)
		if err != nil {
			return nil, err
		}
		classes := logits.Shape().At(1)
		lv := logits.Float32s()
		next := make([]uint32, b)
		for i := 0; i < b; i++ {
			row := lv[i*classes : i*classes+classes]
			best := 0
			bestV := row[0]
			for c := 1; c < classes; c++ {
				if row[c] > bestV {
					bestV = row[c]
					best = c
				}
			}
			vocabID := uint32(best)
			if shortlistIdx != nil {
				vocabID = shortlistIdx[best]
			}
			next[i] = vocabID
		}

		recordAlignment(histories, attn, lengths, complete, b)

		allDone := true
		for i := 0; i < b; i++ {
			if !complete[i] {
				complete[i] = next[i] == eosID
				histories[i].Words = append(histories[i].Words, next[i])
			}
			if !complete[i] {
				allDone = false
			}
		}
		prev = next
		if allDone {
			break
		}
	}
	return histories, nil
}

func recordAlignment(histories []History, attn *tensor.Tensor, lengths []int, complete []bool, b int) {
	if attn == nil {
		return
	}
	// attn is [B,h,1,Lenc]; head 0 is the reported alignment distribution.
	shape := attn.Shape()
	h, lenc := shape.At(1), shape.At(3)
	av := attn.Float32s()
	for i := 0; i < b; i++ {
		if complete[i] {
			continue
		}
		base := (i*h+alignmentHead)*lenc + 0
		row := make([]float32, lengths[i])
		copy(row, av[base:base+lengths[i]])
		histories[i].Alignment = append(histories[i].Alignment, row)
	}
}
