// Package frontend implements the two translation entry points of
// spec.md §4.11 (C12): a single-threaded Blocking driver and an Async
// worker pool over a threadsafe AggregateBatcher, plus two-hop pivot
// translation for both.
package frontend

import (
	"github.com/slimtgo/slimt/pkg/cache"
	"github.com/slimtgo/slimt/pkg/schedule"
	"github.com/slimtgo/slimt/pkg/search"
	"github.com/slimtgo/slimt/pkg/transformer"
	"github.com/slimtgo/slimt/pkg/vocab"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// Model bundles everything one loaded model needs to serve translations.
type Model struct {
	ID          string
	Transformer *transformer.Transformer
	Vocab       vocab.Vocabulary
	PadID       uint32
	EosID       uint32
}

// Blocking is a single-threaded driver (spec.md §4.11): it enqueues every
// source into a local Batcher, drains batches to completion, then
// collects the resulting responses in input order.
type Blocking struct{}

// Translate runs spec.md §4.11 steps 1-4 for one model and a set of
// presegmented sources. segments[i]/gaps[i] is the pre-split input for
// source i; HTML extraction and sentence splitting happen upstream of
// this call (spec.md §1: both are external collaborators). sourceTexts[i]
// is source i's original annotated text and sourceSpans[i] holds each of
// its segments' byte range within that text (spec.md §4.9's C10 Response
// fields); both may be nil when the caller has no annotated text to
// report.
func (Blocking) Translate(model *Model, segments [][]xlate.Segment, gaps [][]string, sourceTexts []string, sourceSpans [][][2]int, c *cache.Cache, maxWords int, limitFactor float64) ([]*xlate.Response, error) {
	batcher := schedule.NewBatcher(model.PadID, maxWords, limitFactor)
	responses := make([]*xlate.Response, len(segments))

	for i := range segments {
		i := i
		var annotated string
		if i < len(sourceTexts) {
			annotated = sourceTexts[i]
		}
		var spans [][2]int
		if i < len(sourceSpans) {
			spans = sourceSpans[i]
		}
		req := xlate.New(uint64(i), model.ID, annotated, segments[i], spans, gaps[i], model.Vocab, c, func(r *xlate.Request) {
			resp, err := xlate.BuildResponse(r)
			if err == nil {
				responses[i] = resp
			}
		})
		batcher.Enqueue(req)
	}

	for {
		b := batcher.Generate()
		if b.Empty() {
			break
		}
		histories, err := runBatch(model, b)
		if err != nil {
			return nil, err
		}
		b.Complete(histories)
	}
	return responses, nil
}

func runBatch(model *Model, b *schedule.Batch) ([]search.History, error) {
	lengths := make([]int, len(b.Refs))
	sourceWords := make([][]uint32, len(b.Refs))
	for i, ref := range b.Refs {
		lengths[i] = len(ref.Request.Segments[ref.Index])
		sourceWords[i] = ref.Request.Segments[ref.Index]
	}
	return search.Generate(model.Transformer, b.Input.Indices, b.Input.Mask, lengths, b.Input.LimitFactor, model.EosID, nil, sourceWords)
}
