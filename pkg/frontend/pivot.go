package frontend

import (
	"github.com/slimtgo/slimt/pkg/align"
	"github.com/slimtgo/slimt/pkg/cache"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// Pivot runs two-hop translation (spec.md §4.11, §4.13): source -> pivot
// via first, then pivot -> target via second, remapping the alignments
// through align.Combine so the caller sees a single source->target Response.
// sourceTexts/sourceSpans carry the original source's annotated text and
// per-segment byte ranges into the first hop (spec.md §4.9's C10
// Response fields); the second hop's "source" is the first hop's own
// target text, so its spans are taken from firstHop's TargetSpans.
func (Blocking) Pivot(first, second *Model, segments [][]xlate.Segment, gaps [][]string, sourceTexts []string, sourceSpans [][][2]int, c *cache.Cache, maxWords int, limitFactor float64) ([]*xlate.Response, error) {
	firstHop, err := (Blocking{}).Translate(first, segments, gaps, sourceTexts, sourceSpans, c, maxWords, limitFactor)
	if err != nil {
		return nil, err
	}

	pivotSegments := make([][]xlate.Segment, len(firstHop))
	pivotGaps := make([][]string, len(firstHop))
	pivotSourceTexts := make([]string, len(firstHop))
	pivotSourceSpans := make([][][2]int, len(firstHop))
	for i, r := range firstHop {
		ids, _, err := second.Vocab.Encode(r.TargetText)
		if err != nil {
			return nil, err
		}
		pivotSegments[i] = []xlate.Segment{ids}
		pivotGaps[i] = []string{""}
		pivotSourceTexts[i] = r.TargetText
		pivotSourceSpans[i] = r.TargetSpans
	}

	secondHop, err := (Blocking{}).Translate(second, pivotSegments, pivotGaps, pivotSourceTexts, pivotSourceSpans, c, maxWords, limitFactor)
	if err != nil {
		return nil, err
	}

	out := make([]*xlate.Response, len(firstHop))
	for i := range firstHop {
		out[i] = align.Combine(firstHop[i], secondHop[i])
	}
	return out, nil
}

// Pivot on Async chains continuations: the first hop's continuation
// synthesizes a Request for second and enqueues it; that Request's
// continuation fulfills the user-facing Handle (spec.md §4.11).
// sourceText/sourceSpans carry the original source's annotated text and
// per-segment byte ranges into the first hop, matching Blocking.Pivot.
func (a *Async) Pivot(first, second *Model, segments []xlate.Segment, gaps []string, sourceText string, sourceSpans [][2]int, c *cache.Cache) *Handle {
	h := &Handle{done: make(chan struct{})}

	firstReq := xlate.New(nextRequestID(), first.ID, sourceText, segments, sourceSpans, gaps, first.Vocab, c, func(r1 *xlate.Request) {
		firstResp, err := xlate.BuildResponse(r1)
		if err != nil {
			h.fulfill(nil, err)
			return
		}
		ids, _, err := second.Vocab.Encode(firstResp.TargetText)
		if err != nil {
			h.fulfill(nil, err)
			return
		}
		secondReq := xlate.New(nextRequestID(), second.ID, firstResp.TargetText, []xlate.Segment{ids}, firstResp.TargetSpans, []string{""}, second.Vocab, c, func(r2 *xlate.Request) {
			secondResp, err := xlate.BuildResponse(r2)
			if err != nil {
				h.fulfill(nil, err)
				return
			}
			h.fulfill(align.Combine(firstResp, secondResp), nil)
		})
		a.monitor.Enqueue(second.ID, secondReq)
	})
	a.monitor.Enqueue(first.ID, firstReq)
	return h
}
