// Package schedule implements the length-bucketed batching pool of
// spec.md §4.8 (C9): a per-model Batcher, an AggregateBatcher coordinating
// several models, and a threadsafe Monitor wrapping either.
//
// Grounded on the teacher's worker/pool lifecycle idioms (pool.go-style
// constructs across the pack) for the mutex+condvar coordination shape;
// none of the teacher's own modules implement length-bucketed batching
// (its ternary model runs single-sequence inference), so the bucketing
// and draining logic itself is written fresh from spec.md §4.8, kept in
// the same lock-discipline idiom the pack's worker pools use (never hold
// a lock across the body of the work being dispatched).
package schedule

import (
	"sort"

	"github.com/slimtgo/slimt/pkg/batch"
	"github.com/slimtgo/slimt/pkg/search"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// Batch is a selected subset of segments drawn from one bucket, plus the
// rectangular padded tensor built from them (spec.md §3). An empty batch
// signals shutdown to workers.
type Batch struct {
	Refs  []xlate.SegmentRef
	Input *batch.Input
}

// Empty reports whether this batch carries no work.
func (b *Batch) Empty() bool { return b == nil || len(b.Refs) == 0 }

// Complete fans out per-segment histories (in the same order as Refs) to
// each referenced Request, which in turn invokes its continuation once
// every segment of that Request has completed (spec.md §4.9).
func (b *Batch) Complete(histories []search.History) {
	for i, ref := range b.Refs {
		ref.Request.Complete(ref.Index, histories[i])
	}
}

// Batcher buckets pending segments by token length, per model (spec.md
// §4.8).
type Batcher struct {
	buckets        map[int][]xlate.SegmentRef
	runningMaxLen  int
	padID          uint32
	maxWords       int
	limitFactor    float64
}

// NewBatcher constructs an empty Batcher for one model.
func NewBatcher(padID uint32, maxWords int, limitFactor float64) *Batcher {
	return &Batcher{
		buckets:     make(map[int][]xlate.SegmentRef),
		padID:       padID,
		maxWords:    maxWords,
		limitFactor: limitFactor,
	}
}

// Enqueue inserts every pending (non-cache-hit) segment of req into its
// length bucket. Returns the number of segments actually enqueued
// (spec.md §4.8).
func (b *Batcher) Enqueue(req *xlate.Request) int {
	pending := req.Pending()
	for _, idx := range pending {
		ref := xlate.SegmentRef{Request: req, Index: idx}
		n := ref.Len()
		b.buckets[n] = append(b.buckets[n], ref)
		if n > b.runningMaxLen {
			b.runningMaxLen = n
		}
	}
	return len(pending)
}

// Generate walks buckets from the smallest length upward, greedily
// filling a Batch while (size+1)*bucket_length <= max_words (spec.md
// §4.8). Returns a possibly-empty Batch.
func (b *Batcher) Generate() *Batch {
	lengths := make([]int, 0, len(b.buckets))
	for l, refs := range b.buckets {
		if len(refs) > 0 {
			lengths = append(lengths, l)
		}
	}
	sort.Ints(lengths)

	for _, l := range lengths {
		refs := b.buckets[l]
		if len(refs) == 0 {
			continue
		}
		xlate.SortRefs(refs)
		var taken []xlate.SegmentRef
		for len(refs) > 0 && (len(taken)+1)*l <= b.maxWords {
			taken = append(taken, refs[0])
			refs = refs[1:]
		}
		b.buckets[l] = refs
		if len(taken) == 0 {
			continue
		}
		in, err := batch.New(len(taken), l, b.padID, b.limitFactor)
		if err != nil {
			return &Batch{}
		}
		for _, ref := range taken {
			_ = in.Add(ref.Request.Segments[ref.Index])
		}
		return &Batch{Refs: taken, Input: in}
	}
	return &Batch{}
}
