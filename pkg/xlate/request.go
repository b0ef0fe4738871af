// Package xlate implements the request lifecycle and response assembly
// of spec.md §4.9 (C10): per-segment completion tracking with an
// atomically-counted remaining total, cache probing at construction, and
// text reassembly once every segment has a History.
//
// Grounded on the teacher's model/model.go Close() pattern (a
// sync.Mutex-guarded one-shot completion gate via a done channel) for
// the "continuation fires exactly once" invariant, generalized from a
// single completion event to an atomically-counted N-of-N one.
package xlate

import (
	"sort"
	"sync/atomic"

	"github.com/slimtgo/slimt/pkg/cache"
	"github.com/slimtgo/slimt/pkg/search"
	"github.com/slimtgo/slimt/pkg/vocab"
)

// Segment is an ordered sequence of source token ids (spec.md §3:
// "Segment = Words").
type Segment = []uint32

// Response is the final assembled translation (spec.md §3).
type Response struct {
	SourceText   string
	TargetText   string
	SourceSpans  [][2]int
	TargetSpans  [][2]int
	Alignments   [][][]float32 // per segment
}

// Request tracks one input's lifecycle across its segments (spec.md §3,
// §4.9).
type Request struct {
	ID             uint64
	ModelID        string
	AnnotatedText  string
	Segments       []Segment
	SourceSpans    [][2]int // byte range of each segment within AnnotatedText
	SourceGaps     []string // whitespace/markup between segments
	Vocab          vocab.Vocabulary
	CacheRef       *cache.Cache
	Continuation   func(*Request)

	histories []*search.History
	remaining int32
}

// New constructs a Request and immediately probes the cache for every
// segment. If there are no segments, or every segment is a cache hit,
// continuation is invoked before New returns (spec.md §4.9). spans holds
// each segment's byte range within annotated, in segment order; it may
// be nil when the caller has no source spans to report.
func New(id uint64, modelID string, annotated string, segments []Segment, spans [][2]int, gaps []string, v vocab.Vocabulary, c *cache.Cache, continuation func(*Request)) *Request {
	r := &Request{
		ID:            id,
		ModelID:       modelID,
		AnnotatedText: annotated,
		Segments:      segments,
		SourceSpans:   spans,
		SourceGaps:    gaps,
		Vocab:         v,
		CacheRef:      c,
		Continuation:  continuation,
		histories:     make([]*search.History, len(segments)),
	}
	if len(segments) == 0 {
		continuation(r)
		return r
	}
	r.remaining = int32(len(segments))
	if c != nil && c.Enabled() {
		for i, seg := range segments {
			key := cache.Key(modelID, seg)
			if h, ok := c.Find(key); ok {
				hv := h
				r.histories[i] = &hv
				if atomic.AddInt32(&r.remaining, -1) == 0 {
					continuation(r)
					return r
				}
			}
		}
	}
	return r
}

// Pending reports the segment indices still awaiting a History (i.e.
// those not resolved by the cache probe in New). Callers enqueue exactly
// these into a Batcher.
func (r *Request) Pending() []int {
	out := make([]int, 0, len(r.Segments))
	for i, h := range r.histories {
		if h == nil {
			out = append(out, i)
		}
	}
	return out
}

// Complete fulfills segment i's History, stores it in the cache, and
// invokes the continuation exactly once when every segment has
// completed (spec.md §4.9).
func (r *Request) Complete(i int, h search.History) {
	r.histories[i] = &h
	if r.CacheRef != nil && r.CacheRef.Enabled() {
		r.CacheRef.Store(cache.Key(r.ModelID, r.Segments[i]), h)
	}
	if atomic.AddInt32(&r.remaining, -1) == 0 {
		r.Continuation(r)
	}
}

// Histories returns every segment's completed History, in segment order.
// Callers must not invoke this before the continuation has fired.
func (r *Request) Histories() []search.History {
	out := make([]search.History, len(r.histories))
	for i, h := range r.histories {
		if h != nil {
			out[i] = *h
		}
	}
	return out
}

// SegmentRef references one segment of one in-flight Request, used as the
// Batcher's queueing unit (spec.md §3). Totally ordered first by request
// id then by segment index, for deterministic set membership.
type SegmentRef struct {
	Request *Request
	Index   int
}

// Less implements the total order spec.md §3 requires.
func (s SegmentRef) Less(o SegmentRef) bool {
	if s.Request.ID != o.Request.ID {
		return s.Request.ID < o.Request.ID
	}
	return s.Index < o.Index
}

// Len returns the token length of the referenced segment, used for
// bucketing (spec.md §3: "Length for bucketing equals token count of the
// referenced segment").
func (s SegmentRef) Len() int { return len(s.Request.Segments[s.Index]) }

// SortRefs sorts segment refs per the total order above.
func SortRefs(refs []SegmentRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
}
