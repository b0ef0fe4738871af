package frontend

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/slimtgo/slimt/internal/logging"
	"github.com/slimtgo/slimt/pkg/cache"
	"github.com/slimtgo/slimt/pkg/schedule"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// Handle is the caller-facing future returned by Async.Translate: the
// eventual Response plus progress counters (spec.md §4.11).
type Handle struct {
	done chan struct{}
	resp *xlate.Response
	err  error

	completedWords   int32
	totalWords       int32
	completedSegs    int32
	totalSegs        int32
}

// Future blocks until the translation completes.
func (h *Handle) Future() (*xlate.Response, error) {
	<-h.done
	return h.resp, h.err
}

// Progress reports (completed_segments, total_segments) and
// (completed_words, total_words) snapshots (spec.md §4.11). Translate sets
// the totals when the request is built, and the completed counts jump to
// the totals when the whole request finishes; they are not advanced per
// segment while the request is in flight. A Handle from Pivot reports
// zeros.
func (h *Handle) Progress() (completedSegs, totalSegs, completedWords, totalWords int) {
	return int(atomic.LoadInt32(&h.completedSegs)), int(atomic.LoadInt32(&h.totalSegs)),
		int(atomic.LoadInt32(&h.completedWords)), int(atomic.LoadInt32(&h.totalWords))
}

func (h *Handle) fulfill(resp *xlate.Response, err error) {
	h.resp, h.err = resp, err
	close(h.done)
}

// Async is a fixed-size worker pool over a threadsafe AggregateBatcher
// (spec.md §4.11). Grounded on the teacher's pattern of supervising a
// worker fleet with a single shutdown signal; golang.org/x/sync/errgroup
// replaces the teacher's hand-rolled WaitGroup+error-channel idiom, per
// this module's domain-stack wiring decision: one canceling context
// instead of a bespoke fan-in channel for worker faults.
type Async struct {
	monitor *schedule.AggregateMonitor
	models  map[string]*Model
	mu      sync.RWMutex
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewAsync spawns workers workers, each draining batcher.Generate in a
// loop until it returns empty (spec.md §4.11).
func NewAsync(monitor *schedule.AggregateMonitor, workers int) *Async {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	a := &Async{
		monitor: monitor,
		models:  make(map[string]*Model),
		group:   g,
		ctx:     gctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		g.Go(a.workerLoop)
	}
	return a
}

// RegisterModel makes model available for Translate/Pivot calls and
// registers its Batcher with the underlying AggregateBatcher.
func (a *Async) RegisterModel(model *Model, batcher *schedule.Batcher) {
	a.mu.Lock()
	a.models[model.ID] = model
	a.mu.Unlock()
	a.monitor.Register(model.ID, batcher)
}

func (a *Async) workerLoop() error {
	for {
		modelID, b := a.monitor.Generate()
		if b.Empty() {
			return nil
		}
		a.mu.RLock()
		model := a.models[modelID]
		a.mu.RUnlock()
		if model == nil {
			logging.Warnf("async: batch drawn for unregistered model %q, dropping", modelID)
			continue
		}
		histories, err := runBatch(model, b)
		if err != nil {
			logging.Errorf("async: generation failed for model %q: %v", modelID, err)
			continue
		}
		b.Complete(histories)
	}
}

// Translate builds a Request whose continuation fulfills the returned
// Handle's future, enqueues it, and returns immediately (spec.md §4.11).
// sourceText is the original annotated text and sourceSpans holds each
// segment's byte range within it (spec.md §4.9's C10 Response fields);
// both may be empty/nil when the caller has no annotated text to report.
func (a *Async) Translate(model *Model, segments []xlate.Segment, gaps []string, sourceText string, sourceSpans [][2]int, c *cache.Cache) *Handle {
	h := &Handle{done: make(chan struct{})}
	totalWords := 0
	for _, s := range segments {
		totalWords += len(s)
	}
	atomic.StoreInt32(&h.totalSegs, int32(len(segments)))
	atomic.StoreInt32(&h.totalWords, int32(totalWords))

	req := xlate.New(nextRequestID(), model.ID, sourceText, segments, sourceSpans, gaps, model.Vocab, c, func(r *xlate.Request) {
		resp, err := xlate.BuildResponse(r)
		atomic.StoreInt32(&h.completedSegs, int32(len(segments)))
		atomic.StoreInt32(&h.completedWords, int32(totalWords))
		h.fulfill(resp, err)
	})
	a.monitor.Enqueue(model.ID, req)
	return h
}

// Shutdown signals the workers to exit once every enqueued segment has
// been drawn, and waits for them to finish.
func (a *Async) Shutdown() error {
	a.monitor.Shutdown()
	a.cancel()
	return a.group.Wait()
}

var requestIDCounter int64

func nextRequestID() uint64 {
	return uint64(atomic.AddInt64(&requestIDCounter, 1))
}
