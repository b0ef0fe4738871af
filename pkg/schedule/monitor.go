package schedule

import (
	"sync"

	"github.com/slimtgo/slimt/pkg/xlate"
)

// core is the shared mutex+condvar bookkeeping spec.md §4.8 describes for
// the threadsafe monitor: a single mutex guards the backend, a condition
// variable is signaled on enqueue and on shutdown, and generate() waits
// while nothing is pending and shutdown hasn't been requested.
type core struct {
	mu       sync.Mutex
	cond     *sync.Cond
	enqueued int
	shutdown bool
}

func newCore() *core {
	c := &core{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// waitForWork returns with c.mu held; the caller must unlock it.
func (c *core) waitForWork() (proceed bool) {
	c.mu.Lock()
	for c.enqueued == 0 && !c.shutdown {
		c.cond.Wait()
	}
	proceed = !(c.enqueued == 0 && c.shutdown)
	return proceed
}

func (c *core) noteEnqueued(n int) {
	c.mu.Lock()
	c.enqueued += n
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *core) noteDrained(n int) {
	c.mu.Lock()
	c.enqueued -= n
	if c.enqueued < 0 {
		c.enqueued = 0
	}
	c.mu.Unlock()
}

// Shutdown sets the shutdown flag and wakes every waiter. Workers
// observing shutdown with nothing enqueued return an empty batch and
// exit their loop.
func (c *core) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// BatcherMonitor is a threadsafe wrapper around a single model's Batcher
// (spec.md §4.8).
type BatcherMonitor struct {
	*core
	backend *Batcher
}

func NewBatcherMonitor(b *Batcher) *BatcherMonitor {
	return &BatcherMonitor{core: newCore(), backend: b}
}

func (m *BatcherMonitor) Enqueue(req *xlate.Request) int {
	m.mu.Lock()
	n := m.backend.Enqueue(req)
	m.mu.Unlock()
	m.noteEnqueued(n)
	return n
}

// Generate blocks until work is available or shutdown, then draws one
// batch. Returns an empty batch on shutdown with nothing pending.
func (m *BatcherMonitor) Generate() *Batch {
	if !m.waitForWork() {
		m.mu.Unlock()
		return &Batch{}
	}
	b := m.backend.Generate()
	m.enqueued -= len(b.Refs)
	if m.enqueued < 0 {
		m.enqueued = 0
	}
	m.mu.Unlock()
	return b
}

// Clear drops all pending work without invoking continuations; callers
// must ensure no promise is left unfulfilled (spec.md §5).
func (m *BatcherMonitor) Clear() {
	m.mu.Lock()
	m.backend = NewBatcher(m.backend.padID, m.backend.maxWords, m.backend.limitFactor)
	m.mu.Unlock()
	m.mu.Lock()
	m.enqueued = 0
	m.mu.Unlock()
}

// AggregateMonitor is a threadsafe wrapper around an AggregateBatcher
// spanning multiple models (spec.md §4.8).
type AggregateMonitor struct {
	*core
	backend *AggregateBatcher
}

func NewAggregateMonitor(a *AggregateBatcher) *AggregateMonitor {
	return &AggregateMonitor{core: newCore(), backend: a}
}

// Register associates a model id with its Batcher on the underlying
// AggregateBatcher.
func (m *AggregateMonitor) Register(modelID string, b *Batcher) {
	m.mu.Lock()
	m.backend.Register(modelID, b)
	m.mu.Unlock()
}

func (m *AggregateMonitor) Enqueue(modelID string, req *xlate.Request) int {
	m.mu.Lock()
	n := m.backend.Enqueue(modelID, req)
	m.mu.Unlock()
	m.noteEnqueued(n)
	return n
}

func (m *AggregateMonitor) Generate() (string, *Batch) {
	if !m.waitForWork() {
		m.mu.Unlock()
		return "", &Batch{}
	}
	modelID, b := m.backend.Generate()
	m.enqueued -= len(b.Refs)
	if m.enqueued < 0 {
		m.enqueued = 0
	}
	m.mu.Unlock()
	return modelID, b
}

func (m *AggregateMonitor) Clear() {
	m.mu.Lock()
	m.backend = NewAggregateBatcher()
	m.enqueued = 0
	m.mu.Unlock()
}
