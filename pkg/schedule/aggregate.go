package schedule

import "github.com/slimtgo/slimt/pkg/xlate"

// AggregateBatcher maintains an ordered set of models with pending work,
// coordinating batch draws across them (spec.md §4.8).
type AggregateBatcher struct {
	order    []string
	present  map[string]struct{}
	batchers map[string]*Batcher
}

// NewAggregateBatcher constructs an empty AggregateBatcher.
func NewAggregateBatcher() *AggregateBatcher {
	return &AggregateBatcher{present: make(map[string]struct{}), batchers: make(map[string]*Batcher)}
}

// Register associates a model id with its Batcher. Must be called before
// Enqueue references that model id.
func (a *AggregateBatcher) Register(modelID string, b *Batcher) {
	a.batchers[modelID] = b
}

// Enqueue delegates to the named model's Batcher and inserts the model
// into the pending set if it isn't already present (spec.md §4.8).
func (a *AggregateBatcher) Enqueue(modelID string, req *xlate.Request) int {
	n := a.batchers[modelID].Enqueue(req)
	if _, ok := a.present[modelID]; !ok {
		a.present[modelID] = struct{}{}
		a.order = append(a.order, modelID)
	}
	return n
}

// Generate pops models in insertion order, asking each for a batch, and
// returns the first non-empty batch along with its owning model id;
// models whose Batcher returns empty are dropped from the set (spec.md
// §4.8).
func (a *AggregateBatcher) Generate() (string, *Batch) {
	for len(a.order) > 0 {
		modelID := a.order[0]
		b := a.batchers[modelID].Generate()
		if !b.Empty() {
			return modelID, b
		}
		a.order = a.order[1:]
		delete(a.present, modelID)
	}
	return "", &Batch{}
}
