package simulate

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region observer

// Observer is told when runs start and finish. Errors are logged, never
// propagated to the run.
type Observer interface {
	RunStarted(ctx context.Context, s Summary) error
	RunFinished(ctx context.Context, s Summary) error
}

const observerTimeout = 5 * time.Second

// #endregion observer

// #region registry

// Registry tracks active runs so they can be listed and cancelled.
type Registry struct {
	mu        sync.Mutex
	runs      map[string]*Run
	observers []Observer
}

// NewRegistry creates an empty registry notifying observers in order.
func NewRegistry(observers ...Observer) *Registry {
	return &Registry{
		runs:      make(map[string]*Run),
		observers: observers,
	}
}

// Open registers a new run over snap and returns it with a context that
// Cancel (or the parent) ends. Callers Start the run once the subscriber is
// ready and must Close it.
func (g *Registry) Open(parent context.Context, snap *dataset.Snapshot, start, end time.Time) (*Run, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	run := NewRun(snap, start, end)
	run.cancel = cancel

	g.mu.Lock()
	g.runs[run.ID] = run
	g.mu.Unlock()
	return run, ctx
}

// Start marks run as streaming and tells observers. Each notification is
// bounded by the observer timeout and ends early when ctx does.
func (g *Registry) Start(ctx context.Context, run *Run) {
	run.begin(time.Now().UTC())
	sum := run.Summary()
	log.Printf("simulate: run %s started (%s .. %s, %d rows)", run.ID,
		run.SimStart.Format(time.RFC3339), run.SimEnd.Format(time.RFC3339), run.Snapshot().Count(run.SimStart, run.SimEnd))
	g.notify(ctx, func(o Observer, octx context.Context) error { return o.RunStarted(octx, sum) })
}

// Close unregisters run and reports its final summary. A run closed before
// reaching a terminal state is recorded as cancelled.
func (g *Registry) Close(run *Run) {
	g.mu.Lock()
	delete(g.runs, run.ID)
	g.mu.Unlock()

	if run.cancel != nil {
		run.cancel()
	}
	if !run.State().Terminal() {
		run.finish(StateCancelled, run.Summary().Totals, nil, time.Now().UTC())
	}

	sum := run.Summary()
	if sum.Error != "" {
		log.Printf("simulate: run %s %s after %d rows: %s", sum.ID, sum.State, sum.Totals.Count, sum.Error)
	} else {
		log.Printf("simulate: run %s %s after %d rows", sum.ID, sum.State, sum.Totals.Count)
	}
	g.notify(context.Background(), func(o Observer, octx context.Context) error { return o.RunFinished(octx, sum) })
}

// Cancel stops the run with the given id.
func (g *Registry) Cancel(id string) error {
	g.mu.Lock()
	run, ok := g.runs[id]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel %s: %w", id, ErrRunNotFound)
	}
	run.cancel()
	return nil
}

// Get returns the summary of an active run.
func (g *Registry) Get(id string) (Summary, error) {
	g.mu.Lock()
	run, ok := g.runs[id]
	g.mu.Unlock()
	if !ok {
		return Summary{}, fmt.Errorf("get %s: %w", id, ErrRunNotFound)
	}
	return run.Summary(), nil
}

// List returns summaries of active runs, oldest first.
func (g *Registry) List() []Summary {
	g.mu.Lock()
	out := make([]Summary, 0, len(g.runs))
	for _, run := range g.runs {
		out = append(out, run.Summary())
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func (g *Registry) notify(ctx context.Context, call func(Observer, context.Context) error) {
	for _, o := range g.observers {
		octx, cancel := context.WithTimeout(ctx, observerTimeout)
		if err := call(o, octx); err != nil {
			log.Printf("simulate: observer %T: %v", o, err)
		}
		cancel()
	}
}

// #endregion registry
