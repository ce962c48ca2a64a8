package simulate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// Run is one simulation over a fixed snapshot and range. The snapshot is
// taken when the run is created, so a later upload does not affect it.
type Run struct {
	ID       string
	SimStart time.Time
	SimEnd   time.Time

	snap *dataset.Snapshot

	mu        sync.Mutex
	state     State
	totals    Totals
	startedAt time.Time
	endedAt   time.Time
	errMsg    string
	cancel    context.CancelFunc
}

// NewRun creates an idle run with a fresh id.
func NewRun(snap *dataset.Snapshot, start, end time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		SimStart:  start,
		SimEnd:    end,
		snap:      snap,
		state:     StateIdle,
		startedAt: time.Now().UTC(),
	}
}

// Snapshot returns the dataset view the run iterates.
func (r *Run) Snapshot() *dataset.Snapshot {
	return r.snap
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Summary returns a point-in-time copy of the run's status.
func (r *Run) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		ID:        r.ID,
		DatasetID: r.snap.Meta().ID,
		SimStart:  r.SimStart,
		SimEnd:    r.SimEnd,
		State:     r.state,
		Totals:    r.totals,
		StartedAt: r.startedAt,
		EndedAt:   r.endedAt,
		Error:     r.errMsg,
	}
}

func (r *Run) begin(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = StateStreaming
	if r.startedAt.IsZero() {
		r.startedAt = now
	}
}

func (r *Run) progress(t Totals) {
	r.mu.Lock()
	r.totals = t
	r.mu.Unlock()
}

// finish records a terminal state. The first terminal state wins.
func (r *Run) finish(state State, t Totals, err error, now time.Time) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return r.state, err
	}
	r.state = state
	r.totals = t
	r.endedAt = now
	if state == StateFailed && err != nil {
		r.errMsg = err.Error()
	}
	return state, err
}
