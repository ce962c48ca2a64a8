package simulate

import (
	"errors"
	"time"

	"github.com/sreemahi-code/abbhack/internal/scoring"
)

// ErrRunNotFound is returned when a run id is not registered.
var ErrRunNotFound = errors.New("simulation run not found")

// #region state

// State is the lifecycle position of one simulation run.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// #endregion state

// #region totals

// Totals are the running statistics of one run.
type Totals struct {
	Count         int     `json:"count"`
	PassCount     int     `json:"passCount"`
	FailCount     int     `json:"failCount"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// Add folds one prediction in. The mean is updated incrementally so results
// depend on row order the same way a streaming consumer's would.
func (t *Totals) Add(p scoring.Prediction) {
	t.Count++
	if p.Label == 1 {
		t.PassCount++
	} else {
		t.FailCount++
	}
	t.AvgConfidence = (t.AvgConfidence*float64(t.Count-1) + p.Confidence) / float64(t.Count)
}

// #endregion totals

// #region events

// Event is emitted once per scored row. Totals is a copy taken at emit time.
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	ID         int64          `json:"id"`
	Prediction int            `json:"prediction"`
	Confidence float64        `json:"confidence"`
	Telemetry  map[string]any `json:"telemetry"`
	Totals     Totals         `json:"totals"`
}

// Done is the terminal event of a completed run.
type Done struct {
	Done   bool   `json:"done"`
	Totals Totals `json:"totals"`
}

// Failure is the terminal event of a run that hit an unrecoverable scoring error.
type Failure struct {
	Done   bool   `json:"done"`
	Error  string `json:"error"`
	Totals Totals `json:"totals"`
}

// #endregion events

// #region summary

// Summary describes a run for listings and observers.
type Summary struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"datasetId,omitempty"`
	SimStart  time.Time `json:"simStart"`
	SimEnd    time.Time `json:"simEnd"`
	State     State     `json:"state"`
	Totals    Totals    `json:"totals"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	EndedAt   time.Time `json:"endedAt,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// #endregion summary
