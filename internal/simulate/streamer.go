package simulate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sreemahi-code/abbhack/internal/scoring"
)

// #region sink

// Sink receives events in order. A Send error means the subscriber is gone.
type Sink interface {
	Send(msg any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(msg any) error

// Send calls f(msg).
func (f SinkFunc) Send(msg any) error { return f(msg) }

// #endregion sink

// #region streamer

// DefaultInterval is the pause between events.
const DefaultInterval = time.Second

// Streamer replays a run's rows through a scorer, one event per row.
type Streamer struct {
	scorer   scoring.Scorer
	interval time.Duration

	// Now supplies event timestamps for rows without a parsable one.
	Now func() time.Time
}

// NewStreamer creates a streamer that waits interval after each event.
// A zero interval disables pacing.
func NewStreamer(scorer scoring.Scorer, interval time.Duration) *Streamer {
	return &Streamer{
		scorer:   scorer,
		interval: interval,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// #endregion streamer

// #region run

// Run streams run to sink until the range is exhausted, ctx is done, the
// sink fails, or scoring fails for good. It returns the terminal state.
// A nil error means StateCompleted.
//
// Only a completed run emits Done; a failed run emits Failure; a cancelled
// run emits nothing further.
func (s *Streamer) Run(ctx context.Context, run *Run, sink Sink) (State, error) {
	run.begin(s.Now())
	snap := run.Snapshot()
	schema := snap.Schema()

	var totals Totals
	for row := range snap.Rows(run.SimStart, run.SimEnd) {
		if err := ctx.Err(); err != nil {
			return run.finish(StateCancelled, totals, err, s.Now())
		}

		pred, err := s.scorer.Score(ctx, Features(schema, row))
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return run.finish(StateCancelled, totals, cerr, s.Now())
			}
			serr := fmt.Errorf("score row %d: %w", totals.Count+1, err)
			if werr := sink.Send(Failure{Done: true, Error: serr.Error(), Totals: totals}); werr != nil {
				log.Printf("simulate: run %s: write failure event: %v", run.ID, werr)
			}
			return run.finish(StateFailed, totals, serr, s.Now())
		}

		totals.Add(pred)
		ts, ok := schema.Timestamp(row)
		if !ok {
			ts = s.Now()
		}
		ev := Event{
			Timestamp:  ts,
			ID:         eventID(schema, row, totals.Count),
			Prediction: pred.Label,
			Confidence: pred.Confidence,
			Telemetry:  Telemetry(schema, row),
			Totals:     totals,
		}

		if err := ctx.Err(); err != nil {
			return run.finish(StateCancelled, totals, err, s.Now())
		}
		if err := sink.Send(ev); err != nil {
			return run.finish(StateCancelled, totals, fmt.Errorf("write event: %w", err), s.Now())
		}
		run.progress(totals)

		if err := s.pace(ctx); err != nil {
			return run.finish(StateCancelled, totals, err, s.Now())
		}
	}

	if err := ctx.Err(); err != nil {
		return run.finish(StateCancelled, totals, err, s.Now())
	}
	if err := sink.Send(Done{Done: true, Totals: totals}); err != nil {
		return run.finish(StateCancelled, totals, fmt.Errorf("write done event: %w", err), s.Now())
	}
	return run.finish(StateCompleted, totals, nil, s.Now())
}

// pace waits one interval or until ctx is done.
func (s *Streamer) pace(ctx context.Context) error {
	if s.interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// #endregion run
