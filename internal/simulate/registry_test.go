package simulate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	started  []Summary
	finished []Summary
	err      error
}

func (o *recordingObserver) RunStarted(_ context.Context, s Summary) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, s)
	return o.err
}

func (o *recordingObserver) RunFinished(_ context.Context, s Summary) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, s)
	return o.err
}

func TestRegistry_OpenListClose(t *testing.T) {
	obs := &recordingObserver{}
	reg := NewRegistry(obs)
	snap := snapshotOf(t, nRows(2)...)

	run, ctx := reg.Open(context.Background(), snap, simStart, simEnd)
	require.NotEmpty(t, run.ID)
	require.NoError(t, ctx.Err())

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, run.ID, list[0].ID)
	assert.Equal(t, StateIdle, list[0].State)
	assert.Empty(t, obs.started, "observers hear about a run once it starts")

	reg.Start(ctx, run)
	require.Len(t, obs.started, 1)
	assert.Equal(t, run.ID, obs.started[0].ID)
	assert.Equal(t, StateStreaming, obs.started[0].State)
	assert.False(t, obs.started[0].StartedAt.IsZero())

	_, err := NewStreamer(&stubScorer{}, 0).Run(ctx, run, &recorder{})
	require.NoError(t, err)
	reg.Close(run)

	assert.Empty(t, reg.List())
	assert.Error(t, ctx.Err(), "close releases the run context")
	require.Len(t, obs.finished, 1)
	assert.Equal(t, StateCompleted, obs.finished[0].State)
	assert.Equal(t, 2, obs.finished[0].Totals.Count)
}

// blockingObserver waits for its context on every call.
type blockingObserver struct{}

func (blockingObserver) RunStarted(ctx context.Context, _ Summary) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingObserver) RunFinished(context.Context, Summary) error { return nil }

func TestRegistry_StartHonorsCallerCancel(t *testing.T) {
	reg := NewRegistry(blockingObserver{}, blockingObserver{})
	run, ctx := reg.Open(context.Background(), snapshotOf(t, nRows(1)...), simStart, simEnd)
	require.NoError(t, reg.Cancel(run.ID))

	begun := time.Now()
	reg.Start(ctx, run)
	assert.Less(t, time.Since(begun), time.Second, "a cancelled caller must not wait out the observer timeout")
	reg.Close(run)
	assert.Equal(t, StateCancelled, run.State())
}

func TestRegistry_StartAfterTerminalKeepsState(t *testing.T) {
	reg := NewRegistry()
	run, ctx := reg.Open(context.Background(), snapshotOf(t, nRows(1)...), simStart, simEnd)
	reg.Close(run)
	reg.Start(ctx, run)
	assert.Equal(t, StateCancelled, run.State())
}

func TestRegistry_CancelStopsRun(t *testing.T) {
	reg := NewRegistry()
	snap := snapshotOf(t, nRows(10)...)
	run, ctx := reg.Open(context.Background(), snap, simStart, simEnd)
	defer reg.Close(run)

	sink := &recorder{onSend: func(n int) {
		if n == 2 {
			require.NoError(t, reg.Cancel(run.ID))
		}
	}}
	state, err := NewStreamer(&stubScorer{}, 10*time.Millisecond).Run(ctx, run, sink)
	assert.Equal(t, StateCancelled, state)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.msgs, 2)
}

func TestRegistry_UnknownRun(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.Cancel("nope"), ErrRunNotFound)
	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRegistry_CloseWithoutStreamingIsCancelled(t *testing.T) {
	obs := &recordingObserver{err: errors.New("observer down")}
	reg := NewRegistry(obs)
	run, _ := reg.Open(context.Background(), snapshotOf(t), simStart, simEnd)

	reg.Close(run)

	assert.Equal(t, StateCancelled, run.State())
	require.Len(t, obs.finished, 1, "observer errors do not stop notification")
	assert.Equal(t, StateCancelled, obs.finished[0].State)
}

func TestRegistry_GetReportsProgress(t *testing.T) {
	reg := NewRegistry()
	run, ctx := reg.Open(context.Background(), snapshotOf(t, nRows(3)...), simStart, simEnd)
	defer reg.Close(run)

	var mid Summary
	sink := &recorder{onSend: func(n int) {
		if n == 2 {
			s, err := reg.Get(run.ID)
			require.NoError(t, err)
			mid = s
		}
	}}
	_, err := NewStreamer(&stubScorer{}, 0).Run(ctx, run, sink)
	require.NoError(t, err)

	assert.Equal(t, StateStreaming, mid.State)
	assert.Equal(t, 1, mid.Totals.Count, "progress is recorded after the event is written")
}
