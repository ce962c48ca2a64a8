package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sreemahi-code/abbhack/internal/simulate"
)

// #region redis-mock

type fakeRedis struct {
	hashes  map[string]map[string]string
	ttls    map[string]time.Duration
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: map[string]map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.failSet != nil {
		return redis.NewIntResult(0, f.failSet)
	}
	h, ok := f.hashes[key]
	if !ok {
		h = map[string]string{}
		f.hashes[key] = h
	}
	for i := 0; i+1 < len(values); i += 2 {
		h[fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	return redis.NewMapStringStringResult(f.hashes[key], nil)
}

// #endregion redis-mock

func summary(state simulate.State) simulate.Summary {
	return simulate.Summary{
		ID:        "run-1",
		DatasetID: "ds-1",
		State:     state,
		Totals:    simulate.Totals{Count: 4, PassCount: 3, FailCount: 1, AvgConfidence: 0.625},
	}
}

// #region tracker-tests

func TestStatusTracker_Lifecycle(t *testing.T) {
	fr := newFakeRedis()
	tr := NewStatusTracker(fr, 0)
	ctx := context.Background()

	require.NoError(t, tr.RunStarted(ctx, summary(simulate.StateIdle)))
	st, err := tr.Status(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "streaming", st["state"])
	assert.Equal(t, DefaultStatusTTL, fr.ttls["sim_run:run-1"])

	require.NoError(t, tr.RunFinished(ctx, summary(simulate.StateCompleted)))
	st, err = tr.Status(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", st["state"])
	assert.Equal(t, "4", st["count"])
	assert.Equal(t, "0.625", st["avgConfidence"])
	assert.Equal(t, "ds-1", st["datasetId"])
}

func TestStatusTracker_UnknownRun(t *testing.T) {
	tr := NewStatusTracker(newFakeRedis(), time.Minute)
	_, err := tr.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, simulate.ErrRunNotFound)
}

func TestStatusTracker_WriteError(t *testing.T) {
	fr := newFakeRedis()
	fr.failSet = errors.New("connection refused")
	tr := NewStatusTracker(fr, time.Minute)
	err := tr.RunFinished(context.Background(), summary(simulate.StateFailed))
	assert.ErrorContains(t, err, "connection refused")
}

// #endregion tracker-tests

// #region publisher-tests

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	exchange  string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_RoutingKeys(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisherWithChannel(ch, DefaultExchange, DefaultRoutingKey)
	ctx := context.Background()

	require.NoError(t, p.RunStarted(ctx, summary(simulate.StateIdle)))
	require.NoError(t, p.RunFinished(ctx, summary(simulate.StateCancelled)))

	assert.Equal(t, "simulation", ch.exchange)
	assert.Equal(t, []string{"simulation.run.started", "simulation.run.cancelled"}, ch.keys)

	msg := ch.published[1]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "run-1", msg.MessageId)
	var got simulate.Summary
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, simulate.StateCancelled, got.State)
	assert.Equal(t, 4, got.Totals.Count)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_Error(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := NewPublisherWithChannel(ch, DefaultExchange, DefaultRoutingKey)
	err := p.RunFinished(context.Background(), summary(simulate.StateCompleted))
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

// #endregion publisher-tests
