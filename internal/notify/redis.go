package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sreemahi-code/abbhack/internal/simulate"
)

// DefaultStatusTTL is how long a run's status hash outlives its last update.
const DefaultStatusTTL = time.Hour

// hashStore is the slice of *redis.Client the tracker uses.
type hashStore interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// StatusTracker mirrors run status into Redis hashes so other processes can
// poll it (key sim_run:<id>).
type StatusTracker struct {
	client hashStore
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// NewStatusTracker creates a tracker. A zero ttl uses DefaultStatusTTL.
func NewStatusTracker(client hashStore, ttl time.Duration) *StatusTracker {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusTracker{client: client, ttl: ttl}
}

func statusKey(runID string) string {
	return "sim_run:" + runID
}

// RunStarted records the run as streaming.
func (t *StatusTracker) RunStarted(ctx context.Context, s simulate.Summary) error {
	s.State = simulate.StateStreaming
	return t.set(ctx, s)
}

// RunFinished records the terminal state and totals.
func (t *StatusTracker) RunFinished(ctx context.Context, s simulate.Summary) error {
	return t.set(ctx, s)
}

func (t *StatusTracker) set(ctx context.Context, s simulate.Summary) error {
	key := statusKey(s.ID)
	err := t.client.HSet(ctx, key,
		"state", string(s.State),
		"datasetId", s.DatasetID,
		"count", s.Totals.Count,
		"passCount", s.Totals.PassCount,
		"failCount", s.Totals.FailCount,
		"avgConfidence", strconv.FormatFloat(s.Totals.AvgConfidence, 'f', -1, 64),
		"error", s.Error,
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	if err := t.client.Expire(ctx, key, t.ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", key, err)
	}
	return nil
}

// Status reads back a run's status hash. An unknown run yields
// simulate.ErrRunNotFound.
func (t *StatusTracker) Status(ctx context.Context, runID string) (map[string]string, error) {
	key := statusKey(runID)
	m, err := t.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("status %s: %w", runID, simulate.ErrRunNotFound)
	}
	return m, nil
}
