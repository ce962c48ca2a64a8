package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// scriptedScorer returns errs in order, then succeeds.
type scriptedScorer struct {
	errs  []error
	calls int
}

func (s *scriptedScorer) Score(ctx context.Context, _ Features) (Prediction, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return Prediction{}, s.errs[s.calls-1]
	}
	return Prediction{Label: 1, Confidence: 0.9}, nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrying_RecoversFromTransient(t *testing.T) {
	next := &scriptedScorer{errs: []error{transient(errors.New("down")), transient(errors.New("still down"))}}
	r := NewRetrying(next, fastPolicy())

	p, err := r.Score(context.Background(), Features{})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if p.Label != 1 || next.calls != 3 {
		t.Errorf("expected label 1 after 3 calls, got %+v after %d", p, next.calls)
	}
}

func TestRetrying_GivesUpAfterMaxRetries(t *testing.T) {
	next := &scriptedScorer{errs: []error{
		transient(errors.New("a")), transient(errors.New("b")), transient(errors.New("c")), transient(errors.New("d")),
	}}
	r := NewRetrying(next, fastPolicy())

	_, err := r.Score(context.Background(), Features{})
	if err == nil {
		t.Fatal("expected error")
	}
	if next.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", next.calls)
	}
	if !strings.Contains(err.Error(), "gave up after 3 attempts") {
		t.Errorf("unexpected message: %v", err)
	}
	if !IsTransient(err) {
		t.Errorf("expected classification preserved through wrap, got %v", err)
	}
}

func TestRetrying_PermanentNotRetried(t *testing.T) {
	next := &scriptedScorer{errs: []error{permanent(errors.New("bad schema"))}}
	r := NewRetrying(next, fastPolicy())

	_, err := r.Score(context.Background(), Features{})
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected permanent, got %v", err)
	}
	if next.calls != 1 {
		t.Errorf("expected a single attempt, got %d", next.calls)
	}
}

func TestRetrying_CancelDuringBackoff(t *testing.T) {
	next := &scriptedScorer{errs: []error{transient(errors.New("down")), transient(errors.New("down"))}}
	r := NewRetrying(next, RetryPolicy{MaxRetries: 2, BaseDelay: time.Hour, MaxDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := r.Score(ctx, Features{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff wait was not interrupted")
	}
	if next.calls != 1 {
		t.Errorf("expected 1 call before cancel, got %d", next.calls)
	}
}

func TestRetrying_Backoff(t *testing.T) {
	r := NewRetrying(nil, DefaultRetryPolicy())
	want := []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, 1600 * time.Millisecond, 2 * time.Second}
	for i, w := range want {
		if got := r.Backoff(i); got != w {
			t.Errorf("Backoff(%d) = %s, want %s", i, got, w)
		}
	}
}

func TestRetrying_ShouldRetry(t *testing.T) {
	r := NewRetrying(nil, DefaultRetryPolicy())
	if !r.ShouldRetry(0, transient(errors.New("x"))) {
		t.Error("first transient failure should retry")
	}
	if r.ShouldRetry(2, transient(errors.New("x"))) {
		t.Error("should not retry after MaxRetries")
	}
	if r.ShouldRetry(0, permanent(errors.New("x"))) {
		t.Error("permanent failure should not retry")
	}
	if r.ShouldRetry(0, errors.New("unclassified")) {
		t.Error("unclassified failure should not retry")
	}
}
