package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (c *countingRefresher) RefreshTrending(ctx context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestRunRefreshesImmediatelyAndOnTick(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	// One immediate refresh plus at least one tick.
	if n := r.calls.Load(); n < 2 {
		t.Errorf("expected at least 2 refreshes, got %d", n)
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&countingRefresher{}, 0)
	if s.interval != 5*time.Minute {
		t.Errorf("zero interval should default to 5m, got %s", s.interval)
	}
}
