package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Refresher recomputes cached rankings. Implemented by the HTTP server.
type Refresher interface {
	RefreshTrending(ctx context.Context) error
}

// Scheduler periodically refreshes the trending cache so interactive
// requests hit warm entries.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
}

// New creates a new scheduler.
func New(r Refresher, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{refresher: r, interval: interval}
}

// Run starts the refresh loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Warm the cache immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial trending refresh...")
	s.refresh(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (refresh every %s)\n", s.interval)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	start := time.Now()
	if err := s.refresher.RefreshTrending(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "  trending refresh error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "  trending refreshed in %s\n", time.Since(start).Round(time.Millisecond))
}
