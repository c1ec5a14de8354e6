package core

import (
	"context"
	"fmt"
	"time"
)

// Sweeper runs SweepSessions on a fixed interval, bounding memory growth
// from abandoned login flows. One Sweeper per process is enough; running it
// is the caller's responsibility (directly via Run or through the go-job
// adapters).
type Sweeper struct {
	service  *Service
	interval time.Duration
}

func NewSweeper(service *Service) (*Sweeper, error) {
	if service == nil {
		return nil, fmt.Errorf("core: sweeper requires a service")
	}
	interval := service.Config().Session.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{service: service, interval: interval}, nil
}

func (s *Sweeper) Interval() time.Duration {
	if s == nil {
		return 0
	}
	return s.interval
}

// Run blocks until ctx is cancelled, sweeping once per interval. The first
// sweep happens after one full interval; a fresh registry has nothing to
// evict.
func (s *Sweeper) Run(ctx context.Context) error {
	if s == nil || s.service == nil {
		return fmt.Errorf("core: sweeper is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if err := waitWithContext(ctx, s.interval); err != nil {
			return err
		}
		if _, err := s.service.SweepSessions(ctx); err != nil {
			// Sweep failures are logged by the service; the loop keeps going
			// so one bad tick cannot disable eviction.
			continue
		}
	}
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
