package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Interval bounds the jittered delay between two generations on a lane.
type Interval struct {
	Min time.Duration
	Max time.Duration
}

type scheduled struct {
	lane *Lane
	iv   Interval
}

// Runner drives one generation goroutine per lane until its context ends.
type Runner struct {
	logger *slog.Logger
	lanes  []scheduled
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

func (r *Runner) Add(l *Lane, iv Interval) {
	if iv.Max < iv.Min {
		iv.Max = iv.Min
	}
	r.lanes = append(r.lanes, scheduled{lane: l, iv: iv})
}

// Run blocks until ctx is done and every lane loop has returned.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.lanes) == 0 {
		return fmt.Errorf("runner: no lanes configured")
	}
	var wg sync.WaitGroup
	for _, s := range r.lanes {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx, s)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Runner) loop(ctx context.Context, s scheduled) {
	lg := r.logger.With("lane", s.lane.Name())
	lg.Info("lane started", "min_interval", s.iv.Min, "max_interval", s.iv.Max)
	timer := time.NewTimer(s.lane.NextDelay(s.iv.Min, s.iv.Max))
	defer timer.Stop()
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			lg.Info("lane stopped", "generated", n-1, "reason", ctx.Err())
			return
		case <-timer.C:
			s.lane.Generate(fmt.Sprintf("%s-%d", s.lane.Name(), n))
			timer.Reset(s.lane.NextDelay(s.iv.Min, s.iv.Max))
		}
	}
}
