// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/coffeepid/thermo/internal/log"
	"github.com/coffeepid/thermo/internal/wallclock"
)

type (
	// Task is an attempt at an operation. It returns whether a failure may be
	// retried.
	Task = func(context.Context) (retry bool, err error)

	// Backoff retries a task with exponentially growing pauses between
	// attempts.
	Backoff struct {
		// MaxAttempts bounds the number of attempts; 0 means unlimited.
		MaxAttempts int
		// MinInterval is the first pause. Defaults to 1/8s.
		MinInterval time.Duration
		// MaxInterval caps the pause (before jitter). Defaults to 10s.
		MaxInterval time.Duration
		// NoJitter disables the ±5% randomisation of each pause.
		NoJitter bool
		Logger   *slog.Logger
	}
)

// Run calls task until it succeeds, reports a permanent failure, runs out of
// attempts or ctx is done. It returns the last error.
func (b *Backoff) Run(ctx context.Context, name string, task Task) error {
	l := log.Wrap(b.Logger)

	for attempt := 1; ; attempt++ {
		retry, err := task(ctx)
		if err == nil {
			if attempt > 1 {
				l.Info(ctx, "retry succeeded",
					slog.String("task", name),
					slog.Int("attempt", attempt))
			}
			return nil
		}

		pause := b.pause(ctx, attempt, retry)
		if pause == 0 {
			return err
		}
		l.Warn(ctx, "attempt failed",
			slog.String("task", name),
			slog.Int("attempt", attempt),
			slog.Duration("pause", pause),
			slog.String("error", err.Error()))

		t := wallclock.Instance.NewTicker(pause)
		select {
		case <-t.C():
			t.Stop()
		case <-ctx.Done():
			t.Stop()
			return err
		}
	}
}

// pause returns how long to wait before the next attempt, or 0 to stop.
func (b *Backoff) pause(ctx context.Context, attempt int, retry bool) time.Duration {
	if !retry || attempt == b.MaxAttempts || ctx.Err() != nil {
		return 0
	}

	lo := b.MinInterval
	if lo <= 0 {
		lo = time.Second / 8
	}
	hi := b.MaxInterval
	if hi <= 0 {
		hi = 10 * time.Second
	}
	hi = max(hi, lo)

	factor := math.Pow(2, min(
		float64(attempt-1),
		math.Log2(float64(hi)/float64(lo)),
	))
	if !b.NoJitter {
		// #nosec G404
		factor *= .95 + .1*rand.Float64()
	}
	return time.Duration(factor * float64(lo))
}
