// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package wallclock

import "time"

type (
	// WallClock abstracts a subset of functionality from package time.
	WallClock interface {
		NewTicker(d time.Duration) Ticker
		Now() time.Time
	}

	// Ticker abstracts the functionality of time.Ticker.
	Ticker interface {
		C() <-chan time.Time
		Stop()
	}

	wallClock struct{}

	ticker struct {
		*time.Ticker
	}
)

// NewTicker indirects time.NewTicker.
func (wallClock) NewTicker(d time.Duration) Ticker {
	return ticker{Ticker: time.NewTicker(d)}
}

// Now indirects time.Now.
func (wallClock) Now() time.Time {
	return time.Now()
}

// C indirects time.Ticker.C.
func (t ticker) C() <-chan time.Time {
	return t.Ticker.C
}

// Instance is a WallClock singleton used for indirect time-based references to
// package time. Test code can set the instance to interpose on functions and
// control apparent time.
var Instance WallClock = wallClock{}

// Uptime measures monotonic milliseconds elapsed since a fixed boot instant,
// which is the time base used for stored samples.
type Uptime struct{ boot time.Time }

// NewUptime starts an uptime counter at the current instant.
func NewUptime() Uptime {
	return Uptime{boot: Instance.Now()}
}

// Millis returns the milliseconds elapsed since boot as of t.
func (u Uptime) Millis(t time.Time) uint64 {
	d := t.Sub(u.boot)
	if d < 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}

// Since returns the duration elapsed since boot as of t.
func (u Uptime) Since(t time.Time) time.Duration {
	return t.Sub(u.boot)
}
