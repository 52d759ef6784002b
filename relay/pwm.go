// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package relay drives a slow on/off actuator (such as a heater relay) with a
// low-frequency PWM signal.
package relay

import (
	"math"
	"time"
)

// PWM toggles a relay so that it is active for duty percent of each period.
// It never blocks: Tick must be called as often as possible with the current
// monotonic time.
type PWM struct {
	period time.Duration
	duty   float64
	on     time.Duration // active part of the period
	active bool
	cycle  bool // false when pinned fully on or off
	last   time.Duration
}

// DefaultPeriod is the PWM period used when none is configured.
const DefaultPeriod = time.Second

// NewPWM creates an inactive relay with the given period.
func NewPWM(period time.Duration) *PWM {
	p := &PWM{}
	p.SetPeriod(period)
	return p
}

// SetDuty sets the fraction of each period the relay is active, in percent.
// Values at or below 0 and at or above 100 pin the relay off or on.
func (p *PWM) SetDuty(duty float64) {
	if duty == p.duty {
		return
	}
	p.duty = duty
	p.on = time.Duration(math.Round(duty * float64(p.period) / 100))
	p.cycle = false

	switch {
	case p.on <= 0:
		p.on = 0
		p.active = false
	case p.on >= p.period:
		p.on = p.period
		p.active = true
	default:
		p.cycle = true
	}
}

// Duty returns the configured duty in percent.
func (p *PWM) Duty() float64 {
	return p.duty
}

// SetPeriod changes the PWM period, keeping the duty.
func (p *PWM) SetPeriod(period time.Duration) {
	if period <= 0 {
		period = DefaultPeriod
	}
	p.period = period
	duty := p.duty
	p.duty = math.NaN()
	p.SetDuty(duty)
}

// Period returns the PWM period.
func (p *PWM) Period() time.Duration {
	return p.period
}

// Tick advances the relay to now and returns whether it is active.
func (p *PWM) Tick(now time.Duration) bool {
	if !p.cycle {
		return p.active
	}
	phase := p.period - p.on
	if p.active {
		phase = p.on
	}
	if now-p.last >= phase {
		p.last = now
		p.active = !p.active
	}
	return p.active
}

// Active returns whether the relay is currently active.
func (p *PWM) Active() bool {
	return p.active
}
