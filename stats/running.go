// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package stats provides windowed statistics over recent samples.
package stats

import (
	"math"

	"github.com/coffeepid/thermo/ring"
)

// Running keeps a fixed window of the most recent values and maintains their
// sum and sum of squares incrementally, so every statistic is O(1) regardless
// of the window length.
//
// The running sums accumulate floating point rounding error over long runs;
// they are never recomputed from the window, so very long-lived windows may
// report slightly inexact moments.
type Running struct {
	window *ring.Buffer[float64]
	sum    float64
	sum2   float64
}

// NewRunning creates a window holding the last capacity values.
func NewRunning(capacity int) *Running {
	return &Running{window: ring.New[float64](capacity)}
}

// Push adds v, evicting the oldest value if the window is full.
func (r *Running) Push(v float64) {
	r.sum += v
	r.sum2 += v * v
	if old, ok := r.window.PushBack(v); ok {
		r.drop(old)
	}
}

// PopFront removes and returns the oldest value, or 0 and false if empty.
func (r *Running) PopFront() (float64, bool) {
	old, ok := r.window.PopFront()
	if ok {
		r.drop(old)
	}
	return old, ok
}

func (r *Running) drop(v float64) {
	r.sum -= v
	r.sum2 -= v * v
}

// Clear empties the window and resets the sums.
func (r *Running) Clear() {
	r.window.Clear()
	r.sum = 0
	r.sum2 = 0
}

// Fill replaces the window with capacity copies of v.
func (r *Running) Fill(v float64) {
	r.Clear()
	for range r.window.Cap() {
		r.Push(v)
	}
}

// Len returns the number of values in the window.
func (r *Running) Len() int {
	return r.window.Len()
}

// Cap returns the window length.
func (r *Running) Cap() int {
	return r.window.Cap()
}

// Latest returns the most recently pushed value, or 0 if empty.
func (r *Running) Latest() float64 {
	v, _ := r.window.Back()
	return v
}

// Mean returns the arithmetic mean of the window, or 0 if empty.
func (r *Running) Mean() float64 {
	if r.window.Empty() {
		return 0
	}
	return r.sum / float64(r.window.Len())
}

// Variance returns the unbiased sample variance, or 0 for fewer than two
// values.
func (r *Running) Variance() float64 {
	n := float64(r.window.Len())
	if n <= 1 {
		return 0
	}
	mean := r.Mean()
	v := (r.sum2 - 2*mean*r.sum + n*mean*mean) / (n - 1)
	if v < 0 {
		// Rounding in the running sums can push a constant window below zero.
		return 0
	}
	return v
}

// StdDev returns the sample standard deviation.
func (r *Running) StdDev() float64 {
	return math.Sqrt(r.Variance())
}

// CoeffOfVariation returns StdDev/Mean, or 0 when the mean is 0.
func (r *Running) CoeffOfVariation() float64 {
	mean := r.Mean()
	if mean == 0 {
		return 0
	}
	return r.StdDev() / mean
}
