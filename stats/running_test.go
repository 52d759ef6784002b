// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package stats_test

import (
	"math"
	"testing"

	"github.com/coffeepid/thermo/stats"
	"github.com/stretchr/testify/require"
)

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func sampleVariance(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var s float64
	for _, x := range v {
		s += (x - m) * (x - m)
	}
	return s / float64(len(v)-1)
}

func TestRunningEmpty(t *testing.T) {
	r := stats.NewRunning(4)
	require.Zero(t, r.Mean())
	require.Zero(t, r.Variance())
	require.Zero(t, r.StdDev())
	require.Zero(t, r.CoeffOfVariation())
	require.Zero(t, r.Latest())

	_, ok := r.PopFront()
	require.False(t, ok)

	r.Push(3)
	require.Equal(t, 3.0, r.Mean())
	require.Zero(t, r.Variance())
}

func TestRunningWindowAfterEviction(t *testing.T) {
	const window = 5
	r := stats.NewRunning(window)

	var pushed []float64
	for i := range 40 {
		v := math.Sin(float64(i)) * 0.5
		v += 0.5
		r.Push(v)
		pushed = append(pushed, v)

		last := pushed[max(0, len(pushed)-window):]
		require.Equal(t, len(last), r.Len())
		require.InDelta(t, mean(last), r.Mean(), 1e-9)
		require.InDelta(t, sampleVariance(last), r.Variance(), 1e-9)
		require.InDelta(t, math.Sqrt(sampleVariance(last)), r.StdDev(), 1e-6)
		require.Equal(t, v, r.Latest())
	}
}

func TestRunningPopFront(t *testing.T) {
	r := stats.NewRunning(4)
	for _, v := range []float64{1, 2, 3, 4} {
		r.Push(v)
	}

	v, ok := r.PopFront()
	require.True(t, ok)
	require.Equal(t, 1.0, v)
	require.InDelta(t, 3.0, r.Mean(), 1e-12)
	require.InDelta(t, 1.0, r.Variance(), 1e-12)
	require.InDelta(t, 1.0/3.0, r.CoeffOfVariation(), 1e-12)
}

func TestRunningFillClear(t *testing.T) {
	r := stats.NewRunning(3)
	r.Fill(0.25)
	require.Equal(t, 3, r.Len())
	require.InDelta(t, 0.25, r.Mean(), 1e-12)
	require.Zero(t, r.Variance())

	r.Clear()
	require.Zero(t, r.Len())
	require.Zero(t, r.Mean())
	require.Equal(t, 3, r.Cap())
}

func TestMedian3(t *testing.T) {
	var m stats.Median3
	require.Equal(t, 20.0, m.Push(20))
	require.Equal(t, 21.0, m.Push(21))
	require.Equal(t, 21.0, m.Push(85)) // spike
	require.Equal(t, 22.0, m.Push(22))
	require.Equal(t, 22.5, m.Push(22.5))
	require.Equal(t, 22.5, m.Push(23))
}
