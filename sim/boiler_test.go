// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sim_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/sim"
)

func TestBoilerHeatsAndCools(t *testing.T) {
	b := sim.NewBoiler(1)

	temp, err := b.Temperature(0)
	require.NoError(t, err)
	require.Equal(t, sim.DefaultAmbient, temp)

	b.SetHeater(true)
	require.True(t, b.Heater())
	hot, err := b.Temperature(60 * time.Second)
	require.NoError(t, err)
	// Roughly P·t/C without losses: 1000·60/1500 = 40 K.
	require.InDelta(t, 58, hot, 2)

	b.SetHeater(false)
	cooler, err := b.Temperature(120 * time.Second)
	require.NoError(t, err)
	require.Less(t, cooler, hot)
	require.Greater(t, cooler, sim.DefaultAmbient)
}

func TestBoilerSteadyState(t *testing.T) {
	b := sim.NewBoiler(1)
	b.SetHeater(true)

	temp, err := b.Temperature(24 * time.Hour)
	require.NoError(t, err)
	require.InDelta(t, sim.DefaultAmbient+sim.DefaultHeaterPower/sim.DefaultLoss, temp, 1e-6)
}

func TestBoilerStepIndependent(t *testing.T) {
	a, b := sim.NewBoiler(1), sim.NewBoiler(1)
	a.SetHeater(true)
	b.SetHeater(true)

	for i := 1; i <= 100; i++ {
		_, err := a.Temperature(time.Duration(i) * 100 * time.Millisecond)
		require.NoError(t, err)
	}
	ta, _ := a.Temperature(10 * time.Second)
	tb, _ := b.Temperature(10 * time.Second)
	require.InDelta(t, tb, ta, 1e-9)
}

func TestBoilerNoiseReproducible(t *testing.T) {
	a, b := sim.NewBoiler(7), sim.NewBoiler(7)
	a.Noise, b.Noise = 0.05, 0.05

	for i := range 10 {
		now := time.Duration(i) * time.Second
		ta, _ := a.Temperature(now)
		tb, _ := b.Temperature(now)
		require.Equal(t, ta, tb)
		require.InDelta(t, sim.DefaultAmbient, ta, 0.5)
	}
}

func TestBoilerBackwards(t *testing.T) {
	b := sim.NewBoiler(1)
	_, err := b.Temperature(time.Second)
	require.NoError(t, err)

	_, err = b.Temperature(0)
	require.True(t, errors.IsKind(err, errors.ArgumentInvalid))
}
