// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package relay_test

import (
	"testing"
	"time"

	"github.com/coffeepid/thermo/relay"
	"github.com/stretchr/testify/require"
)

const ms = time.Millisecond

func TestPWMPinned(t *testing.T) {
	p := relay.NewPWM(time.Second)
	require.False(t, p.Tick(0))
	require.False(t, p.Tick(5*time.Second))

	p.SetDuty(100)
	require.True(t, p.Active())
	require.True(t, p.Tick(6*time.Second))

	p.SetDuty(150)
	require.True(t, p.Tick(7*time.Second))

	p.SetDuty(-3)
	require.False(t, p.Tick(8*time.Second))
}

func TestPWMCycle(t *testing.T) {
	p := relay.NewPWM(time.Second)
	p.SetDuty(30)

	require.False(t, p.Tick(0))
	require.False(t, p.Tick(699*ms))
	require.True(t, p.Tick(700*ms))
	require.True(t, p.Tick(999*ms))
	require.False(t, p.Tick(1000*ms))
	require.True(t, p.Tick(1700*ms))
	require.Equal(t, 30.0, p.Duty())
}

func TestPWMPeriodChangeKeepsDuty(t *testing.T) {
	p := relay.NewPWM(0)
	require.Equal(t, relay.DefaultPeriod, p.Period())

	p.SetDuty(50)
	p.SetPeriod(2 * time.Second)
	require.Equal(t, 50.0, p.Duty())

	require.False(t, p.Tick(999*ms))
	require.True(t, p.Tick(1000*ms))
	require.True(t, p.Tick(1999*ms))
	require.False(t, p.Tick(2000*ms))
}
