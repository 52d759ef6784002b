// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package sim provides a lumped thermal model of an espresso machine boiler,
// used as the temperature source when no sensor is attached.
package sim

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/coffeepid/thermo/errors"
)

// Boiler integrates heater input against losses to ambient:
//
//	C dT/dt = P·heater - k (T - ambient)
//
// It is driven by explicit uptime; calls must not go backwards in time.
type Boiler struct {
	// Ambient temperature (°C).
	Ambient float64
	// HeaterPower is the element's output when on (W).
	HeaterPower float64
	// HeatCapacity of the water and boiler mass (J/K).
	HeatCapacity float64
	// Loss is the conductance to ambient (W/K).
	Loss float64
	// Noise is the standard deviation of the reading noise (°C).
	Noise float64

	temp   float64
	heater bool
	last   time.Duration
	rng    *rand.Rand
}

// Parameters of a small single-boiler machine.
const (
	DefaultAmbient      = 20.0
	DefaultHeaterPower  = 1000.0
	DefaultHeatCapacity = 1500.0
	DefaultLoss         = 2.5
)

// NewBoiler creates a boiler at ambient temperature with the default
// parameters. The seed makes the reading noise reproducible.
func NewBoiler(seed uint64) *Boiler {
	return &Boiler{
		Ambient:      DefaultAmbient,
		HeaterPower:  DefaultHeaterPower,
		HeatCapacity: DefaultHeatCapacity,
		Loss:         DefaultLoss,
		temp:         DefaultAmbient,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// SetHeater switches the heating element.
func (b *Boiler) SetHeater(on bool) {
	b.heater = on
}

// Heater reports whether the heating element is on.
func (b *Boiler) Heater() bool {
	return b.heater
}

// SetTemperature overrides the modelled water temperature.
func (b *Boiler) SetTemperature(t float64) {
	b.temp = t
}

// Temperature advances the model to now and returns a reading.
func (b *Boiler) Temperature(now time.Duration) (float64, error) {
	if now < b.last {
		return 0, &errors.Error{
			Message:       "boiler time went backwards",
			Kind:          errors.ArgumentInvalid,
			PropertyName:  "now",
			PropertyValue: now,
		}
	}
	if b.HeatCapacity <= 0 {
		return 0, &errors.Error{
			Message:       "heat capacity must be positive",
			Kind:          errors.StateInvalid,
			PropertyName:  "HeatCapacity",
			PropertyValue: b.HeatCapacity,
		}
	}

	dt := (now - b.last).Seconds()
	b.last = now

	var input float64
	if b.heater {
		input = b.HeaterPower
	}

	// Exact solution of the linear ODE over the step, so large steps stay
	// stable.
	if b.Loss > 0 {
		steady := b.Ambient + input/b.Loss
		b.temp = steady + (b.temp-steady)*math.Exp(-b.Loss*dt/b.HeatCapacity)
	} else {
		b.temp += input * dt / b.HeatCapacity
	}

	reading := b.temp
	if b.Noise > 0 && b.rng != nil {
		reading += b.rng.NormFloat64() * b.Noise
	}
	return reading, nil
}
