// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package service

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coffeepid/thermo/internal/options"
	"github.com/coffeepid/thermo/transport"
)

type (
	// Option represents a single service option.
	Option interface{ service(*Options) }

	// Options are the resolved service options.
	Options struct {
		Target         float64
		Gain           float64
		PowerWindow    int
		RelayPeriod    time.Duration
		TickInterval   time.Duration
		StatusInterval time.Duration
		RequestQueue   int

		Heater      Heater
		Broadcaster transport.Broadcaster
		Registerer  prometheus.Registerer
		Logger      *slog.Logger
	}

	// WithTarget sets the temperature setpoint (°C).
	WithTarget float64

	// WithGain sets the proportional gain in percent duty per kelvin.
	WithGain float64

	// WithPowerWindow sets how many ticks the mean power is averaged over.
	WithPowerWindow int

	// WithRelayPeriod sets the heater PWM period.
	WithRelayPeriod time.Duration

	// WithTickInterval sets the polling interval used by Run.
	WithTickInterval time.Duration

	// WithStatusInterval sets how often live status is broadcast.
	WithStatusInterval time.Duration

	// WithRequestQueue sets how many history requests may wait for the next
	// tick before further requests are dropped.
	WithRequestQueue int

	// This option is not used directly; see WithHeater below.
	withHeater struct{ Heater }

	// This option is not used directly; see WithBroadcaster below.
	withBroadcaster struct{ transport.Broadcaster }

	// This option is not used directly; see WithRegisterer below.
	withRegisterer struct{ prometheus.Registerer }

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

// Defaults applied when an option is absent or non-positive.
const (
	DefaultTarget         = 93.0
	DefaultGain           = 20.0
	DefaultPowerWindow    = 60
	DefaultTickInterval   = 100 * time.Millisecond
	DefaultStatusInterval = time.Second
	DefaultRequestQueue   = 16
)

// Apply resolves the provided list of options.
func (o *Options) Apply(
	opts []Option,
	rest ...Option,
) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.service(o)
	}
}

func (o *Options) service(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o WithTarget) service(opt *Options) {
	opt.Target = float64(o)
}

func (o WithGain) service(opt *Options) {
	opt.Gain = float64(o)
}

func (o WithPowerWindow) service(opt *Options) {
	opt.PowerWindow = int(o)
}

func (o WithRelayPeriod) service(opt *Options) {
	opt.RelayPeriod = time.Duration(o)
}

func (o WithTickInterval) service(opt *Options) {
	opt.TickInterval = time.Duration(o)
}

func (o WithStatusInterval) service(opt *Options) {
	opt.StatusInterval = time.Duration(o)
}

func (o WithRequestQueue) service(opt *Options) {
	opt.RequestQueue = int(o)
}

// WithHeater switches the heater along with the relay.
func WithHeater(h Heater) Option {
	return withHeater{h}
}

func (o withHeater) service(opt *Options) {
	opt.Heater = o.Heater
}

// WithBroadcaster publishes live status through b.
func WithBroadcaster(b transport.Broadcaster) Option {
	return withBroadcaster{b}
}

func (o withBroadcaster) service(opt *Options) {
	opt.Broadcaster = o.Broadcaster
}

// WithRegisterer registers the service metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return withRegisterer{reg}
}

func (o withRegisterer) service(opt *Options) {
	opt.Registerer = o.Registerer
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) Option {
	return withLogger{logger}
}

func (o withLogger) service(opt *Options) {
	opt.Logger = o.Logger
}
