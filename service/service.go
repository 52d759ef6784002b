// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package service runs the polling loop of the boiler controller.
//
// Each tick, on a single goroutine, the loop
//   - queues history requests received from the transports,
//   - reads and filters the temperature,
//   - updates the heater duty and relay,
//   - transmits pending replays and offers the sample to the history store,
//   - and periodically broadcasts live status.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/internal/log"
	"github.com/coffeepid/thermo/internal/wallclock"
	"github.com/coffeepid/thermo/relay"
	"github.com/coffeepid/thermo/stats"
	"github.com/coffeepid/thermo/transport"
)

type (
	// Source reads the boiler temperature (°C) at the given uptime.
	Source interface {
		Temperature(now time.Duration) (float64, error)
	}

	// Heater switches the heating element.
	Heater interface {
		SetHeater(on bool)
	}

	// Service owns the history store and its collaborators. All methods
	// except Enqueue must be called from the goroutine running the loop.
	Service struct {
		store  *history.Store
		source Source
		heater Heater
		relay  *relay.PWM
		power  *stats.Running
		filter stats.Median3

		requests    chan history.Request
		broadcaster transport.Broadcaster

		uptime    wallclock.Uptime
		scheduled bool

		target, gain float64

		tick           time.Duration
		statusInterval time.Duration
		nextStatus     time.Duration
		status         transport.Status

		metrics *metrics
		log     log.Logger
	}
)

// New creates a service around store reading temperatures from source.
// Uptime starts counting at the current wall clock instant.
func New(store *history.Store, source Source, opt ...Option) *Service {
	var opts Options
	opts.Apply(opt)

	if opts.Target == 0 {
		opts.Target = DefaultTarget
	}
	if opts.Gain <= 0 {
		opts.Gain = DefaultGain
	}
	if opts.PowerWindow <= 0 {
		opts.PowerWindow = DefaultPowerWindow
	}
	if opts.RelayPeriod <= 0 {
		opts.RelayPeriod = relay.DefaultPeriod
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.RequestQueue <= 0 {
		opts.RequestQueue = DefaultRequestQueue
	}

	return &Service{
		store:          store,
		source:         source,
		heater:         opts.Heater,
		relay:          relay.NewPWM(opts.RelayPeriod),
		power:          stats.NewRunning(opts.PowerWindow),
		requests:       make(chan history.Request, opts.RequestQueue),
		broadcaster:    opts.Broadcaster,
		uptime:         wallclock.NewUptime(),
		target:         opts.Target,
		gain:           opts.Gain,
		tick:           opts.TickInterval,
		statusInterval: opts.StatusInterval,
		metrics:        newMetrics(opts.Registerer),
		log:            log.Wrap(opts.Logger),
	}
}

// Enqueue hands a history request to the loop. It may be called from any
// goroutine and never blocks; it reports false if the queue is full.
func (s *Service) Enqueue(r history.Request) bool {
	select {
	case s.requests <- r:
		return true
	default:
		s.metrics.requests.WithLabelValues("overflow").Inc()
		return false
	}
}

// Run ticks the service until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := wallclock.Instance.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.Info(ctx, "service started",
		slog.Duration("tick", s.tick),
		slog.Float64("target", s.target),
		slog.Int("capacity", s.store.Cap()))

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "service stopped",
				slog.Int("records", s.store.Len()))
			return nil
		case now := <-ticker.C():
			s.Tick(ctx, now)
		}
	}
}

// Tick runs one iteration of the loop as of now.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	s.drain()

	elapsed := s.uptime.Since(now)
	ms := s.uptime.Millis(now)
	if !s.scheduled {
		s.store.Schedule(ms)
		s.scheduled = true
	}

	raw, err := s.source.Temperature(elapsed)
	if err != nil {
		s.metrics.sensorErrs.Inc()
		s.log.Err(ctx, errors.Normalize(err, "temperature read"))
		// Without a reading there is nothing to control or admit, but
		// queued replays still go out.
		s.store.Replay(ctx)
		s.metrics.pending.Set(float64(s.store.Pending()))
		return
	}
	temp := s.filter.Push(raw)

	duty := s.control(temp)
	s.relay.SetDuty(duty)
	on := s.relay.Tick(elapsed)
	if s.heater != nil {
		s.heater.SetHeater(on)
	}
	s.power.Push(duty / 100)

	if s.store.ServiceTick(ctx, history.Sample{
		Time:        ms,
		Temperature: temp,
		Power:       s.power.Latest(),
		MeanPower:   s.power.Mean(),
	}) {
		s.metrics.admitted.Inc()
	}

	s.status = transport.Status{
		Time:        ms,
		Millis:      ms,
		Temperature: temp,
		Power:       duty,
		MeanPower:   s.power.Mean() * 100,
		Target:      s.target,
	}
	s.metrics.temperature.Set(temp)
	s.metrics.duty.Set(duty)
	s.metrics.meanPower.Set(s.power.Mean())
	s.metrics.records.Set(float64(s.store.Len()))
	s.metrics.pending.Set(float64(s.store.Pending()))

	if elapsed >= s.nextStatus {
		s.nextStatus = elapsed + s.statusInterval
		s.broadcast(ctx)
	}
}

// Status returns the state as of the last successful tick.
func (s *Service) Status() transport.Status {
	return s.status
}

// SetTarget changes the temperature setpoint.
func (s *Service) SetTarget(target float64) {
	s.target = target
}

// Store returns the history store owned by the service.
func (s *Service) Store() *history.Store {
	return s.store
}

func (s *Service) drain() {
	for {
		select {
		case r := <-s.requests:
			if s.store.RequestRange(r.Consumer, r.From, r.To) {
				s.metrics.requests.WithLabelValues("queued").Inc()
			} else {
				s.metrics.requests.WithLabelValues("ignored").Inc()
			}
		default:
			return
		}
	}
}

// control returns the heater duty in percent for a proportional controller.
func (s *Service) control(temp float64) float64 {
	return min(max(s.gain*(s.target-temp), 0), 100)
}

func (s *Service) broadcast(ctx context.Context) {
	if s.broadcaster == nil {
		return
	}
	st := s.status
	if err := s.broadcaster.Broadcast(ctx, &st); err != nil {
		s.log.Err(ctx, err)
	}
}
