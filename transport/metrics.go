// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package transport

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/internal/wallclock"
)

// Metrics holds the transfer collectors shared by instrumented transports.
type Metrics struct {
	parts    *prometheus.CounterVec
	records  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the transfer collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		parts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermo_replay_parts_total",
			Help: "Replay parts handed to a transport",
		}, []string{"transport"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermo_replay_records_total",
			Help: "History records handed to a transport",
		}, []string{"transport"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermo_replay_failures_total",
			Help: "Replay parts a transport failed to accept",
		}, []string{"transport"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "thermo_replay_transfer_seconds",
			Help:    "Time spent handing a replay part to a transport",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"transport"}),
	}
	reg.MustRegister(m.parts, m.records, m.failures, m.duration)
	return m
}

// Instrument wraps a transport so its transfers are counted under name. The
// wrapper preserves liveness tracking and broadcasting of the inner transport.
func (m *Metrics) Instrument(name string, t history.Transport) history.Transport {
	return &instrumented{
		Transport: t,
		parts:     m.parts.WithLabelValues(name),
		records:   m.records.WithLabelValues(name),
		failures:  m.failures.WithLabelValues(name),
		duration:  m.duration.WithLabelValues(name),
	}
}

type instrumented struct {
	history.Transport
	parts, records, failures prometheus.Counter
	duration                 prometheus.Observer
}

func (i *instrumented) Transfer(
	ctx context.Context,
	t *history.Transfer,
	payload []byte,
) error {
	start := wallclock.Instance.Now()
	err := i.Transport.Transfer(ctx, t, payload)
	i.duration.Observe(wallclock.Instance.Now().Sub(start).Seconds())

	if err != nil {
		i.failures.Inc()
		return err
	}
	i.parts.Inc()
	i.records.Add(float64(t.Length))
	return nil
}

func (i *instrumented) Alive(id history.ConsumerID) bool {
	if lc, ok := i.Transport.(history.LivenessChecker); ok {
		return lc.Alive(id)
	}
	return true
}

func (i *instrumented) Broadcast(ctx context.Context, st *Status) error {
	if b, ok := i.Transport.(Broadcaster); ok {
		return b.Broadcast(ctx, st)
	}
	return nil
}
