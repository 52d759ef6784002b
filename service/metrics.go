// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package service

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	temperature prometheus.Gauge
	duty        prometheus.Gauge
	meanPower   prometheus.Gauge
	records     prometheus.Gauge
	pending     prometheus.Gauge
	admitted    prometheus.Counter
	requests    *prometheus.CounterVec
	sensorErrs  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_temperature_celsius",
			Help: "Filtered boiler temperature",
		}),
		duty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_heater_duty_percent",
			Help: "Heater duty requested by the controller",
		}),
		meanPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_heater_mean_power_ratio",
			Help: "Heater duty averaged over the power window",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_history_records",
			Help: "Records retained in the history store",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "thermo_history_pending_replays",
			Help: "Replay tasks waiting for the next tick",
		}),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_history_admitted_total",
			Help: "Samples admitted into the history store",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "thermo_history_requests_total",
			Help: "History requests by outcome",
		}, []string{"result"}),
		sensorErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "thermo_sensor_errors_total",
			Help: "Failed temperature readings",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.temperature,
			m.duty,
			m.meanPower,
			m.records,
			m.pending,
			m.admitted,
			m.requests,
			m.sensorErrs,
		)
	}
	return m
}
