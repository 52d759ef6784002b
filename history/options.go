// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package history

import (
	"log/slog"
	"time"

	"github.com/coffeepid/thermo/internal/options"
)

type (
	// StoreOption represents a single store option.
	StoreOption interface{ store(*StoreOptions) }

	// StoreOptions are the resolved store options.
	StoreOptions struct {
		AdmitInterval time.Duration
		Threshold     float64
		Logger        *slog.Logger
	}

	// WithAdmitInterval sets the scheduled admission interval.
	WithAdmitInterval time.Duration

	// WithThreshold sets the temperature change that admits a sample between
	// scheduled admissions.
	WithThreshold float64

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

// Defaults applied when an option is absent or non-positive.
const (
	DefaultAdmitInterval = time.Second
	DefaultThreshold     = 0.1
)

// Apply resolves the provided list of options.
func (o *StoreOptions) Apply(
	opts []StoreOption,
	rest ...StoreOption,
) {
	for opt := range options.Apply[StoreOption](opts, rest...) {
		opt.store(o)
	}
}

func (o *StoreOptions) store(opt *StoreOptions) {
	if o != nil {
		*opt = *o
	}
}

func (o WithAdmitInterval) store(opt *StoreOptions) {
	opt.AdmitInterval = time.Duration(o)
}

func (o WithThreshold) store(opt *StoreOptions) {
	opt.Threshold = float64(o)
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return withLogger{logger}
}

func (o withLogger) store(opt *StoreOptions) {
	opt.Logger = o.Logger
}
