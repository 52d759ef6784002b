// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package ws

import (
	"log/slog"
	"time"

	"github.com/coffeepid/thermo/internal/options"
)

type (
	// ServerOption represents a single websocket server option.
	ServerOption interface{ server(*ServerOptions) }

	// ServerOptions are the resolved websocket server options.
	ServerOptions struct {
		SendQueue    int
		WriteTimeout time.Duration
		Logger       *slog.Logger
	}

	// WithSendQueue sets how many outbound messages may be queued per client
	// before transfers to it fail with backpressure.
	WithSendQueue int

	// WithWriteTimeout bounds each websocket write.
	WithWriteTimeout time.Duration

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

const (
	defaultSendQueue    = 32
	defaultWriteTimeout = 5 * time.Second
)

// Apply resolves the provided list of options.
func (o *ServerOptions) Apply(
	opts []ServerOption,
	rest ...ServerOption,
) {
	for opt := range options.Apply[ServerOption](opts, rest...) {
		opt.server(o)
	}
}

func (o *ServerOptions) server(opt *ServerOptions) {
	if o != nil {
		*opt = *o
	}
}

func (o WithSendQueue) server(opt *ServerOptions) {
	opt.SendQueue = int(o)
}

func (o WithWriteTimeout) server(opt *ServerOptions) {
	opt.WriteTimeout = time.Duration(o)
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return withLogger{logger}
}

func (o withLogger) server(opt *ServerOptions) {
	opt.Logger = o.Logger
}
