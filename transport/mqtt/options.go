// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"log/slog"
	"time"

	"github.com/coffeepid/thermo/internal/options"
)

type (
	// TransportOption represents a single MQTT transport option.
	TransportOption interface{ transport(*TransportOptions) }

	// TransportOptions are the resolved MQTT transport options.
	TransportOptions struct {
		ClientID    string
		TopicPrefix string
		KeepAlive   time.Duration
		Username    string
		Password    []byte
		Queue       int
		Logger      *slog.Logger

		ConnectAttempts int
	}

	// WithClientID sets the MQTT client ID. A random ID is used if unset.
	WithClientID string

	// WithTopicPrefix sets the prefix of every topic.
	WithTopicPrefix string

	// WithKeepAlive sets the MQTT keep-alive interval.
	WithKeepAlive time.Duration

	// WithQueue sets how many outbound publishes may be pending before
	// transfers fail with backpressure.
	WithQueue int

	// WithConnectAttempts sets how many times Dial tries to reach the broker,
	// backing off exponentially between attempts.
	WithConnectAttempts int

	// This option is not used directly; see WithUsernamePassword below.
	withUsernamePassword struct {
		username string
		password []byte
	}

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

// Defaults applied when an option is absent.
const (
	DefaultTopicPrefix = "thermo"
	DefaultKeepAlive   = 60 * time.Second

	defaultQueue = 64
)

// Apply resolves the provided list of options.
func (o *TransportOptions) Apply(
	opts []TransportOption,
	rest ...TransportOption,
) {
	for opt := range options.Apply[TransportOption](opts, rest...) {
		opt.transport(o)
	}
}

func (o *TransportOptions) transport(opt *TransportOptions) {
	if o != nil {
		*opt = *o
	}
}

func (o WithClientID) transport(opt *TransportOptions) {
	opt.ClientID = string(o)
}

func (o WithTopicPrefix) transport(opt *TransportOptions) {
	opt.TopicPrefix = string(o)
}

func (o WithKeepAlive) transport(opt *TransportOptions) {
	opt.KeepAlive = time.Duration(o)
}

func (o WithConnectAttempts) transport(opt *TransportOptions) {
	opt.ConnectAttempts = int(o)
}

func (o WithQueue) transport(opt *TransportOptions) {
	opt.Queue = int(o)
}

// WithUsernamePassword authenticates with the broker.
func WithUsernamePassword(username string, password []byte) TransportOption {
	return withUsernamePassword{username, password}
}

func (o withUsernamePassword) transport(opt *TransportOptions) {
	opt.Username = o.username
	opt.Password = o.password
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) TransportOption {
	return withLogger{logger}
}

func (o withLogger) transport(opt *TransportOptions) {
	opt.Logger = o.Logger
}
