// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package errors

import "log/slog"

type (
	// Error represents a structured error raised outside of the history core
	// (configuration, transports and wire decoding). The core itself never
	// fails; it degrades to documented no-ops.
	Error struct {
		Message string
		Kind    Kind

		NestedError error

		PropertyName  string
		PropertyValue any

		ConsumerID string
	}

	// Kind defines the type of error being returned.
	Kind int
)

// The following are the defined error kinds.
const (
	ConfigurationInvalid Kind = iota
	ArgumentInvalid
	PayloadInvalid
	StateInvalid
	ConsumerUnknown
	Backpressure
	Timeout
	Cancellation
	TransportError
	UnknownError
)

// Error returns the error as a string.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the nested error, if any.
func (e *Error) Unwrap() error {
	return e.NestedError
}

// Attrs returns additional error attributes for slog.
func (e *Error) Attrs() []slog.Attr {
	a := make([]slog.Attr, 0, 4)
	a = append(a, slog.String("kind", e.Kind.String()))

	if e.NestedError != nil {
		a = append(a, slog.Any("nested_error", e.NestedError))
	}
	if e.ConsumerID != "" {
		a = append(a, slog.String("consumer", e.ConsumerID))
	}

	switch e.Kind {
	case ConfigurationInvalid, ArgumentInvalid:
		a = append(a,
			slog.String("property_name", e.PropertyName),
			slog.Any("property_value", e.PropertyValue),
		)
	case StateInvalid:
		a = append(a, slog.String("property_name", e.PropertyName))
		if e.PropertyValue != nil {
			a = append(a, slog.Any("property_value", e.PropertyValue))
		}
	}

	return a
}

func (k Kind) String() string {
	switch k {
	case ConfigurationInvalid:
		return "configuration invalid"
	case ArgumentInvalid:
		return "argument invalid"
	case PayloadInvalid:
		return "payload invalid"
	case StateInvalid:
		return "state invalid"
	case ConsumerUnknown:
		return "consumer unknown"
	case Backpressure:
		return "backpressure"
	case Timeout:
		return "timeout"
	case Cancellation:
		return "cancellation"
	case TransportError:
		return "transport error"
	default:
		return "unknown error"
	}
}
