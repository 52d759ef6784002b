// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package transport routes replay transfers and live status updates to the
// network transports that own each consumer.
package transport

import (
	"context"
	"strings"

	"github.com/coffeepid/thermo/history"
)

type (
	// Status is the live state broadcast to every connected consumer.
	Status struct {
		Time        uint64  `json:"time"`
		Millis      uint64  `json:"millis"`
		Temperature float64 `json:"temperature"`
		Power       float64 `json:"power"`
		MeanPower   float64 `json:"meanPower"`
		Target      float64 `json:"target"`
	}

	// RequestSink accepts history requests from a transport goroutine and
	// reports whether the request was accepted.
	RequestSink func(history.Request) bool

	// Broadcaster is implemented by transports that push live status.
	// Implementations must not block the caller.
	Broadcaster interface {
		Broadcast(ctx context.Context, st *Status) error
	}
)

// Consumer ID schemes for the built-in transports.
const (
	SchemeWebSocket = "ws"
	SchemeMQTT      = "mqtt"
)

// ConsumerID builds the consumer ID for a name within a scheme.
func ConsumerID(scheme, name string) history.ConsumerID {
	return history.ConsumerID(scheme + "/" + name)
}

// SplitConsumerID returns the scheme and name of a consumer ID. An ID with no
// scheme returns an empty scheme.
func SplitConsumerID(id history.ConsumerID) (scheme, name string) {
	scheme, name, ok := strings.Cut(string(id), "/")
	if !ok {
		return "", string(id)
	}
	return scheme, name
}
