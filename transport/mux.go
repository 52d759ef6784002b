// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package transport

import (
	"context"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/history"
)

// Mux dispatches transfers to the transport registered for the consumer's
// scheme. Routes are registered before the mux is handed to a store and are
// not modified afterwards.
type Mux struct {
	routes map[string]history.Transport
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{routes: map[string]history.Transport{}}
}

// Handle registers the transport for a scheme, replacing any previous one.
func (m *Mux) Handle(scheme string, t history.Transport) {
	m.routes[scheme] = t
}

// Transfer forwards the transfer to the consumer's transport.
func (m *Mux) Transfer(
	ctx context.Context,
	t *history.Transfer,
	payload []byte,
) error {
	tr, err := m.route(t.Consumer)
	if err != nil {
		return err
	}
	return tr.Transfer(ctx, t, payload)
}

// Alive reports whether the consumer's transport still knows it. Consumers
// of transports without liveness tracking are always alive; consumers with
// an unregistered scheme never are.
func (m *Mux) Alive(id history.ConsumerID) bool {
	tr, err := m.route(id)
	if err != nil {
		return false
	}
	if lc, ok := tr.(history.LivenessChecker); ok {
		return lc.Alive(id)
	}
	return true
}

// Broadcast sends the status through every registered transport that
// supports it, returning the first error.
func (m *Mux) Broadcast(ctx context.Context, st *Status) error {
	var first error
	for _, tr := range m.routes {
		b, ok := tr.(Broadcaster)
		if !ok {
			continue
		}
		if err := b.Broadcast(ctx, st); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Mux) route(id history.ConsumerID) (history.Transport, error) {
	scheme, _ := SplitConsumerID(id)
	if tr, ok := m.routes[scheme]; ok {
		return tr, nil
	}
	return nil, &errors.Error{
		Message:    "no transport for consumer",
		Kind:       errors.ConsumerUnknown,
		ConsumerID: string(id),
	}
}
