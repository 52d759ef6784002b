// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package transport_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/transport"
)

type fake struct {
	transfers []history.Transfer
	statuses  []transport.Status
	alive     map[history.ConsumerID]bool
	fail      error
}

func (f *fake) Transfer(
	_ context.Context,
	t *history.Transfer,
	_ []byte,
) error {
	if f.fail != nil {
		return f.fail
	}
	f.transfers = append(f.transfers, *t)
	return nil
}

func (f *fake) Alive(id history.ConsumerID) bool {
	return f.alive[id]
}

func (f *fake) Broadcast(_ context.Context, st *transport.Status) error {
	f.statuses = append(f.statuses, *st)
	return nil
}

// plain implements only the transfer half.
type plain struct{ n int }

func (p *plain) Transfer(context.Context, *history.Transfer, []byte) error {
	p.n++
	return nil
}

func TestConsumerID(t *testing.T) {
	id := transport.ConsumerID(transport.SchemeMQTT, "kitchen/1")
	require.Equal(t, history.ConsumerID("mqtt/kitchen/1"), id)

	scheme, name := transport.SplitConsumerID(id)
	require.Equal(t, "mqtt", scheme)
	require.Equal(t, "kitchen/1", name)

	scheme, name = transport.SplitConsumerID("bare")
	require.Empty(t, scheme)
	require.Equal(t, "bare", name)
}

func TestMuxRoutes(t *testing.T) {
	ws, mq := &fake{}, &plain{}
	m := transport.NewMux()
	m.Handle(transport.SchemeWebSocket, ws)
	m.Handle(transport.SchemeMQTT, mq)

	ctx := context.Background()
	require.NoError(t, m.Transfer(ctx, &history.Transfer{Consumer: "ws/a", Length: 2}, nil))
	require.NoError(t, m.Transfer(ctx, &history.Transfer{Consumer: "mqtt/b"}, nil))
	require.Len(t, ws.transfers, 1)
	require.Equal(t, 2, ws.transfers[0].Length)
	require.Equal(t, 1, mq.n)

	err := m.Transfer(ctx, &history.Transfer{Consumer: "tcp/c"}, nil)
	require.True(t, errors.IsKind(err, errors.ConsumerUnknown))
}

func TestMuxAlive(t *testing.T) {
	ws := &fake{alive: map[history.ConsumerID]bool{"ws/a": true}}
	m := transport.NewMux()
	m.Handle(transport.SchemeWebSocket, ws)
	m.Handle(transport.SchemeMQTT, &plain{})

	require.True(t, m.Alive("ws/a"))
	require.False(t, m.Alive("ws/b"))
	require.True(t, m.Alive("mqtt/anyone"))
	require.False(t, m.Alive("tcp/c"))
}

func TestMuxBroadcast(t *testing.T) {
	a, b := &fake{}, &fake{}
	m := transport.NewMux()
	m.Handle("a", a)
	m.Handle("b", b)
	m.Handle("c", &plain{})

	require.NoError(t, m.Broadcast(context.Background(), &transport.Status{Temperature: 93.5}))
	require.Len(t, a.statuses, 1)
	require.Len(t, b.statuses, 1)
	require.Equal(t, 93.5, b.statuses[0].Temperature)
}

func TestInstrumented(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := transport.NewMetrics(reg)

	inner := &fake{alive: map[history.ConsumerID]bool{"ws/a": true}}
	tr := metrics.Instrument("ws", inner)

	ctx := context.Background()
	require.NoError(t, tr.Transfer(ctx, &history.Transfer{Consumer: "ws/a", Length: 3}, nil))
	require.NoError(t, tr.Transfer(ctx, &history.Transfer{Consumer: "ws/a", Length: 4}, nil))

	inner.fail = fmt.Errorf("boom")
	require.Error(t, tr.Transfer(ctx, &history.Transfer{Consumer: "ws/a", Length: 5}, nil))

	count, err := testutil.GatherAndCount(reg, "thermo_replay_parts_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[f.GetName()] = c.GetValue()
			}
		}
	}
	require.Equal(t, 2.0, values["thermo_replay_parts_total"])
	require.Equal(t, 7.0, values["thermo_replay_records_total"])
	require.Equal(t, 1.0, values["thermo_replay_failures_total"])

	lc, ok := tr.(history.LivenessChecker)
	require.True(t, ok)
	require.True(t, lc.Alive("ws/a"))
	require.False(t, lc.Alive("ws/b"))

	b, ok := tr.(transport.Broadcaster)
	require.True(t, ok)
	require.NoError(t, b.Broadcast(ctx, &transport.Status{}))
	require.Len(t, inner.statuses, 1)
}
