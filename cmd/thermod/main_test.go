// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/transport/ws"
)

func TestConfigCmd(t *testing.T) {
	t.Setenv("THERMO_STORE_CAPACITY", "123")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--env"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.Contains(t, out.String(), "capacity: 123")
	require.Contains(t, out.String(), "# THERMO_MQTT_TOPIC_PREFIX")
}

func TestReplayCmd(t *testing.T) {
	var (
		store  *history.Store
		server *ws.Server
	)
	server = ws.NewServer(func(r history.Request) bool {
		if !store.RequestRange(r.Consumer, r.From, r.To) {
			return false
		}
		back, _ := store.Back()
		store.ServiceTick(context.Background(), back)
		return true
	})
	store = history.NewStore(4, server)
	for i := range 6 {
		store.Push(history.Sample{
			Time:        uint64(1000 * (i + 1)),
			Temperature: 90 + float64(i)/4,
			Power:       1,
			MeanPower:   0.5,
		})
	}

	srv := httptest.NewServer(server)
	t.Cleanup(func() {
		_ = server.Close()
		srv.Close()
	})

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"replay",
		"--url", "ws" + strings.TrimPrefix(srv.URL, "http"),
		"--from", "4000",
		"--timeout", "10s",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{
		"time_ms,temperature,power,mean_power",
		"4000,90.75,1.000,0.502",
		"5000,91.00,1.000,0.502",
		"6000,91.25,1.000,0.502",
	}, lines)
}

func TestReplayCmdTimeout(t *testing.T) {
	server := ws.NewServer(func(history.Request) bool { return true })
	srv := httptest.NewServer(server)
	t.Cleanup(func() {
		_ = server.Close()
		srv.Close()
	})

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"replay",
		"--url", "ws" + strings.TrimPrefix(srv.URL, "http"),
		"--timeout", "200ms",
	})

	start := time.Now()
	require.Error(t, cmd.ExecuteContext(context.Background()))
	require.Less(t, time.Since(start), 5*time.Second)
}
