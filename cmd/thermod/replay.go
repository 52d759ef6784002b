// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/transport"
	"github.com/coffeepid/thermo/transport/ws"
)

type replayOptions struct {
	url     string
	from    uint64
	to      uint64
	last    time.Duration
	timeout time.Duration
}

func newReplayCmd() *cobra.Command {
	o := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Fetch history from a running daemon and print it as CSV",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(c.Context(), o.timeout)
			defer cancel()
			return o.replay(ctx, c.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&o.url, "url", "ws://localhost:8080/ws", "daemon websocket URL")
	cmd.Flags().Uint64Var(&o.from, "from", 0, "first device time (ms); 0 for the oldest sample")
	cmd.Flags().Uint64Var(&o.to, "to", 0, "last device time (ms); 0 for the newest sample")
	cmd.Flags().DurationVar(&o.last, "last", 0, "replay this much recent history instead of --from/--to")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 30*time.Second, "give up after this long")
	return cmd
}

func (o *replayOptions) replay(ctx context.Context, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, o.url, nil)
	if err != nil {
		return errors.Normalize(err, "websocket dial")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	from, to := o.from, o.to
	if o.last > 0 {
		// The daemon's clock is its uptime; learn it from the next status.
		now, err := awaitStatus(conn)
		if err != nil {
			return contextOr(ctx, err)
		}
		from, to = now-min(now, uint64(o.last.Milliseconds())), 0
	}

	req := ws.Inbound{Get: &ws.Get{History: &ws.HistoryRequest{From: from, To: to}}}
	if err := conn.WriteJSON(req); err != nil {
		return contextOr(ctx, err)
	}

	samples, err := receive(conn)
	if err != nil {
		return contextOr(ctx, err)
	}

	fmt.Fprintln(out, "time_ms,temperature,power,mean_power")
	for _, s := range samples {
		fmt.Fprintf(out, "%d,%.2f,%.3f,%.3f\n", s.Time, s.Temperature, s.Power, s.MeanPower)
	}
	return nil
}

func awaitStatus(conn *websocket.Conn) (uint64, error) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var st transport.Status
		if json.Unmarshal(data, &st) == nil && st.Millis != 0 {
			return st.Millis, nil
		}
	}
}

// receive reassembles one replay. Status updates interleaved with it are
// skipped.
func receive(conn *websocket.Conn) ([]history.Sample, error) {
	var (
		rs      history.Reassembler
		pending *history.Transfer
	)
	for !rs.Done() {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}

		switch kind {
		case websocket.TextMessage:
			var h ws.Header
			if err := json.Unmarshal(data, &h); err != nil {
				return nil, &errors.Error{
					Message:     "malformed server message",
					Kind:        errors.PayloadInvalid,
					NestedError: err,
				}
			}
			if h.SendBinary != nil {
				pending = h.SendBinary
			}

		case websocket.BinaryMessage:
			if pending == nil {
				return nil, &errors.Error{
					Message: "binary frame without header",
					Kind:    errors.PayloadInvalid,
				}
			}
			if _, err := rs.Add(pending, data); err != nil {
				return nil, err
			}
			pending = nil
		}
	}
	return rs.Samples(), nil
}

func contextOr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Context(ctx, "replay")
	}
	return errors.Normalize(err, "replay")
}
