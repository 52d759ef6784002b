// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package ws serves history replays and live status to browser clients over
// websockets.
//
// Every replay part is written as a JSON text frame
//
//	{"sendBinary":{"length":N,"frontTime":T,"frontTemperature":C,"lastPart":B}}
//
// followed by a binary frame of N history records. Clients request history
// with {"get":{"history":{"from":F,"to":T}}}.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/internal/log"
	"github.com/coffeepid/thermo/internal/wallclock"
	"github.com/coffeepid/thermo/transport"
)

type (
	// Server is an http.Handler that upgrades connections to websockets and
	// implements history.Transport for the clients it holds.
	Server struct {
		upgrader websocket.Upgrader
		sink     transport.RequestSink

		queue   int
		timeout time.Duration

		mu      sync.RWMutex
		clients map[history.ConsumerID]*client
		closed  bool

		log log.Logger
	}

	client struct {
		id   history.ConsumerID
		conn *websocket.Conn
		send chan message
		done chan struct{}
		once sync.Once
	}

	// A text frame, a binary frame, or a text frame followed by a binary
	// frame, written back to back.
	message struct {
		text   []byte
		binary []byte
	}
)

// NewServer creates a websocket server forwarding history requests to sink.
func NewServer(sink transport.RequestSink, opt ...ServerOption) *Server {
	var opts ServerOptions
	opts.Apply(opt)

	if opts.SendQueue <= 0 {
		opts.SendQueue = defaultSendQueue
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sink:    sink,
		queue:   opts.SendQueue,
		timeout: opts.WriteTimeout,
		clients: map[history.ConsumerID]*client{},
		log:     log.Wrap(opts.Logger),
	}
}

// ServeHTTP upgrades the connection and serves the client until it
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		s.log.Debug(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:   transport.ConsumerID(transport.SchemeWebSocket, uuid.NewString()),
		conn: conn,
		send: make(chan message, s.queue),
		done: make(chan struct{}),
	}
	if !s.register(c) {
		_ = conn.Close()
		return
	}
	defer s.unregister(c)

	s.log.Info(r.Context(), "websocket client connected",
		slog.String("consumer", string(c.id)),
		slog.String("remote", r.RemoteAddr))

	go s.write(c)
	s.read(r.Context(), c)

	s.log.Info(r.Context(), "websocket client disconnected",
		slog.String("consumer", string(c.id)))
}

// Transfer queues the header and payload for the consumer. The payload is
// copied before Transfer returns.
func (s *Server) Transfer(
	_ context.Context,
	t *history.Transfer,
	payload []byte,
) error {
	c := s.client(t.Consumer)
	if c == nil {
		return &errors.Error{
			Message:    "websocket client not connected",
			Kind:       errors.ConsumerUnknown,
			ConsumerID: string(t.Consumer),
		}
	}

	header, err := json.Marshal(Header{SendBinary: t})
	if err != nil {
		return errors.Normalize(err, "transfer header")
	}

	return c.enqueue(message{
		text:   header,
		binary: append([]byte(nil), payload...),
	})
}

// Alive reports whether the consumer is still connected.
func (s *Server) Alive(id history.ConsumerID) bool {
	return s.client(id) != nil
}

// Broadcast queues the status for every connected client. Clients whose
// queue is full miss this update.
func (s *Server) Broadcast(ctx context.Context, st *transport.Status) error {
	text, err := json.Marshal(st)
	if err != nil {
		return errors.Normalize(err, "status")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if err := c.enqueue(message{text: text}); err != nil {
			s.log.Debug(ctx, "status dropped",
				slog.String("consumer", string(c.id)))
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client and refuses new ones.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = map[history.ConsumerID]*client{}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return nil
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c.id] = c
	return true
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()
}

func (s *Server) client(id history.ConsumerID) *client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients[id]
}

func (s *Server) read(ctx context.Context, c *client) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				s.log.Err(ctx, errors.Normalize(err, "websocket read"),
					slog.String("consumer", string(c.id)))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.log.Err(ctx, &errors.Error{
				Message:     "malformed client message",
				Kind:        errors.PayloadInvalid,
				NestedError: err,
				ConsumerID:  string(c.id),
			})
			continue
		}
		if in.Get == nil || in.Get.History == nil {
			s.log.Debug(ctx, "ignoring client message",
				slog.String("consumer", string(c.id)))
			continue
		}

		req := history.Request{
			Consumer: c.id,
			From:     in.Get.History.From,
			To:       in.Get.History.To,
		}
		if !s.sink(req) {
			s.log.Warn(ctx, "history request dropped",
				slog.String("consumer", string(c.id)))
		}
	}
}

func (s *Server) write(c *client) {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				wallclock.Instance.Now().Add(s.timeout),
			)
			return
		case m := <-c.send:
			if err := s.writeMessage(c, m); err != nil {
				s.log.Err(context.Background(), errors.Normalize(err, "websocket write"),
					slog.String("consumer", string(c.id)))
				c.close()
				return
			}
		}
	}
}

func (s *Server) writeMessage(c *client, m message) error {
	if m.text != nil {
		_ = c.conn.SetWriteDeadline(wallclock.Instance.Now().Add(s.timeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, m.text); err != nil {
			return err
		}
	}
	if m.binary != nil {
		_ = c.conn.SetWriteDeadline(wallclock.Instance.Now().Add(s.timeout))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, m.binary); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) enqueue(m message) error {
	select {
	case <-c.done:
		return &errors.Error{
			Message:    "websocket client disconnected",
			Kind:       errors.ConsumerUnknown,
			ConsumerID: string(c.id),
		}
	default:
	}

	select {
	case c.send <- m:
		return nil
	default:
		return &errors.Error{
			Message:    "websocket send queue full",
			Kind:       errors.Backpressure,
			ConsumerID: string(c.id),
		}
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
