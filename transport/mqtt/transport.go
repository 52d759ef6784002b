// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package mqtt replays history and publishes live status over MQTT 5.
package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/internal/log"
	"github.com/coffeepid/thermo/internal/retry"
	"github.com/coffeepid/thermo/transport"
)

type (
	// Transport is a connected MQTT client implementing history.Transport
	// for consumers in the mqtt scheme.
	Transport struct {
		client *paho.Client
		topics topics
		sink   transport.RequestSink

		out  chan []*paho.Publish
		stop chan struct{}
		wg   sync.WaitGroup
		once sync.Once

		log log.Logger
	}

	// HistoryRequest is the body of a request topic message.
	HistoryRequest struct {
		From uint64 `json:"from"`
		To   uint64 `json:"to"`
	}
)

// MQTT ClientIDs should be at most 23 characters.
const maxClientIDLength = 23

// Dial connects to the broker, subscribes to history requests and starts
// publishing. Requests are forwarded to sink from the client's goroutine.
func Dial(
	ctx context.Context,
	provider ConnectionProvider,
	sink transport.RequestSink,
	opt ...TransportOption,
) (*Transport, error) {
	var opts TransportOptions
	opts.Apply(opt)

	if opts.ClientID == "" {
		opts.ClientID = randomClientID()
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.Queue <= 0 {
		opts.Queue = defaultQueue
	}

	t := &Transport{
		topics: topics{strings.TrimSuffix(opts.TopicPrefix, "/")},
		sink:   sink,
		out:    make(chan []*paho.Publish, opts.Queue),
		stop:   make(chan struct{}),
		log:    log.Wrap(opts.Logger),
	}

	backoff := retry.Backoff{
		MaxAttempts: max(opts.ConnectAttempts, 1),
		Logger:      opts.Logger,
	}
	if err := backoff.Run(ctx, "MQTT connect", func(ctx context.Context) (bool, error) {
		return t.connect(ctx, provider, &opts)
	}); err != nil {
		return nil, err
	}

	t.wg.Add(1)
	go t.publish()

	t.log.Info(ctx, "MQTT transport connected",
		slog.String("client_id", opts.ClientID),
		slog.String("request_topic", t.topics.requestFilter()))
	return t, nil
}

// connect opens the connection, connects and subscribes. It reports whether
// a failure may be retried.
func (t *Transport) connect(
	ctx context.Context,
	provider ConnectionProvider,
	opts *TransportOptions,
) (bool, error) {
	conn, err := provider(ctx)
	if err != nil {
		return true, err
	}

	t.client = paho.NewClient(paho.ClientConfig{
		ClientID: opts.ClientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			t.onPublishReceived,
		},
		OnClientError: func(err error) {
			t.log.Err(context.Background(), &errors.Error{
				Message:     "MQTT client error",
				Kind:        errors.TransportError,
				NestedError: err,
			})
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			t.log.Warn(context.Background(), "MQTT server disconnected",
				slog.Int("reason_code", int(d.ReasonCode)))
		},
	})

	ack, err := t.client.Connect(ctx, &paho.Connect{
		ClientID:     opts.ClientID,
		CleanStart:   true,
		KeepAlive:    uint16(opts.KeepAlive.Seconds()),
		Username:     opts.Username,
		UsernameFlag: opts.Username != "",
		Password:     opts.Password,
		PasswordFlag: len(opts.Password) != 0,
	})
	if ack != nil && ack.ReasonCode >= 0x80 {
		_ = conn.Close()
		return false, &errors.Error{
			Message:       "MQTT connection refused",
			Kind:          errors.TransportError,
			NestedError:   err,
			PropertyName:  "ReasonCode",
			PropertyValue: ack.ReasonCode,
		}
	}
	if err != nil {
		_ = conn.Close()
		return true, &errors.Error{
			Message:     "MQTT connect failed",
			Kind:        errors.TransportError,
			NestedError: err,
		}
	}

	if _, err := t.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic: t.topics.requestFilter(),
			QoS:   1,
		}},
	}); err != nil {
		_ = t.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return true, &errors.Error{
			Message:     "MQTT subscribe failed",
			Kind:        errors.TransportError,
			NestedError: err,
		}
	}
	return false, nil
}

// Transfer queues the header and payload publishes for the consumer. The
// payload is copied before Transfer returns.
func (t *Transport) Transfer(
	_ context.Context,
	tr *history.Transfer,
	payload []byte,
) error {
	scheme, client := transport.SplitConsumerID(tr.Consumer)
	if scheme != transport.SchemeMQTT || client == "" {
		return &errors.Error{
			Message:    "consumer is not an MQTT client",
			Kind:       errors.ConsumerUnknown,
			ConsumerID: string(tr.Consumer),
		}
	}

	meta, err := json.Marshal(tr)
	if err != nil {
		return errors.Normalize(err, "transfer header")
	}

	return t.enqueue([]*paho.Publish{{
		Topic:      t.topics.meta(client),
		QoS:        1,
		Payload:    meta,
		Properties: &paho.PublishProperties{ContentType: "application/json"},
	}, {
		Topic:      t.topics.data(client),
		QoS:        1,
		Payload:    append([]byte(nil), payload...),
		Properties: &paho.PublishProperties{ContentType: "application/octet-stream"},
	}}, tr.Consumer)
}

// Broadcast publishes the status at QoS 0.
func (t *Transport) Broadcast(_ context.Context, st *transport.Status) error {
	body, err := json.Marshal(st)
	if err != nil {
		return errors.Normalize(err, "status")
	}
	return t.enqueue([]*paho.Publish{{
		Topic:      t.topics.status(),
		Payload:    body,
		Properties: &paho.PublishProperties{ContentType: "application/json"},
	}}, "")
}

// Close stops publishing and disconnects from the broker. Queued publishes
// that have not been sent are dropped.
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.stop)
		t.wg.Wait()
		err = t.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	})
	return err
}

func (t *Transport) enqueue(pubs []*paho.Publish, id history.ConsumerID) error {
	select {
	case <-t.stop:
		return &errors.Error{
			Message:    "MQTT transport closed",
			Kind:       errors.StateInvalid,
			ConsumerID: string(id),
		}
	default:
	}

	select {
	case t.out <- pubs:
		return nil
	default:
		return &errors.Error{
			Message:    "MQTT publish queue full",
			Kind:       errors.Backpressure,
			ConsumerID: string(id),
		}
	}
}

func (t *Transport) publish() {
	defer t.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-t.stop
		cancel()
	}()

	for {
		select {
		case <-t.stop:
			return
		case pubs := <-t.out:
			for _, p := range pubs {
				res, err := t.client.Publish(ctx, p)
				if err == nil && res != nil && res.ReasonCode >= 0x80 {
					err = &errors.Error{
						Message:       "MQTT publish rejected",
						Kind:          errors.TransportError,
						PropertyName:  "ReasonCode",
						PropertyValue: res.ReasonCode,
					}
				}
				if err != nil {
					t.log.Err(ctx, errors.Normalize(err, "MQTT publish"),
						slog.String("topic", p.Topic))
					// The data publish is useless without its header.
					break
				}
			}
		}
	}
}

func (t *Transport) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	client, ok := t.topics.requestClient(pr.Packet.Topic)
	if !ok {
		return false, nil
	}

	var req HistoryRequest
	if len(pr.Packet.Payload) != 0 {
		if err := json.Unmarshal(pr.Packet.Payload, &req); err != nil {
			t.log.Err(context.Background(), &errors.Error{
				Message:     "malformed history request",
				Kind:        errors.PayloadInvalid,
				NestedError: err,
				ConsumerID:  client,
			})
			return true, nil
		}
	}

	id := transport.ConsumerID(transport.SchemeMQTT, client)
	if !t.sink(history.Request{Consumer: id, From: req.From, To: req.To}) {
		t.log.Warn(context.Background(), "history request dropped",
			slog.String("consumer", string(id)))
	}
	return true, nil
}

func randomClientID() string {
	id := "thermod" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:maxClientIDLength]
}
