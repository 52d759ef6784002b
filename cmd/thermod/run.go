// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/coffeepid/thermo/config"
	"github.com/coffeepid/thermo/history"
	"github.com/coffeepid/thermo/service"
	"github.com/coffeepid/thermo/sim"
	"github.com/coffeepid/thermo/transport"
	"github.com/coffeepid/thermo/transport/mqtt"
	"github.com/coffeepid/thermo/transport/ws"
)

type runOptions struct {
	root     *rootOptions
	embedded bool
	address  string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{root: root}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the controller and serve history",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return o.run(c.Context())
		},
	}
	cmd.Flags().BoolVar(&o.embedded, "embedded-broker", false, "start an in-process MQTT broker and publish through it")
	cmd.Flags().StringVar(&o.address, "listen", "", "HTTP listen address (overrides http.address)")
	return cmd
}

func (o *runOptions) run(ctx context.Context) error {
	cfg, err := config.Load(o.root.config)
	if err != nil {
		return err
	}
	if o.embedded {
		cfg.MQTT.EmbeddedBroker = true
		cfg.MQTT.Enabled = true
	}
	if o.address != "" {
		cfg.HTTP.Address = o.address
	}

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.Log.Level,
		TimeFormat: time.TimeOnly,
	}))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := transport.NewMetrics(reg)
	mux := transport.NewMux()

	boiler := sim.NewBoiler(cfg.Boiler.Seed)
	boiler.Ambient = cfg.Boiler.Ambient
	boiler.HeaterPower = cfg.Boiler.HeaterPower
	boiler.HeatCapacity = cfg.Boiler.HeatCapacity
	boiler.Loss = cfg.Boiler.Loss
	boiler.Noise = cfg.Boiler.Noise
	boiler.SetTemperature(cfg.Boiler.Ambient)

	store := history.NewStore(cfg.Store.Capacity, mux,
		history.WithAdmitInterval(cfg.Store.AdmitInterval.Std()),
		history.WithThreshold(cfg.Store.Threshold),
		history.WithLogger(log),
	)
	svc := service.New(store, boiler,
		service.WithHeater(boiler),
		service.WithBroadcaster(mux),
		service.WithTarget(cfg.Control.Target),
		service.WithGain(cfg.Control.Gain),
		service.WithPowerWindow(cfg.Control.PowerWindow),
		service.WithRelayPeriod(cfg.Control.RelayPeriod.Std()),
		service.WithTickInterval(cfg.Control.TickInterval.Std()),
		service.WithStatusInterval(cfg.Control.StatusInterval.Std()),
		service.WithRegisterer(reg),
		service.WithLogger(log),
	)

	wsServer := ws.NewServer(svc.Enqueue, ws.WithLogger(log))
	defer wsServer.Close()
	mux.Handle(transport.SchemeWebSocket, metrics.Instrument("ws", wsServer))

	if cfg.MQTT.EmbeddedBroker {
		broker, err := startBroker(cfg.MQTT.TCPPort)
		if err != nil {
			return err
		}
		defer broker.Close()
		log.Info("embedded MQTT broker listening", slog.Int("port", cfg.MQTT.TCPPort))
	}

	if cfg.MQTT.Enabled {
		password, err := cfg.Password()
		if err != nil {
			return err
		}
		opts := []mqtt.TransportOption{
			mqtt.WithClientID(cfg.MQTT.ClientID),
			mqtt.WithTopicPrefix(cfg.MQTT.TopicPrefix),
			mqtt.WithKeepAlive(cfg.MQTT.KeepAlive.Std()),
			mqtt.WithConnectAttempts(cfg.MQTT.ConnectAttempts),
			mqtt.WithLogger(log),
		}
		if cfg.MQTT.Username != "" {
			opts = append(opts, mqtt.WithUsernamePassword(cfg.MQTT.Username, password))
		}

		dialCtx, cancel := context.WithTimeout(ctx, time.Minute)
		mq, err := mqtt.Dial(dialCtx,
			mqtt.TCPConnection(cfg.MQTT.Hostname, cfg.MQTT.TCPPort),
			svc.Enqueue,
			opts...,
		)
		cancel()
		if err != nil {
			return err
		}
		defer mq.Close()
		mux.Handle(transport.SchemeMQTT, metrics.Instrument("mqtt", mq))
	}

	routes := http.NewServeMux()
	routes.Handle("/ws", wsServer)
	routes.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           routes,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		log.Info("serving HTTP", slog.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); !stderrors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		errs <- svc.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err = <-errs:
		stop()
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = wsServer.Close()
	if serr := server.Shutdown(shutdown); serr != nil && err == nil {
		err = serr
	}
	return err
}

func startBroker(port int) (*mochi.Server, error) {
	broker := mochi.New(nil)
	if err := broker.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, err
	}
	if err := broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "thermod",
		Address: fmt.Sprintf(":%d", port),
	})); err != nil {
		return nil, err
	}
	if err := broker.Serve(); err != nil {
		return nil, err
	}
	return broker, nil
}
