// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package config loads the daemon configuration from a YAML file and
// THERMO_* environment overrides.
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coffeepid/thermo/errors"
)

type (
	// Config is the complete daemon configuration.
	Config struct {
		Store   Store   `yaml:"store"`
		Control Control `yaml:"control"`
		Boiler  Boiler  `yaml:"boiler"`
		HTTP    HTTP    `yaml:"http"`
		MQTT    MQTT    `yaml:"mqtt"`
		Log     Log     `yaml:"log"`
	}

	// Store configures the history store.
	Store struct {
		Capacity      int      `yaml:"capacity"`
		AdmitInterval Duration `yaml:"admitInterval"`
		Threshold     float64  `yaml:"threshold"`
	}

	// Control configures the polling loop and heater controller.
	Control struct {
		Target         float64  `yaml:"target"`
		Gain           float64  `yaml:"gain"`
		PowerWindow    int      `yaml:"powerWindow"`
		RelayPeriod    Duration `yaml:"relayPeriod"`
		TickInterval   Duration `yaml:"tickInterval"`
		StatusInterval Duration `yaml:"statusInterval"`
	}

	// Boiler configures the simulated boiler.
	Boiler struct {
		Ambient      float64 `yaml:"ambient"`
		HeaterPower  float64 `yaml:"heaterPower"`
		HeatCapacity float64 `yaml:"heatCapacity"`
		Loss         float64 `yaml:"loss"`
		Noise        float64 `yaml:"noise"`
		Seed         uint64  `yaml:"seed"`
	}

	// HTTP configures the websocket and metrics listener.
	HTTP struct {
		Address string `yaml:"address"`
	}

	// MQTT configures the optional MQTT transport.
	MQTT struct {
		Enabled        bool     `yaml:"enabled"`
		Hostname       string   `yaml:"hostname"`
		TCPPort        int      `yaml:"tcpPort"`
		ClientID       string   `yaml:"clientId"`
		TopicPrefix    string   `yaml:"topicPrefix"`
		KeepAlive      Duration `yaml:"keepAlive"`
		Username       string   `yaml:"username"`
		PasswordFile   string   `yaml:"passwordFile"`
		EmbeddedBroker bool     `yaml:"embeddedBroker"`

		ConnectAttempts int `yaml:"connectAttempts"`
	}

	// Log configures logging.
	Log struct {
		Level slog.Level `yaml:"level"`
	}
)

// Default returns the configuration used for anything not set explicitly.
func Default() *Config {
	return &Config{
		Store: Store{
			Capacity:      3600,
			AdmitInterval: Duration(time.Second),
			Threshold:     0.1,
		},
		Control: Control{
			Target:         93,
			Gain:           20,
			PowerWindow:    60,
			RelayPeriod:    Duration(time.Second),
			TickInterval:   Duration(100 * time.Millisecond),
			StatusInterval: Duration(time.Second),
		},
		Boiler: Boiler{
			Ambient:      20,
			HeaterPower:  1000,
			HeatCapacity: 1500,
			Loss:         2.5,
			Noise:        0.02,
			Seed:         1,
		},
		HTTP: HTTP{Address: ":8080"},
		MQTT: MQTT{
			Hostname:    "localhost",
			TCPPort:     1883,
			TopicPrefix: "thermo",
			KeepAlive:   Duration(60 * time.Second),

			ConnectAttempts: 5,
		},
		Log: Log{Level: slog.LevelInfo},
	}
}

// Load reads the configuration file at path (if any) over the defaults, then
// applies the environment and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &errors.Error{
				Message:       "cannot read configuration file",
				Kind:          errors.ConfigurationInvalid,
				NestedError:   err,
				PropertyName:  "path",
				PropertyValue: path,
			}
		}
		if err := cfg.Decode(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.Environ()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges a YAML document into the configuration. Unknown keys are
// rejected.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !stderrors.Is(err, io.EOF) {
		return &errors.Error{
			Message:     "invalid configuration file",
			Kind:        errors.ConfigurationInvalid,
			NestedError: err,
		}
	}
	return nil
}

// Encode renders the configuration as YAML.
func (c *Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Store.Capacity <= 0:
		return invalid("store.capacity", c.Store.Capacity)
	case c.Store.AdmitInterval < Duration(time.Millisecond):
		return invalid("store.admitInterval", c.Store.AdmitInterval.Std())
	case c.Store.Threshold <= 0:
		return invalid("store.threshold", c.Store.Threshold)
	case c.Control.Gain <= 0:
		return invalid("control.gain", c.Control.Gain)
	case c.Control.PowerWindow <= 0:
		return invalid("control.powerWindow", c.Control.PowerWindow)
	case c.Control.RelayPeriod <= 0:
		return invalid("control.relayPeriod", c.Control.RelayPeriod.Std())
	case c.Control.TickInterval <= 0:
		return invalid("control.tickInterval", c.Control.TickInterval.Std())
	case c.Control.StatusInterval <= 0:
		return invalid("control.statusInterval", c.Control.StatusInterval.Std())
	case c.Boiler.HeatCapacity <= 0:
		return invalid("boiler.heatCapacity", c.Boiler.HeatCapacity)
	case c.Boiler.Loss < 0:
		return invalid("boiler.loss", c.Boiler.Loss)
	case c.Boiler.Noise < 0:
		return invalid("boiler.noise", c.Boiler.Noise)
	case c.HTTP.Address == "":
		return invalid("http.address", c.HTTP.Address)
	}

	if c.MQTT.Enabled || c.MQTT.EmbeddedBroker {
		switch {
		case c.MQTT.Hostname == "":
			return invalid("mqtt.hostname", c.MQTT.Hostname)
		case c.MQTT.TCPPort <= 0 || c.MQTT.TCPPort > 65535:
			return invalid("mqtt.tcpPort", c.MQTT.TCPPort)
		case c.MQTT.TopicPrefix == "":
			return invalid("mqtt.topicPrefix", c.MQTT.TopicPrefix)
		case c.MQTT.ConnectAttempts <= 0:
			return invalid("mqtt.connectAttempts", c.MQTT.ConnectAttempts)
		case c.MQTT.KeepAlive < Duration(time.Second) ||
			c.MQTT.KeepAlive > Duration(65535*time.Second):
			return invalid("mqtt.keepAlive", c.MQTT.KeepAlive.Std())
		}
	}
	return nil
}

// Password reads the MQTT password file, if configured.
func (c *Config) Password() ([]byte, error) {
	if c.MQTT.PasswordFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.MQTT.PasswordFile)
	if err != nil {
		return nil, &errors.Error{
			Message:       "cannot read MQTT password file",
			Kind:          errors.ConfigurationInvalid,
			NestedError:   err,
			PropertyName:  "mqtt.passwordFile",
			PropertyValue: c.MQTT.PasswordFile,
		}
	}
	return bytes.TrimSpace(data), nil
}

func invalid(name string, value any) error {
	return &errors.Error{
		Message:       "invalid " + name,
		Kind:          errors.ConfigurationInvalid,
		PropertyName:  name,
		PropertyValue: value,
	}
}
