// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config

import (
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/coffeepid/thermo/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "THERMO_"

type setting struct {
	name string
	set  func(string) error
}

// EnvName returns the environment variable overriding a setting, such as
// THERMO_MQTT_TOPIC_PREFIX for mqtt.topicPrefix.
func EnvName(name string) string {
	return EnvPrefix + strcase.ToScreamingSnake(strings.ReplaceAll(name, ".", "_"))
}

// EnvNames lists every supported environment override.
func (c *Config) EnvNames() []string {
	settings := c.settings()
	names := make([]string, 0, len(settings))
	for _, s := range settings {
		names = append(names, EnvName(s.name))
	}
	return names
}

// ApplyEnv overrides settings from KEY=value pairs, as returned by
// os.Environ. Unrelated variables are ignored.
func (c *Config) ApplyEnv(environ []string) error {
	byEnv := map[string]setting{}
	for _, s := range c.settings() {
		byEnv[EnvName(s.name)] = s
	}

	for _, env := range environ {
		key, val, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		s, ok := byEnv[key]
		if !ok {
			continue
		}
		if err := s.set(val); err != nil {
			return &errors.Error{
				Message:       "could not parse " + key,
				Kind:          errors.ConfigurationInvalid,
				NestedError:   err,
				PropertyName:  s.name,
				PropertyValue: val,
			}
		}
	}
	return nil
}

func (c *Config) settings() []setting {
	return []setting{
		{"store.capacity", intVar(&c.Store.Capacity)},
		{"store.admitInterval", durationVar(&c.Store.AdmitInterval)},
		{"store.threshold", floatVar(&c.Store.Threshold)},
		{"control.target", floatVar(&c.Control.Target)},
		{"control.gain", floatVar(&c.Control.Gain)},
		{"control.powerWindow", intVar(&c.Control.PowerWindow)},
		{"control.relayPeriod", durationVar(&c.Control.RelayPeriod)},
		{"control.tickInterval", durationVar(&c.Control.TickInterval)},
		{"control.statusInterval", durationVar(&c.Control.StatusInterval)},
		{"boiler.ambient", floatVar(&c.Boiler.Ambient)},
		{"boiler.heaterPower", floatVar(&c.Boiler.HeaterPower)},
		{"boiler.heatCapacity", floatVar(&c.Boiler.HeatCapacity)},
		{"boiler.loss", floatVar(&c.Boiler.Loss)},
		{"boiler.noise", floatVar(&c.Boiler.Noise)},
		{"boiler.seed", uintVar(&c.Boiler.Seed)},
		{"http.address", stringVar(&c.HTTP.Address)},
		{"mqtt.enabled", boolVar(&c.MQTT.Enabled)},
		{"mqtt.hostname", stringVar(&c.MQTT.Hostname)},
		{"mqtt.tcpPort", intVar(&c.MQTT.TCPPort)},
		{"mqtt.clientId", stringVar(&c.MQTT.ClientID)},
		{"mqtt.topicPrefix", stringVar(&c.MQTT.TopicPrefix)},
		{"mqtt.keepAlive", durationVar(&c.MQTT.KeepAlive)},
		{"mqtt.username", stringVar(&c.MQTT.Username)},
		{"mqtt.passwordFile", stringVar(&c.MQTT.PasswordFile)},
		{"mqtt.embeddedBroker", boolVar(&c.MQTT.EmbeddedBroker)},
		{"mqtt.connectAttempts", intVar(&c.MQTT.ConnectAttempts)},
		{"log.level", func(v string) error {
			return c.Log.Level.UnmarshalText([]byte(v))
		}},
	}
}

func stringVar(p *string) func(string) error {
	return func(v string) error {
		*p = v
		return nil
	}
}

func intVar(p *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			*p = n
		}
		return err
	}
}

func uintVar(p *uint64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			*p = n
		}
		return err
	}
}

func floatVar(p *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			*p = f
		}
		return err
	}
}

func boolVar(p *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err == nil {
			*p = b
		}
		return err
	}
}

func durationVar(p *Duration) func(string) error {
	return func(v string) error {
		d, err := ParseDuration(v)
		if err == nil {
			*p = Duration(d)
		}
		return err
	}
}
