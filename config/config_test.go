// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coffeepid/thermo/config"
	"github.com/coffeepid/thermo/errors"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestDecode(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Decode([]byte(`
store:
  capacity: 7200
  admitInterval: PT2S
control:
  target: 95.5
  tickInterval: 250ms
mqtt:
  enabled: true
  topicPrefix: lab/boiler
log:
  level: debug
`)))

	require.Equal(t, 7200, cfg.Store.Capacity)
	require.Equal(t, 2*time.Second, cfg.Store.AdmitInterval.Std())
	require.Equal(t, 0.1, cfg.Store.Threshold)
	require.Equal(t, 95.5, cfg.Control.Target)
	require.Equal(t, 250*time.Millisecond, cfg.Control.TickInterval.Std())
	require.True(t, cfg.MQTT.Enabled)
	require.Equal(t, "lab/boiler", cfg.MQTT.TopicPrefix)
	require.Equal(t, 1883, cfg.MQTT.TCPPort)
	require.Equal(t, slog.LevelDebug, cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestDecodeEmpty(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Decode(nil))
	require.Equal(t, config.Default(), cfg)
}

func TestDecodeUnknownKey(t *testing.T) {
	err := config.Default().Decode([]byte("store:\n  capacty: 10\n"))
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestDecodeBadDuration(t *testing.T) {
	err := config.Default().Decode([]byte("store:\n  admitInterval: soon\n"))
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Store.AdmitInterval = config.Duration(1500 * time.Millisecond)
	cfg.Log.Level = slog.LevelWarn

	data, err := cfg.Encode()
	require.NoError(t, err)

	back := config.Default()
	require.NoError(t, back.Decode(data))
	require.Equal(t, cfg, back)
}

func TestEnvName(t *testing.T) {
	require.Equal(t, "THERMO_MQTT_TOPIC_PREFIX", config.EnvName("mqtt.topicPrefix"))
	require.Equal(t, "THERMO_STORE_ADMIT_INTERVAL", config.EnvName("store.admitInterval"))
	require.Equal(t, "THERMO_HTTP_ADDRESS", config.EnvName("http.address"))
	require.Contains(t, config.Default().EnvNames(), "THERMO_MQTT_TCP_PORT")
}

func TestApplyEnv(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.ApplyEnv([]string{
		"PATH=/usr/bin",
		"THERMO_STORE_CAPACITY=10",
		"THERMO_STORE_ADMIT_INTERVAL=PT0.5S",
		"THERMO_CONTROL_TARGET=91.25",
		"THERMO_MQTT_ENABLED=true",
		"THERMO_MQTT_TOPIC_PREFIX=kitchen",
		"THERMO_LOG_LEVEL=warn",
		"THERMO_UNKNOWN=1",
	}))

	require.Equal(t, 10, cfg.Store.Capacity)
	require.Equal(t, 500*time.Millisecond, cfg.Store.AdmitInterval.Std())
	require.Equal(t, 91.25, cfg.Control.Target)
	require.True(t, cfg.MQTT.Enabled)
	require.Equal(t, "kitchen", cfg.MQTT.TopicPrefix)
	require.Equal(t, slog.LevelWarn, cfg.Log.Level)
}

func TestApplyEnvInvalid(t *testing.T) {
	err := config.Default().ApplyEnv([]string{"THERMO_STORE_CAPACITY=lots"})
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, "store.capacity", e.PropertyName)
	require.Equal(t, "lots", e.PropertyValue)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"store.capacity":      func(c *config.Config) { c.Store.Capacity = 0 },
		"store.admitInterval": func(c *config.Config) { c.Store.AdmitInterval = 0 },
		"store.threshold":     func(c *config.Config) { c.Store.Threshold = -1 },
		"control.gain":        func(c *config.Config) { c.Control.Gain = 0 },
		"control.powerWindow": func(c *config.Config) { c.Control.PowerWindow = 0 },
		"boiler.heatCapacity": func(c *config.Config) { c.Boiler.HeatCapacity = 0 },
		"http.address":        func(c *config.Config) { c.HTTP.Address = "" },
		"mqtt.tcpPort": func(c *config.Config) {
			c.MQTT.Enabled = true
			c.MQTT.TCPPort = 70000
		},
		"mqtt.keepAlive": func(c *config.Config) {
			c.MQTT.EmbeddedBroker = true
			c.MQTT.KeepAlive = config.Duration(time.Millisecond)
		},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)

			err := cfg.Validate()
			var e *errors.Error
			require.ErrorAs(t, err, &e)
			require.Equal(t, errors.ConfigurationInvalid, e.Kind)
			require.Equal(t, name, e.PropertyName)
		})
	}
}

func TestMQTTSettingsIgnoredWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.MQTT.TCPPort = 0
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thermod.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  capacity: 42\n"), 0o600))

	t.Setenv("THERMO_CONTROL_GAIN", "12.5")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 42, cfg.Store.Capacity)
	require.Equal(t, 12.5, cfg.Control.Gain)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))

	t.Setenv("THERMO_STORE_CAPACITY", "-1")
	_, err = config.Load(path)
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestPassword(t *testing.T) {
	cfg := config.Default()
	pw, err := cfg.Password()
	require.NoError(t, err)
	require.Nil(t, pw)

	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("pineapple\n"), 0o600))
	cfg.MQTT.PasswordFile = path
	pw, err = cfg.Password()
	require.NoError(t, err)
	require.Equal(t, []byte("pineapple"), pw)
}

func TestParseDuration(t *testing.T) {
	d, err := config.ParseDuration("PT1M30S")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	d, err = config.ParseDuration("1m30s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = config.ParseDuration("ninety")
	require.Error(t, err)
}
