package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB", cfg.Serial.Pattern)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 3, cfg.Probe.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Probe.ReadTimeout)
	assert.Equal(t, "localhost:1883", cfg.MQTT.BrokerAddress)
	assert.Equal(t, "ConsoleAvailable", cfg.Metrics.MetricName)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console_menu.yaml")
	contents := `
serial:
  pattern: /dev/ttyACM
  baud: 9600
probe:
  attempts: 5
mqtt:
  broker_address: broker.lab:1883
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM", cfg.Serial.Pattern)
	assert.Equal(t, 9600, cfg.Serial.Baud)
	assert.Equal(t, 5, cfg.Probe.Attempts)
	assert.Equal(t, "broker.lab:1883", cfg.MQTT.BrokerAddress)
	// Untouched keys keep their defaults.
	assert.Equal(t, 500*time.Millisecond, cfg.Probe.ReadTimeout)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CONSOLE_MENU_SERIAL_BAUD", "57600")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 57600, cfg.Serial.Baud)
}
