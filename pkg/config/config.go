package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dancavallaro.com/console-menu/pkg/discover"
)

// Config holds the tool's settings. Everything has a sensible default;
// a config file is optional and nothing is ever written back.
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type SerialConfig struct {
	// Pattern selects which device nodes to consider, by substring.
	Pattern string `mapstructure:"pattern"`
	Baud    int    `mapstructure:"baud"`
}

type ProbeConfig struct {
	Attempts    int           `mapstructure:"attempts"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	Parallelism int           `mapstructure:"parallelism"`
}

type MQTTConfig struct {
	BrokerAddress string `mapstructure:"broker_address"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	TopicPrefix   string `mapstructure:"topic_prefix"`
}

type MetricsConfig struct {
	Region        string `mapstructure:"region"`
	Namespace     string `mapstructure:"namespace"`
	MetricName    string `mapstructure:"metric_name"`
	HostDimension string `mapstructure:"host_dimension"`
}

// Load reads settings from defaults, CONSOLE_MENU_* environment variables,
// and an optional yaml config file. With an empty path the usual locations
// are searched and a missing file is fine; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("CONSOLE_MENU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("console_menu")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "console_menu"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.pattern", discover.DefaultPattern)
	v.SetDefault("serial.baud", 115200)

	v.SetDefault("probe.attempts", 3)
	v.SetDefault("probe.read_timeout", 500*time.Millisecond)
	v.SetDefault("probe.parallelism", 8)

	v.SetDefault("mqtt.broker_address", "localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "console")

	v.SetDefault("metrics.region", "us-east-1")
	v.SetDefault("metrics.namespace", "Homelab")
	v.SetDefault("metrics.metric_name", "ConsoleAvailable")
	v.SetDefault("metrics.host_dimension", "Host")
}
