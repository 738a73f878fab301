package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address" env:"BIND_ADDRESS"`
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyACM0")
	SerialPort string `yaml:"serial_port" env:"SERIAL_PORT"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int `yaml:"baud_rate" env:"BAUD_RATE"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	// SimPIN is the SIM card PIN code
	SimPIN string `yaml:"sim_pin" env:"SIM_PIN"`
	// ATTimeout bounds every AT exchange
	ATTimeout time.Duration `yaml:"at_timeout" env:"AT_TIMEOUT"`
	// RegistrationInterval is the fallback registration query period
	RegistrationInterval time.Duration `yaml:"registration_interval" env:"REGISTRATION_INTERVAL"`
	// Gateway is the optional IPv4 gateway handed to the network stack
	Gateway string `yaml:"gateway" env:"GATEWAY"`
	// MQTT configures telemetry publishing; an empty broker disables it
	MQTT MQTTConfig `yaml:"mqtt" envPrefix:"MQTT_"`
}

// MQTTConfig holds the telemetry broker settings
type MQTTConfig struct {
	Broker string `yaml:"broker" env:"BROKER"`
	// ClientID must be unique per device; empty picks a random id per boot
	ClientID string `yaml:"client_id" env:"CLIENT_ID"`
	Topic    string `yaml:"topic" env:"TOPIC"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyACM0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.ATTimeout = 5 * time.Second
		c.RegistrationInterval = 30 * time.Second
		c.MQTT.Topic = "mailpal"
		return nil
	}
}

// WithFile loads configuration from a YAML file. An empty path is ignored.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithDotEnv loads variables from .env files into the environment without
// overriding variables that are already set. Missing files are ignored.
func WithDotEnv(paths ...string) ConfigOption {
	return func(c *Config) error {
		if len(paths) == 0 {
			paths = []string{".env"}
		}
		for _, path := range paths {
			if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", path, err)
			}
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if err := env.Parse(c); err != nil {
			return fmt.Errorf("parse environment: %w", err)
		}
		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, convErr := strconv.Atoi(f.Value.String()); convErr == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "sim-pin":
				c.SimPIN = f.Value.String()
			case "at-timeout":
				c.ATTimeout, err = parseDuration(f, err)
			case "registration-interval":
				c.RegistrationInterval, err = parseDuration(f, err)
			case "gateway":
				c.Gateway = f.Value.String()
			case "mqtt-broker":
				c.MQTT.Broker = f.Value.String()
			case "mqtt-topic":
				c.MQTT.Topic = f.Value.String()
			}
		})
		return err
	}
}

// parseDuration reads a duration flag, keeping the first error seen.
func parseDuration(f *flag.Flag, prev error) (time.Duration, error) {
	d, err := time.ParseDuration(f.Value.String())
	if err != nil && prev == nil {
		return 0, fmt.Errorf("flag -%s: %w", f.Name, err)
	}
	return d, prev
}
