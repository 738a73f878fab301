package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := LoadConfig(WithDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.BaudRate != 115200 || config.ATTimeout != 5*time.Second || config.RegistrationInterval != 30*time.Second {
			t.Errorf("unexpected defaults: %+v", config)
		}
		if config.MQTT.Broker != "" {
			t.Errorf("telemetry should be disabled by default")
		}
		if config.MQTT.ClientID != "" {
			t.Errorf("client id should default to a generated one, got %q", config.MQTT.ClientID)
		}
	})

	t.Run("File overrides defaults", func(t *testing.T) {
		path := writeFile(t, "mailpal.yaml", `
serial_port: /dev/ttyUSB3
at_timeout: 2s
gateway: 10.0.0.1
mqtt:
  broker: tcp://localhost:1883
  topic: devices/42
`)
		config, err := LoadConfig(WithDefaults(), WithFile(path))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyUSB3" {
			t.Errorf("unexpected serial port %q", config.SerialPort)
		}
		if config.ATTimeout != 2*time.Second {
			t.Errorf("unexpected AT timeout %v", config.ATTimeout)
		}
		if config.MQTT.Broker != "tcp://localhost:1883" || config.MQTT.Topic != "devices/42" {
			t.Errorf("unexpected MQTT config %+v", config.MQTT)
		}
		if config.BaudRate != 115200 {
			t.Errorf("default baud rate lost: %d", config.BaudRate)
		}
	})

	t.Run("Unknown file keys are rejected", func(t *testing.T) {
		path := writeFile(t, "mailpal.yaml", "serial_prot: /dev/ttyUSB3\n")
		if _, err := LoadConfig(WithDefaults(), WithFile(path)); err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("Missing file is an error", func(t *testing.T) {
		if _, err := LoadConfig(WithFile(filepath.Join(t.TempDir(), "missing.yaml"))); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		path := writeFile(t, "mailpal.yaml", "baud_rate: 9600\nlog_level: warn\n")
		t.Setenv("BAUD_RATE", "57600")
		t.Setenv("REGISTRATION_INTERVAL", "1m")
		t.Setenv("MQTT_BROKER", "tcp://broker:1883")

		config, err := LoadConfig(WithDefaults(), WithFile(path), WithEnv())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.BaudRate != 57600 {
			t.Errorf("expected env baud rate, got %d", config.BaudRate)
		}
		if config.LogLevel != "warn" {
			t.Errorf("expected file log level, got %q", config.LogLevel)
		}
		if config.RegistrationInterval != time.Minute {
			t.Errorf("unexpected interval %v", config.RegistrationInterval)
		}
		if config.MQTT.Broker != "tcp://broker:1883" {
			t.Errorf("unexpected broker %q", config.MQTT.Broker)
		}
	})

	t.Run("Invalid environment value", func(t *testing.T) {
		t.Setenv("AT_TIMEOUT", "soon")
		if _, err := LoadConfig(WithDefaults(), WithEnv()); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("Dotenv file feeds the environment", func(t *testing.T) {
		// Registers restoration of the variable, then leaves it unset
		t.Setenv("SIM_PIN", "")
		os.Unsetenv("SIM_PIN")

		path := writeFile(t, ".env", "SIM_PIN=1234\n")
		config, err := LoadConfig(WithDefaults(), WithDotEnv(path), WithEnv())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SimPIN != "1234" {
			t.Errorf("expected SIM PIN from .env, got %q", config.SimPIN)
		}
	})

	t.Run("Missing dotenv file is ignored", func(t *testing.T) {
		if _, err := LoadConfig(WithDotEnv(filepath.Join(t.TempDir(), ".env"))); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Flags override everything", func(t *testing.T) {
		t.Setenv("SERIAL_PORT", "/dev/ttyUSB1")

		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.String("serial-port", "/dev/ttyACM0", "")
		fs.Duration("at-timeout", 5*time.Second, "")
		fs.String("mqtt-topic", "mailpal", "")
		fs.String("gateway", "", "")
		if err := fs.Parse([]string{"-serial-port", "/dev/ttyUSB9", "-at-timeout", "750ms", "-gateway", "10.0.0.1"}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(fs))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.SerialPort != "/dev/ttyUSB9" {
			t.Errorf("expected flag serial port, got %q", config.SerialPort)
		}
		if config.ATTimeout != 750*time.Millisecond {
			t.Errorf("unexpected AT timeout %v", config.ATTimeout)
		}
		if config.Gateway != "10.0.0.1" {
			t.Errorf("unexpected gateway %q", config.Gateway)
		}
		// Unset flags keep earlier values
		if config.MQTT.Topic != "mailpal" {
			t.Errorf("unexpected topic %q", config.MQTT.Topic)
		}
	})
}
