package modem

import (
	"log/slog"
	"time"

	"github.com/simensrostad/mailpal/metrics"
)

// Config holds the settings used by New. Build it with NewConfigBuilder.
type Config struct {
	dialer      Dialer
	simPIN      string
	atTimeout   time.Duration
	initTimeout time.Duration
	// drainTimeout bounds how long the late reply of a timed out command
	// is waited for before the next command is written.
	drainTimeout time.Duration
	urcBuffer    int
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.atTimeout == 0 {
		c.atTimeout = 5 * time.Second
	}
	if c.initTimeout == 0 {
		c.initTimeout = 30 * time.Second
	}
	if c.drainTimeout <= 0 {
		c.drainTimeout = time.Minute
	}
	if c.urcBuffer <= 0 {
		c.urcBuffer = 100
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the Dialer used to open the transport. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithSimPIN sets the PIN entered when the SIM reports "SIM PIN".
func (b *ConfigBuilder) WithSimPIN(pin string) *ConfigBuilder {
	b.config.simPIN = pin
	return b
}

// WithATTimeout sets the default per-command timeout.
func (b *ConfigBuilder) WithATTimeout(d time.Duration) *ConfigBuilder {
	b.config.atTimeout = d
	return b
}

// WithInitTimeout bounds the whole initialization sequence.
func (b *ConfigBuilder) WithInitTimeout(d time.Duration) *ConfigBuilder {
	b.config.initTimeout = d
	return b
}

// WithDrainTimeout bounds how long the Loop keeps discarding the reply of a
// timed out command before it writes the next one.
func (b *ConfigBuilder) WithDrainTimeout(d time.Duration) *ConfigBuilder {
	b.config.drainTimeout = d
	return b
}

// WithURCBuffer sets the capacity of the URC channel.
func (b *ConfigBuilder) WithURCBuffer(n int) *ConfigBuilder {
	b.config.urcBuffer = n
	return b
}

// WithLogger sets the logger used by the event loop.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// WithMetrics enables AT channel instrumentation.
func (b *ConfigBuilder) WithMetrics(m *metrics.Metrics) *ConfigBuilder {
	b.config.metrics = m
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
