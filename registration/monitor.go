package registration

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/simensrostad/mailpal/at"
	"github.com/simensrostad/mailpal/metrics"
	"github.com/simensrostad/mailpal/modem"
	"github.com/simensrostad/mailpal/signal"
)

// Config holds the monitor timing.
type Config struct {
	// Interval between fallback queries of the registration status.
	Interval time.Duration
	// Settle is the pause between enabling notifications and the first query.
	Settle time.Duration
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 100 * time.Millisecond
	}
}

// Monitor owns the last known registration status. Only QueryStatus changes
// it, and every change is written to each target signal.
type Monitor struct {
	exch    modem.Exchanger
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	signals []*signal.Signal[Status]

	mu   sync.RWMutex
	last Status
}

// NewMonitor creates a monitor with last status Unknown. Each consumer of
// registration changes should pass its own signal.
func NewMonitor(exch modem.Exchanger, config Config, logger *slog.Logger, m *metrics.Metrics, signals ...*signal.Signal[Status]) *Monitor {
	config.setDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		exch:    exch,
		config:  config,
		logger:  logger.With("component", "registration"),
		metrics: m,
		signals: signals,
		last:    Unknown,
	}
}

// EnableNotifications turns on +CEREG reporting with location info. The
// response is not inspected beyond the exchange error.
func (m *Monitor) EnableNotifications(ctx context.Context) error {
	_, err := m.exch.Exec(ctx, at.CmdEnableRegistrationURC)
	return err
}

// QueryStatus asks the modem for its registration status. A parsed value
// that differs from the stored one is stored, published and returned.
// Unchanged values, failed exchanges and unparsable replies return the
// stored status.
func (m *Monitor) QueryStatus(ctx context.Context) Status {
	resp, err := m.exch.Exec(ctx, at.CmdQueryRegistration)
	if err != nil {
		m.logger.Debug("Registration query failed", "error", err)
		return m.Last()
	}

	status, ok := Parse([]byte(resp))
	if !ok {
		m.logger.Debug("Unparsable registration reply", "response", resp)
		return m.Last()
	}

	m.mu.Lock()
	if status == m.last {
		m.mu.Unlock()
		return status
	}
	previous := m.last
	m.last = status
	m.mu.Unlock()

	m.logger.Info("Registration status changed", "from", previous.String(), "to", status.String())
	m.metrics.RegistrationChanged(uint8(status), status.String())
	for _, s := range m.signals {
		s.Signal(status)
	}
	return status
}

// Last returns the stored status without talking to the modem.
func (m *Monitor) Last() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run enables notifications, seeds the status with one query and then
// re-queries every Interval. A +CEREG notification on urcs triggers an
// immediate query; the periodic query keeps running regardless. urcs may be
// nil. Run returns when ctx is done.
func (m *Monitor) Run(ctx context.Context, urcs <-chan string) error {
	if err := m.EnableNotifications(ctx); err != nil {
		m.logger.Warn("Could not enable registration notifications", "error", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.config.Settle):
	}

	m.QueryStatus(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			m.QueryStatus(ctx)

		case urc, ok := <-urcs:
			if !ok {
				urcs = nil
				continue
			}
			if !strings.HasPrefix(urc, at.UrcRegistration) {
				m.logger.Debug("Ignoring URC", "urc", urc)
				continue
			}
			m.QueryStatus(ctx)
		}
	}
}

// WaitForRegistration waits on sig until a registered status arrives and
// returns it. Other statuses are discarded.
func WaitForRegistration(ctx context.Context, sig *signal.Signal[Status]) (Status, error) {
	for {
		status, err := sig.Wait(ctx)
		if err != nil {
			return Unknown, err
		}
		if status.IsRegistered() {
			return status, nil
		}
	}
}
