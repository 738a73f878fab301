package pdp

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/simensrostad/mailpal/metrics"
	"github.com/simensrostad/mailpal/network"
	"github.com/simensrostad/mailpal/registration"
	"github.com/simensrostad/mailpal/signal"
)

// MonitorConfig configures the Monitor.
type MonitorConfig struct {
	// Settle is waited after a registered status before touching the context.
	Settle time.Duration
	// Gateway is handed to the network stack together with the address.
	// The zero Addr means no gateway.
	Gateway netip.Addr
}

func (c *MonitorConfig) setDefaults() {
	if c.Settle <= 0 {
		c.Settle = 500 * time.Millisecond
	}
}

// Monitor follows registration changes, keeps the default context up and
// the network stack configured, and publishes the outcome on its signals.
// Only Run publishes.
type Monitor struct {
	activator     *Activator
	stack         network.Configurator
	registrations *signal.Signal[registration.Status]
	signals       []*signal.Signal[Status]
	config        MonitorConfig
	logger        *slog.Logger
	metrics       *metrics.Metrics

	// deactivations carries Deactivate requests to Run
	deactivations chan deactivation

	mu     sync.RWMutex
	status Status
}

type deactivation struct {
	ctx  context.Context
	done chan error
}

// NewMonitor creates a Monitor that consumes registrations, which must not
// be shared with another consumer.
func NewMonitor(
	activator *Activator,
	stack network.Configurator,
	registrations *signal.Signal[registration.Status],
	config MonitorConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
	signals ...*signal.Signal[Status],
) *Monitor {
	config.setDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		activator:     activator,
		stack:         stack,
		registrations: registrations,
		signals:       signals,
		config:        config,
		logger:        logger.With("component", "pdp"),
		metrics:       m,
		deactivations: make(chan deactivation),
		status:        Deactivated(),
	}
}

// Run waits for the first registration and activates the context, then
// reacts to every registration change until ctx is done:
//
//   - registered: after Settle the address is queried again and, when
//     present, the stack is reconfigured and Activated is published;
//     when absent nothing is published
//   - not registered: Deactivated is published at once
//
// A failed activation publishes Deactivated and is not retried until the
// next registration change. Deactivate requests are served between
// registration changes.
func (m *Monitor) Run(ctx context.Context) error {
	started := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case req := <-m.deactivations:
			req.done <- m.deactivate(req.ctx)

		case status := <-m.registrations.C():
			var err error
			if started {
				err = m.registrationChanged(ctx, status)
			} else {
				started, err = m.firstRegistration(ctx, status)
			}
			if err != nil {
				return err
			}
		}
	}
}

// firstRegistration activates the context once status is registered and
// reports whether it did.
func (m *Monitor) firstRegistration(ctx context.Context, status registration.Status) (bool, error) {
	if !status.IsRegistered() {
		return false, nil
	}
	if err := sleep(ctx, m.config.Settle); err != nil {
		return false, err
	}

	addr, err := m.activator.Activate(ctx)
	switch {
	case err == nil:
		m.activated(addr)
	case ctx.Err() != nil:
		return false, ctx.Err()
	default:
		m.logger.Error("PDP activation failed", "error", err)
		m.publish(Deactivated())
	}
	return true, nil
}

func (m *Monitor) registrationChanged(ctx context.Context, status registration.Status) error {
	if !status.IsRegistered() {
		m.publish(Deactivated())
		return nil
	}

	if err := sleep(ctx, m.config.Settle); err != nil {
		return err
	}
	addr, ok := m.activator.Address(ctx)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("Registered but no PDP address assigned", "registration", status.String())
		return nil
	}
	m.metrics.Activation("refreshed")
	m.activated(addr)
	return nil
}

// Deactivate asks Run to tear the context down. On success the stack
// configuration is cleared and Deactivated is published. It blocks until
// Run has handled the request or ctx is done, so Run must be running.
func (m *Monitor) Deactivate(ctx context.Context) error {
	req := deactivation{ctx: ctx, done: make(chan error, 1)}
	select {
	case m.deactivations <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) deactivate(ctx context.Context) error {
	if err := m.activator.Deactivate(ctx); err != nil {
		return err
	}
	m.stack.SetConfigV4(network.StaticConfig{})
	m.logger.Info("Network configuration cleared")
	m.publish(Deactivated())
	return nil
}

// Status returns the last published status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) activated(addr netip.Addr) {
	config := network.Configure(m.stack, addr, m.config.Gateway)
	m.logger.Info("Network configured", "address", config.Address.String())
	m.publish(Activated(addr))
}

func (m *Monitor) publish(status Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()

	m.metrics.PDPState(status.IsActivated())
	for _, s := range m.signals {
		s.Signal(status)
	}
}

// WaitForActivation waits on sig until an Activated status arrives and
// returns its address. Deactivated values are discarded; consumers that
// care about them must read sig directly.
func WaitForActivation(ctx context.Context, sig *signal.Signal[Status]) (netip.Addr, error) {
	for {
		status, err := sig.Wait(ctx)
		if err != nil {
			return netip.Addr{}, err
		}
		if status.IsActivated() {
			return status.Addr, nil
		}
	}
}
