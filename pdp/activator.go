package pdp

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/simensrostad/mailpal/at"
	"github.com/simensrostad/mailpal/metrics"
	"github.com/simensrostad/mailpal/modem"
)

// Timing holds the settle delays of the activation sequence. They match
// how long the modem takes to bring a context up after each step.
type Timing struct {
	// Settle is waited before anything else, while the modem may still be
	// auto-activating the default context.
	Settle time.Duration
	// DefineSettle follows the context definition.
	DefineSettle time.Duration
	// ActivateSettle follows the activation command.
	ActivateSettle time.Duration
	// ErrorBackoff is waited once more when activation reports an error.
	ErrorBackoff time.Duration
	// CommandTimeout bounds the definition and activation commands, which
	// the network may take far longer to answer than a plain query.
	CommandTimeout time.Duration
}

func (t *Timing) setDefaults() {
	if t.Settle <= 0 {
		t.Settle = time.Second
	}
	if t.DefineSettle <= 0 {
		t.DefineSettle = 100 * time.Millisecond
	}
	if t.ActivateSettle <= 0 {
		t.ActivateSettle = time.Second
	}
	if t.ErrorBackoff <= 0 {
		t.ErrorBackoff = 2 * time.Second
	}
	if t.CommandTimeout <= 0 {
		t.CommandTimeout = 150 * time.Second
	}
}

// Activator runs the activation sequence for the default context (cid 0).
// It keeps no state between calls.
type Activator struct {
	exch    modem.Exchanger
	timing  Timing
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewActivator creates an Activator. Zero timing fields take their defaults.
func NewActivator(exch modem.Exchanger, timing Timing, logger *slog.Logger, m *metrics.Metrics) *Activator {
	timing.setDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Activator{
		exch:    exch,
		timing:  timing,
		logger:  logger.With("component", "pdp"),
		metrics: m,
	}
}

// Activate returns the address of the default context, activating it first
// if the modem has not done so on its own. An address that is already
// assigned is returned without sending any context command. If the
// activation reply carries an error, the address is queried once more after
// ErrorBackoff. Every failure to end up with an address is
// ErrActivationFailed; a done ctx returns ctx.Err().
func (a *Activator) Activate(ctx context.Context) (netip.Addr, error) {
	if err := sleep(ctx, a.timing.Settle); err != nil {
		return netip.Addr{}, err
	}

	if addr, ok := a.Address(ctx); ok {
		a.logger.Info("PDP context already active", "address", addr)
		a.metrics.Activation("already_active")
		return addr, nil
	}

	if _, err := a.execContext(ctx, at.CmdDefineContext); err != nil {
		a.logger.Debug("Context definition failed", "error", err)
	}
	if err := sleep(ctx, a.timing.DefineSettle); err != nil {
		return netip.Addr{}, err
	}

	resp, err := a.execContext(ctx, at.CmdActivateContext)
	if err := sleep(ctx, a.timing.ActivateSettle); err != nil {
		return netip.Addr{}, err
	}

	if at.HasError(resp) {
		a.logger.Warn("Context activation rejected, retrying address query", "response", resp, "error", err)
		if err := sleep(ctx, a.timing.ErrorBackoff); err != nil {
			return netip.Addr{}, err
		}
	}

	addr, ok := a.Address(ctx)
	if !ok {
		if ctx.Err() != nil {
			return netip.Addr{}, ctx.Err()
		}
		a.metrics.Activation("failed")
		return netip.Addr{}, ErrActivationFailed
	}

	a.logger.Info("PDP context activated", "address", addr)
	a.metrics.Activation("activated")
	return addr, nil
}

// Deactivate tears the default context down. It succeeds only when the
// modem answers OK.
func (a *Activator) Deactivate(ctx context.Context) error {
	resp, err := a.exch.Exec(ctx, at.CmdDeactivateContext)
	if err != nil || !at.HasOK(resp) {
		a.logger.Warn("Context deactivation failed", "response", resp, "error", err)
		return ErrDeactivationFailed
	}
	return nil
}

// Address queries the address of the default context. It returns false
// when the exchange fails or the reply holds no IPv4 address.
func (a *Activator) Address(ctx context.Context) (netip.Addr, bool) {
	resp, err := a.exch.Exec(ctx, at.CmdQueryAddress)
	if err != nil {
		a.logger.Debug("Address query failed", "error", err)
		return netip.Addr{}, false
	}
	return ParseAddress(resp)
}

// execContext runs a context command under CommandTimeout instead of the
// modem's default AT timeout.
func (a *Activator) execContext(ctx context.Context, cmd string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timing.CommandTimeout)
	defer cancel()
	return a.exch.Exec(ctx, cmd)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
