package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/simensrostad/mailpal/at"
)

const (
	simPollInterval = 500 * time.Millisecond
	simPollTimeout  = 30 * time.Second
)

// init brings the modem into a known state. It runs before Loop exists and
// talks to the transport directly.
func (m *Modem) init(ctx context.Context) error {
	if err := m.directOK(ctx, at.CmdAt); err != nil {
		return fmt.Errorf("modem not responding: %w", err)
	}
	if err := m.directOK(ctx, at.CmdEchoOff); err != nil {
		return fmt.Errorf("disable echo: %w", err)
	}
	if err := m.directOK(ctx, at.CmdVerboseErrors); err != nil {
		return fmt.Errorf("enable verbose errors: %w", err)
	}

	sim, err := m.direct(ctx, at.CmdSimStatus)
	if err != nil {
		return fmt.Errorf("query SIM status: %w", err)
	}

	switch {
	case strings.Contains(sim, at.SimReady):
		return nil
	case strings.Contains(sim, at.SimPin):
		if m.config.simPIN == "" {
			return ErrSIMPinRequired
		}
		if err := m.directOK(ctx, fmt.Sprintf(`AT+CPIN="%s"`, m.config.simPIN)); err != nil {
			return fmt.Errorf("enter SIM PIN: %w", err)
		}
		return m.awaitSIM(ctx)
	default:
		return fmt.Errorf("unsupported SIM state: %q", sim)
	}
}

// direct runs one command synchronously on the transport. URCs other than
// the command's own reply are discarded.
func (m *Modem) direct(ctx context.Context, cmd string) (string, error) {
	if m.closed.Load() {
		return "", ErrAlreadyClosed
	}
	if m.transport == nil {
		return "", ErrNotInitialized
	}

	wire := strings.TrimSpace(cmd) + "\r"
	if _, err := m.transport.Write([]byte(wire)); err != nil {
		return "", fmt.Errorf("write command %q: %w", cmd, err)
	}

	scanner := newScanner(m.transport)
	var lines []string
	for {
		if err := ctx.Err(); err != nil {
			return strings.Join(lines, "\n"), err
		}
		if !scanner.Scan() {
			if err := scanErr(scanner); err != nil {
				return strings.Join(lines, "\n"), fmt.Errorf("read error: %w", err)
			}
			return strings.Join(lines, "\n"), io.EOF
		}

		token := scanner.Text()
		if token == "" {
			continue
		}

		switch at.Classify(token) {
		case at.TypeFinal:
			lines = append(lines, token)
			if token != at.OK {
				return strings.Join(lines, "\n"), errors.New(token)
			}
			return strings.Join(lines, "\n"), nil
		case at.TypePrompt:
			lines = append(lines, token)
			return strings.Join(lines, "\n"), nil
		case at.TypeURC:
			if at.Answers(cmd, token) {
				lines = append(lines, token)
			}
		default:
			lines = append(lines, token)
		}
	}
}

func (m *Modem) directOK(ctx context.Context, cmd string) error {
	resp, err := m.direct(ctx, cmd)
	if err != nil {
		return err
	}
	if !at.HasOK(resp) {
		return fmt.Errorf("unexpected response: %q", resp)
	}
	return nil
}

// awaitSIM polls AT+CPIN? after a PIN was entered until the SIM reports
// READY.
func (m *Modem) awaitSIM(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, simPollTimeout)
	defer cancel()

	ticker := time.NewTicker(simPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("SIM not ready: %w", ctx.Err())
		case <-ticker.C:
			resp, err := m.direct(ctx, at.CmdSimStatus)
			switch {
			case errors.Is(err, ErrAlreadyClosed), errors.Is(err, ErrNotInitialized):
				return fmt.Errorf("SIM status check failed: %w", err)
			case err == nil && strings.Contains(resp, at.SimReady):
				return nil
			}
		}
	}
}
