package modem

import (
	"context"
	"fmt"
	"strings"

	"github.com/simensrostad/mailpal/at"
)

// Enable sets the modem to full functionality (AT+CFUN=1), which starts
// network search and registration.
func (m *Modem) Enable(ctx context.Context) error {
	return m.expectOK(ctx, at.CmdRadioOn)
}

// Disable powers the radio down (AT+CFUN=0).
func (m *Modem) Disable(ctx context.Context) error {
	return m.expectOK(ctx, at.CmdRadioOff)
}

// FirmwareVersion returns the modem firmware revision (AT+CGMR).
func (m *Modem) FirmwareVersion(ctx context.Context) (string, error) {
	return m.info(ctx, at.CmdFirmwareVersion)
}

// IMEI returns the product serial number (AT+CGSN).
func (m *Modem) IMEI(ctx context.Context) (string, error) {
	return m.info(ctx, at.CmdIMEI)
}

// expectOK runs cmd through Exec and requires an OK final result.
func (m *Modem) expectOK(ctx context.Context, cmd string) error {
	resp, err := m.Exec(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCommandFailed, cmd, err)
	}
	if !at.HasOK(resp) {
		return fmt.Errorf("%w: %s: unexpected response %q", ErrCommandFailed, cmd, resp)
	}
	return nil
}

// info runs a query whose answer is a bare information line.
func (m *Modem) info(ctx context.Context, cmd string) (string, error) {
	resp, err := m.Exec(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrCommandFailed, cmd, err)
	}

	var lines []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || at.Classify(line) == at.TypeFinal {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: %s: empty response", ErrCommandFailed, cmd)
	}
	return strings.Join(lines, "\n"), nil
}
