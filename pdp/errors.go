package pdp

import "errors"

var (
	// ErrActivationFailed is returned when the activation sequence ends
	// without an address. It does not tell a rejected command apart from
	// an address that never appeared.
	ErrActivationFailed = errors.New("PDP context activation failed")

	// ErrDeactivationFailed is returned when the modem does not acknowledge
	// the deactivation command with OK.
	ErrDeactivationFailed = errors.New("PDP context deactivation failed")
)
