// Package pdp brings up the default packet data context once the modem is
// registered and reports connectivity on signals.
package pdp

import (
	"fmt"
	"net/netip"
)

// State is the connectivity state of the default PDP context.
type State int

const (
	// StateDeactivated means the context holds no address, either because
	// activation failed or because the modem lost registration.
	StateDeactivated State = iota
	// StateActivated means the context is up with an IPv4 address.
	StateActivated
)

func (s State) String() string {
	if s == StateActivated {
		return "activated"
	}
	return "deactivated"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "activated":
		*s = StateActivated
	case "deactivated":
		*s = StateDeactivated
	default:
		return fmt.Errorf("unknown PDP state %q", text)
	}
	return nil
}

// Status is either Deactivated or Activated with the assigned address.
type Status struct {
	State State      `json:"state"`
	Addr  netip.Addr `json:"address,omitzero"`
}

// Deactivated returns the status of a context without connectivity.
func Deactivated() Status {
	return Status{State: StateDeactivated}
}

// Activated returns the status of a context that holds addr.
func Activated(addr netip.Addr) Status {
	return Status{State: StateActivated, Addr: addr}
}

// IsActivated reports whether the context holds an address.
func (s Status) IsActivated() bool {
	return s.State == StateActivated
}

func (s Status) String() string {
	if s.IsActivated() {
		return "activated " + s.Addr.String()
	}
	return "deactivated"
}
