// Package registration tracks EPS network registration as reported by the
// modem through +CEREG, and publishes every change on signals.
package registration

// Status is the <stat> field of a +CEREG report.
type Status uint8

const (
	// NotRegistered means the modem is not registered and not searching.
	NotRegistered Status = 0
	// RegisteredHome means registered on the home network.
	RegisteredHome Status = 1
	// Searching means not registered but searching for an operator.
	Searching Status = 2
	// Denied means registration was denied.
	Denied Status = 3
	// Unknown is reported for out of coverage and any code not modelled here.
	Unknown Status = 4
	// RegisteredRoaming means registered on a visited network.
	RegisteredRoaming Status = 5
)

// StatusFromCode maps a 3GPP <stat> code to a Status. Codes other than
// 0, 1, 2, 3 and 5 map to Unknown.
func StatusFromCode(code uint8) Status {
	switch Status(code) {
	case NotRegistered, RegisteredHome, Searching, Denied, RegisteredRoaming:
		return Status(code)
	default:
		return Unknown
	}
}

// IsRegistered reports whether the status allows data traffic.
func (s Status) IsRegistered() bool {
	return s == RegisteredHome || s == RegisteredRoaming
}

func (s Status) String() string {
	switch s {
	case NotRegistered:
		return "Not registered"
	case RegisteredHome:
		return "Registered (home network)"
	case Searching:
		return "Searching..."
	case Denied:
		return "Registration denied"
	case RegisteredRoaming:
		return "Registered (roaming)"
	default:
		return "Unknown"
	}
}
