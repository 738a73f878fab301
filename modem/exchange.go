package modem

import "context"

//go:generate go tool mockgen -source=exchange.go -destination=mock_exchange.go -package=modem

// Exchanger is the AT exchange capability: send one command, receive the
// complete response. Implementations must allow only one exchange in flight
// at a time; *Modem does so by serializing Exec callers.
type Exchanger interface {
	Exec(ctx context.Context, cmd string) (string, error)
}

var _ Exchanger = (*Modem)(nil)
