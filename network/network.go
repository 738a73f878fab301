// Package network holds the IPv4 configuration handed to the host network
// stack once a PDP context is up. Cellular links get their address from the
// PDP context rather than DHCP, so the configuration is always static.
package network

import (
	"context"
	"net/netip"
	"sync"
	"time"
)

//go:generate go tool mockgen -source=network.go -destination=mock_network.go -package=network

// PrefixLen is the prefix length applied to PDP addresses.
const PrefixLen = 24

// StaticConfig is a static IPv4 configuration. Gateway is the zero Addr
// when none is known. DNS servers are never configured.
type StaticConfig struct {
	Address netip.Prefix `json:"address"`
	Gateway netip.Addr   `json:"gateway,omitzero"`
}

// Configurator is a network stack handle that accepts a static IPv4
// configuration.
type Configurator interface {
	SetConfigV4(config StaticConfig)
}

// Configure sets addr/24 with an optional gateway on stack and returns the
// configuration applied.
func Configure(stack Configurator, addr, gateway netip.Addr) StaticConfig {
	config := StaticConfig{
		Address: netip.PrefixFrom(addr, PrefixLen),
		Gateway: gateway,
	}
	stack.SetConfigV4(config)
	return config
}

// Stack is an in-memory Configurator. It records the configuration for
// status reporting and lets goroutines wait for the first one.
type Stack struct {
	mu     sync.RWMutex
	config StaticConfig
	up     bool
}

var _ Configurator = (*Stack)(nil)

// NewStack returns a stack with no configuration.
func NewStack() *Stack {
	return &Stack{}
}

// SetConfigV4 replaces the current configuration.
func (s *Stack) SetConfigV4(config StaticConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
	s.up = config.Address.IsValid()
}

// ConfigV4 returns the current configuration, if any.
func (s *Stack) ConfigV4() (StaticConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, s.up
}

// IsConfigUp reports whether an address has been configured.
func (s *Stack) IsConfigUp() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.up
}

// WaitForConfig polls every 100ms until an address is configured.
func (s *Stack) WaitForConfig(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for !s.IsConfigUp() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
