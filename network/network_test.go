package network_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/simensrostad/mailpal/network"
)

func TestConfigure(t *testing.T) {
	t.Run("Applies a /24 prefix without gateway", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		stack := network.NewMockConfigurator(ctrl)
		addr := netip.MustParseAddr("10.160.3.4")

		stack.EXPECT().SetConfigV4(network.StaticConfig{
			Address: netip.MustParsePrefix("10.160.3.4/24"),
		})

		config := network.Configure(stack, addr, netip.Addr{})
		if config.Gateway.IsValid() {
			t.Errorf("expected no gateway, got %v", config.Gateway)
		}
	})

	t.Run("Keeps the gateway", func(t *testing.T) {
		stack := network.NewStack()
		gw := netip.MustParseAddr("10.160.3.1")

		network.Configure(stack, netip.MustParseAddr("10.160.3.4"), gw)

		config, ok := stack.ConfigV4()
		if !ok {
			t.Fatal("expected configuration to be up")
		}
		if config.Gateway != gw {
			t.Errorf("expected gateway %v, got %v", gw, config.Gateway)
		}
		if config.Address.Bits() != network.PrefixLen {
			t.Errorf("expected /%d, got /%d", network.PrefixLen, config.Address.Bits())
		}
	})
}

func TestStack(t *testing.T) {
	t.Run("Starts without configuration", func(t *testing.T) {
		stack := network.NewStack()
		if stack.IsConfigUp() {
			t.Error("new stack should not be up")
		}
		if _, ok := stack.ConfigV4(); ok {
			t.Error("new stack should have no configuration")
		}
	})

	t.Run("WaitForConfig returns once configured", func(t *testing.T) {
		stack := network.NewStack()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		go func() {
			time.Sleep(20 * time.Millisecond)
			network.Configure(stack, netip.MustParseAddr("10.0.0.5"), netip.Addr{})
		}()

		if err := stack.WaitForConfig(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("WaitForConfig returns context error", func(t *testing.T) {
		stack := network.NewStack()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if err := stack.WaitForConfig(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}
