package telemetry

import (
	"strings"
	"testing"
)

func TestClientID(t *testing.T) {
	t.Run("Configured id is kept", func(t *testing.T) {
		if got := clientID(Config{ClientID: "dev-42"}); got != "dev-42" {
			t.Errorf("expected dev-42, got %q", got)
		}
	})

	t.Run("Missing id is generated per call", func(t *testing.T) {
		first, second := clientID(Config{}), clientID(Config{})
		if !strings.HasPrefix(first, "mailpal-") {
			t.Errorf("unexpected generated id %q", first)
		}
		if first == second {
			t.Errorf("generated ids collide: %q", first)
		}
	})
}
