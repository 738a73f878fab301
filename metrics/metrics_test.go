package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/simensrostad/mailpal/metrics"
)

func TestMetrics(t *testing.T) {
	t.Run("Commands are labelled by extended command name", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry(), "test")

		m.CommandDone("AT+CGACT=1,0", nil, 10*time.Millisecond)
		m.CommandDone("AT+CGACT=0,0", errors.New("ERROR"), 10*time.Millisecond)
		m.CommandDone("ATE0", nil, time.Millisecond)

		if got := testutil.ToFloat64(m.ATCommands.WithLabelValues("+CGACT", "ok")); got != 1 {
			t.Errorf("expected 1 successful +CGACT, got %v", got)
		}
		if got := testutil.ToFloat64(m.ATCommands.WithLabelValues("+CGACT", "error")); got != 1 {
			t.Errorf("expected 1 failed +CGACT, got %v", got)
		}
		if got := testutil.ToFloat64(m.ATCommands.WithLabelValues("ATE0", "ok")); got != 1 {
			t.Errorf("expected basic command to be labelled verbatim, got %v", got)
		}
	})

	t.Run("Registration and PDP gauges", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry(), "")

		m.RegistrationChanged(5, "Registered (roaming)")
		m.PDPState(true)
		m.Activation("activated")

		if got := testutil.ToFloat64(m.RegistrationStatus); got != 5 {
			t.Errorf("expected registration status 5, got %v", got)
		}
		if got := testutil.ToFloat64(m.PDPActive); got != 1 {
			t.Errorf("expected pdp_active 1, got %v", got)
		}

		m.PDPState(false)
		if got := testutil.ToFloat64(m.PDPActive); got != 0 {
			t.Errorf("expected pdp_active 0, got %v", got)
		}
	})

	t.Run("Nil metrics record nothing", func(t *testing.T) {
		var m *metrics.Metrics
		m.CommandDone("AT", nil, 0)
		m.URCDropped()
		m.RegistrationChanged(1, "home")
		m.Activation("failed")
		m.PDPState(true)
	})
}
