package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("", reg)

	m.FramesBroadcast.Inc()
	m.FramesBroadcast.Inc()
	if got := testutil.ToFloat64(m.FramesBroadcast); got != 2 {
		t.Fatalf("frames broadcast got %v want 2", got)
	}

	m.InputEvents.WithLabelValues("wheel").Inc()
	if got := testutil.ToFloat64(m.InputEvents.WithLabelValues("wheel")); got != 1 {
		t.Fatalf("wheel events got %v want 1", got)
	}

	m.ConnectedClients.Set(3)
	if got := testutil.ToFloat64(m.ConnectedClients); got != 3 {
		t.Fatalf("clients got %v want 3", got)
	}
}

func TestMetricsIsolatedRegistries(t *testing.T) {
	// Two instances must not collide when given separate registries.
	a := NewMetrics("", prometheus.NewRegistry())
	b := NewMetrics("", prometheus.NewRegistry())
	a.UpdateErrors.Inc()
	if got := testutil.ToFloat64(b.UpdateErrors); got != 0 {
		t.Fatalf("registries should be isolated, got %v", got)
	}
}
