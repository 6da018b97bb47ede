package sim

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"dcmetrics-sim/internal/telemetry"
)

func TestPrometheusWriter(t *testing.T) {
	reg := prometheus.NewRegistry()
	w, err := NewPrometheusWriter(reg)
	if err != nil {
		t.Fatalf("NewPrometheusWriter: %v", err)
	}
	ts := time.Unix(0, 0)
	_ = w.Write(telemetry.NewReading("zone-A", "srv-01-rack-01", telemetry.MetricCPUUsage, 40, ts))
	_ = w.Write(telemetry.NewReading("zone-A", "srv-01-rack-01", telemetry.MetricCPUUsage, 44, ts))
	_ = w.Write(telemetry.NewReading("zone-A", "srv-02-rack-01", telemetry.MetricCPUUsage, 10, ts))

	if got := testutil.ToFloat64(w.hostValue.WithLabelValues("zone-A", "srv-01-rack-01", "CPU_USAGE")); got != 44 {
		t.Fatalf("host value = %v, want 44", got)
	}
	if got := testutil.ToFloat64(w.readings.WithLabelValues("zone-A", "CPU_USAGE")); got != 3 {
		t.Fatalf("readings = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(w.hostValue); n != 2 {
		t.Fatalf("expected 2 host series, got %d", n)
	}
}

func TestPrometheusWriterDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusWriter(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusWriter(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
