package sim

import (
	"github.com/prometheus/client_golang/prometheus"

	"dcmetrics-sim/internal/telemetry"
)

// PrometheusWriter mirrors the latest reading per host and metric into
// Prometheus gauges so the admin /metrics endpoint can be scraped.
type PrometheusWriter struct {
	hostValue *prometheus.GaugeVec
	readings  *prometheus.CounterVec
}

// NewPrometheusWriter creates the collectors and registers them with reg.
func NewPrometheusWriter(reg prometheus.Registerer) (*PrometheusWriter, error) {
	w := &PrometheusWriter{
		hostValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dcmetrics_host_value",
				Help: "Latest simulated value per host and metric",
			},
			[]string{"zone", "host_id", "metric"},
		),
		readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dcmetrics_readings_total",
				Help: "Readings emitted per zone and metric",
			},
			[]string{"zone", "metric"},
		),
	}
	for _, c := range []prometheus.Collector{w.hostValue, w.readings} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Write records one reading.
func (w *PrometheusWriter) Write(r telemetry.Reading) error {
	w.hostValue.WithLabelValues(r.Zone, r.HostID, string(r.Metric)).Set(r.Value)
	w.readings.WithLabelValues(r.Zone, string(r.Metric)).Inc()
	return nil
}
