// Host state and metric catalog for simulated data-center servers
package telemetry

import (
	"fmt"
	"math"
	"time"
)

// Metric names one simulated server measurement.
type Metric string

// Metric catalog.
const (
	MetricCPUUsage    Metric = "CPU_USAGE"
	MetricMemUsage    Metric = "MEM_USAGE"
	MetricDiskIORead  Metric = "DISK_IO_READ"
	MetricDiskIOWrite Metric = "DISK_IO_WRITE"
	MetricNetIn       Metric = "NET_IN"
	MetricNetOut      Metric = "NET_OUT"
	MetricCPUTemp     Metric = "CPU_TEMP"
)

// metricCatalog is shared by every zone generator and never modified.
var metricCatalog = [...]Metric{
	MetricCPUUsage,
	MetricMemUsage,
	MetricDiskIORead,
	MetricDiskIOWrite,
	MetricNetIn,
	MetricNetOut,
	MetricCPUTemp,
}

// Metrics returns a copy of the metric catalog in selection order.
func Metrics() []Metric {
	out := metricCatalog
	return out[:]
}

// Units reported with readings.
const (
	UnitPercent    = "%"
	UnitMBPerSec   = "MB/s"
	UnitCelsius    = "°C"
	ServersPerRack = 30
)

// Baseline returns the seed value used before a host has reported the metric.
func (m Metric) Baseline() float64 {
	switch m {
	case MetricCPUUsage, MetricMemUsage:
		return 50
	case MetricDiskIORead, MetricDiskIOWrite, MetricNetIn, MetricNetOut:
		return 100
	case MetricCPUTemp:
		return 60
	default:
		return 0
	}
}

// Unit returns the unit string for the metric.
func (m Metric) Unit() string {
	switch m {
	case MetricCPUUsage, MetricMemUsage:
		return UnitPercent
	case MetricDiskIORead, MetricDiskIOWrite, MetricNetIn, MetricNetOut:
		return UnitMBPerSec
	case MetricCPUTemp:
		return UnitCelsius
	default:
		return ""
	}
}

// Clamp bounds v to the valid range of the metric.
func (m Metric) Clamp(v float64) float64 {
	v = math.Max(v, 0)
	if math.IsInf(v, 1) {
		v = math.MaxFloat64
	}
	switch m {
	case MetricCPUUsage, MetricMemUsage:
		v = math.Min(v, 100)
	case MetricCPUTemp:
		v = math.Min(math.Max(v, 20), 100)
	}
	return v
}

// Status is the operational status of a simulated host.
type Status string

// Host status constants.
const (
	StatusNormal     Status = "normal"
	StatusOverloaded Status = "overloaded"
)

// HostState holds runtime state for one simulated server.
type HostState struct {
	LastValues   map[Metric]float64
	Status       Status
	FailureUntil time.Time // zero when no outage is scheduled
}

// InOutage reports whether the host is suppressed at now.
func (h *HostState) InOutage(now time.Time) bool {
	return !h.FailureUntil.IsZero() && now.Before(h.FailureUntil)
}

// Zone is a named, fixed-size group of hosts.
type Zone struct {
	Name  string
	Hosts []HostState
}

// NewZone creates a zone with n hosts in normal status.
func NewZone(name string, n int) *Zone {
	hosts := make([]HostState, n)
	for i := range hosts {
		hosts[i] = HostState{LastValues: make(map[Metric]float64), Status: StatusNormal}
	}
	return &Zone{Name: name, Hosts: hosts}
}

// HostID derives the display identifier of the host at a zero-based index.
func HostID(index int) string {
	n := index + 1
	rack := index/ServersPerRack + 1
	return fmt.Sprintf("srv-%02d-rack-%02d", n, rack)
}

// ZoneName returns the display name of the zone at a zero-based index:
// zone-A through zone-Z, then zone-AA, zone-AB and so on.
func ZoneName(index int) string {
	var letters []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		letters = append([]byte{byte('A' + (n-1)%26)}, letters...)
	}
	return "zone-" + string(letters)
}

// HostSnapshot is a read-only copy of a host's state.
type HostSnapshot struct {
	Index        int                `json:"index"`
	HostID       string             `json:"host_id"`
	Status       Status             `json:"status"`
	FailureUntil *time.Time         `json:"failure_until,omitempty"`
	LastValues   map[Metric]float64 `json:"last_values"`
}
