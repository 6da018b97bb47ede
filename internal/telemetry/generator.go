package telemetry

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrZoneOutage is returned by Next when every host in the zone is in outage.
	ErrZoneOutage = errors.New("telemetry: all hosts in zone are in outage")
	// ErrInvalidHosts is returned for a host count or index out of range.
	ErrInvalidHosts = errors.New("telemetry: invalid host")
)

// maxSelectionAttempts bounds random re-selection before falling back to a scan.
const maxSelectionAttempts = 32

// ZoneGenerator produces readings for one zone. It owns the zone's host
// state and is not safe for concurrent use.
type ZoneGenerator struct {
	zone *Zone
	sim  *Simulator
	rng  Rand
	now  func() time.Time
}

// NewZoneGenerator creates a generator for a zone of hosts servers.
// A nil now defaults to time.Now.
func NewZoneGenerator(name string, hosts int, rng Rand, now func() time.Time) (*ZoneGenerator, error) {
	if hosts < 1 {
		return nil, fmt.Errorf("%w: zone %s needs at least one host, got %d", ErrInvalidHosts, name, hosts)
	}
	if now == nil {
		now = time.Now
	}
	return &ZoneGenerator{
		zone: NewZone(name, hosts),
		sim:  NewSimulator(rng),
		rng:  rng,
		now:  now,
	}, nil
}

// Name returns the zone name.
func (g *ZoneGenerator) Name() string { return g.zone.Name }

// Size returns the number of hosts in the zone.
func (g *ZoneGenerator) Size() int { return len(g.zone.Hosts) }

// Next returns the next reading for a randomly selected host and metric.
// Hosts in outage are skipped by re-selecting.
func (g *ZoneGenerator) Next() (Reading, error) {
	now := g.now()
	hosts := g.zone.Hosts

	for attempt := 0; attempt < maxSelectionAttempts; attempt++ {
		idx := g.rng.Intn(len(hosts))
		m := metricCatalog[g.rng.Intn(len(metricCatalog))]
		if v, ok := g.sim.Step(&hosts[idx], m, now); ok {
			return NewReading(g.zone.Name, HostID(idx), m, v, now), nil
		}
	}

	// Most hosts are down: visit each once so a single live host is still found.
	start := g.rng.Intn(len(hosts))
	for i := range hosts {
		idx := (start + i) % len(hosts)
		if hosts[idx].InOutage(now) {
			continue
		}
		m := metricCatalog[g.rng.Intn(len(metricCatalog))]
		if v, ok := g.sim.Step(&hosts[idx], m, now); ok {
			return NewReading(g.zone.Name, HostID(idx), m, v, now), nil
		}
	}
	return Reading{}, ErrZoneOutage
}

// Snapshot returns a copy of every host's state.
func (g *ZoneGenerator) Snapshot() []HostSnapshot {
	out := make([]HostSnapshot, len(g.zone.Hosts))
	for i, h := range g.zone.Hosts {
		values := make(map[Metric]float64, len(h.LastValues))
		for k, v := range h.LastValues {
			values[k] = v
		}
		snap := HostSnapshot{Index: i, HostID: HostID(i), Status: h.Status, LastValues: values}
		if !h.FailureUntil.IsZero() {
			until := h.FailureUntil
			snap.FailureUntil = &until
		}
		out[i] = snap
	}
	return out
}

// InjectOutage suppresses the host at idx for d starting now.
func (g *ZoneGenerator) InjectOutage(idx int, d time.Duration) error {
	if idx < 0 || idx >= len(g.zone.Hosts) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidHosts, idx, len(g.zone.Hosts))
	}
	g.zone.Hosts[idx].FailureUntil = g.now().Add(d)
	return nil
}

// ForceOverload puts the host at idx into overloaded status.
func (g *ZoneGenerator) ForceOverload(idx int) error {
	if idx < 0 || idx >= len(g.zone.Hosts) {
		return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidHosts, idx, len(g.zone.Hosts))
	}
	g.zone.Hosts[idx].Status = StatusOverloaded
	return nil
}
