// Simulator driving one zone generator per data-center zone
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/telemetry"
)

var (
	ErrUnknownZone = errors.New("unknown zone")
	ErrUnknownHost = errors.New("unknown host")
)

// ReadingWriter is an interface to support different output writers.
type ReadingWriter interface {
	Write(telemetry.Reading) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.Reading) error
}

// AdminStatusWriter is implemented by writers that display whether the
// admin server is listening.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

// ZoneHealth summarizes one zone for the admin surface.
type ZoneHealth struct {
	Zone           string `json:"zone"`
	Hosts          int    `json:"hosts"`
	Readings       int64  `json:"readings"`
	SkippedTicks   int64  `json:"skipped_ticks"`
	DeliveryErrors int64  `json:"delivery_errors"`
	InOutage       int    `json:"in_outage"`
	Overloaded     int    `json:"overloaded"`
}

// zoneRunner pairs a generator with its counters. The mutex guards the
// generator so admin snapshots never race the zone's own tick.
type zoneRunner struct {
	mu       sync.Mutex
	gen      *telemetry.ZoneGenerator
	readings atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// Simulator orchestrates zone generators and reading delivery.
type Simulator struct {
	cfg          *config.Config
	zones        []*zoneRunner
	byName       map[string]*zoneRunner
	writer       ReadingWriter
	tickInterval time.Duration
	now          func() time.Time
}

// DefaultRand returns per-zone random sources. A zero seed derives sources
// from the wall clock; any other seed makes each zone reproducible.
func DefaultRand(seed int64) func(zone int) telemetry.Rand {
	return func(zone int) telemetry.Rand {
		if seed == 0 {
			return rand.New(rand.NewSource(time.Now().UnixNano() + int64(zone)))
		}
		return rand.New(rand.NewSource(seed + int64(zone)))
	}
}

// NewSimulator creates one zone generator per configured zone. Nil newRand
// and now default to DefaultRand(cfg.Seed) and time.Now.
func NewSimulator(cfg *config.Config, writer ReadingWriter, newRand func(zone int) telemetry.Rand, now func() time.Time) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if newRand == nil {
		newRand = DefaultRand(cfg.Seed)
	}
	if now == nil {
		now = time.Now
	}
	s := &Simulator{
		cfg:          cfg,
		byName:       make(map[string]*zoneRunner, cfg.Zones),
		writer:       writer,
		tickInterval: cfg.Interval.Duration,
		now:          now,
	}
	for i := 0; i < cfg.Zones; i++ {
		gen, err := telemetry.NewZoneGenerator(telemetry.ZoneName(i), cfg.ServersPerZone, newRand(i), now)
		if err != nil {
			return nil, err
		}
		z := &zoneRunner{gen: gen}
		s.zones = append(s.zones, z)
		s.byName[gen.Name()] = z
	}
	return s, nil
}

// GetConfig returns the configuration the simulator was built from.
func (s *Simulator) GetConfig() *config.Config {
	return s.cfg
}

// Zones returns zone names in order.
func (s *Simulator) Zones() []string {
	names := make([]string, len(s.zones))
	for i, z := range s.zones {
		names[i] = z.gen.Name()
	}
	return names
}

// Health returns counters and host status totals per zone.
func (s *Simulator) Health() []ZoneHealth {
	now := s.now()
	out := make([]ZoneHealth, 0, len(s.zones))
	for _, z := range s.zones {
		z.mu.Lock()
		snap := z.gen.Snapshot()
		z.mu.Unlock()
		h := ZoneHealth{
			Zone:           z.gen.Name(),
			Hosts:          len(snap),
			Readings:       z.readings.Load(),
			SkippedTicks:   z.skipped.Load(),
			DeliveryErrors: z.failed.Load(),
		}
		for _, host := range snap {
			if host.FailureUntil != nil && now.Before(*host.FailureUntil) {
				h.InOutage++
			}
			if host.Status == telemetry.StatusOverloaded {
				h.Overloaded++
			}
		}
		out = append(out, h)
	}
	return out
}

// Hosts returns a snapshot of every host in zone.
func (s *Simulator) Hosts(zone string) ([]telemetry.HostSnapshot, error) {
	z, err := s.zone(zone)
	if err != nil {
		return nil, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.gen.Snapshot(), nil
}

// InjectOutage suppresses a host for d.
func (s *Simulator) InjectOutage(zone string, host int, d time.Duration) error {
	z, err := s.zone(zone)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	if err := z.gen.InjectOutage(host, d); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownHost, err)
	}
	return nil
}

// ForceOverload marks a host overloaded.
func (s *Simulator) ForceOverload(zone string, host int) error {
	z, err := s.zone(zone)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	if err := z.gen.ForceOverload(host); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownHost, err)
	}
	return nil
}

func (s *Simulator) zone(name string) (*zoneRunner, error) {
	z, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZone, name)
	}
	return z, nil
}
