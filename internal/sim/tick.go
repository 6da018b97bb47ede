package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"dcmetrics-sim/internal/logging"
	"dcmetrics-sim/internal/telemetry"
)

// Run starts one loop per zone and blocks until the context is done.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator",
		"zones", len(s.zones),
		"servers_per_zone", s.cfg.ServersPerZone,
		"tick_interval", s.tickInterval)

	var wg sync.WaitGroup
	for _, z := range s.zones {
		wg.Add(1)
		go func(z *zoneRunner) {
			defer wg.Done()
			s.runZone(ctx, z)
		}(z)
	}
	wg.Wait()
	log.Info("stopping simulator")
}

func (s *Simulator) runZone(ctx context.Context, z *zoneRunner) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, z)
		case <-ctx.Done():
			return
		}
	}
}

// tick produces one reading for the zone and hands it to the writer.
// Errors are logged and counted; they never stop the zone loop.
func (s *Simulator) tick(ctx context.Context, z *zoneRunner) {
	log := logging.FromContext(ctx)

	z.mu.Lock()
	r, err := z.gen.Next()
	z.mu.Unlock()
	if err != nil {
		z.skipped.Add(1)
		if errors.Is(err, telemetry.ErrZoneOutage) {
			log.Debug("all hosts in outage, skipping tick", "zone", z.gen.Name())
		} else {
			log.Error("generate failed", "zone", z.gen.Name(), "err", err)
		}
		return
	}
	z.readings.Add(1)

	if s.writer == nil {
		return
	}
	if err := s.writer.Write(r); err != nil {
		z.failed.Add(1)
		log.Error("write failed", "zone", r.Zone, "host_id", r.HostID, "err", err)
	}
}
