package telemetry

import "time"

// Rand is the random source used by the simulator. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Int63n(n int64) int64
}

const (
	stepFraction          = 0.10
	overloadAmplification = 1.3
	overloadOnsetProb     = 0.05
	overloadFactorMin     = 1.2
	overloadFactorMax     = 1.5
	outageOnsetProb       = 0.01
	outageMinMillis       = 10000
	outageMaxMillis       = 30000
)

// Simulator advances per-host metric values with a bounded random walk.
// It is not safe for concurrent use.
type Simulator struct {
	rng Rand
}

// NewSimulator creates a simulator drawing from rng.
func NewSimulator(rng Rand) *Simulator {
	return &Simulator{rng: rng}
}

// Step computes the next value of metric m for host at now and stores it.
// It returns false, leaving values untouched, while the host is in outage.
func (s *Simulator) Step(host *HostState, m Metric, now time.Time) (float64, bool) {
	if !host.FailureUntil.IsZero() {
		if now.Before(host.FailureUntil) {
			return 0, false
		}
		host.FailureUntil = time.Time{}
		host.Status = StatusNormal
	}

	prev, ok := host.LastValues[m]
	if !ok {
		prev = m.Baseline()
	}

	change := -stepFraction + s.rng.Float64()*2*stepFraction
	v := prev * (1 + change)
	if host.Status == StatusOverloaded {
		v *= overloadAmplification
	}
	if s.chance(overloadOnsetProb) {
		host.Status = StatusOverloaded
		v *= overloadFactorMin + s.rng.Float64()*(overloadFactorMax-overloadFactorMin)
	}
	if s.chance(outageOnsetProb) {
		ms := outageMinMillis + s.rng.Int63n(outageMaxMillis-outageMinMillis)
		host.FailureUntil = now.Add(time.Duration(ms) * time.Millisecond)
	}

	v = m.Clamp(v)
	if host.LastValues == nil {
		host.LastValues = make(map[Metric]float64)
	}
	host.LastValues[m] = v
	return v, true
}

func (s *Simulator) chance(p float64) bool {
	return s.rng.Float64() < p
}
