package telemetry

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

// scriptedRand replays fixed draws. When a script runs out Float64 returns
// 0.5 (no step, no onset), Intn returns 0 and Int63n returns n/2.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	i := r.ints[0]
	r.ints = r.ints[1:]
	return i % n
}

func (r *scriptedRand) Int63n(n int64) int64 { return n / 2 }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// advancingClock moves forward by step on every call.
func advancingClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestHostIDDerivation(t *testing.T) {
	cases := map[int]string{
		0:  "srv-01-rack-01",
		29: "srv-30-rack-01",
		30: "srv-31-rack-02",
		34: "srv-35-rack-02",
		99: "srv-100-rack-04",
	}
	for idx, want := range cases {
		if got := HostID(idx); got != want {
			t.Errorf("HostID(%d)=%s, want %s", idx, got, want)
		}
	}
}

func TestZoneName(t *testing.T) {
	cases := map[int]string{0: "zone-A", 3: "zone-D", 25: "zone-Z", 26: "zone-AA", 27: "zone-AB"}
	for idx, want := range cases {
		if got := ZoneName(idx); got != want {
			t.Errorf("ZoneName(%d)=%s, want %s", idx, got, want)
		}
	}
}

func TestMetricUnitsAndBaselines(t *testing.T) {
	cases := []struct {
		metric   Metric
		unit     string
		baseline float64
	}{
		{MetricCPUUsage, "%", 50},
		{MetricMemUsage, "%", 50},
		{MetricDiskIORead, "MB/s", 100},
		{MetricDiskIOWrite, "MB/s", 100},
		{MetricNetIn, "MB/s", 100},
		{MetricNetOut, "MB/s", 100},
		{MetricCPUTemp, "°C", 60},
		{Metric("FAN_RPM"), "", 0},
	}
	for _, tc := range cases {
		if got := tc.metric.Unit(); got != tc.unit {
			t.Errorf("%s unit=%q, want %q", tc.metric, got, tc.unit)
		}
		if got := tc.metric.Baseline(); got != tc.baseline {
			t.Errorf("%s baseline=%f, want %f", tc.metric, got, tc.baseline)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		metric Metric
		in     float64
		want   float64
	}{
		{MetricCPUUsage, 140, 100},
		{MetricMemUsage, -3, 0},
		{MetricCPUTemp, 5, 20},
		{MetricCPUTemp, 130, 100},
		{MetricNetIn, 5000, 5000},
		{MetricNetOut, -1, 0},
	}
	for _, tc := range cases {
		if got := tc.metric.Clamp(tc.in); got != tc.want {
			t.Errorf("%s Clamp(%f)=%f, want %f", tc.metric, tc.in, got, tc.want)
		}
	}
}

func TestMetricsReturnsCopy(t *testing.T) {
	m := Metrics()
	if len(m) != 7 {
		t.Fatalf("expected 7 metrics, got %d", len(m))
	}
	m[0] = "BROKEN"
	if Metrics()[0] != MetricCPUUsage {
		t.Fatalf("catalog mutated through Metrics()")
	}
}

func TestStepRandomWalk(t *testing.T) {
	now := time.Unix(1000, 0)
	cases := []struct {
		name    string
		status  Status
		floats  []float64
		want    float64
		status2 Status
	}{
		{"min step", StatusNormal, []float64{0, 0.99, 0.99}, 45, StatusNormal},
		{"max step", StatusNormal, []float64{1, 0.99, 0.99}, 55, StatusNormal},
		{"already overloaded", StatusOverloaded, []float64{0.5, 0.99, 0.99}, 65, StatusOverloaded},
		// onset with factor 1.2 + 0.5*0.3 = 1.35
		{"overload onset", StatusNormal, []float64{0.5, 0.01, 0.5, 0.99}, 50 * 1.35, StatusOverloaded},
		{"both amplifications clamp", StatusOverloaded, []float64{1, 0.01, 0.99, 0.99}, 100, StatusOverloaded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host := HostState{LastValues: map[Metric]float64{}, Status: tc.status}
			sim := NewSimulator(&scriptedRand{floats: tc.floats})
			v, ok := sim.Step(&host, MetricCPUUsage, now)
			if !ok {
				t.Fatalf("expected a value")
			}
			if math.Abs(v-tc.want) > 1e-9 {
				t.Errorf("value=%f, want %f", v, tc.want)
			}
			if host.Status != tc.status2 {
				t.Errorf("status=%s, want %s", host.Status, tc.status2)
			}
			if host.LastValues[MetricCPUUsage] != v {
				t.Errorf("last value not stored")
			}
			if !host.FailureUntil.IsZero() {
				t.Errorf("unexpected outage scheduled")
			}
		})
	}
}

func TestStepOutageOnset(t *testing.T) {
	now := time.Unix(1000, 0)
	host := HostState{LastValues: map[Metric]float64{}, Status: StatusNormal}
	// no step, no overload, outage coin hits; Int63n(20000) yields 10000
	sim := NewSimulator(&scriptedRand{floats: []float64{0.5, 0.99, 0.001}})
	v, ok := sim.Step(&host, MetricNetIn, now)
	if !ok || v != 100 {
		t.Fatalf("outage onset must not change this tick: v=%f ok=%v", v, ok)
	}
	want := now.Add(20 * time.Second)
	if !host.FailureUntil.Equal(want) {
		t.Fatalf("failure_until=%v, want %v", host.FailureUntil, want)
	}
}

func TestStepOutageSuppressesUntilDeadline(t *testing.T) {
	start := time.Unix(1000, 0)
	deadline := start.Add(15 * time.Second)
	host := HostState{
		LastValues:   map[Metric]float64{MetricCPUTemp: 70},
		Status:       StatusOverloaded,
		FailureUntil: deadline,
	}
	sim := NewSimulator(&scriptedRand{})

	for _, at := range []time.Time{start, start.Add(10 * time.Second), deadline.Add(-time.Millisecond)} {
		if _, ok := sim.Step(&host, MetricCPUTemp, at); ok {
			t.Fatalf("host emitted at %v before deadline %v", at, deadline)
		}
	}
	if host.LastValues[MetricCPUTemp] != 70 {
		t.Fatalf("suppressed step mutated values")
	}

	v, ok := sim.Step(&host, MetricCPUTemp, deadline)
	if !ok {
		t.Fatalf("expected recovery at deadline")
	}
	if host.Status != StatusNormal {
		t.Fatalf("status=%s after recovery, want normal", host.Status)
	}
	if !host.FailureUntil.IsZero() {
		t.Fatalf("failure_until not cleared")
	}
	if v != 70 {
		t.Fatalf("value=%f, want unamplified 70 after recovery", v)
	}
}

func TestBaselineFirstReading(t *testing.T) {
	for _, f := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		rng := &scriptedRand{ints: []int{0, 0}, floats: []float64{f, 0.99, 0.99}}
		gen, err := NewZoneGenerator("zone-A", 1, rng, fixedClock(time.Unix(1, 0)))
		if err != nil {
			t.Fatalf("NewZoneGenerator: %v", err)
		}
		r, err := gen.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if r.Metric != MetricCPUUsage {
			t.Fatalf("metric=%s, want CPU_USAGE", r.Metric)
		}
		if r.Value < 45 || r.Value > 55 {
			t.Errorf("first CPU_USAGE reading %f outside [45,55]", r.Value)
		}
	}
}

func TestNextReadingFields(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	// host 30, metric index 6 (CPU_TEMP)
	rng := &scriptedRand{ints: []int{30, 6}}
	gen, err := NewZoneGenerator("zone-C", 35, rng, fixedClock(ts))
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	r, err := gen.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if r.HostID != "srv-31-rack-02" || r.Zone != "zone-C" || r.Metric != MetricCPUTemp {
		t.Fatalf("unexpected identifiers: %+v", r)
	}
	if r.Unit != "°C" {
		t.Fatalf("unit=%q, want °C", r.Unit)
	}
	if r.Timestamp != 1700000000123 {
		t.Fatalf("timestamp=%d", r.Timestamp)
	}
	if r.EventID == "" || r.Tags == nil || len(r.Tags) != 0 {
		t.Fatalf("expected event id and empty tags: %+v", r)
	}
}

func TestNewZoneGeneratorRejectsEmptyZone(t *testing.T) {
	_, err := NewZoneGenerator("zone-A", 0, rand.New(rand.NewSource(1)), nil)
	if !errors.Is(err, ErrInvalidHosts) {
		t.Fatalf("expected ErrInvalidHosts, got %v", err)
	}
}

func TestNextValueBounds(t *testing.T) {
	gen, err := NewZoneGenerator("zone-A", 20, rand.New(rand.NewSource(7)), nil)
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	for i := 0; i < 50000; i++ {
		r, err := gen.Next()
		if errors.Is(err, ErrZoneOutage) {
			continue
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if r.Value < 0 {
			t.Fatalf("negative value %f for %s", r.Value, r.Metric)
		}
		switch r.Metric {
		case MetricCPUUsage, MetricMemUsage:
			if r.Value > 100 {
				t.Fatalf("%s=%f above 100", r.Metric, r.Value)
			}
		case MetricCPUTemp:
			if r.Value < 20 || r.Value > 100 {
				t.Fatalf("CPU_TEMP=%f outside [20,100]", r.Value)
			}
		}
	}
}

func TestNextBoundedDrift(t *testing.T) {
	gen, err := NewZoneGenerator("zone-A", 5, rand.New(rand.NewSource(11)), nil)
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	const (
		minRatio = 1 - stepFraction
		maxRatio = (1 + stepFraction) * overloadAmplification * overloadFactorMax
	)
	prev := map[string]float64{}
	for i := 0; i < 20000; i++ {
		r, err := gen.Next()
		if err != nil {
			continue
		}
		key := r.HostID + "/" + string(r.Metric)
		p, ok := prev[key]
		if !ok {
			p = r.Metric.Baseline()
		}
		lo := r.Metric.Clamp(p * minRatio)
		hi := r.Metric.Clamp(p * maxRatio)
		if r.Value < lo-1e-9 || r.Value > hi+1e-9 {
			t.Fatalf("%s jumped from %f to %f (allowed [%f,%f])", key, p, r.Value, lo, hi)
		}
		prev[key] = r.Value
	}
}

func TestNextSkipsHostsInOutage(t *testing.T) {
	now := time.Unix(5000, 0)
	clock := now
	gen, err := NewZoneGenerator("zone-A", 4, rand.New(rand.NewSource(3)), func() time.Time { return clock })
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	if err := gen.InjectOutage(2, 10*time.Second); err != nil {
		t.Fatalf("InjectOutage: %v", err)
	}
	for i := 0; i < 2000; i++ {
		r, err := gen.Next()
		if err != nil {
			continue
		}
		if r.HostID == HostID(2) {
			t.Fatalf("host in outage emitted a reading")
		}
	}
}

func TestNextAllHostsInOutage(t *testing.T) {
	now := time.Unix(5000, 0)
	clock := now
	gen, err := NewZoneGenerator("zone-A", 3, rand.New(rand.NewSource(3)), func() time.Time { return clock })
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	for i := 0; i < gen.Size(); i++ {
		if err := gen.InjectOutage(i, 10*time.Second); err != nil {
			t.Fatalf("InjectOutage: %v", err)
		}
	}
	if _, err := gen.Next(); !errors.Is(err, ErrZoneOutage) {
		t.Fatalf("expected ErrZoneOutage, got %v", err)
	}

	clock = now.Add(10 * time.Second)
	r, err := gen.Next()
	if err != nil {
		t.Fatalf("expected recovery after deadline, got %v", err)
	}
	for _, h := range gen.Snapshot() {
		if h.HostID == r.HostID && h.FailureUntil != nil && !clock.Before(*h.FailureUntil) {
			t.Fatalf("recovered host still carries an expired deadline: %+v", h)
		}
	}
}

func TestNextFindsLastLiveHost(t *testing.T) {
	now := time.Unix(5000, 0)
	gen, err := NewZoneGenerator("zone-A", 64, rand.New(rand.NewSource(9)), fixedClock(now))
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	for i := 0; i < gen.Size(); i++ {
		if i == 41 {
			continue
		}
		_ = gen.InjectOutage(i, time.Minute)
	}
	for i := 0; i < 50; i++ {
		r, err := gen.Next()
		if err != nil {
			// the live host may itself enter outage on a rare tick
			if errors.Is(err, ErrZoneOutage) {
				return
			}
			t.Fatalf("Next: %v", err)
		}
		if r.HostID != HostID(41) {
			t.Fatalf("reading from %s, only %s is live", r.HostID, HostID(41))
		}
	}
}

func TestEventIDsUnique(t *testing.T) {
	n := 100000
	if testing.Short() {
		n = 10000
	}
	gen, err := NewZoneGenerator("zone-A", 50, rand.New(rand.NewSource(1)), advancingClock(time.Unix(5000, 0), time.Second))
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	seen := make(map[string]struct{}, n)
	for calls := 0; len(seen) < n; calls++ {
		if calls > 2*n {
			t.Fatalf("only %d readings after %d calls", len(seen), calls)
		}
		r, err := gen.Next()
		if err != nil {
			continue
		}
		if _, dup := seen[r.EventID]; dup {
			t.Fatalf("duplicate event id %s after %d readings", r.EventID, len(seen))
		}
		seen[r.EventID] = struct{}{}
	}
}

func TestSnapshotAndForceOverload(t *testing.T) {
	gen, err := NewZoneGenerator("zone-B", 2, &scriptedRand{}, fixedClock(time.Unix(0, 0)))
	if err != nil {
		t.Fatalf("NewZoneGenerator: %v", err)
	}
	if err := gen.ForceOverload(1); err != nil {
		t.Fatalf("ForceOverload: %v", err)
	}
	if err := gen.ForceOverload(2); !errors.Is(err, ErrInvalidHosts) {
		t.Fatalf("expected ErrInvalidHosts, got %v", err)
	}
	snap := gen.Snapshot()
	if len(snap) != 2 || snap[1].Status != StatusOverloaded || snap[0].Status != StatusNormal {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	snap[0].LastValues[MetricCPUUsage] = 99
	if len(gen.Snapshot()[0].LastValues) != 0 {
		t.Fatalf("snapshot shares state with generator")
	}
}
