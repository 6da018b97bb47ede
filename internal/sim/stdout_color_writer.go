// ColorStdoutWriter prints human-friendly, colorized readings to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var zonePalette = []string{colorBlue, colorMagenta, colorCyan, colorGreen, colorYellow, colorRed}

// ColorStdoutWriter prints readings using ANSI colors.
type ColorStdoutWriter struct {
	cfg        *config.Config
	out        io.Writer
	once       sync.Once
	mu         sync.Mutex
	zoneColors map[string]string
	colorIdx   int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:        cfg,
		out:        os.Stdout,
		zoneColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) getZoneColor(zone string) string {
	if c, ok := w.zoneColors[zone]; ok {
		return c
	}
	c := zonePalette[w.colorIdx%len(zonePalette)]
	w.zoneColors[zone] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Zones:\t%d\n", w.cfg.Zones)
	fmt.Fprintf(tw, "Servers per Zone:\t%d\n", w.cfg.ServersPerZone)
	fmt.Fprintf(tw, "Racks per Zone:\t%d\n", (w.cfg.ServersPerZone+telemetry.ServersPerRack-1)/telemetry.ServersPerRack)
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.Interval.Duration)
	tw.Flush()

	fmt.Fprintln(w.out, "\nZones:")
	for i := 0; i < w.cfg.Zones; i++ {
		name := telemetry.ZoneName(i)
		fmt.Fprintf(w.out, "  %s%s%s\n", w.getZoneColor(name), name, colorReset)
	}
	fmt.Fprintln(w.out)
}

// valueColor highlights readings close to the metric's ceiling.
func valueColor(r telemetry.Reading) string {
	switch r.Metric {
	case telemetry.MetricCPUUsage, telemetry.MetricMemUsage:
		switch {
		case r.Value >= 90:
			return colorRed
		case r.Value >= 75:
			return colorYellow
		}
		return colorGreen
	case telemetry.MetricCPUTemp:
		switch {
		case r.Value >= 85:
			return colorRed
		case r.Value >= 70:
			return colorYellow
		}
		return colorGreen
	}
	return colorCyan
}

// Write outputs a single colorized reading line.
func (w *ColorStdoutWriter) Write(r telemetry.Reading) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.once.Do(w.printOverview)

	_, err := fmt.Fprintf(w.out, "%s[%s]%s %s%s%s %s %-13s %s%10.2f%s %s\n",
		colorGray, r.Time().Format("15:04:05.000"), colorReset,
		w.getZoneColor(r.Zone), r.Zone, colorReset,
		r.HostID,
		r.Metric,
		valueColor(r), r.Value, colorReset,
		r.Unit,
	)
	return err
}

// WriteBatch outputs multiple readings.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.Reading) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
