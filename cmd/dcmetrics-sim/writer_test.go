package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/sim"
	"dcmetrics-sim/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	w, cleanup, err := newWriters(context.Background(), config.Default(), sinkStdoutJSON, nil)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersLogFileAndMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "readings.jsonl")
	w, cleanup, err := newWriters(context.Background(), cfg, sinkStdoutJSON, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	r := telemetry.NewReading("zone-A", "srv-01-rack-01", telemetry.MetricCPUUsage, 10, time.Now())
	if err := w.Write(r); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	info, err := os.Stat(cfg.LogFile)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log file to be non-empty")
	}
}

func TestNewWritersBadLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "missing", "readings.jsonl")
	if _, _, err := newWriters(context.Background(), cfg, sinkStdoutJSON, nil); err == nil {
		t.Fatalf("expected error for unwritable log file")
	}
}

func TestNewWritersKafkaUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := newWriters(ctx, cfg, sinkKafka, nil); err == nil {
		t.Fatalf("expected error for unreachable broker")
	}
}

func TestParseSinkMode(t *testing.T) {
	for _, m := range []sinkMode{sinkStdout, sinkStdoutJSON, sinkKafka, sinkGreptime, sinkTUI} {
		got, err := parseSinkMode(m.String())
		if err != nil || got != m {
			t.Errorf("parseSinkMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := parseSinkMode("carrier-pigeon"); err == nil {
		t.Fatalf("expected error for unknown sink")
	}
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	return cmd
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("ZONES", "6")
	t.Setenv("SERVERS_PER_ZONE", "")
	t.Setenv("TICK_INTERVAL", "")
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse([]string{"--servers-per-zone", "3", "-t", "250ms"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Cleanup(func() {
		rootServersPerZone = config.DefaultServersPerZone
		rootTick = config.DefaultInterval
		cmd.Flags().Lookup("servers-per-zone").Changed = false
		cmd.Flags().Lookup("tick").Changed = false
	})
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Zones != 6 {
		t.Fatalf("env ZONES not applied: %d", cfg.Zones)
	}
	if cfg.ServersPerZone != 3 || cfg.Interval.Duration != 250*time.Millisecond {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsZeroZones(t *testing.T) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse([]string{"--zones", "0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Cleanup(func() {
		rootZones = config.DefaultZones
		cmd.Flags().Lookup("zones").Changed = false
	})
	if _, err := loadConfig(cmd); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "capture.jsonl")
	if err := os.WriteFile(input, []byte("\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !sameFile(filepath.Join(dir, ".", "capture.jsonl"), input) {
		t.Fatalf("expected equal paths to match")
	}
	if sameFile(filepath.Join(dir, "other.jsonl"), input) {
		t.Fatalf("distinct log file should be kept")
	}
	if sameFile("", input) {
		t.Fatalf("empty log file never matches")
	}
}

func TestLoadConfigRejectsUnknownLogLevel(t *testing.T) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse([]string{"--log-level", "verbose"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Cleanup(func() {
		rootLogLevel = "info"
		cmd.Flags().Lookup("log-level").Changed = false
	})
	if _, err := loadConfig(cmd); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
