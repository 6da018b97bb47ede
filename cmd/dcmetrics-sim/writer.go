package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/sim"
)

// newWriters builds the primary writer for mode and adds the JSONL log file
// and Prometheus writers when configured. The cleanup function closes every
// resource that was opened.
func newWriters(ctx context.Context, cfg *config.Config, mode sinkMode, reg prometheus.Registerer) (sim.ReadingWriter, func(), error) {
	base, cleanup, err := baseWriter(ctx, cfg, mode)
	if err != nil {
		return nil, nil, err
	}
	writers := []sim.ReadingWriter{base}

	if cfg.LogFile != "" {
		fw, err := sim.NewFileWriter(cfg.LogFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		writers = append(writers, fw)
		prev := cleanup
		cleanup = func() {
			_ = fw.Close()
			prev()
		}
	}
	if reg != nil {
		pw, err := sim.NewPrometheusWriter(reg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		writers = append(writers, pw)
	}

	if len(writers) == 1 {
		return base, cleanup, nil
	}
	return sim.NewMultiWriter(writers), cleanup, nil
}

// baseWriter chooses the primary writer for mode.
func baseWriter(ctx context.Context, cfg *config.Config, mode sinkMode) (sim.ReadingWriter, func(), error) {
	noop := func() {}
	switch mode {
	case sinkStdout:
		return sim.NewStdoutWriter(cfg, false), noop, nil
	case sinkStdoutJSON:
		return sim.NewStdoutWriter(cfg, true), noop, nil
	case sinkKafka:
		kw, err := sim.NewKafkaWriter(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, err
		}
		return kw, func() { _ = kw.Close() }, nil
	case sinkGreptime:
		gw, err := sim.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database, cfg.Greptime.Table)
		if err != nil {
			return nil, nil, err
		}
		return gw, noop, nil
	case sinkTUI:
		tw := sim.NewTUIWriter(cfg)
		return tw, func() { _ = tw.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported sink %s", mode)
}
