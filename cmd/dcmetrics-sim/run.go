package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"dcmetrics-sim/internal/admin"
	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/logging"
	"dcmetrics-sim/internal/sim"
)

// runSimulation wires the writers for mode and runs every zone until
// SIGINT/SIGTERM.
func runSimulation(cmd *cobra.Command, cfg *config.Config, mode sinkMode) error {
	var logOut io.Writer = os.Stderr
	if mode == sinkTUI {
		logOut = io.Discard
	}
	log := logging.NewWithOptions(logOut, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewContext(ctx, log)

	// metrics are only collected when the admin server can expose them
	var (
		registry   *prometheus.Registry
		registerer prometheus.Registerer
	)
	if cfg.AdminAddr != "" {
		registry = prometheus.NewRegistry()
		registerer = registry
	}
	writer, cleanup, err := newWriters(ctx, cfg, mode, registerer)
	if err != nil {
		return err
	}
	defer cleanup()

	simulator, err := sim.NewSimulator(cfg, writer, nil, nil)
	if err != nil {
		return err
	}

	if cfg.AdminAddr != "" {
		srv := admin.NewServer(simulator, registry)
		go func() {
			aw, _ := writer.(sim.AdminStatusWriter)
			if aw != nil {
				aw.SetAdminStatus(true)
			}
			if err := srv.Start(ctx, cfg.AdminAddr); err != nil {
				log.Error("admin server failed", "addr", cfg.AdminAddr, "err", err)
			}
			if aw != nil {
				aw.SetAdminStatus(false)
			}
		}()
	}

	simulator.Run(ctx)
	return nil
}

// contextWithLogger is used by commands that do not run the simulator.
func contextWithLogger(ctx context.Context, cfg *config.Config) context.Context {
	return logging.NewContext(ctx, logging.NewWithOptions(os.Stderr, cfg.LogLevel, cfg.LogFormat))
}
