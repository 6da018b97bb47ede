package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dcmetrics-sim/internal/config"
)

var (
	rootConfigPath     string
	rootSchemaPath     string
	rootTick           time.Duration
	rootZones          int
	rootServersPerZone int
	rootSeed           int64
	rootLogFile        string
	rootAdminAddr      string
	rootLogLevel       string
	rootLogFormat      string
)

var rootCmd = &cobra.Command{
	Use:           "dcmetrics-sim",
	Short:         "Data-center host metrics simulator",
	Long:          "dcmetrics-sim emits a continuous stream of per-host server metrics for a simulated data center.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootConfigPath, "config", "", "Path to YAML configuration (optional)")
	pf.StringVar(&rootSchemaPath, "schema", "", "Path to CUE schema file (defaults to the embedded schema)")
	pf.DurationVarP(&rootTick, "tick", "t", config.DefaultInterval, "Emission interval per zone (e.g. 500ms, 2s)")
	pf.IntVar(&rootZones, "zones", config.DefaultZones, "Number of zones")
	pf.IntVar(&rootServersPerZone, "servers-per-zone", config.DefaultServersPerZone, "Servers per zone")
	pf.Int64Var(&rootSeed, "seed", 0, "Random seed (0 derives one from the clock)")
	pf.StringVar(&rootLogFile, "log-file", "", "Also write readings to this JSONL file")
	pf.StringVar(&rootAdminAddr, "admin-addr", "", "Admin HTTP listen address, e.g. :8080 (disabled when empty)")
	pf.StringVar(&rootLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&rootLogFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(stdoutCmd)
	rootCmd.AddCommand(kafkaCmd)
	rootCmd.AddCommand(greptimeCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// loadConfig resolves configuration: defaults, YAML, environment, then any
// flag set explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootConfigPath, rootSchemaPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("tick") {
		cfg.Interval = config.Duration{Duration: rootTick}
	}
	if flags.Changed("zones") {
		cfg.Zones = rootZones
	}
	if flags.Changed("servers-per-zone") {
		cfg.ServersPerZone = rootServersPerZone
	}
	if flags.Changed("seed") {
		cfg.Seed = rootSeed
	}
	if flags.Changed("log-file") {
		cfg.LogFile = rootLogFile
	}
	if flags.Changed("admin-addr") {
		cfg.AdminAddr = rootAdminAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = rootLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = rootLogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
