package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replaySink      string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a JSONL reading log",
	Long:  "replay feeds readings from a --log-file capture back into a sink, honoring the original spacing scaled by --speed. Readings sharing a timestamp are sent as one batch. A --log-file different from --input records the replayed stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mode, err := replayMode(cmd, cfg)
		if err != nil {
			return err
		}
		if mode == sinkTUI {
			return fmt.Errorf("replay does not support the tui sink")
		}
		// never truncate the capture being replayed
		if sameFile(cfg.LogFile, replayInput) {
			cfg.LogFile = ""
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = contextWithLogger(ctx, cfg)

		writer, cleanup, err := newWriters(ctx, cfg, mode, nil)
		if err != nil {
			return err
		}
		defer cleanup()
		return sim.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
	},
}

// replayMode picks the sink: --print-only wins, then --sink, then GreptimeDB
// when an endpoint is configured, else STDOUT.
func replayMode(cmd *cobra.Command, cfg *config.Config) (sinkMode, error) {
	if replayPrintOnly {
		return sinkStdoutJSON, nil
	}
	if replaySink != "" {
		mode, err := parseSinkMode(replaySink)
		if err != nil {
			return 0, err
		}
		switch mode {
		case sinkKafka:
			if err := applyKafkaFlags(cmd, cfg); err != nil {
				return 0, err
			}
			return mode, cfg.ValidateKafka()
		case sinkGreptime:
			applyGreptimeFlags(cmd, cfg)
			return mode, cfg.ValidateGreptime()
		}
		return mode, nil
	}
	if cfg.Greptime.Endpoint != "" {
		return sinkGreptime, nil
	}
	return sinkStdout, nil
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ai, err := os.Stat(a)
	if err != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to JSONL reading log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (<=0 disables delays)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print readings as JSON to STDOUT instead of a sink")
	replayCmd.Flags().StringVar(&replaySink, "sink", "", "Target sink: stdout, stdout-json, kafka, greptime")
	replayCmd.Flags().StringVar(&kafkaTopic, "topic", config.DefaultKafkaTopic, "Kafka topic name (with --sink kafka)")
	replayCmd.Flags().StringVarP(&kafkaAddress, "address", "a", config.DefaultKafkaBroker, "Kafka brokers (with --sink kafka)")
	replayCmd.Flags().StringVar(&greptimeEndpoint, "endpoint", "", "GreptimeDB endpoint (with --sink greptime)")
	replayCmd.Flags().StringVar(&greptimeDatabase, "database", config.DefaultGreptimeDB, "GreptimeDB database (with --sink greptime)")
	replayCmd.Flags().StringVar(&greptimeTable, "table", config.DefaultGreptimeTable, "GreptimeDB table (with --sink greptime)")
	_ = replayCmd.MarkFlagRequired("input")
}
