package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dcmetrics-sim/internal/config"
)

var stdoutJSON bool

var stdoutCmd = &cobra.Command{
	Use:   "stdout",
	Short: "Print readings to STDOUT",
	Long:  "stdout prints one line per reading: colorized on a terminal, JSON otherwise or with --json.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mode := sinkStdout
		if stdoutJSON {
			mode = sinkStdoutJSON
		}
		return runSimulation(cmd, cfg, mode)
	},
}

var (
	kafkaTopic   string
	kafkaAddress string
)

var kafkaCmd = &cobra.Command{
	Use:   "kafka",
	Short: "Publish readings to a Kafka topic",
	Long:  "kafka publishes each reading as a JSON message keyed by host id.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyKafkaFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.ValidateKafka(); err != nil {
			return err
		}
		return runSimulation(cmd, cfg, sinkKafka)
	},
}

func applyKafkaFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("topic") {
		cfg.Kafka.Topic = kafkaTopic
	}
	if cmd.Flags().Changed("address") {
		brokers, err := config.ParseBrokers(kafkaAddress)
		if err != nil {
			return err
		}
		cfg.Kafka.Brokers = brokers
	}
	return nil
}

var (
	greptimeEndpoint string
	greptimeDatabase string
	greptimeTable    string
)

var greptimeCmd = &cobra.Command{
	Use:   "greptime",
	Short: "Write readings to GreptimeDB",
	Long:  "greptime writes readings to a GreptimeDB table via the gRPC ingester.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyGreptimeFlags(cmd, cfg)
		if err := cfg.ValidateGreptime(); err != nil {
			return err
		}
		return runSimulation(cmd, cfg, sinkGreptime)
	},
}

func applyGreptimeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("endpoint") {
		cfg.Greptime.Endpoint = greptimeEndpoint
	}
	if cmd.Flags().Changed("database") {
		cfg.Greptime.Database = greptimeDatabase
	}
	if cmd.Flags().Changed("table") {
		cfg.Greptime.Table = greptimeTable
	}
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show readings in an interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSimulation(cmd, cfg, sinkTUI)
	},
}

func init() {
	stdoutCmd.Flags().BoolVar(&stdoutJSON, "json", false, "Always print JSON lines")

	kafkaCmd.Flags().StringVar(&kafkaTopic, "topic", config.DefaultKafkaTopic, "Kafka topic name")
	kafkaCmd.Flags().StringVarP(&kafkaAddress, "address", "a", config.DefaultKafkaBroker, "Kafka brokers as HOST1:PORT,HOST2:PORT")

	greptimeCmd.Flags().StringVar(&greptimeEndpoint, "endpoint", "", "GreptimeDB gRPC endpoint (host or host:port)")
	greptimeCmd.Flags().StringVar(&greptimeDatabase, "database", config.DefaultGreptimeDB, "GreptimeDB database")
	greptimeCmd.Flags().StringVar(&greptimeTable, "table", config.DefaultGreptimeTable, "GreptimeDB table")
}

// sinkMode selects the primary writer.
type sinkMode int

const (
	sinkStdout sinkMode = iota
	sinkStdoutJSON
	sinkKafka
	sinkGreptime
	sinkTUI
)

func (m sinkMode) String() string {
	return [...]string{"stdout", "stdout-json", "kafka", "greptime", "tui"}[m]
}

func parseSinkMode(s string) (sinkMode, error) {
	for m := sinkStdout; m <= sinkTUI; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown sink %q", s)
}
