// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration that fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Defaults.
const (
	DefaultZones          = 4
	DefaultServersPerZone = 10
	DefaultInterval       = 500 * time.Millisecond
	DefaultKafkaTopic     = "dc_metrics"
	DefaultKafkaBroker    = "127.0.0.1:9092"
	DefaultGreptimeDB     = "public"
	DefaultGreptimeTable  = "dc_metrics"
)

// Duration wraps time.Duration for YAML strings such as "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// KafkaConfig configures the broker sink.
type KafkaConfig struct {
	Topic   string   `yaml:"topic"`
	Brokers []string `yaml:"brokers"`
}

// GreptimeConfig configures the GreptimeDB sink.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// Config is the root configuration of the generator.
type Config struct {
	Zones          int            `yaml:"zones"`
	ServersPerZone int            `yaml:"servers_per_zone"`
	Interval       Duration       `yaml:"interval"`
	Seed           int64          `yaml:"seed"`
	LogFile        string         `yaml:"log_file"`
	AdminAddr      string         `yaml:"admin_addr"`
	LogLevel       string         `yaml:"log_level"`
	LogFormat      string         `yaml:"log_format"`
	Kafka          KafkaConfig    `yaml:"kafka"`
	Greptime       GreptimeConfig `yaml:"greptime"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Zones:          DefaultZones,
		ServersPerZone: DefaultServersPerZone,
		Interval:       Duration{DefaultInterval},
		LogLevel:       "info",
		LogFormat:      "text",
		Kafka: KafkaConfig{
			Topic:   DefaultKafkaTopic,
			Brokers: []string{DefaultKafkaBroker},
		},
		Greptime: GreptimeConfig{
			Database: DefaultGreptimeDB,
			Table:    DefaultGreptimeTable,
		},
	}
}

// Load reads defaults, then the optional YAML file validated against the CUE
// schema, then environment overrides. An empty schemaPath uses the embedded schema.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: TICK_INTERVAL: %v", ErrInvalid, err)
		}
		c.Interval = Duration{d}
	}
	if v := os.Getenv("ZONES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: ZONES: %v", ErrInvalid, err)
		}
		c.Zones = n
	}
	if v := os.Getenv("SERVERS_PER_ZONE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SERVERS_PER_ZONE: %v", ErrInvalid, err)
		}
		c.ServersPerZone = n
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Greptime.Database = v
	}
	if v := os.Getenv("GREPTIMEDB_TABLE"); v != "" {
		c.Greptime.Table = v
	}
	return nil
}

// Validate checks the generator settings shared by every sink.
func (c *Config) Validate() error {
	if c.Zones < 1 {
		return fmt.Errorf("%w: zones must be at least 1, got %d", ErrInvalid, c.Zones)
	}
	if c.ServersPerZone < 1 {
		return fmt.Errorf("%w: servers_per_zone must be at least 1, got %d", ErrInvalid, c.ServersPerZone)
	}
	if c.Interval.Duration <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalid, c.Interval.Duration)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be one of debug, info, warn, error, got %q", ErrInvalid, c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// ValidateKafka checks the broker sink settings.
func (c *Config) ValidateKafka() error {
	if c.Kafka.Topic == "" {
		return fmt.Errorf("%w: kafka topic is required", ErrInvalid)
	}
	if _, err := ParseBrokers(strings.Join(c.Kafka.Brokers, ",")); err != nil {
		return err
	}
	return nil
}

// ValidateGreptime checks the GreptimeDB sink settings.
func (c *Config) ValidateGreptime() error {
	if c.Greptime.Endpoint == "" {
		return fmt.Errorf("%w: greptime endpoint is required", ErrInvalid)
	}
	if c.Greptime.Table == "" {
		return fmt.Errorf("%w: greptime table is required", ErrInvalid)
	}
	return nil
}

// ParseBrokers parses a comma-separated list of HOST:PORT broker addresses.
func ParseBrokers(s string) ([]string, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: broker list must be in format HOST1:PORT,HOST2:PORT", ErrInvalid)
	}
	for _, p := range parts {
		host, port, err := net.SplitHostPort(p)
		if err != nil || host == "" {
			return nil, fmt.Errorf("%w: broker address %q must be in format HOST:PORT", ErrInvalid, p)
		}
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return nil, fmt.Errorf("%w: invalid port number in %q", ErrInvalid, p)
		}
	}
	return parts, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
