// Package config loads the harness configuration with the precedence
// defaults < YAML file < environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/backend/weaviate"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
)

// EnvPrefix is the prefix of all recognized environment variables.
const EnvPrefix = "WPT_"

// defaultCollections is the nine-shard SongLyrics layout of the system
// under test.
var defaultCollections = []string{
	"SongLyrics", "SongLyrics_400k", "SongLyrics_200k",
	"SongLyrics_50k", "SongLyrics_30k", "SongLyrics_20k",
	"SongLyrics_15k", "SongLyrics_12k", "SongLyrics_10k",
}

// Config is the complete harness configuration.
type Config struct {
	Backend weaviate.Config `yaml:"backend"`
	Fanout  FanoutConfig    `yaml:"fanout"`
	Load    LoadConfig      `yaml:"load"`
	Gateway GatewayConfig   `yaml:"gateway"`
	Logging LoggingConfig   `yaml:"logging"`

	// Reporters names the enabled end-of-run reporters.
	Reporters []ReporterConfig `yaml:"reporters"`

	// Thresholds fail the run when breached, e.g. "batch_latency.p95 < 500".
	Thresholds []string `yaml:"thresholds"`
}

// FanoutConfig holds the batch dispatch settings.
type FanoutConfig struct {
	// Shards is the target collection set (N >= 1).
	Shards []fanout.ShardTarget `yaml:"shards"`
	// Deadline bounds one whole batch, not one shard.
	Deadline time.Duration `yaml:"deadline"`
	// ShardTimeout optionally caps each sub-query below the deadline.
	ShardTimeout time.Duration `yaml:"shard_timeout"`
	// Merge selects the aggregation strategy: "concat" or "score".
	Merge string `yaml:"merge"`
}

// LoadConfig holds the load-driver settings.
type LoadConfig struct {
	VUs        int           `yaml:"vus"`
	Duration   time.Duration `yaml:"duration"`
	Iterations int           `yaml:"iterations"`
	// QueryFile is the JSON query set driving the run.
	QueryFile string `yaml:"query_file"`
	// Alpha applies to query-file entries without their own alpha.
	Alpha float64 `yaml:"alpha"`
}

// GatewayConfig holds the HTTP gateway settings.
type GatewayConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	EnableCORS   bool          `yaml:"enable_cors"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ReporterConfig enables one reporter.
type ReporterConfig struct {
	Type string `yaml:"type"`
	// Path is the output file for file-based reporters.
	Path string `yaml:"path,omitempty"`
}

// Default returns the configuration defaults.
func Default() *Config {
	shards := make([]fanout.ShardTarget, len(defaultCollections))
	for i, c := range defaultCollections {
		shards[i] = fanout.ShardTarget{Shard: c}
	}
	return &Config{
		Backend: weaviate.DefaultConfig(),
		Fanout: FanoutConfig{
			Shards:   shards,
			Deadline: 30 * time.Second,
			Merge:    "score",
		},
		Load: LoadConfig{
			VUs:   10,
			Alpha: 0.9,
		},
		Gateway: GatewayConfig{
			Address:      ":8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Reporters: []ReporterConfig{{Type: "console"}},
	}
}

// Load reads the configuration from path (optional) and applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.Backend.URL, "WEAVIATE_URL")
	envString(&c.Backend.APIKey, "WEAVIATE_API_KEY")
	envInt(&c.Backend.MaxConnsPerHost, "MAX_CONNS")
	envDuration(&c.Fanout.Deadline, "DEADLINE")
	envDuration(&c.Fanout.ShardTimeout, "SHARD_TIMEOUT")
	envString(&c.Fanout.Merge, "MERGE")
	envInt(&c.Load.VUs, "VUS")
	envDuration(&c.Load.Duration, "DURATION")
	envInt(&c.Load.Iterations, "ITERATIONS")
	envString(&c.Load.QueryFile, "QUERY_FILE")
	envString(&c.Gateway.Address, "GATEWAY_ADDRESS")
	envString(&c.Logging.Level, "LOG_LEVEL")
	envString(&c.Logging.Format, "LOG_FORMAT")
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if len(c.Fanout.Shards) == 0 {
		return fmt.Errorf("config: at least one shard is required")
	}
	seen := make(map[string]bool, len(c.Fanout.Shards))
	for _, s := range c.Fanout.Shards {
		if s.Shard == "" {
			return fmt.Errorf("config: shard with empty name")
		}
		if seen[s.Shard] {
			return fmt.Errorf("config: duplicate shard %q", s.Shard)
		}
		seen[s.Shard] = true
	}
	if c.Fanout.Deadline <= 0 {
		return fmt.Errorf("config: fanout deadline must be positive")
	}
	if c.Fanout.ShardTimeout < 0 {
		return fmt.Errorf("config: shard timeout cannot be negative")
	}
	switch c.Fanout.Merge {
	case "", "concat", "score":
	default:
		return fmt.Errorf("config: unknown merge strategy %q", c.Fanout.Merge)
	}
	if c.Load.VUs <= 0 {
		return fmt.Errorf("config: vus must be positive")
	}
	if c.Load.Alpha < 0 || c.Load.Alpha > 1 {
		return fmt.Errorf("config: alpha must be in [0,1]")
	}
	return nil
}

// Targets returns the shard target set with the global per-shard timeout
// applied where no per-shard override is set.
func (c *Config) Targets() []fanout.ShardTarget {
	targets := make([]fanout.ShardTarget, len(c.Fanout.Shards))
	copy(targets, c.Fanout.Shards)
	if c.Fanout.ShardTimeout > 0 {
		for i := range targets {
			if targets[i].Timeout == 0 {
				targets[i].Timeout = c.Fanout.ShardTimeout
			}
		}
	}
	return targets
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
