package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment variables read by the CLI:
// SKIPGRID_TRAINING_LEARNING_RATE -> training.learning_rate.
const envPrefix = "SKIPGRID_"

// configPathEnvVar overrides the config file path.
const configPathEnvVar = "SKIPGRID_CONFIG"

// defaultConfigPaths lists where config files are searched, in order.
var defaultConfigPaths = []string{
	"skipgrid.yaml",
	"skipgrid.yml",
	"/etc/skipgrid/config.yaml",
}

// Config is the full CLI configuration, loaded with layered precedence:
// defaults, then YAML config file, then SKIPGRID_* environment variables.
type Config struct {
	Input      InputConfig      `koanf:"input"`
	Output     OutputConfig     `koanf:"output"`
	Training   TrainingConfig   `koanf:"training"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Store      StoreConfig      `koanf:"store"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// InputConfig locates the training corpus: one sequence per line,
// whitespace-separated int64 item ids.
type InputConfig struct {
	Path string `koanf:"path"`
}

// OutputConfig locates the trained-vector dump written after training.
// Empty disables the dump.
type OutputConfig struct {
	Path string `koanf:"path"`
}

// TrainingConfig mirrors skipgrid.Options.
type TrainingConfig struct {
	VectorSize       int     `koanf:"vector_size"`
	NegativeSamples  int     `koanf:"negative_samples"`
	NumIterations    int     `koanf:"num_iterations"`
	LearningRate     float64 `koanf:"learning_rate"`
	MinLearningRate  float64 `koanf:"min_learning_rate"`
	NumThreads       int     `koanf:"num_threads"`
	NumPartitions    int     `koanf:"num_partitions"`
	Window           int     `koanf:"window"`
	PopularityPower  float64 `koanf:"popularity_power"`
	Regularization   float64 `koanf:"regularization"`
	Gamma            float64 `koanf:"gamma"`
	UseBias          bool    `koanf:"use_bias"`
	ImplicitFeedback bool    `koanf:"implicit_feedback"`
	Seed             int64   `koanf:"seed"`
	Verbose          bool    `koanf:"verbose"`
}

// CheckpointConfig controls snapshotting.
type CheckpointConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Interval    int    `koanf:"interval"`
	Compression string `koanf:"compression"` // none, zstd, lz4
	Final       bool   `koanf:"final"`       // checkpoint the final generation
}

// StoreConfig selects and configures the checkpoint blob store backend.
type StoreConfig struct {
	// Backend is one of: local, memory, minio, s3.
	Backend string `koanf:"backend"`
	// Path is the root directory of the local backend.
	Path string `koanf:"path"`

	Endpoint  string `koanf:"endpoint"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
	Region    string `koanf:"region"`

	// DDBTable, when set with the s3 backend, routes completion markers
	// through DynamoDB conditional writes.
	DDBTable string `koanf:"ddb_table"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

func defaultConfig() *Config {
	return &Config{
		Training: TrainingConfig{
			VectorSize:      100,
			NegativeSamples: 5,
			NumIterations:   1,
			LearningRate:    0.025,
			NumPartitions:   1,
			Window:          5,
			PopularityPower: 0.75,
			Gamma:           1,
			Seed:            1,
		},
		Checkpoint: CheckpointConfig{
			Enabled:     false,
			Interval:    10,
			Compression: "zstd",
			Final:       true,
		},
		Store: StoreConfig{
			Backend: "local",
			Path:    "./checkpoints",
			UseSSL:  true,
			Region:  "us-east-1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// loadConfig loads the layered configuration: defaults, YAML file,
// environment.
func loadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "local", "memory":
	case "minio", "s3":
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.DDBTable != "" && c.Store.Backend != "s3" {
		return fmt.Errorf("store.ddb_table requires the s3 backend, got %q", c.Store.Backend)
	}
	if c.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	return nil
}

func findConfigFile() string {
	if path := os.Getenv(configPathEnvVar); path != "" {
		return path
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps SKIPGRID_SECTION_SOME_KEY to section.some_key. The
// first underscore after the prefix separates the section; the rest of
// the name keeps its underscores.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}
