// Package config provides configuration loading and validation for the
// memfit CLI. Values come from an optional YAML file and MEMFIT_-prefixed
// environment variables; command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidCapacity  = errors.New("capacity must be non-negative")
	ErrInvalidTimeout   = errors.New("timeout must be non-negative")
	ErrNoHeuristics     = errors.New("at least one preordering heuristic is required")
	ErrInvalidHeuristic = errors.New("heuristic may only contain the letters ACLOTUWZ")
)

// defaultLogLevel applies when no level is configured.
const defaultLogLevel = "info"

// defaultHeuristics are the preordering heuristics raced by default.
var defaultHeuristics = []string{"WAT", "TAW", "TWA"}

// heuristicLetters enumerates the valid preordering sort keys.
const heuristicLetters = "ACLOTUWZ"

// Config holds all configuration for the memfit CLI.
type Config struct {
	Capacity int64         `mapstructure:"capacity"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Solver   SolverConfig  `mapstructure:"solver"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SolverConfig mirrors the solver's search and inference toggles.
type SolverConfig struct {
	CanonicalOnly         bool     `mapstructure:"canonical_only"`
	SectionInference      bool     `mapstructure:"section_inference"`
	DynamicOrdering       bool     `mapstructure:"dynamic_ordering"`
	CheckDominance        bool     `mapstructure:"check_dominance"`
	UnallocatedFloor      bool     `mapstructure:"unallocated_floor"`
	StaticPreordering     bool     `mapstructure:"static_preordering"`
	DynamicDecomposition  bool     `mapstructure:"dynamic_decomposition"`
	MonotonicFloor        bool     `mapstructure:"monotonic_floor"`
	HatlessPruning        bool     `mapstructure:"hatless_pruning"`
	MinimizeCapacity      bool     `mapstructure:"minimize_capacity"`
	PreorderingHeuristics []string `mapstructure:"preordering_heuristics"`
}

// Load reads configuration from a file and the environment. An empty
// configPath searches the working directory and /etc/memfit for
// memfit.yaml; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("memfit")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("/etc/memfit")
	}

	viperCfg.SetEnvPrefix("MEMFIT")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults establishes defaults matching the solver's recommended
// parameters.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("capacity", 0)
	viperCfg.SetDefault("timeout", time.Duration(0))
	viperCfg.SetDefault("logging.level", defaultLogLevel)
	viperCfg.SetDefault("solver.canonical_only", true)
	viperCfg.SetDefault("solver.section_inference", true)
	viperCfg.SetDefault("solver.dynamic_ordering", true)
	viperCfg.SetDefault("solver.check_dominance", true)
	viperCfg.SetDefault("solver.unallocated_floor", true)
	viperCfg.SetDefault("solver.static_preordering", true)
	viperCfg.SetDefault("solver.dynamic_decomposition", true)
	viperCfg.SetDefault("solver.monotonic_floor", true)
	viperCfg.SetDefault("solver.hatless_pruning", true)
	viperCfg.SetDefault("solver.minimize_capacity", false)
	viperCfg.SetDefault("solver.preordering_heuristics", defaultHeuristics)
}

// Validate checks a configuration for consistency.
func Validate(config *Config) error {
	if config.Capacity < 0 {
		return ErrInvalidCapacity
	}

	if config.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if len(config.Solver.PreorderingHeuristics) == 0 {
		return ErrNoHeuristics
	}

	for _, heuristic := range config.Solver.PreorderingHeuristics {
		if heuristic == "" {
			return fmt.Errorf("%w: empty heuristic", ErrInvalidHeuristic)
		}

		for _, key := range heuristic {
			if !strings.ContainsRune(heuristicLetters, key) {
				return fmt.Errorf("%w: %q", ErrInvalidHeuristic, heuristic)
			}
		}
	}

	return nil
}
