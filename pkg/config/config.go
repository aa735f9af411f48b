/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Configuration for learner sessions. Settings come from defaults, an optional
config file, LEARNER_ environment variables and command line flags bound through viper,
in increasing order of precedence.
*/

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kleascm/regular-learner/pkg/core"
	"github.com/kleascm/regular-learner/pkg/learner"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. LEARNER_WORKERS
const EnvPrefix = "LEARNER"

// Config is the complete configuration of one learner invocation
type Config struct {
	SessionID    string        `mapstructure:"session_id"`
	Algorithm    string        `mapstructure:"algorithm"`
	AlphabetSize int           `mapstructure:"alphabet_size"`
	Workers      int           `mapstructure:"workers"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxRounds    int           `mapstructure:"max_rounds"`
	MaxStates    int           `mapstructure:"max_states"`
	Offline      bool          `mapstructure:"offline"`

	StorePath   string `mapstructure:"store_path"`   // empty disables persistence
	MetricsAddr string `mapstructure:"metrics_addr"` // empty disables the metrics endpoint

	Logging logging.LoggerConfig `mapstructure:"logging"`
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("algorithm", learner.NameAngluin)
	v.SetDefault("alphabet_size", 0)
	v.SetDefault("workers", 4)
	v.SetDefault("query_timeout", 5*time.Second)
	v.SetDefault("max_rounds", 0)
	v.SetDefault("max_states", 16)
	v.SetDefault("offline", false)
	v.SetDefault("store_path", "")
	v.SetDefault("metrics_addr", "")

	def := logging.DefaultLoggerConfig()
	v.SetDefault("logging.level", string(def.Level))
	v.SetDefault("logging.format", string(def.Format))
	v.SetDefault("logging.output_dir", def.OutputDir)
	v.SetDefault("logging.max_files", def.MaxFiles)
	v.SetDefault("logging.timestamp", def.Timestamp)
	v.SetDefault("logging.caller", def.Caller)
	v.SetDefault("logging.colors", def.Colors)
}

// Configure sets up defaults and environment overrides on v
func Configure(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// New returns a configured viper instance
func New() *viper.Viper {
	v := viper.New()
	Configure(v)
	return v
}

// Load reads the config file named by the "config" key, if any, and decodes v
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if !known(c.Algorithm) {
		return fmt.Errorf("%w: %q (available: %s)", learner.ErrUnknownAlgorithm, c.Algorithm, strings.Join(learner.Names(), ", "))
	}
	if err := c.Session().Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Session returns the engine configuration
func (c *Config) Session() *core.SessionConfig {
	return &core.SessionConfig{
		SessionID:    c.SessionID,
		Algorithm:    c.Algorithm,
		AlphabetSize: c.AlphabetSize,
		Workers:      c.Workers,
		QueryTimeout: c.QueryTimeout,
		MaxRounds:    c.MaxRounds,
		MaxStates:    c.MaxStates,
		Offline:      c.Offline,
	}
}

func known(name string) bool {
	for _, n := range learner.Names() {
		if n == name {
			return true
		}
	}
	return false
}
