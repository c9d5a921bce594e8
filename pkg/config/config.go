// Package config holds the settings of the detach tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the detach configuration, loaded from YAML.
type Config struct {
	// Workers bounds concurrent rule transforms; <= 0 means one per CPU.
	Workers int `yaml:"workers"`

	// Debug checks that bound names are unique before each rule.
	Debug bool `yaml:"debug"`

	// Trace is the capacity of the extraction trace; 0 disables it.
	Trace int `yaml:"trace"`

	Log    LogConfig    `yaml:"log"`
	Verify VerifyConfig `yaml:"verify"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// VerifyConfig controls the normal-form check run after the pass.
type VerifyConfig struct {
	Enabled bool `yaml:"enabled"`
	Fuel    int  `yaml:"fuel"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Verify: VerifyConfig{
			Fuel: 100000,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides reads DETACH_WORKERS, DETACH_DEBUG, DETACH_TRACE,
// DETACH_LOG_LEVEL, DETACH_LOG_FORMAT and DETACH_VERIFY.
func (c *Config) applyEnvOverrides() {
	// env serves reads from a snapshot; take a fresh one for every load.
	env.Load()

	c.Workers = env.Int("DETACH_WORKERS", c.Workers)
	c.Trace = env.Int("DETACH_TRACE", c.Trace)
	if env.Has("DETACH_DEBUG") {
		c.Debug = env.Bool("DETACH_DEBUG")
	}
	if env.Has("DETACH_VERIFY") {
		c.Verify.Enabled = env.Bool("DETACH_VERIFY")
	}
	c.Log.Level = env.Str("DETACH_LOG_LEVEL", c.Log.Level)
	c.Log.Format = env.Str("DETACH_LOG_FORMAT", c.Log.Format)
}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Trace < 0 {
		return fmt.Errorf("invalid trace capacity %d", c.Trace)
	}
	return nil
}

// YAML encodes the configuration in the format Load reads.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Logger builds the zap logger described by c.Log. Logs go to stderr so
// the transformed book on stdout stays clean.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	var zc zap.Config
	if strings.ToLower(c.Log.Format) == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
