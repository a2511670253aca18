// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package config loads mcdbctl's configuration.
//
// Sources, highest precedence first: command-line flags (applied by the
// caller), MCDB_* environment variables, a YAML config file, and defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where databases live when nothing else is configured.
const DefaultDir = "/var/db"

// Config is mcdbctl's configuration.
type Config struct {
	// Dir holds the *.mcdb files.
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Build   BuildConfig   `mapstructure:"build" yaml:"build"`

	// StaleCheck is how often a mapped file is re-examined for
	// replacement.  Zero disables the check.
	StaleCheck time.Duration `mapstructure:"stale_check" yaml:"stale_check" validate:"gte=0"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// BuildConfig controls database builds.
type BuildConfig struct {
	// Sync is the durability policy: none, data or full.
	Sync string `mapstructure:"sync" yaml:"sync" validate:"required,oneof=none data full"`
}

// MetricsConfig controls metric reporting.
type MetricsConfig struct {
	// Dump writes collected metrics to stderr in the Prometheus text
	// format when a command exits.
	Dump bool `mapstructure:"dump" yaml:"dump"`
}

var validate = validator.New()

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Dir: DefaultDir,
		Logging: LoggingConfig{
			Level:  "WARN",
			Format: "text",
		},
		Build: BuildConfig{
			Sync: "full",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("dir", d.Dir)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("build.sync", d.Build.Sync)
	v.SetDefault("stale_check", d.StaleCheck)
	v.SetDefault("metrics.dump", d.Metrics.Dump)
}

// Load reads the configuration.  An empty configPath looks for
// config.yaml in the default config directory, and silently falls back to
// defaults when there is none; an explicit configPath must exist.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables use the MCDB_ prefix and underscores
	// Example: MCDB_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("MCDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Save writes cfg as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Dir is the default config directory, $XDG_CONFIG_HOME/mcdb.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mcdb")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "mcdb")
	}
	return "/etc/mcdb"
}

// NewLogger returns a logger writing to w in the configured format, at
// the configured level.
func (c LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
