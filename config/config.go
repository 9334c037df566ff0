// Package config loads the runtime configuration from YAML.
//
// Every field has a default (see Default), so a file only needs to name what
// it changes:
//
//	log:
//	  level: debug
//	engine:
//	  memory_limit_pages: 16
//	time_provider:
//	  fixed_year: 2022
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/host/timeprovider"
	"github.com/wippyai/wasm-host/metrics"
)

// validate is shared; building a validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Log          Log          `yaml:"log"`
	Engine       Engine       `yaml:"engine"`
	TimeProvider TimeProvider `yaml:"time_provider"`
	Metrics      Metrics      `yaml:"metrics"`
}

type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// Format is console or json.
	Format string `yaml:"format" validate:"oneof=console json"`
	// File receives logs in addition to stderr when set. It is rotated at
	// MaxSizeMB, keeping MaxBackups old files.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

type Engine struct {
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the engine default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" validate:"lte=65536"`
	// CloseOnContextDone lets context cancellation stop a running guest.
	CloseOnContextDone bool `yaml:"close_on_context_done"`
	// CompilationCacheDir persists compiled modules across runs.
	CompilationCacheDir string `yaml:"compilation_cache_dir"`
}

type TimeProvider struct {
	// Namespaces under which get_current_year is offered. Empty disables
	// the built-in clock.
	Namespaces []string `yaml:"namespaces" validate:"dive,required"`
	// FixedYear pins the clock. 0 reads the wall clock.
	FixedYear int32 `yaml:"fixed_year"`
}

type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: Log{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		TimeProvider: TimeProvider{
			Namespaces: append([]string(nil), timeprovider.DefaultNamespaces...),
		},
		Metrics: Metrics{
			Namespace: metrics.DefaultNamespace,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read "+path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "invalid config")
	}
	return nil
}

// EngineConfig converts to the engine's configuration.
func (c Config) EngineConfig() *engine.Config {
	return &engine.Config{
		CompilationCacheDir: c.Engine.CompilationCacheDir,
		MemoryLimitPages:    c.Engine.MemoryLimitPages,
		CloseOnContextDone:  c.Engine.CloseOnContextDone,
	}
}

// Clock returns the configured clock.
func (c Config) Clock() timeprovider.Clock {
	if c.TimeProvider.FixedYear != 0 {
		return timeprovider.Fixed(c.TimeProvider.FixedYear)
	}
	return timeprovider.Wall()
}
