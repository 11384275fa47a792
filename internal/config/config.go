// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the deckbridge authors

// Package config loads the bridge configuration file. Every key has a
// usable default so a config file is optional; command-line flags
// override whatever the file says.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/volumedeck/deckbridge/pkg/deckwire"
)

const (
	appName    = "deckbridge"
	configFile = "config.yaml"
)

// Config is the on-disk configuration for the bridge.
type Config struct {
	// Transport selection. URL takes precedence over Port when both are
	// set: a deck reachable over the network is assumed to be the one
	// the operator means.
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`

	// Protocol behavior.
	Binary            bool          `yaml:"binary"`
	FallbackThreshold int           `yaml:"fallback_threshold"`
	TextMarkers       bool          `yaml:"text_markers"`
	MaxPayload        int           `yaml:"max_payload"`
	FrameTimeout      time.Duration `yaml:"frame_timeout"`

	// Session timing.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	StatsInterval  time.Duration `yaml:"stats_interval"`

	// Misc.
	LogLevel string `yaml:"log_level"`
	AssetDir string `yaml:"asset_dir"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Baud:              115200,
		Binary:            true,
		FallbackThreshold: 1,
		MaxPayload:        deckwire.DefaultMaxPayloadSize,
		FrameTimeout:      deckwire.DefaultFrameTimeout,
		ReconnectDelay:    2 * time.Second,
		PollInterval:      time.Second,
		StatsInterval:     30 * time.Second,
	}
}

// DefaultPath returns the platform config file location, e.g.
// ~/.config/deckbridge/config.yaml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(dir, appName, configFile), nil
}

// Load reads the config file at path. An empty path means the default
// location; a missing file is not an error and yields Default().
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.FallbackThreshold < 0 {
		return fmt.Errorf("fallback_threshold must not be negative, got %d", c.FallbackThreshold)
	}
	if c.MaxPayload <= 0 {
		return fmt.Errorf("max_payload must be positive, got %d", c.MaxPayload)
	}
	if c.FrameTimeout < 0 || c.ReconnectDelay < 0 || c.PollInterval < 0 || c.StatsInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
