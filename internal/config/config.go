// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

// Package config loads bot configuration from defaults, a YAML file, and
// command-line flags, in that precedence order.
package config

import (
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/vesperbot/vesper/internal/xdg"
)

// Config holds the bot process configuration.
type Config struct {
	// PluginDir is the root directory scanned for plugin source files.
	PluginDir string `koanf:"plugin-dir"`
	// BuiltinPrefix is the reserved namespace spared by mass-unregistration.
	BuiltinPrefix string `koanf:"builtin-prefix"`
	// Ignore lists glob patterns for source files excluded from discovery.
	Ignore []string `koanf:"ignore"`
	// ListenAddr is the chat gateway listen address.
	ListenAddr string `koanf:"listen-addr"`
	// MetricsAddr is the metrics/health HTTP address (empty = disabled).
	MetricsAddr string `koanf:"metrics-addr"`
	// LogFormat selects "json" or "text" log output.
	LogFormat string `koanf:"log-format"`
	// LogChannel names a chat that receives warn-and-above log records
	// (empty = disabled).
	LogChannel string `koanf:"log-channel"`
	// DispatchTimeout bounds a single handler invocation.
	DispatchTimeout time.Duration `koanf:"dispatch-timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PluginDir:       "./plugins",
		BuiltinPrefix:   "builtins/",
		ListenAddr:      "127.0.0.1:7621",
		MetricsAddr:     "127.0.0.1:9100",
		LogFormat:       "json",
		DispatchTimeout: 5 * time.Second,
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), "vesper.yaml")
}

// Load merges defaults, the YAML file at path (if non-empty), and any set
// flags into a Config. Flags win over the file, the file over defaults.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.In("config").With("path", path).Hint("failed to read config file").Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, oops.In("config").Hint("failed to read flags").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.In("config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration constraints.
func (c Config) Validate() error {
	if c.PluginDir == "" {
		return oops.In("config").New("plugin-dir is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.In("config").With("log-format", c.LogFormat).New("log-format must be 'json' or 'text'")
	}
	if c.DispatchTimeout <= 0 {
		return oops.In("config").With("dispatch-timeout", c.DispatchTimeout.String()).New("dispatch-timeout must be positive")
	}
	return nil
}
