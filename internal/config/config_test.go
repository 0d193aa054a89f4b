// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperbot/vesper/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vesper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "./plugins", cfg.PluginDir)
	assert.Equal(t, "builtins/", cfg.BuiltinPrefix)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.DispatchTimeout)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
plugin-dir: /srv/bot/plugins
log-format: text
dispatch-timeout: 2s
ignore:
  - "*_draft.lua"
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/bot/plugins", cfg.PluginDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 2*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, []string{"*_draft.lua"}, cfg.Ignore)
	// Values absent from the file keep their defaults.
	assert.Equal(t, "builtins/", cfg.BuiltinPrefix)
}

func TestLoad_FlagsWinOverFile(t *testing.T) {
	path := writeConfig(t, `log-format: text`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-format", "json", "")
	require.NoError(t, flags.Set("log-format", "json"))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	bad := config.Default()
	bad.PluginDir = ""
	assert.Error(t, bad.Validate())

	bad = config.Default()
	bad.LogFormat = "yaml"
	assert.Error(t, bad.Validate())

	bad = config.Default()
	bad.DispatchTimeout = 0
	assert.Error(t, bad.Validate())
}
