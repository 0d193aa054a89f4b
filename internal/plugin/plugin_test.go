// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package plugin_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vesperbot/vesper/internal/plugin"
)

func TestPlugin_RelativePath(t *testing.T) {
	root := t.TempDir()

	p := &plugin.Plugin{
		FullPath:   filepath.Join(root, "fun", "ping.lua"),
		PluginRoot: root,
	}
	assert.Equal(t, "fun/ping", p.RelativePath())

	top := &plugin.Plugin{
		FullPath:   filepath.Join(root, "ping.lua"),
		PluginRoot: root,
	}
	assert.Equal(t, "ping", top.RelativePath())
}

func TestPlugin_RelativePath_NotUniqueAcrossDirs(t *testing.T) {
	root := t.TempDir()

	a := &plugin.Plugin{FullPath: filepath.Join(root, "a", "ping.lua"), PluginRoot: root}
	b := &plugin.Plugin{FullPath: filepath.Join(root, "b", "ping.lua"), PluginRoot: root}
	assert.NotEqual(t, a.RelativePath(), b.RelativePath(),
		"same basename in different subdirectories must normalize differently")
}
