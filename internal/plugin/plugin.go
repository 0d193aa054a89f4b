// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

// Package plugin turns a directory of command modules into a live table of
// registered message handlers, and reverses that transformation cleanly.
package plugin

import (
	"path/filepath"
	"strings"

	"github.com/vesperbot/vesper/internal/client"
)

// Callback is one registered message handler of a plugin.
type Callback struct {
	// Name is unique within the owning plugin.
	Name string
	// Help is free-text description, possibly empty.
	Help string
	// Handle is the entry registered in the client's handler table. It is
	// owned by the plugin and shared with the client for the duration of
	// registration.
	Handle *client.Handler
	// Private callbacks respond only to outgoing (self-authored) messages.
	Private bool
}

// Plugin is one source module's registered surface.
type Plugin struct {
	Name      string
	Help      string
	Version   string
	Callbacks []*Callback
	// FullPath is the absolute path of the source file. Unique across
	// plugins; Name is not.
	FullPath string
	// PluginRoot is the absolute path of the directory that was scanned.
	PluginRoot string
}

// RelativePath returns FullPath relative to PluginRoot with the source
// extension stripped and separators normalized to '/'. Two files with the
// same basename in different subdirectories normalize differently, so this
// is unique per scan root but not across roots.
func (p *Plugin) RelativePath() string {
	rel, err := filepath.Rel(p.PluginRoot, p.FullPath)
	if err != nil {
		rel = p.FullPath
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel)
}
