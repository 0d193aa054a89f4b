// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package plugin

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes for plugin registry failures.
const (
	CodeNotRegistered = "PLUGIN_NOT_REGISTERED"
)

// ErrNotRegistered is returned when an operation names a plugin that is not
// in the active registry. Detect it with errors.Is so callers can notice
// double-unregistration.
var ErrNotRegistered = errors.New("plugin not registered")

// errNotRegistered wraps the sentinel with context about the plugin.
func errNotRegistered(p *Plugin) error {
	return oops.Code(CodeNotRegistered).
		With("plugin", p.Name).
		With("path", p.FullPath).
		Wrap(ErrNotRegistered)
}
