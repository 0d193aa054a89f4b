// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package plugin

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/vesperbot/vesper/internal/client"
)

// DefaultBuiltinPrefix is the reserved namespace whose plugins survive
// routine mass-unregistration.
const DefaultBuiltinPrefix = "builtins/"

// Manager is the plugin registry. It orchestrates scanner and loader into
// Plugin records, maintains the active-plugin table, and drives handler
// registration against the messaging client.
//
// All registry mutation happens under one mutex that also covers the
// client handler-table calls, so concurrent dispatch never observes the
// table in a half-updated state.
type Manager struct {
	client        client.Client
	loader        Loader
	scanner       *Scanner
	builtinPrefix string

	active []*Plugin
	mu     sync.Mutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithBuiltinPrefix overrides the reserved builtins namespace prefix.
func WithBuiltinPrefix(prefix string) ManagerOption {
	return func(m *Manager) {
		m.builtinPrefix = prefix
	}
}

// NewManager creates a plugin registry over the given client, loader, and
// scanner.
func NewManager(c client.Client, loader Loader, scanner *Scanner, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:        c,
		loader:        loader,
		scanner:       scanner,
		builtinPrefix: DefaultBuiltinPrefix,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterAll discovers every source file under the scan root, loads each
// one once, and registers all declared callbacks with the client. A file
// that fails to load is logged and skipped; discovery continues. Paths that
// are already active are skipped, so repeated calls never duplicate
// handlers. Returns a snapshot of the active registry.
func (m *Manager) RegisterAll(ctx context.Context) ([]*Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates, err := m.scanner.Scan()
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(m.active))
	for _, p := range m.active {
		known[p.FullPath] = true
	}

	registered := 0
	for _, cand := range candidates {
		if known[cand.Path] {
			slog.Warn("plugin already registered, skipping",
				"path", cand.Path)
			continue
		}

		mod, err := m.loader.Load(ctx, cand.Name, cand.Path)
		if err != nil {
			LoadFailures.WithLabelValues(cand.Name).Inc()
			slog.Error("failed to load plugin",
				"plugin", cand.Name,
				"path", cand.Path,
				"error", err)
			continue
		}

		p := &Plugin{
			Name:       mod.Name,
			Help:       mod.Help,
			Version:    mod.Version,
			FullPath:   cand.Path,
			PluginRoot: m.scanner.Root(),
		}
		m.checkVersion(p)

		for _, spec := range mod.Handlers {
			cb, ok := m.buildCallback(p, spec)
			if !ok {
				continue
			}
			p.Callbacks = append(p.Callbacks, cb)
			m.client.AddEventHandler(cb.Handle)
			slog.Debug("registered callback",
				"plugin", p.RelativePath(),
				"callback", cb.Name,
				"private", cb.Private)
		}

		m.active = append(m.active, p)
		known[p.FullPath] = true
		registered++
	}

	m.updateGauges()
	slog.Info("registered plugins",
		"registered", registered,
		"active", len(m.active))
	return m.snapshotLocked(), nil
}

// UnregisterAll removes every active plugin outside the builtins namespace.
// With includeBuiltins true the builtins namespace is removed too.
func (m *Manager) UnregisterAll(_ context.Context, includeBuiltins bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Snapshot first: per-plugin removal mutates the active list.
	for _, p := range m.snapshotLocked() {
		if !includeBuiltins && strings.HasPrefix(p.RelativePath(), m.builtinPrefix) {
			continue
		}
		if err := m.unregisterLocked(p); err != nil {
			return err
		}
	}
	m.updateGauges()
	return nil
}

// UnregisterPlugin removes one plugin's callbacks from the client and drops
// it from the active registry. Returns an error wrapping ErrNotRegistered
// if the plugin is not active, so callers can detect double-unregistration.
func (m *Manager) UnregisterPlugin(_ context.Context, p *Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.unregisterLocked(p); err != nil {
		return err
	}
	m.updateGauges()
	return nil
}

// Active returns a snapshot of the active-plugin registry.
func (m *Manager) Active() []*Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) unregisterLocked(p *Plugin) error {
	idx := -1
	for i, active := range m.active {
		if active == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errNotRegistered(p)
	}

	for _, cb := range p.Callbacks {
		m.client.RemoveEventHandler(cb.Handle)
		slog.Debug("unregistered callback",
			"plugin", p.RelativePath(),
			"callback", cb.Name)
	}
	m.active = append(m.active[:idx], m.active[idx+1:]...)
	return nil
}

// buildCallback turns a declared handler descriptor into a registered
// callback. Descriptors with an invalid pattern or no entry point are not
// callbacks, not errors.
func (m *Manager) buildCallback(p *Plugin, spec HandlerSpec) (*Callback, bool) {
	if spec.Name == "" || spec.Invoke == nil {
		return nil, false
	}

	var match func(string) bool
	if spec.Pattern != "" {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			slog.Debug("skipping handler with invalid pattern",
				"plugin", p.RelativePath(),
				"handler", spec.Name,
				"pattern", spec.Pattern,
				"error", err)
			return nil, false
		}
		match = re.MatchString
	}

	private := callbackPrivate(spec.Incoming, spec.Outgoing)
	return &Callback{
		Name:    spec.Name,
		Help:    spec.Help,
		Private: private,
		Handle: &client.Handler{
			Name:    p.RelativePath() + "/" + spec.Name,
			Match:   match,
			Private: private,
			Func:    spec.Invoke,
		},
	}, true
}

func (m *Manager) checkVersion(p *Plugin) {
	if p.Version == "" {
		return
	}
	if _, err := semver.NewVersion(p.Version); err != nil {
		slog.Warn("plugin declares non-semver version",
			"plugin", p.RelativePath(),
			"version", p.Version)
	}
}

func (m *Manager) snapshotLocked() []*Plugin {
	out := make([]*Plugin, len(m.active))
	copy(out, m.active)
	return out
}

func (m *Manager) updateGauges() {
	callbacks := 0
	for _, p := range m.active {
		callbacks += len(p.Callbacks)
	}
	ActivePlugins.Set(float64(len(m.active)))
	ActiveCallbacks.Set(float64(callbacks))
}
