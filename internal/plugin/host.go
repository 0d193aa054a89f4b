// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package plugin

import (
	"context"

	"github.com/vesperbot/vesper/internal/client"
)

// Loader executes one source module and yields its declared surface.
// A module is loaded exactly once per discovery pass; the returned Module
// is shared between metadata and callback extraction.
type Loader interface {
	Load(ctx context.Context, name, path string) (*Module, error)
}

// Module is the declared surface of a loaded source module. All metadata
// fields may be empty; a module that declares nothing yields an empty
// Module, not an error.
type Module struct {
	Name     string
	Help     string
	Version  string
	Handlers []HandlerSpec
}

// HandlerSpec is the typed descriptor a module declares for one message
// handler: the explicit replacement for introspecting annotations out of
// source text.
type HandlerSpec struct {
	Name string
	Help string
	// Pattern is a regular expression matched against message text.
	Pattern string
	// Incoming and Outgoing are tri-state visibility filters: nil means
	// the module did not declare the flag.
	Incoming *bool
	Outgoing *bool
	// Invoke is the executable entry point.
	Invoke client.HandlerFunc
}
