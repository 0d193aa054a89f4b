// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Sender delivers one formatted log line to a chat channel.
type Sender func(ctx context.Context, text string) error

// sendTimeout bounds delivery of a single record, retries included.
const sendTimeout = 10 * time.Second

// ChannelHandler wraps a slog.Handler and additionally forwards records
// at or above a threshold level to a chat channel. Delivery runs off the
// logging path with fibonacci backoff; a record that cannot be delivered
// is written to stderr and dropped, never escalated back into the logger.
type ChannelHandler struct {
	next  slog.Handler
	send  Sender
	level slog.Level
	attrs []slog.Attr
}

// NewChannelHandler creates a channel handler forwarding records at or
// above level through send, delegating everything to next.
func NewChannelHandler(next slog.Handler, send Sender, level slog.Level) *ChannelHandler {
	return &ChannelHandler{
		next:  next,
		send:  send,
		level: level,
	}
}

// Enabled defers to the wrapped handler.
func (h *ChannelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle forwards the record and, when it crosses the threshold, ships a
// formatted copy to the channel.
func (h *ChannelHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level && h.send != nil {
		line := h.formatRecord(r)
		go h.deliver(line)
	}
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.next.Handle(ctx, r)
}

// WithAttrs returns a new handler carrying the attributes.
func (h *ChannelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &ChannelHandler{
		next:  h.next.WithAttrs(attrs),
		send:  h.send,
		level: h.level,
		attrs: merged,
	}
}

// WithGroup returns a new handler with the given group on the delegate.
// Groups are not reflected in the channel line format.
func (h *ChannelHandler) WithGroup(name string) slog.Handler {
	return &ChannelHandler{
		next:  h.next.WithGroup(name),
		send:  h.send,
		level: h.level,
		attrs: h.attrs,
	}
}

// deliver ships one line with retries. Runs in its own goroutine with its
// own context: channel logging must never block or recurse into slog.
func (h *ChannelHandler) deliver(line string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(h.send(ctx, line))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "channel log delivery failed: %v: %s\n", err, line)
	}
}

// formatRecord renders a record as a single chat line.
func (h *ChannelHandler) formatRecord(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteString(" ")
	b.WriteString(r.Message)
	for _, attr := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
	}
	r.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
		return true
	})
	return b.String()
}
