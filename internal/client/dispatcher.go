// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("vesper/client")

// defaultInvokeTimeout bounds a single handler invocation.
const defaultInvokeTimeout = 5 * time.Second

// Compile-time interface check.
var _ Client = (*Dispatcher)(nil)

// Dispatcher owns the handler table and the concurrent dispatch loop.
// Handlers may be added and removed at any time, including while messages
// are in flight; a dispatch in progress never observes a half-updated table.
type Dispatcher struct {
	responder Responder
	timeout   time.Duration
	handlers  []*Handler
	mu        sync.RWMutex
	wg        sync.WaitGroup
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithInvokeTimeout overrides the per-invocation handler timeout.
func WithInvokeTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

// NewDispatcher creates a dispatcher that sends replies through r.
func NewDispatcher(r Responder, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		responder: r,
		timeout:   defaultInvokeTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddEventHandler appends a handler to the table.
func (d *Dispatcher) AddEventHandler(h *Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// RemoveEventHandler removes a handler by identity. Unknown handlers are
// a no-op so double-removal cannot crash dispatch.
func (d *Dispatcher) RemoveEventHandler(h *Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.handlers {
		if existing == h {
			d.handlers = append(d.handlers[:i], d.handlers[i+1:]...)
			return
		}
	}
}

// HandlerCount returns the current size of the handler table.
func (d *Dispatcher) HandlerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Run consumes messages until the context is cancelled or the channel
// closes. It returns immediately; use Stop to wait for in-flight handlers.
func (d *Dispatcher) Run(ctx context.Context, messages <-chan *Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				d.Dispatch(ctx, msg)
			}
		}
	}()
}

// Stop waits for the run loop and all in-flight handler invocations.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
}

// Dispatch matches a single message against the handler table and invokes
// every matching handler asynchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *Message) {
	if msg == nil {
		return
	}

	d.mu.RLock()
	snapshot := make([]*Handler, len(d.handlers))
	copy(snapshot, d.handlers)
	d.mu.RUnlock()

	direction := directionLabel(msg.Outgoing)
	RecordMessage(direction)

	for _, h := range snapshot {
		if h.Private && !msg.Outgoing {
			continue
		}
		if h.Match != nil && !h.Match(msg.Text) {
			continue
		}
		d.invokeAsync(ctx, h, msg)
	}
}

func (d *Dispatcher) invokeAsync(ctx context.Context, h *Handler, msg *Message) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		ctx, span := tracer.Start(ctx, "client.invoke",
			trace.WithAttributes(
				attribute.String("handler.name", h.Name),
				attribute.String("message.id", msg.ID.String()),
				attribute.Bool("message.outgoing", msg.Outgoing),
			),
		)
		defer span.End()

		start := time.Now()
		reply, err := h.Func(ctx, msg)
		RecordInvocation(h.Name, statusLabel(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				slog.Warn("handler timed out",
					"handler", h.Name,
					"message_id", msg.ID.String(),
					"timeout", d.timeout)
			case errors.Is(err, context.Canceled):
				slog.Debug("handler canceled",
					"handler", h.Name,
					"message_id", msg.ID.String())
			default:
				slog.Error("handler failed",
					"handler", h.Name,
					"message_id", msg.ID.String(),
					"error", err)
			}
			return
		}

		if reply == "" || d.responder == nil {
			return
		}
		if err := d.responder.Reply(ctx, msg, reply); err != nil {
			slog.Error("failed to send reply",
				"handler", h.Name,
				"chat", msg.ChatID,
				"error", err)
		}
	}()
}

func directionLabel(outgoing bool) string {
	if outgoing {
		return "outgoing"
	}
	return "incoming"
}

func statusLabel(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
