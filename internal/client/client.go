// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

// Package client provides the messaging client surface: the handler table
// that plugins register into and the dispatch loop that drives it.
package client

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message is a single chat message flowing through the dispatcher.
type Message struct {
	ID     ulid.ULID
	ChatID string
	Sender string
	Text   string
	// Outgoing marks messages authored by the bot operator themself,
	// as opposed to messages received from third parties.
	Outgoing bool
	Time     time.Time
}

// NewMessage creates a message with a fresh ULID and the current time.
func NewMessage(chatID, sender, text string, outgoing bool) *Message {
	return &Message{
		ID:       ulid.Make(),
		ChatID:   chatID,
		Sender:   sender,
		Text:     text,
		Outgoing: outgoing,
		Time:     time.Now(),
	}
}

// HandlerFunc is the entry point of a registered message handler.
// The returned string, if non-empty, is sent back as a reply.
type HandlerFunc func(ctx context.Context, msg *Message) (string, error)

// Handler is one entry in the client's handler table. Handlers are
// registered and removed by identity: the same *Handler passed to
// AddEventHandler must be passed to RemoveEventHandler.
type Handler struct {
	// Name qualifies the handler for logs and metrics, e.g. "fun/dice/roll".
	Name string
	// Match reports whether the handler wants the message text.
	Match func(text string) bool
	// Private handlers fire only on outgoing (self-authored) messages.
	Private bool
	// Func is invoked for every matching message.
	Func HandlerFunc
}

// Client is the capability the plugin registry needs from the messaging
// client. Both operations are safe to call concurrently with dispatch.
// Removing a handler that was never added is a no-op.
type Client interface {
	AddEventHandler(h *Handler)
	RemoveEventHandler(h *Handler)
}

// Responder delivers handler replies back to the chat a message came from.
type Responder interface {
	Reply(ctx context.Context, msg *Message, text string) error
}
