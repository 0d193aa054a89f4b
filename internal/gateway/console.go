// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"

	"github.com/vesperbot/vesper/internal/client"
)

// ConsoleChatID identifies the operator console chat.
const ConsoleChatID = "console"

// Console turns lines from the operator's terminal into outgoing
// (self-authored) messages, the way a userbot sees what its owner types.
// It implements client.Responder for console-originated messages.
type Console struct {
	in   io.Reader
	out  io.Writer
	sink chan<- *client.Message
}

// NewConsole creates a console source reading from in and replying to out.
func NewConsole(in io.Reader, out io.Writer, sink chan<- *client.Message) *Console {
	return &Console{in: in, out: out, sink: sink}
}

// Run reads lines until EOF or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		c.sink <- client.NewMessage(ConsoleChatID, "operator", text, true)
	}
	if err := scanner.Err(); err != nil {
		return oops.In("gateway").With("chat", ConsoleChatID).Wrap(err)
	}
	return nil
}

// Reply implements client.Responder by writing to the console output.
func (c *Console) Reply(_ context.Context, _ *client.Message, text string) error {
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return oops.In("gateway").With("chat", ConsoleChatID).Wrap(err)
	}
	return nil
}
