// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

// Package gateway provides the line-oriented TCP chat adapter. Each
// connection is one chat: inbound lines become incoming messages, and
// handler replies are written back to the originating connection.
package gateway

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/vesperbot/vesper/internal/client"
)

// writeTimeout bounds a single reply write to a connection.
const writeTimeout = 5 * time.Second

// Server accepts chat connections and feeds their lines into the message
// sink. It implements client.Responder for messages that originated here.
type Server struct {
	addr     string
	sink     chan<- *client.Message
	listener net.Listener
	conns    map[string]net.Conn
	mu       sync.RWMutex
}

// NewServer creates a gateway listening on addr, emitting messages to sink.
func NewServer(addr string, sink chan<- *client.Message) *Server {
	return &Server{
		addr:  addr,
		sink:  sink,
		conns: make(map[string]net.Conn),
	}
}

// Addr returns the listen address, empty before Run.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the gateway and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return oops.In("gateway").With("addr", s.addr).Hint("failed to listen").Wrap(err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	slog.Info("gateway started", "addr", listener.Addr())

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			slog.Debug("error closing listener", "error", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("accept failed", "error", err)
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// Reply implements client.Responder by writing to the chat's connection.
func (s *Server) Reply(ctx context.Context, msg *client.Message, text string) error {
	return s.Send(ctx, msg.ChatID, text)
}

// Send writes one line to a connected chat. Unknown chats are an error so
// callers can fall back or drop.
func (s *Server) Send(_ context.Context, chatID, text string) error {
	s.mu.RLock()
	conn, ok := s.conns[chatID]
	s.mu.RUnlock()
	if !ok {
		return oops.In("gateway").With("chat", chatID).New("chat not connected")
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return oops.In("gateway").With("chat", chatID).Wrap(err)
	}
	if _, err := io.WriteString(conn, text+"\n"); err != nil {
		return oops.In("gateway").With("chat", chatID).Hint("write failed").Wrap(err)
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	chatID := conn.RemoteAddr().String()

	s.mu.Lock()
	s.conns[chatID] = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, chatID)
		s.mu.Unlock()
		if err := conn.Close(); err != nil {
			slog.Debug("error closing connection", "error", err)
		}
	}()

	slog.Debug("chat connected", "chat", chatID)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		s.sink <- client.NewMessage(chatID, chatID, text, false)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Debug("connection read error", "chat", chatID, "error", err)
	}
}
