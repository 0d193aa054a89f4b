// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vesperbot/vesper/internal/client"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingResponder captures replies for assertions.
type recordingResponder struct {
	mu      sync.Mutex
	replies []string
}

func (r *recordingResponder) Reply(_ context.Context, _ *client.Message, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	return nil
}

func (r *recordingResponder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.replies))
	copy(out, r.replies)
	return out
}

func prefixMatch(prefix string) func(string) bool {
	return func(text string) bool {
		return len(text) >= len(prefix) && text[:len(prefix)] == prefix
	}
}

func staticHandler(name, prefix, reply string, private bool) *client.Handler {
	return &client.Handler{
		Name:    name,
		Match:   prefixMatch(prefix),
		Private: private,
		Func: func(context.Context, *client.Message) (string, error) {
			return reply, nil
		},
	}
}

func TestDispatcher_AddRemoveEventHandler(t *testing.T) {
	d := client.NewDispatcher(&recordingResponder{})
	h := staticHandler("h", ".x", "ok", false)

	d.AddEventHandler(h)
	assert.Equal(t, 1, d.HandlerCount())

	d.RemoveEventHandler(h)
	assert.Equal(t, 0, d.HandlerCount())

	// Removing an unknown handler is a no-op.
	d.RemoveEventHandler(h)
	assert.Equal(t, 0, d.HandlerCount())
}

func TestDispatcher_Dispatch_MatchingHandlerReplies(t *testing.T) {
	responder := &recordingResponder{}
	d := client.NewDispatcher(responder)
	d.AddEventHandler(staticHandler("ping", ".ping", "Pong", false))
	d.AddEventHandler(staticHandler("other", ".other", "nope", false))

	d.Dispatch(context.Background(), client.NewMessage("chat", "alice", ".ping", false))
	d.Stop()

	assert.Equal(t, []string{"Pong"}, responder.all())
}

func TestDispatcher_Dispatch_PrivateHandlerIgnoresIncoming(t *testing.T) {
	responder := &recordingResponder{}
	d := client.NewDispatcher(responder)
	d.AddEventHandler(staticHandler("secret", ".secret", "hidden", true))

	d.Dispatch(context.Background(), client.NewMessage("chat", "mallory", ".secret", false))
	d.Stop()
	assert.Empty(t, responder.all(), "private handler must not fire on incoming messages")

	d.Dispatch(context.Background(), client.NewMessage("chat", "operator", ".secret", true))
	d.Stop()
	assert.Equal(t, []string{"hidden"}, responder.all())
}

func TestDispatcher_Dispatch_HandlerErrorDropsReply(t *testing.T) {
	responder := &recordingResponder{}
	d := client.NewDispatcher(responder)
	d.AddEventHandler(&client.Handler{
		Name:  "fail",
		Match: prefixMatch(".fail"),
		Func: func(context.Context, *client.Message) (string, error) {
			return "", errors.New("handler exploded")
		},
	})

	d.Dispatch(context.Background(), client.NewMessage("chat", "bob", ".fail", false))
	d.Stop()

	assert.Empty(t, responder.all())
}

func TestDispatcher_Dispatch_InvokeTimeout(t *testing.T) {
	responder := &recordingResponder{}
	d := client.NewDispatcher(responder, client.WithInvokeTimeout(20*time.Millisecond))
	d.AddEventHandler(&client.Handler{
		Name:  "slow",
		Match: prefixMatch(".slow"),
		Func: func(ctx context.Context, _ *client.Message) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})

	d.Dispatch(context.Background(), client.NewMessage("chat", "carol", ".slow", false))
	d.Stop()

	assert.Empty(t, responder.all())
}

func TestDispatcher_Run_ConsumesChannel(t *testing.T) {
	responder := &recordingResponder{}
	d := client.NewDispatcher(responder)
	d.AddEventHandler(staticHandler("ping", ".ping", "Pong", false))

	messages := make(chan *client.Message, 4)
	ctx, cancel := context.WithCancel(context.Background())

	d.Run(ctx, messages)
	messages <- client.NewMessage("chat", "alice", ".ping", false)
	messages <- client.NewMessage("chat", "alice", "unrelated chatter", false)

	require.Eventually(t, func() bool {
		return len(responder.all()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	d.Stop()
	assert.Equal(t, []string{"Pong"}, responder.all())
}

func TestDispatcher_ConcurrentMutationDuringDispatch(t *testing.T) {
	responder := &recordingResponder{}
	d := client.NewDispatcher(responder)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := staticHandler("h", ".x", "ok", false)
			for range 50 {
				d.AddEventHandler(h)
				d.Dispatch(context.Background(), client.NewMessage("c", "s", ".x", false))
				d.RemoveEventHandler(h)
			}
		}()
	}
	wg.Wait()
	d.Stop()

	assert.Zero(t, d.HandlerCount())
}
