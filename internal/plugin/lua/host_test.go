// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package lua_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperbot/vesper/internal/client"
	pluginlua "github.com/vesperbot/vesper/internal/plugin/lua"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHost_Load_Descriptor(t *testing.T) {
	path := writeSource(t, t.TempDir(), "echo.lua", `
version = "1.2.0"

plugin = {
  name = "Echo",
  help = "Repeats what it hears",
  handlers = {
    {
      name = "echo",
      help = "Echo the message back",
      pattern = [[^\.echo ]],
      incoming = true,
      fn = function(msg)
        return string.sub(msg.text, 7)
      end,
    },
  },
}
`)

	h := pluginlua.NewHost()
	mod, err := h.Load(context.Background(), "echo", path)
	require.NoError(t, err)

	assert.Equal(t, "Echo", mod.Name)
	assert.Equal(t, "Repeats what it hears", mod.Help)
	assert.Equal(t, "1.2.0", mod.Version)
	require.Len(t, mod.Handlers, 1)

	spec := mod.Handlers[0]
	assert.Equal(t, "echo", spec.Name)
	assert.Equal(t, "Echo the message back", spec.Help)
	assert.Equal(t, `^\.echo `, spec.Pattern)
	require.NotNil(t, spec.Incoming)
	assert.True(t, *spec.Incoming)
	assert.Nil(t, spec.Outgoing)
	require.NotNil(t, spec.Invoke)

	reply, err := spec.Invoke(context.Background(), client.NewMessage("c", "s", ".echo hello", false))
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
}

func TestHost_Load_EmptyModule(t *testing.T) {
	path := writeSource(t, t.TempDir(), "empty.lua", `local unused = 1`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "empty", path)
	require.NoError(t, err, "a module declaring nothing is not an error")
	assert.Empty(t, mod.Name)
	assert.Empty(t, mod.Help)
	assert.Empty(t, mod.Version)
	assert.Empty(t, mod.Handlers)
}

func TestHost_Load_SyntaxError(t *testing.T) {
	path := writeSource(t, t.TempDir(), "broken.lua", `this is not lua (`)

	_, err := pluginlua.NewHost().Load(context.Background(), "broken", path)
	require.Error(t, err)
}

func TestHost_Load_TopLevelRuntimeError(t *testing.T) {
	path := writeSource(t, t.TempDir(), "crash.lua", `error("exploded at load time")`)

	_, err := pluginlua.NewHost().Load(context.Background(), "crash", path)
	require.Error(t, err)
}

func TestHost_Load_MissingFile(t *testing.T) {
	_, err := pluginlua.NewHost().Load(context.Background(), "ghost",
		filepath.Join(t.TempDir(), "ghost.lua"))
	require.Error(t, err)
}

func TestHost_Load_MalformedHandlersAreNotCallbacks(t *testing.T) {
	path := writeSource(t, t.TempDir(), "odd.lua", `
plugin = {
  name = "Odd",
  handlers = {
    { name = "no_fn", pattern = "^x$" },
    { fn = function(msg) return "anonymous" end },
    { name = "good", fn = function(msg) return "ok" end },
    "not even a table",
  },
}
`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "odd", path)
	require.NoError(t, err)
	require.Len(t, mod.Handlers, 1, "entries without name or fn are not callbacks")
	assert.Equal(t, "good", mod.Handlers[0].Name)
}

func TestHost_Load_NonBooleanFiltersAreUndeclared(t *testing.T) {
	path := writeSource(t, t.TempDir(), "weird.lua", `
plugin = {
  handlers = {
    { name = "h", incoming = "yes", outgoing = 1, fn = function(msg) end },
  },
}
`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "weird", path)
	require.NoError(t, err)
	require.Len(t, mod.Handlers, 1)
	assert.Nil(t, mod.Handlers[0].Incoming, "non-boolean filter counts as undeclared")
	assert.Nil(t, mod.Handlers[0].Outgoing, "non-boolean filter counts as undeclared")
}

func TestHost_Load_NonStringVersionIsEmpty(t *testing.T) {
	path := writeSource(t, t.TempDir(), "numver.lua", `version = 2`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "numver", path)
	require.NoError(t, err)
	assert.Empty(t, mod.Version)
}

func TestHost_Invoke_FreshStatePerInvocation(t *testing.T) {
	// Top-level state does not leak between invocations: each call
	// re-executes the module source.
	path := writeSource(t, t.TempDir(), "count.lua", `
calls = 0

plugin = {
  handlers = {
    {
      name = "count",
      fn = function(msg)
        calls = calls + 1
        return tostring(calls)
      end,
    },
  },
}
`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "count", path)
	require.NoError(t, err)
	require.Len(t, mod.Handlers, 1)

	msg := client.NewMessage("c", "s", "x", false)
	for range 3 {
		reply, err := mod.Handlers[0].Invoke(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, "1", reply)
	}
}

func TestHost_Invoke_HandlerError(t *testing.T) {
	path := writeSource(t, t.TempDir(), "fail.lua", `
plugin = {
  handlers = {
    { name = "fail", fn = function(msg) error("handler blew up") end },
  },
}
`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "fail", path)
	require.NoError(t, err)
	require.Len(t, mod.Handlers, 1)

	_, err = mod.Handlers[0].Invoke(context.Background(), client.NewMessage("c", "s", "x", false))
	require.Error(t, err)
}

func TestHost_Invoke_NonStringReturnIsNoReply(t *testing.T) {
	path := writeSource(t, t.TempDir(), "silent.lua", `
plugin = {
  handlers = {
    { name = "silent", fn = function(msg) return 42 end },
  },
}
`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "silent", path)
	require.NoError(t, err)

	reply, err := mod.Handlers[0].Invoke(context.Background(), client.NewMessage("c", "s", "x", false))
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestHost_Invoke_MessageTable(t *testing.T) {
	path := writeSource(t, t.TempDir(), "inspect.lua", `
plugin = {
  handlers = {
    {
      name = "inspect",
      fn = function(msg)
        local dir = "incoming"
        if msg.outgoing then dir = "outgoing" end
        return msg.sender .. " " .. msg.chat .. " " .. dir
      end,
    },
  },
}
`)

	mod, err := pluginlua.NewHost().Load(context.Background(), "inspect", path)
	require.NoError(t, err)

	reply, err := mod.Handlers[0].Invoke(context.Background(),
		client.NewMessage("lobby", "alice", "hi", true))
	require.NoError(t, err)
	assert.Equal(t, "alice lobby outgoing", reply)
}
