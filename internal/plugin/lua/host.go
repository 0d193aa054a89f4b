// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package lua

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/vesperbot/vesper/internal/client"
	"github.com/vesperbot/vesper/internal/plugin"
)

// Compile-time interface check.
var _ plugin.Loader = (*Host)(nil)

// Descriptor contract. A plugin source file exports its surface through two
// globals, executed once at load time:
//
//	version = "1.2.0"
//	plugin = {
//	  name = "Ping",
//	  help = "Some help message",
//	  handlers = {
//	    { name = "ping", help = "...", pattern = [[^\.ping]],
//	      outgoing = true, fn = function(msg) return "Pong" end },
//	  },
//	}
//
// Anything absent yields an empty string, never a load failure. A handler
// entry without a name or fn is not a callback.
const (
	versionGlobal    = "version"
	descriptorGlobal = "plugin"
)

// Host loads Lua source modules. Load executes a file's top-level code once
// in a fresh sandboxed state and extracts the declared descriptor; each
// handler invocation later re-executes the retained source in its own
// state, so dispatch never shares a Lua state across goroutines.
type Host struct {
	factory *StateFactory
}

// NewHost creates a Lua module host.
func NewHost() *Host {
	return &Host{factory: NewStateFactory()}
}

// Load reads and executes the source file at path and returns its declared
// surface. Read failures, syntax errors, and errors raised by top-level
// code are reported per file so the caller can skip and continue.
func (h *Host) Load(ctx context.Context, name, path string) (*plugin.Module, error) {
	errb := oops.In("lua").With("plugin", name).With("path", path)

	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errb.Hint("failed to read source file").Wrap(err)
	}
	source := string(code)

	L, err := h.factory.NewState(ctx)
	if err != nil {
		return nil, errb.Hint("failed to create state").Wrap(err)
	}
	defer L.Close()
	registerBotFuncs(L, name)

	if err := L.DoString(source); err != nil {
		return nil, errb.Hint("module execution failed").Wrap(err)
	}

	mod := extractModule(L)
	for i := range mod.Handlers {
		mod.Handlers[i].Invoke = h.invoker(name, source, mod.Handlers[i].Name)
	}
	return mod, nil
}

// invoker returns the dispatch-time entry point for one declared handler.
func (h *Host) invoker(pluginName, source, handlerName string) client.HandlerFunc {
	return func(ctx context.Context, msg *client.Message) (string, error) {
		errb := oops.In("lua").With("plugin", pluginName).With("handler", handlerName)

		L, err := h.factory.NewState(ctx)
		if err != nil {
			return "", errb.Hint("failed to create state").Wrap(err)
		}
		defer L.Close()
		registerBotFuncs(L, pluginName)

		if err := L.DoString(source); err != nil {
			return "", errb.Hint("failed to load module code").Wrap(err)
		}

		fn := findHandlerFn(L, handlerName)
		if fn == nil {
			return "", errb.New("handler not declared by module")
		}

		if err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, buildMessageTable(L, msg)); err != nil {
			return "", errb.Wrap(err)
		}

		ret := L.Get(-1)
		L.Pop(1)
		if s, ok := ret.(lua.LString); ok {
			return string(s), nil
		}
		return "", nil
	}
}

// extractModule reads the exported descriptor out of an executed state.
func extractModule(L *lua.LState) *plugin.Module {
	mod := &plugin.Module{
		Version: stringValue(L.GetGlobal(versionGlobal)),
	}

	desc, ok := L.GetGlobal(descriptorGlobal).(*lua.LTable)
	if !ok {
		return mod
	}
	mod.Name = stringValue(desc.RawGetString("name"))
	mod.Help = stringValue(desc.RawGetString("help"))

	handlers, ok := desc.RawGetString("handlers").(*lua.LTable)
	if !ok {
		return mod
	}
	handlers.ForEach(func(_, v lua.LValue) {
		entry, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		name := stringValue(entry.RawGetString("name"))
		if name == "" {
			return
		}
		if _, ok := entry.RawGetString("fn").(*lua.LFunction); !ok {
			return
		}
		mod.Handlers = append(mod.Handlers, plugin.HandlerSpec{
			Name:     name,
			Help:     stringValue(entry.RawGetString("help")),
			Pattern:  stringValue(entry.RawGetString("pattern")),
			Incoming: boolValue(entry.RawGetString("incoming")),
			Outgoing: boolValue(entry.RawGetString("outgoing")),
		})
	})
	return mod
}

// findHandlerFn locates the fn of a named handler in an executed state.
func findHandlerFn(L *lua.LState, handlerName string) lua.LValue {
	desc, ok := L.GetGlobal(descriptorGlobal).(*lua.LTable)
	if !ok {
		return nil
	}
	handlers, ok := desc.RawGetString("handlers").(*lua.LTable)
	if !ok {
		return nil
	}

	var fn lua.LValue
	handlers.ForEach(func(_, v lua.LValue) {
		entry, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		if stringValue(entry.RawGetString("name")) != handlerName {
			return
		}
		if f, ok := entry.RawGetString("fn").(*lua.LFunction); ok && fn == nil {
			fn = f
		}
	})
	return fn
}

// buildMessageTable converts a message into the table handlers receive.
func buildMessageTable(L *lua.LState, msg *client.Message) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(msg.ID.String()))
	L.SetField(t, "chat", lua.LString(msg.ChatID))
	L.SetField(t, "sender", lua.LString(msg.Sender))
	L.SetField(t, "text", lua.LString(msg.Text))
	L.SetField(t, "outgoing", lua.LBool(msg.Outgoing))
	L.SetField(t, "time", lua.LNumber(msg.Time.UnixMilli()))
	return t
}

// stringValue returns the string value of a Lua string, or "" for any
// other type. Declared metadata may legitimately be absent.
func stringValue(v lua.LValue) string {
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// boolValue returns a visibility flag if it was declared as a boolean
// literal, nil otherwise. Non-boolean values count as undeclared.
func boolValue(v lua.LValue) *bool {
	if b, ok := v.(lua.LBool); ok {
		val := bool(b)
		return &val
	}
	return nil
}
