// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package lua

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// registerBotFuncs installs the bot.* host functions into a state.
// Currently: bot.log(level, message) for structured logging attributed to
// the plugin.
func registerBotFuncs(L *lua.LState, pluginName string) {
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(botLog(pluginName)))
	L.SetGlobal("bot", mod)
}

// botLog returns the bot.log implementation for one plugin.
func botLog(pluginName string) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		msg := L.CheckString(2)

		logger := slog.With("plugin", pluginName)
		switch level {
		case "debug":
			logger.Debug(msg)
		case "warn":
			logger.Warn(msg)
		case "error":
			logger.Error(msg)
		default:
			logger.Info(msg)
		}
		return 0
	}
}
