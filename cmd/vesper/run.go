// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vesperbot/vesper/internal/client"
	"github.com/vesperbot/vesper/internal/config"
	"github.com/vesperbot/vesper/internal/gateway"
	"github.com/vesperbot/vesper/internal/logging"
	"github.com/vesperbot/vesper/internal/observability"
	"github.com/vesperbot/vesper/internal/plugin"
	pluginlua "github.com/vesperbot/vesper/internal/plugin/lua"
)

// serviceName identifies this process in logs and traces.
const serviceName = "vesper"

// shutdownGrace bounds cleanup work after the stop signal.
const shutdownGrace = 5 * time.Second

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot process",
		Long: `Start the bot process: discover and register all plugins, then serve
the chat gateway until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("plugin-dir", config.Default().PluginDir, "plugin root directory")
	flags.String("listen-addr", config.Default().ListenAddr, "chat gateway listen address")
	flags.String("metrics-addr", config.Default().MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("log-format", config.Default().LogFormat, "log format (json or text)")
	flags.String("log-channel", "", "chat that receives warn-and-above log records")
	flags.Duration("dispatch-timeout", config.Default().DispatchTimeout, "per-handler invocation timeout")
	flags.StringSlice("ignore", nil, "glob patterns excluded from plugin discovery")

	return cmd
}

func runBot(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	messages := make(chan *client.Message, 64)
	gw := gateway.NewServer(cfg.ListenAddr, messages)
	console := gateway.NewConsole(os.Stdin, os.Stdout, messages)

	setupLogging(cfg, gw)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ready atomic.Bool
	var obs *observability.Server
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, ready.Load)
		plugin.RegisterMetrics(obs.Registry())
		client.RegisterMetrics(obs.Registry())
		if _, err := obs.Start(); err != nil {
			return err
		}
	}

	dispatcher := client.NewDispatcher(
		&replyRouter{console: console, gateway: gw},
		client.WithInvokeTimeout(cfg.DispatchTimeout),
	)

	scanner, err := plugin.NewScanner(cfg.PluginDir, plugin.WithIgnore(cfg.Ignore...))
	if err != nil {
		return err
	}
	mgr := plugin.NewManager(dispatcher, pluginlua.NewHost(), scanner,
		plugin.WithBuiltinPrefix(cfg.BuiltinPrefix))

	if _, err := mgr.RegisterAll(ctx); err != nil {
		return err
	}
	ready.Store(true)

	dispatcher.Run(ctx, messages)
	go func() {
		if err := console.Run(ctx); err != nil {
			slog.Error("console stopped", "error", err)
		}
	}()

	slog.Info("started vesper", "version", version)
	runErr := gw.Run(ctx)

	// Past this point the stop signal has fired (or the gateway failed):
	// tear the handler table down cleanly before exiting.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := mgr.UnregisterAll(shutdownCtx, true); err != nil {
		slog.Error("failed to unregister plugins", "error", err)
	}
	dispatcher.Stop()
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			slog.Error("failed to stop observability server", "error", err)
		}
	}
	return runErr
}

// setupLogging installs the default logger, optionally fanning warnings out
// to the configured log channel through the gateway.
func setupLogging(cfg config.Config, gw *gateway.Server) {
	handler := logging.Setup(serviceName, version, cfg.LogFormat, nil).Handler()
	if cfg.LogChannel != "" {
		send := func(ctx context.Context, text string) error {
			return gw.Send(ctx, cfg.LogChannel, text)
		}
		handler = logging.NewChannelHandler(handler, send, slog.LevelWarn)
	}
	slog.SetDefault(slog.New(handler))
}

// replyRouter sends replies back to whichever surface a message came from.
type replyRouter struct {
	console *gateway.Console
	gateway *gateway.Server
}

func (r *replyRouter) Reply(ctx context.Context, msg *client.Message, text string) error {
	if msg.ChatID == gateway.ConsoleChatID {
		return r.console.Reply(ctx, msg, text)
	}
	return r.gateway.Reply(ctx, msg, text)
}
