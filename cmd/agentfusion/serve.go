package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/agentfusion/agentfusion/component"
	"github.com/agentfusion/agentfusion/config"
	"github.com/agentfusion/agentfusion/observability"
	"github.com/agentfusion/agentfusion/server"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch the config file and restart on changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	shutdown, err := observability.InitTracing(ctx, derefObservability(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	var updates <-chan *config.Config
	if c.Watch {
		updates, err = config.Watch(ctx, cli.Config)
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
	}

	for {
		next, err := c.serveOnce(ctx, cli, cfg, updates)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		slog.Info("configuration changed, restarting server")
		cfg = next
	}
}

// serveOnce runs one server lifetime. It returns the new config when a
// watched change arrives, or (nil, nil) on shutdown.
func (c *ServeCmd) serveOnce(ctx context.Context, cli *CLI, cfg *config.Config, updates <-chan *config.Config) (*config.Config, error) {
	if c.Port != 0 {
		if cfg.Server == nil {
			cfg.Server = &config.ServerConfig{}
		}
		cfg.Server.Port = c.Port
	}

	manager, err := component.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	defer manager.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.New(manager, cfg.Server)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(runCtx) }()

	select {
	case next := <-updates:
		cancel()
		if err := <-errCh; err != nil {
			return nil, err
		}
		return next, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, <-errCh
	}
}

func derefObservability(cfg *config.Config) config.ObservabilityConfig {
	if cfg.Observability == nil {
		return config.ObservabilityConfig{}
	}
	return *cfg.Observability
}
