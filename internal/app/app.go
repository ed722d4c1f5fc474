// Package app provides the top-level application lifecycle: it wires the
// venue adapters, optional cache and journal backends, and the HTTP front
// door, then runs the server until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ktmaeda/dealerdesk/internal/config"
	"github.com/ktmaeda/dealerdesk/internal/dealer"
	"github.com/ktmaeda/dealerdesk/internal/server"
	"github.com/ktmaeda/dealerdesk/internal/server/handler"
	"github.com/ktmaeda/dealerdesk/internal/server/ws"
)

// shutdownGrace bounds graceful HTTP shutdown after the context is cancelled.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and serves until ctx is cancelled. On return it
// runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	active := dealer.NewActive()

	sessionDefaults := dealer.Config{
		Exchange:     a.cfg.Session.Exchange,
		Symbol:       a.cfg.Session.Symbol,
		Pips:         a.cfg.Session.Pips,
		Lower:        a.cfg.Session.Lower,
		Upper:        a.cfg.Session.Upper,
		PollInterval: a.cfg.Session.PollInterval.Duration,
	}

	stream := ws.NewStream(deps.Adapters, active, deps.BookCache, sessionDefaults, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Adapters.List(), a.logger),
		Orders: handler.NewOrderHandler(handler.NewActiveSource(active), deps.OrderJournal, a.logger),
		Book:   handler.NewBookHandler(deps.BookCache, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, stream, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
