package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/updownlabs/updown/internal/config"
	"github.com/updownlabs/updown/internal/server"
	"github.com/updownlabs/updown/internal/server/handler"
	"github.com/updownlabs/updown/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown on context cancellation.
const shutdownTimeout = 10 * time.Second

// ServerMode runs the HTTP + WebSocket API backed by the configured oracle.
// It blocks until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	return a.serve(ctx, deps)
}

// DevMode runs the same API as server mode but first initializes one market
// per seeded static oracle feed, so a fresh instance is immediately
// playable.
func (a *App) DevMode(ctx context.Context, deps *Dependencies) error {
	for _, feed := range a.cfg.Oracle.Feeds {
		err := deps.Ledger.InitializeMarket(ctx, feed.ID, common.Address{}, a.cfg.OracleFee())
		if err != nil {
			a.logger.WarnContext(ctx, "dev market init failed",
				slog.String("feed", feed.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.InfoContext(ctx, "dev market initialized", slog.String("feed", feed.ID))
	}
	return a.serve(ctx, deps)
}

// serve builds the handlers and WebSocket hub, then runs the HTTP server and
// the hub until the context is cancelled.
func (a *App) serve(ctx context.Context, deps *Dependencies) error {
	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(),
		Markets:   handler.NewMarketHandler(deps.Ledger, a.logger),
		Rounds:    handler.NewRoundHandler(deps.Ledger, a.logger),
		Positions: handler.NewPositionHandler(deps.Ledger, a.logger),
		Settle:    handler.NewSettleHandler(deps.Ledger, deps.Bank, a.logger),
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})

	srv := server.NewServer(serverConfig(a.cfg), handlers, hub, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}
}
