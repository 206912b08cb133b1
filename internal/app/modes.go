package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sunho-park/poswatch/internal/server"
	"github.com/sunho-park/poswatch/internal/service"
)

// ServeMode runs the HTTP server: webhook ingestion, Telegram updates, and
// the scheduler-triggered cycle and report endpoints.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode", slog.Int("port", a.cfg.Server.Port))

	srv := server.NewServer(server.Config{
		Port:                a.cfg.Server.Port,
		ControlSecret:       a.cfg.Secrets.ControlSecret,
		PositionsCheckToken: a.cfg.Secrets.PositionsCheckToken,
		DailyReportToken:    a.cfg.Secrets.DailyReportToken,
	}, deps.Handlers, deps.Limiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

// PollMode runs reconciliation cycles on a fixed interval without exposing
// HTTP. It suits single-replica deployments with no external scheduler.
func (a *App) PollMode(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Engine.PollInterval.Duration
	a.logger.InfoContext(ctx, "starting poll mode", slog.Duration("interval", interval))

	runOnce := func() {
		_, _, err := deps.Runner.Run(ctx, true)
		switch {
		case errors.Is(err, service.ErrCycleBusy):
			a.logger.DebugContext(ctx, "cycle skipped, another replica holds the lock")
		case err != nil:
			a.logger.ErrorContext(ctx, "cycle failed", slog.String("error", err.Error()))
		}
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}

// CheckMode runs exactly one reconciliation cycle with alerts and exits. It
// suits cron-style deployments.
func (a *App) CheckMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting check mode")

	res, auto, err := deps.Runner.Run(ctx, true)
	if err != nil {
		if errors.Is(err, service.ErrCycleBusy) {
			a.logger.InfoContext(ctx, "cycle skipped, another replica holds the lock")
			return nil
		}
		return err
	}

	a.logger.InfoContext(ctx, "check complete",
		slog.Int("positions", res.PositionsNow),
		slog.Int("events", res.Counts.Total()),
		slog.Bool("initial_sync", res.InitialSync),
		slog.Bool("auto_report_sent", auto.Sent),
	)
	return nil
}
