// Package server exposes the HTTP surface of the watcher: the TradingView
// webhook, the Telegram bot webhooks, and the scheduler-triggered cycle,
// report, and keep-alive endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
	"github.com/sunho-park/poswatch/internal/server/handler"
	"github.com/sunho-park/poswatch/internal/server/middleware"
)

// Webhook rate-limit parameters: TradingView retries aggressively when an
// alert endpoint is slow, so cap per-client bursts instead of queueing them.
const (
	webhookRateLimit  = 120
	webhookRateWindow = time.Minute
)

// Config holds the HTTP server configuration. Each guarded route carries its
// own shared secret; an empty secret disables that route's guard.
type Config struct {
	Port int

	ControlSecret       string // /tg/* routes
	PositionsCheckToken string // /positions_check
	DailyReportToken    string // /daily_report
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Webhook  *handler.WebhookHandler
	Telegram *handler.TelegramHandler
	Cycle    *handler.CycleHandler
	Report   *handler.ReportHandler
}

// Server is the HTTP front of the position watcher.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// limiter is optional; when non-nil the webhook route is rate limited per
// client IP.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handlers.Health.Root)

	// The webhook validates its own secret: TradingView can only carry it in
	// the query string or payload body.
	var webhook http.Handler = http.HandlerFunc(handlers.Webhook.Receive)
	if limiter != nil {
		webhook = middleware.RateLimit(limiter, webhookRateLimit, webhookRateWindow)(webhook)
	}
	mux.Handle("POST /tv-webhook", webhook)

	control := middleware.RequireToken("secret", cfg.ControlSecret)
	mux.Handle("POST /tg/position", control(http.HandlerFunc(handlers.Telegram.PositionUpdate)))
	mux.Handle("POST /tg/signal", control(http.HandlerFunc(handlers.Telegram.SignalUpdate)))

	check := middleware.RequireToken("token", cfg.PositionsCheckToken)
	mux.Handle("GET /positions_check", check(http.HandlerFunc(handlers.Cycle.Check)))
	mux.Handle("POST /positions_check", check(http.HandlerFunc(handlers.Cycle.Check)))

	daily := middleware.RequireToken("token", cfg.DailyReportToken)
	mux.Handle("GET /daily_report", daily(http.HandlerFunc(handlers.Report.Daily)))
	mux.Handle("POST /daily_report", daily(http.HandlerFunc(handlers.Report.Daily)))

	mux.HandleFunc("GET /health_check", handlers.Health.Check)

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
