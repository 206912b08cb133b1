package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	s3blob "github.com/sunho-park/poswatch/internal/blob/s3"
	"github.com/sunho-park/poswatch/internal/cache/redis"
	"github.com/sunho-park/poswatch/internal/command"
	"github.com/sunho-park/poswatch/internal/config"
	"github.com/sunho-park/poswatch/internal/domain"
	"github.com/sunho-park/poswatch/internal/engine"
	"github.com/sunho-park/poswatch/internal/notify"
	"github.com/sunho-park/poswatch/internal/platform/bingx"
	"github.com/sunho-park/poswatch/internal/report"
	"github.com/sunho-park/poswatch/internal/server"
	"github.com/sunho-park/poswatch/internal/server/handler"
	"github.com/sunho-park/poswatch/internal/service"
	"github.com/sunho-park/poswatch/internal/signal"
	"github.com/sunho-park/poswatch/internal/store/postgres"
)

// Dependencies bundles every component the application modes need to operate.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	State    domain.StateStore
	Sessions domain.SessionStore
	History  domain.TradeHistory
	Settings domain.SettingsStore
	Locks    domain.LockManager
	Limiter  domain.RateLimiter

	// Engine and services
	Classifier *engine.Classifier
	Runner     *service.CycleRunner
	Signals    *signal.Service
	Notifier   *notify.Notifier
	Reporter   *report.Reporter
	Commands   *command.Handler

	// HTTP layer
	Handlers server.Handlers
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.State = redis.NewStateStore(redisClient)
	deps.Sessions = redis.NewSessionStore(redisClient)
	deps.History = redis.NewTradeHistory(redisClient, domain.KST)
	deps.Settings = redis.NewSettingsStore(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.Limiter = redis.NewRateLimiter(redisClient)
	throttle := redis.NewThrottle(redisClient, logger)

	// --- PostgreSQL trade archive (optional) ---
	var archive domain.TradeArchive
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		archive = postgres.NewTradeArchive(pgClient.Pool())
	}

	// --- S3 trade export (optional) ---
	var exporter service.DayExporter
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		exporter = s3blob.NewExporter(s3blob.NewWriter(s3Client), deps.History)
	}

	// --- Exchange client ---
	exchange := bingx.NewClient(
		cfg.BingX.BaseURL,
		cfg.BingX.ApiKey,
		cfg.BingX.ApiSecret,
		cfg.BingX.Timeout.Duration,
	)

	// --- Notifications ---
	signalBot := notify.NewTelegramClient(cfg.Telegram.SignalBotToken, cfg.BingX.Timeout.Duration, logger)
	positionBot := notify.NewTelegramClient(cfg.Telegram.PositionBotToken, cfg.BingX.Timeout.Duration, logger)
	deps.Notifier = notify.NewNotifier(
		signalBot, positionBot,
		cfg.Telegram.SignalChatIDs, cfg.Telegram.PositionChatIDs,
		deps.Settings, logger,
	)

	// --- Reconciliation engine ---
	ledger := engine.NewSessionLedger(deps.Sessions, logger)
	reconciler := engine.NewReconciler(exchange, cfg.Engine.TakerFeeRate, cfg.BingX.Timeout.Duration, logger)
	deps.Classifier = engine.NewClassifier(
		exchange, deps.State, ledger, reconciler,
		deps.History, archive, logger,
	)

	// --- Reports, signals, commands ---
	autoDefault := "off"
	if cfg.Report.AutoEnabled {
		autoDefault = "on"
	}
	deps.Reporter = report.NewReporter(
		deps.History, deps.Settings, deps.Notifier,
		autoDefault, cfg.Report.AutoChatID, logger,
	)
	deps.Signals = signal.NewService(throttle, logger)
	deps.Commands = command.NewHandler(
		deps.Settings, deps.State, exchange,
		deps.Reporter, deps.Notifier,
		cfg.Telegram.AdminUserIDs, logger,
	)
	deps.Runner = service.NewCycleRunner(
		deps.Classifier, deps.Locks, deps.Notifier, deps.Reporter, exporter, logger,
	)

	// --- HTTP handlers ---
	deps.Handlers = server.Handlers{
		Health:   handler.NewHealthHandler(deps.Reporter, logger),
		Webhook:  handler.NewWebhookHandler(deps.Signals, deps.Notifier, cfg.Secrets.WebhookSecret, logger),
		Telegram: handler.NewTelegramHandler(deps.Commands, deps.Notifier, logger),
		Cycle:    handler.NewCycleHandler(deps.Runner, logger),
		Report:   handler.NewReportHandler(deps.Reporter, deps.Notifier, logger),
	}

	return deps, cleanup, nil
}

// bootstrap seeds first-boot state: report schedule settings and default-off
// switches for group chats that have never been toggled.
func (a *App) bootstrap(ctx context.Context, deps *Dependencies) {
	// Configured schedule wins over the built-in defaults, but only until an
	// operator changes it from chat.
	if deps.Settings.GetSetting(ctx, "report_auto_hour", "") == "" {
		_ = deps.Settings.SetSetting(ctx, "report_auto_hour", strconv.Itoa(a.cfg.Report.AutoHour))
	}
	if deps.Settings.GetSetting(ctx, "report_auto_minute", "") == "" {
		_ = deps.Settings.SetSetting(ctx, "report_auto_minute", strconv.Itoa(a.cfg.Report.AutoMinute))
	}
	deps.Reporter.InitSettings(ctx)

	seed := func(kind string, chats []string) {
		for _, cid := range chats {
			if notify.IsGroup(cid) && !deps.Settings.SwitchIsSet(ctx, kind, cid) {
				_ = deps.Settings.SetSwitch(ctx, kind, cid, false)
			}
		}
	}
	seed("signal", a.cfg.Telegram.SignalChatIDs)
	seed("position", a.cfg.Telegram.PositionChatIDs)
}
