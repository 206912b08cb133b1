// Package config defines the top-level configuration for the position watcher
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POSWATCH_* environment variables.
type Config struct {
	Telegram Telegram `toml:"telegram"`
	Secrets  Secrets  `toml:"secrets"`
	BingX    BingX    `toml:"bingx"`
	Redis    Redis    `toml:"redis"`
	Postgres Postgres `toml:"postgres"`
	S3       S3       `toml:"s3"`
	Engine   Engine   `toml:"engine"`
	Report   Report   `toml:"report"`
	Server   Server   `toml:"server"`
	Mode     string   `toml:"mode"`
	LogLevel string   `toml:"log_level"`
}

// Telegram holds the bot tokens and target chats. The signal bot relays
// TradingView alerts; the position bot carries position alerts, reports, and
// the command interface. Either token may be reused for both roles.
type Telegram struct {
	SignalBotToken   string   `toml:"signal_bot_token"`
	PositionBotToken string   `toml:"position_bot_token"`
	SignalChatIDs    []string `toml:"signal_chat_ids"`
	PositionChatIDs  []string `toml:"position_chat_ids"`
	AdminUserIDs     []string `toml:"admin_user_ids"`
}

// Secrets holds the per-route shared secrets. An empty value disables the
// corresponding guard.
type Secrets struct {
	WebhookSecret       string `toml:"webhook_secret"`        // /tv-webhook
	ControlSecret       string `toml:"control_secret"`        // /tg/*
	PositionsCheckToken string `toml:"positions_check_token"` // /positions_check
	DailyReportToken    string `toml:"daily_report_token"`    // /daily_report
}

// BingX holds the exchange API credentials.
type BingX struct {
	ApiKey    string   `toml:"api_key"`
	ApiSecret string   `toml:"api_secret"`
	BaseURL   string   `toml:"base_url"`
	Timeout   duration `toml:"timeout"`
}

// Redis holds Redis connection parameters.
type Redis struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Postgres holds the optional trade-archive database. When DSN is empty the
// archive is disabled and closed trades live only in Redis history.
type Postgres struct {
	DSN           string `toml:"dsn"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3 holds the optional object-storage export target for daily trade dumps.
// When Bucket is empty the export is disabled.
type S3 struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Engine holds reconciliation parameters.
type Engine struct {
	TakerFeeRate float64  `toml:"taker_fee_rate"`
	PollInterval duration `toml:"poll_interval"`
}

// Report holds the automatic daily-report schedule defaults. The live values
// are kept in Redis and adjustable from chat; these only seed first boot.
type Report struct {
	AutoEnabled bool   `toml:"auto_enabled"`
	AutoHour    int    `toml:"auto_hour"`
	AutoMinute  int    `toml:"auto_minute"`
	AutoChatID  string `toml:"auto_chat_id"`
}

// Server holds HTTP server parameters.
type Server struct {
	Port int `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "15s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "15s" or "1m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		BingX: BingX{
			BaseURL: "https://open-api.bingx.com",
			Timeout: duration{15 * time.Second},
		},
		Redis: Redis{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: Postgres{
			DSN:           "",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3{
			Region: "us-east-1",
		},
		Engine: Engine{
			TakerFeeRate: 0.0005,
			PollInterval: duration{time.Minute},
		},
		Report: Report{
			AutoEnabled: false,
			AutoHour:    23,
			AutoMinute:  50,
		},
		Server: Server{
			Port: 8000,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"poll":  true,
	"check": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, poll, check)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Telegram — at least one bot token so alerts have somewhere to go.
	if c.Telegram.SignalBotToken == "" && c.Telegram.PositionBotToken == "" {
		errs = append(errs, "telegram: at least one of signal_bot_token or position_bot_token must be set")
	}

	// BingX
	if c.BingX.BaseURL == "" {
		errs = append(errs, "bingx: base_url must not be empty")
	}
	if c.BingX.ApiKey == "" || c.BingX.ApiSecret == "" {
		errs = append(errs, "bingx: api_key and api_secret are required")
	}
	if c.BingX.Timeout.Duration <= 0 {
		errs = append(errs, "bingx: timeout must be > 0")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres — only checked when the archive is enabled.
	if strings.TrimSpace(c.Postgres.DSN) != "" {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3 — only checked when the export is enabled.
	if c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, "s3: region must not be empty when bucket is set")
	}

	// Engine
	if c.Engine.TakerFeeRate < 0 || c.Engine.TakerFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("engine: taker_fee_rate must be in [0, 1), got %g", c.Engine.TakerFeeRate))
	}
	if c.Engine.PollInterval.Duration <= 0 {
		errs = append(errs, "engine: poll_interval must be > 0")
	}

	// Report
	if c.Report.AutoHour < 0 || c.Report.AutoHour > 23 {
		errs = append(errs, fmt.Sprintf("report: auto_hour must be 0-23, got %d", c.Report.AutoHour))
	}
	if c.Report.AutoMinute < 0 || c.Report.AutoMinute > 59 {
		errs = append(errs, fmt.Sprintf("report: auto_minute must be 0-59, got %d", c.Report.AutoMinute))
	}

	// Server
	if strings.ToLower(c.Mode) == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
