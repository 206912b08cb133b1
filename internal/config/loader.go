package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POSWATCH_* environment variable overrides, and
// returns the final Config. An empty path skips the TOML step so the service
// can run on env vars alone. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POSWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Telegram ──
	setStr(&cfg.Telegram.SignalBotToken, "POSWATCH_TELEGRAM_SIGNAL_BOT_TOKEN")
	setStr(&cfg.Telegram.PositionBotToken, "POSWATCH_TELEGRAM_POSITION_BOT_TOKEN")
	setStringSlice(&cfg.Telegram.SignalChatIDs, "POSWATCH_TELEGRAM_SIGNAL_CHAT_IDS")
	setStringSlice(&cfg.Telegram.PositionChatIDs, "POSWATCH_TELEGRAM_POSITION_CHAT_IDS")
	setStringSlice(&cfg.Telegram.AdminUserIDs, "POSWATCH_TELEGRAM_ADMIN_USER_IDS")

	// ── Secrets ──
	setStr(&cfg.Secrets.WebhookSecret, "POSWATCH_WEBHOOK_SECRET")
	setStr(&cfg.Secrets.ControlSecret, "POSWATCH_CONTROL_SECRET")
	setStr(&cfg.Secrets.PositionsCheckToken, "POSWATCH_POSITIONS_CHECK_TOKEN")
	setStr(&cfg.Secrets.DailyReportToken, "POSWATCH_DAILY_REPORT_TOKEN")

	// ── BingX ──
	setStr(&cfg.BingX.ApiKey, "POSWATCH_BINGX_API_KEY")
	setStr(&cfg.BingX.ApiSecret, "POSWATCH_BINGX_API_SECRET")
	setStr(&cfg.BingX.BaseURL, "POSWATCH_BINGX_BASE_URL")
	setDuration(&cfg.BingX.Timeout, "POSWATCH_BINGX_TIMEOUT")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POSWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POSWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POSWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POSWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POSWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POSWATCH_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POSWATCH_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "POSWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POSWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POSWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "POSWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POSWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "POSWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POSWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POSWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "POSWATCH_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setFloat64(&cfg.Engine.TakerFeeRate, "POSWATCH_ENGINE_TAKER_FEE_RATE")
	setDuration(&cfg.Engine.PollInterval, "POSWATCH_ENGINE_POLL_INTERVAL")

	// ── Report ──
	setBool(&cfg.Report.AutoEnabled, "POSWATCH_REPORT_AUTO_ENABLED")
	setInt(&cfg.Report.AutoHour, "POSWATCH_REPORT_AUTO_HOUR")
	setInt(&cfg.Report.AutoMinute, "POSWATCH_REPORT_AUTO_MINUTE")
	setStr(&cfg.Report.AutoChatID, "POSWATCH_REPORT_AUTO_CHAT_ID")

	// ── Server ──
	setInt(&cfg.Server.Port, "POSWATCH_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform-injected port

	// ── Top-level ──
	setStr(&cfg.Mode, "POSWATCH_MODE")
	setStr(&cfg.LogLevel, "POSWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
