package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Telegram
	out.Telegram = cfg.Telegram
	redact(&out.Telegram.SignalBotToken)
	redact(&out.Telegram.PositionBotToken)

	// Secrets
	out.Secrets = cfg.Secrets
	redact(&out.Secrets.WebhookSecret)
	redact(&out.Secrets.ControlSecret)
	redact(&out.Secrets.PositionsCheckToken)
	redact(&out.Secrets.DailyReportToken)

	// BingX
	out.BingX = cfg.BingX
	redact(&out.BingX.ApiKey)
	redact(&out.BingX.ApiSecret)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Telegram.SignalChatIDs = copyStrings(cfg.Telegram.SignalChatIDs)
	out.Telegram.PositionChatIDs = copyStrings(cfg.Telegram.PositionChatIDs)
	out.Telegram.AdminUserIDs = copyStrings(cfg.Telegram.AdminUserIDs)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
