// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/ratelimit"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const minProdSessionKey = 32

// appConfigKeys defines the configuration keys for PerfHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: PERFHUB_MONGO_URI, PERFHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "perfhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "perfhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},
	{Name: "dev_login", Default: false, Desc: "Serve the dev login user switcher (never in prod)"},
	{Name: "trust_proxy_headers", Default: false, Desc: "Take the client IP from X-Forwarded-For/X-Real-IP (only behind a trusted proxy)"},

	// Realtime
	{Name: "realtime_token_secret", Default: "dev-only-realtime-secret-0123456789ABCDEF", Desc: "HMAC secret for WebSocket auth tokens"},
	{Name: "realtime_token_ttl", Default: "5m", Desc: "Lifetime of WebSocket auth tokens"},
	{Name: "ws_origin_patterns", Default: "", Desc: "Comma-separated origin host patterns allowed to open /ws"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs mail instead)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@perfhub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "PerfHub", Desc: "From display name"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public URL of this API"},
	{Name: "app_url", Default: "http://localhost:3000", Desc: "Front-end URL users return to after sign-in"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "oauth_state_key", Default: "dev-only-oauth-state-key-0123456789ABCDEF", Desc: "Key signing the OAuth state cookie"},

	// LLM provider
	{Name: "openai_api_key", Default: "", Desc: "API key for feedback insights (blank disables insights)"},
	{Name: "openai_base_url", Default: "", Desc: "Override for OpenAI-compatible endpoints"},
	{Name: "openai_model", Default: "gpt-4o-mini", Desc: "Model used for feedback insights"},

	// Public feedback limits
	{Name: "feedback_per_token", Default: ratelimit.DefaultFeedbackPerToken, Desc: "Public submissions per feedback link per window"},
	{Name: "feedback_per_ip", Default: ratelimit.DefaultFeedbackPerIP, Desc: "Public submissions per client IP per window"},
	{Name: "feedback_window", Default: "1h", Desc: "Public feedback rate limit window"},

	{Name: "tenant_cache_ttl", Default: "5m", Desc: "How long tenant lookups are cached"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list and multi-step operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for cascades and bulk operations"},
	{Name: "timeout_provider", Default: "20s", Desc: "Timeout for LLM and SMTP calls"},

	// Notification delivery
	{Name: "notify_workers", Default: 4, Desc: "Notification delivery workers"},
	{Name: "notify_queue_size", Default: 256, Desc: "Notification delivery queue size"},
	{Name: "notify_email_attempts", Default: 3, Desc: "Email delivery attempts per notification"},
	{Name: "notification_retention", Default: "2160h", Desc: "Archived notifications older than this are purged"},
	{Name: "goal_reminder_lead", Default: "72h", Desc: "How far ahead of a goal's due date reminders are sent"},
	{Name: "goal_reminder_interval", Default: "24h", Desc: "How often goal reminders are checked"},

	// Observability
	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
	{Name: "otel_endpoint", Default: "", Desc: "OTLP gRPC endpoint (blank disables tracing)"},
	{Name: "otel_insecure", Default: false, Desc: "Use plain-text gRPC for OTLP"},
	{Name: "otel_sample_percent", Default: 100, Desc: "Percentage of requests traced"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: "all", Desc: "Denial and throttle logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Platform admin bootstrap
	{Name: "platform_admin_email", Default: "", Desc: "Email of the platform admin (promoted/created on startup)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// PERFHUB_* environment variables and flags, merged with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "PERFHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),
		DevLogin:         appValues.Bool("dev_login"),

		TrustProxyHeaders: appValues.Bool("trust_proxy_headers"),

		RealtimeTokenSecret: appValues.String("realtime_token_secret"),
		RealtimeTokenTTL:    appValues.Duration("realtime_token_ttl", 5*time.Minute),
		WSOriginPatterns:    splitList(appValues.String("ws_origin_patterns")),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),
		AppURL:  strings.TrimRight(appValues.String("app_url"), "/"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		OAuthStateKey:      appValues.String("oauth_state_key"),

		OpenAIAPIKey:  appValues.String("openai_api_key"),
		OpenAIBaseURL: appValues.String("openai_base_url"),
		OpenAIModel:   appValues.String("openai_model"),

		FeedbackPerToken: appValues.Int("feedback_per_token"),
		FeedbackPerIP:    appValues.Int("feedback_per_ip"),
		FeedbackWindow:   appValues.Duration("feedback_window", time.Hour),

		TenantCacheTTL: appValues.Duration("tenant_cache_ttl", 5*time.Minute),

		TimeoutShort:    appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium:   appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:     appValues.Duration("timeout_long", timeouts.DefaultLong),
		TimeoutProvider: appValues.Duration("timeout_provider", timeouts.DefaultProvider),

		NotifyWorkers:         appValues.Int("notify_workers"),
		NotifyQueueSize:       appValues.Int("notify_queue_size"),
		NotifyEmailAttempts:   appValues.Int("notify_email_attempts"),
		NotificationRetention: appValues.Duration("notification_retention", 90*24*time.Hour),
		GoalReminderLead:      appValues.Duration("goal_reminder_lead", 72*time.Hour),
		GoalReminderInterval:  appValues.Duration("goal_reminder_interval", 24*time.Hour),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
		OTelEndpoint:   appValues.String("otel_endpoint"),
		OTelInsecure:   appValues.Bool("otel_insecure"),
		OTelSamplePct:  appValues.Int("otel_sample_percent"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogSecurity: appValues.String("audit_log_security"),

		PlatformAdminEmail: strings.TrimSpace(appValues.String("platform_admin_email")),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Bad values are caught here, before any connection is attempted.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg != nil && coreCfg.Env == "prod" {
		if len(appCfg.SessionKey) < minProdSessionKey {
			return fmt.Errorf("session_key must be at least %d bytes in prod", minProdSessionKey)
		}
		if appCfg.DevLogin {
			return fmt.Errorf("dev_login must be off in prod")
		}
	}

	if appCfg.FeedbackPerToken <= 0 || appCfg.FeedbackPerIP <= 0 || appCfg.FeedbackWindow <= 0 {
		return fmt.Errorf("feedback rate limits must be positive (per_token=%d per_ip=%d window=%s)",
			appCfg.FeedbackPerToken, appCfg.FeedbackPerIP, appCfg.FeedbackWindow)
	}

	if appCfg.OTelSamplePct < 0 || appCfg.OTelSamplePct > 100 {
		return fmt.Errorf("otel_sample_percent must be between 0 and 100, got %d", appCfg.OTelSamplePct)
	}

	if appCfg.GoogleClientID != "" && len(appCfg.OAuthStateKey) < 32 {
		return fmt.Errorf("oauth_state_key must be at least 32 bytes when Google sign-in is enabled")
	}

	return nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
