// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig carries everything PerfHub needs on top of that: storage,
// sessions, outbound providers (SMTP, LLM, Google), rate limits, timeouts
// and observability.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: perfhub-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Dev login (user switcher); never enable in production
	DevLogin bool

	// Honor X-Forwarded-For/X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool

	// Realtime (WebSocket) authentication tokens
	RealtimeTokenSecret string
	RealtimeTokenTTL    time.Duration
	WSOriginPatterns    []string // allowed cross-origin hosts for /ws

	// Email/SMTP configuration. An empty host logs mail instead of sending it.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// BaseURL is where this API is reachable (OAuth callback, email links).
	BaseURL string
	// AppURL is the front-end origin users are sent back to after sign-in.
	AppURL string

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string
	OAuthStateKey      string // signs the OAuth state cookie (32+ bytes)

	// LLM provider for feedback insights. An empty key disables insights.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Public feedback rate limits
	FeedbackPerToken int
	FeedbackPerIP    int
	FeedbackWindow   time.Duration

	// Tenant cache TTL
	TenantCacheTTL time.Duration

	// Timeouts for store and provider calls
	TimeoutShort    time.Duration
	TimeoutMedium   time.Duration
	TimeoutLong     time.Duration
	TimeoutProvider time.Duration

	// Notification delivery
	NotifyWorkers         int
	NotifyQueueSize       int
	NotifyEmailAttempts   int
	NotificationRetention time.Duration // archived notifications older than this are purged
	GoalReminderLead      time.Duration // how far ahead of a due date reminders go out
	GoalReminderInterval  time.Duration

	// Observability
	MetricsEnabled bool
	OTelEndpoint   string // OTLP gRPC host:port; blank disables tracing
	OTelInsecure   bool
	OTelSamplePct  int

	// Audit logging destinations: all, db, log, off
	AuditLogAuth     string
	AuditLogAdmin    string
	AuditLogSecurity string

	// PlatformAdminEmail is promoted (or created) as platform admin on startup.
	PlatformAdminEmail string
}
