// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	featureinsights "github.com/dalemusser/perfhub/internal/app/features/insights"
	auditstore "github.com/dalemusser/perfhub/internal/app/store/audit"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	goalstore "github.com/dalemusser/perfhub/internal/app/store/goals"
	notificationstore "github.com/dalemusser/perfhub/internal/app/store/notifications"
	preferencestore "github.com/dalemusser/perfhub/internal/app/store/preferences"
	"github.com/dalemusser/perfhub/internal/app/store/tenantcache"
	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/insights"
	"github.com/dalemusser/perfhub/internal/app/system/mailer"
	"github.com/dalemusser/perfhub/internal/app/system/metrics"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/app/system/ratelimit"
	"github.com/dalemusser/perfhub/internal/app/system/realtime"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/app/system/tracing"
	"github.com/dalemusser/perfhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// notificationCleanupInterval is how often archived notifications are purged.
const notificationCleanupInterval = 6 * time.Hour

// services are the long-lived components built once in Startup and shared
// by BuildHandler and Shutdown.
type services struct {
	metrics       *metrics.Metrics
	traceShutdown func(context.Context) error

	tenants  *tenantcache.Cache
	audit    *auditlog.Logger
	gate     *gates.Gate
	registry *realtime.Registry
	notifier *notify.Dispatcher
	analyzer featureinsights.Analyzer

	feedbackLimiter *ratelimit.FeedbackLimiter
	loginLimiter    *ratelimit.LoginLimiter

	workers []*workers.Periodic
}

var svc *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the shared services (cache, gate, notification dispatcher, rate limiters,
// observability) and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	timeouts.Configure(timeouts.Config{
		Short:    appCfg.TimeoutShort,
		Medium:   appCfg.TimeoutMedium,
		Long:     appCfg.TimeoutLong,
		Provider: appCfg.TimeoutProvider,
	})

	s := &services{}

	if appCfg.MetricsEnabled {
		s.metrics = metrics.New("perfhub")
	}

	shutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName: "perfhub",
		Endpoint:    appCfg.OTelEndpoint,
		Insecure:    appCfg.OTelInsecure,
		Probability: float64(appCfg.OTelSamplePct) / 100,
	}, logger)
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	s.traceShutdown = shutdown

	s.tenants = tenantcache.New(tenantstore.New(db), appCfg.TenantCacheTTL)
	s.audit = auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Admin:    appCfg.AuditLogAdmin,
		Security: appCfg.AuditLogSecurity,
	})
	s.gate = gates.New(s.tenants, s.audit, logger).WithMetrics(s.metrics)
	s.registry = realtime.NewRegistry(logger)

	var mail mailer.Sender = mailer.LogSender{Logger: logger}
	if appCfg.MailSMTPHost != "" {
		mail = mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
			Timeout:  appCfg.TimeoutProvider,
		}, logger)
	} else {
		logger.Warn("mail_smtp_host not set; emails will be logged, not sent")
	}

	s.notifier = notify.New(notify.Config{
		Workers:       appCfg.NotifyWorkers,
		QueueSize:     appCfg.NotifyQueueSize,
		EmailAttempts: appCfg.NotifyEmailAttempts,
		SendTimeout:   appCfg.TimeoutProvider,
		SiteName:      appCfg.MailFromName,
		BaseURL:       appCfg.AppURL,
	}, notify.Deps{
		Notifications: notificationstore.New(db),
		Preferences:   preferencestore.New(db),
		Recipients:    userstore.New(db),
		Pusher:        s.registry,
		Mail:          mail,
		Metrics:       s.metrics,
		Logger:        logger,
	})
	s.notifier.Start()

	// Leave the interface nil when disabled so the handler reports the
	// feature as unavailable.
	if appCfg.OpenAIAPIKey != "" {
		s.analyzer = insights.New(
			insights.NewOpenAI(appCfg.OpenAIAPIKey, appCfg.OpenAIBaseURL, appCfg.OpenAIModel),
			appCfg.TimeoutProvider, s.metrics, logger)
	} else {
		logger.Info("openai_api_key not set; feedback insights disabled")
	}

	s.feedbackLimiter = ratelimit.NewFeedbackLimiter(appCfg.FeedbackPerToken, appCfg.FeedbackPerIP, appCfg.FeedbackWindow)
	s.loginLimiter = ratelimit.NewLoginLimiter()

	s.workers = []*workers.Periodic{
		workers.NewPeriodic("notification-cleanup",
			workers.NotificationCleanup(notificationstore.New(db), appCfg.NotificationRetention, logger),
			logger, notificationCleanupInterval, appCfg.TimeoutLong),
		workers.NewPeriodic("goal-reminders",
			workers.GoalReminders(goalstore.New(db), employeestore.New(db), s.notifier,
				appCfg.GoalReminderLead, appCfg.GoalReminderInterval, logger),
			logger, appCfg.GoalReminderInterval, appCfg.TimeoutLong),
	}
	for _, w := range s.workers {
		w.Start()
	}

	svc = s
	return nil
}
