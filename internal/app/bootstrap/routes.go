// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	authgooglefeature "github.com/dalemusser/perfhub/internal/app/features/authgoogle"
	departmentsfeature "github.com/dalemusser/perfhub/internal/app/features/departments"
	employeesfeature "github.com/dalemusser/perfhub/internal/app/features/employees"
	feedbackfeature "github.com/dalemusser/perfhub/internal/app/features/feedback"
	goalsfeature "github.com/dalemusser/perfhub/internal/app/features/goals"
	healthfeature "github.com/dalemusser/perfhub/internal/app/features/health"
	insightsfeature "github.com/dalemusser/perfhub/internal/app/features/insights"
	notificationsfeature "github.com/dalemusser/perfhub/internal/app/features/notifications"
	reviewsfeature "github.com/dalemusser/perfhub/internal/app/features/reviews"
	sessionfeature "github.com/dalemusser/perfhub/internal/app/features/session"
	subscriptionfeature "github.com/dalemusser/perfhub/internal/app/features/subscription"
	tenantsfeature "github.com/dalemusser/perfhub/internal/app/features/tenants"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/realtime"
	"github.com/dalemusser/perfhub/internal/app/system/tracing"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the shared services in svc are ready.
//
// Layout:
//   - /health   liveness and Mongo ping
//   - /metrics  Prometheus scrape endpoint (when enabled)
//   - /ws       realtime notifications
//   - /api/...  the JSON API; every request has the session user loaded
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("BuildHandler called before Startup")
	}
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain,
		appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser fetches the user (and tenant status) on every request so
	// role changes and deactivations take effect immediately.
	fetcher := userstore.NewFetcher(db, svc.tenants)
	sessionMgr.SetUserFetcher(fetcher)

	tokens, err := auth.NewTokenIssuer(appCfg.RealtimeTokenSecret, appCfg.RealtimeTokenTTL)
	if err != nil {
		logger.Error("realtime token issuer init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(clientAddr(appCfg.TrustProxyHeaders))
	r.Use(apierr.Recoverer(logger))
	if svc.metrics != nil {
		r.Use(svc.metrics.Middleware)
	}
	r.Use(tracing.Middleware("perfhub"))

	if svc.metrics != nil {
		r.Handle("/metrics", svc.metrics.Handler())
	}

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, svc.notifier, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/ws", &realtime.Handler{
		Registry:       svc.registry,
		Sessions:       sessionMgr,
		Tokens:         tokens,
		Users:          fetcher,
		Audit:          svc.audit,
		Log:            logger,
		OriginPatterns: appCfg.WSOriginPatterns,
	})

	var google *authgooglefeature.Handler
	if appCfg.GoogleClientID != "" {
		google = authgooglefeature.NewHandler(db, sessionMgr, svc.audit, svc.tenants,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, appCfg.AppURL,
			appCfg.OAuthStateKey, logger)
	}

	tenantsHandler := tenantsfeature.NewHandler(db, svc.tenants, svc.gate, svc.notifier, svc.audit, logger)
	subscriptionHandler := subscriptionfeature.NewHandler(db, svc.gate, logger)
	employeesHandler := employeesfeature.NewHandler(db, svc.tenants, svc.gate, svc.audit, logger)
	departmentsHandler := departmentsfeature.NewHandler(db, svc.gate, svc.audit, logger)
	goalsHandler := goalsfeature.NewHandler(db, svc.gate, svc.notifier, logger)
	feedbackHandler := feedbackfeature.NewHandler(db, svc.gate, svc.feedbackLimiter, svc.notifier, svc.audit, logger)
	reviewsHandler := reviewsfeature.NewHandler(db, svc.gate, svc.notifier, svc.audit, logger)
	insightsHandler := insightsfeature.NewHandler(db, svc.gate, svc.analyzer, logger)
	notificationsHandler := notificationsfeature.NewHandler(db, logger)
	sessionHandler := sessionfeature.NewHandler(db, sessionMgr, tokens, svc.tenants, svc.audit,
		svc.loginLimiter, appCfg.DevLogin, logger)

	r.Route("/api", func(api chi.Router) {
		// Global auth middleware: loads SessionUser into context if logged in.
		api.Use(sessionMgr.LoadSessionUser)

		api.Mount("/tenants", tenantsfeature.Routes(tenantsHandler, sessionMgr))
		api.Mount("/subscription", subscriptionfeature.Routes(subscriptionHandler, sessionMgr))
		api.Mount("/employees", employeesfeature.Routes(employeesHandler, sessionMgr))
		// Mounted one by one: a Route on /employees/{employeeId} would also
		// claim /employees/{id} itself.
		api.Mount("/employees/{employeeId}/goals", goalsfeature.EmployeeRoutes(goalsHandler, sessionMgr))
		api.Mount("/employees/{employeeId}/feedback", feedbackfeature.EmployeeRoutes(feedbackHandler, sessionMgr))
		api.Mount("/employees/{employeeId}/reviews", reviewsfeature.EmployeeRoutes(reviewsHandler, sessionMgr))
		api.Mount("/employees/{employeeId}/insights", insightsfeature.EmployeeRoutes(insightsHandler, sessionMgr))
		api.Mount("/departments", departmentsfeature.Routes(departmentsHandler, sessionMgr))
		api.Mount("/goals", goalsfeature.Routes(goalsHandler, sessionMgr))
		api.Mount("/reviews", reviewsfeature.Routes(reviewsHandler, sessionMgr))
		api.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, sessionMgr))

		// Anonymous feedback links
		api.Mount("/public/feedback", feedbackfeature.PublicRoutes(feedbackHandler))

		// Sign-in glue: auth status, logout, dev login, Google OAuth
		api.Mount("/", sessionfeature.Routes(sessionHandler, google))
	})

	return r, nil
}

// clientAddr rewrites RemoteAddr from forwarding headers only when the
// deployment trusts them. Otherwise the socket peer stands, so per-IP
// limits cannot be reset by a client-supplied header.
func clientAddr(trustProxy bool) func(http.Handler) http.Handler {
	if trustProxy {
		return middleware.RealIP
	}
	return func(next http.Handler) http.Handler { return next }
}
