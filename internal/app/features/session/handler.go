// internal/app/features/session/handler.go
package session

import (
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the session glue endpoints: dev login, logout and auth
// status (which also hands out the short-lived realtime token).
type Handler struct {
	DB         *mongo.Database
	SessionMgr *auth.SessionManager
	Tokens     *auth.TokenIssuer
	Tenants    gates.TenantSource
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter
	DevMode    bool
	Log        *zap.Logger
}

// NewHandler creates a session handler. Dev login is only served when devMode is true.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, tokens *auth.TokenIssuer,
	tenants gates.TenantSource, audit *auditlog.Logger, limiter *ratelimit.LoginLimiter,
	devMode bool, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		SessionMgr: sessionMgr,
		Tokens:     tokens,
		Tenants:    tenants,
		AuditLog:   audit,
		Limiter:    limiter,
		DevMode:    devMode,
		Log:        logger,
	}
}
