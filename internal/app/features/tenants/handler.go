// internal/app/features/tenants/handler.go
package tenants

import (
	"github.com/dalemusser/perfhub/internal/app/store/tenantcache"
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the tenant directory. All writes go through the tenant
// cache so cached copies are invalidated.
type Handler struct {
	DB       *mongo.Database
	Tenants  *tenantcache.Cache
	Gate     *gates.Gate
	Notify   notify.Notifier
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, tenants *tenantcache.Cache, gate *gates.Gate,
	notifier notify.Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Tenants:  tenants,
		Gate:     gate,
		Notify:   notifier,
		AuditLog: audit,
		Log:      logger,
	}
}
