// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/indexes"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client and verifies it with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping()*5)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates indexes, reconciles the tenants' seat counters with
// the employees actually stored, and promotes the configured platform admin.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	if err := reconcileEmployeeCounts(ctx, db, logger); err != nil {
		return fmt.Errorf("reconcile employee counts: %w", err)
	}

	if appCfg.PlatformAdminEmail != "" {
		changed, err := userstore.New(db).PromotePlatformAdmin(ctx, appCfg.PlatformAdminEmail, "")
		if err != nil {
			return fmt.Errorf("promote platform admin: %w", err)
		}
		if changed {
			logger.Info("platform admin ensured", zap.String("email", appCfg.PlatformAdminEmail))
		}
	}
	return nil
}

// reconcileEmployeeCounts rewrites every tenant's employee_count from the
// employees collection. Counters drift only when a process dies between a
// seat reservation and its release.
func reconcileEmployeeCounts(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	tenants := tenantstore.New(db)

	ids, err := tenants.IDs(ctx)
	if err != nil {
		return err
	}
	counts, err := employeestore.New(db).CountByTenant(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := tenants.SetEmployeeCount(ctx, id, counts[id]); err != nil {
			if errors.Is(err, tenantstore.ErrNotFound) {
				continue
			}
			return err
		}
	}
	logger.Info("employee counters reconciled", zap.Int("tenants", len(ids)))
	return nil
}
