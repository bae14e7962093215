// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, drains queued notifications, flushes
// traces and disconnects from MongoDB, in that order.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if s := svc; s != nil {
		for _, w := range s.workers {
			w.Stop()
		}
		if s.notifier != nil {
			if err := s.notifier.Stop(ctx); err != nil {
				logger.Warn("notification queue not drained", zap.Error(err))
			}
		}
		if s.registry != nil {
			s.registry.CloseAll()
		}
		if s.feedbackLimiter != nil {
			s.feedbackLimiter.Stop()
		}
		if s.loginLimiter != nil {
			s.loginLimiter.Stop()
		}
		if s.traceShutdown != nil {
			if err := s.traceShutdown(ctx); err != nil {
				logger.Warn("trace flush failed", zap.Error(err))
			}
		}
		svc = nil
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
