// Package txn runs multi-collection writes in a MongoDB transaction when the
// deployment supports it, and sequentially when it does not (standalone
// servers used in development and tests).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes meaning "transactions are not available here".
var notSupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation: transaction numbers need a replica set
	51:  true,
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err means the server cannot run
// transactions, as opposed to the work inside the transaction failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if notSupportedCodes[ce.Code] {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case hasTxn && strings.Contains(msg, "session"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}

// Run executes fn inside a transaction on client. When the deployment does
// not support transactions fn is executed once more without one, so fn must
// leave no partial writes behind when its first statement fails.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if IsNotSupported(err) {
		log.Debug("transactions unavailable; running without one", zap.Error(err))
		return fn(ctx)
	}
	return err
}
