// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's set is idempotent; problems
are aggregated so every failing index shows up in one error.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var problems []string
	for _, set := range sets {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models, logger); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func idx(name string, unique bool, keys ...string) mongo.IndexModel {
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if strings.HasPrefix(k, "-") {
			dir, k = -1, k[1:]
		}
		d = append(d, bson.E{Key: k, Value: dir})
	}
	o := options.Index().SetName(name)
	if unique {
		o.SetUnique(true)
	}
	return mongo.IndexModel{Keys: d, Options: o}
}

var sets = []indexSet{
	{"tenants", []mongo.IndexModel{
		idx("uniq_tenants_domain", true, "domain"),
		idx("idx_tenants_nameci__id", false, "name_ci", "_id"),
	}},
	{"users", []mongo.IndexModel{
		idx("uniq_users_email", true, "email"),
		idx("idx_users_tenant_fullnameci__id", false, "tenant_id", "full_name_ci", "_id"),
		idx("idx_users_tenant_role", false, "tenant_id", "role"),
	}},
	{"employees", []mongo.IndexModel{
		idx("uniq_employees_user", true, "user_id"),
		idx("uniq_employees_feedback_token", true, "feedback_token"),
		idx("idx_employees_tenant_fullnameci__id", false, "tenant_id", "full_name_ci", "_id"),
		idx("idx_employees_tenant_manager", false, "tenant_id", "manager_id"),
		idx("idx_employees_tenant_department", false, "tenant_id", "department_id"),
		idx("idx_employees_tenant_status_email__id", false, "tenant_id", "status", "email", "_id"),
	}},
	{"departments", []mongo.IndexModel{
		idx("uniq_departments_tenant_nameci", true, "tenant_id", "name_ci"),
		idx("idx_departments_tenant_nameci__id", false, "tenant_id", "name_ci", "_id"),
		idx("idx_departments_tenant_parent", false, "tenant_id", "parent_department_id"),
	}},
	{"goals", []mongo.IndexModel{
		idx("idx_goals_employee__id", false, "employee_id", "-_id"),
		idx("idx_goals_tenant", false, "tenant_id"),
	}},
	{"feedback", []mongo.IndexModel{
		idx("idx_feedback_employee__id", false, "employee_id", "-_id"),
		idx("idx_feedback_tenant", false, "tenant_id"),
	}},
	{"reviews", []mongo.IndexModel{
		idx("idx_reviews_employee__id", false, "employee_id", "-_id"),
		idx("idx_reviews_tenant", false, "tenant_id"),
	}},
	{"notifications", []mongo.IndexModel{
		idx("idx_notifications_user__id", false, "user_id", "-_id"),
		idx("idx_notifications_user_status", false, "user_id", "status"),
		idx("idx_notifications_status_created", false, "status", "created_at"),
	}},
	{"audit_events", []mongo.IndexModel{
		idx("idx_audit_tenant_created", false, "tenant_id", "-created_at"),
		idx("idx_audit_created", false, "-created_at"),
	}},
}

/* -------------------------------------------------------------------------- */
/* Reconcile one collection                                                    */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool { return b != nil && *b }

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var ix existingIndex
		if err := cur.Decode(&ix); err != nil {
			continue
		}
		out[keySig(ix.Key)] = ix
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes, reuses matching ones, and drops and
// recreates indexes whose key pattern matches but whose uniqueness differs.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet lists as an error on some servers.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := *m.Options.Name
		want := isUnique(m.Options.Unique)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if isUnique(ex.Unique) == want {
				logger.Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop failed: %v", name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if want && isDuplicateKeyErr(err) {
				err = fmt.Errorf("cannot create unique index (duplicates present): %w", err)
			}
			logger.Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		logger.Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", want),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}
