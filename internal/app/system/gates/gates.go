// Package gates is the HTTP side of authorization. It reads the session
// user, asks the guard (authz) or the plan resolver (plans) for a decision,
// and turns denials into API errors that handlers write with apierr.Write.
//
// # Three-Tier Authorization Pattern
//
//  1. Route-level middleware (auth.RequireSignedIn, auth.RequireRole)
//     handles coarse role requirements for a whole route group.
//  2. Gates (this package) handle checks that need the target resource:
//     the tenant that owns it, the tenant's plan, the seat limit.
//  3. Stores enforce data invariants (tenant-scoped filters, cycle checks).
//
// Every denial is logged with zap and recorded in the audit log.
package gates

import (
	"context"
	"errors"
	"net/http"

	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/metrics"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TenantSource loads tenants; tenantcache.Cache satisfies it.
type TenantSource interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Tenant, error)
}

// Gate bundles the dependencies of the HTTP authorization checks.
type Gate struct {
	tenants TenantSource
	audit   *auditlog.Logger
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New creates a Gate. audit may be nil.
func New(tenants TenantSource, audit *auditlog.Logger, log *zap.Logger) *Gate {
	return &Gate{tenants: tenants, audit: audit, log: log}
}

// WithMetrics counts denials by reason on m.
func (g *Gate) WithMetrics(m *metrics.Metrics) *Gate {
	g.metrics = m
	return g
}

// User returns the signed-in user or an UNAUTHENTICATED error.
func User(r *http.Request) (*auth.SessionUser, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return nil, apierr.New(apierr.Unauthenticated)
	}
	return u, nil
}

// Authorize runs the guard for the current user against the tenant that
// owns the target resource. It returns nil when access is allowed.
func (g *Gate) Authorize(r *http.Request, target primitive.ObjectID, required authz.Role) error {
	u, err := User(r)
	if err != nil {
		return err
	}
	caller := u.Caller()
	d, err := authz.Decide(caller, target, required)
	if err != nil {
		// A session that cannot be judged is never allowed through.
		g.log.Error("malformed access check",
			zap.String("user_id", u.ID),
			zap.String("role", u.Role),
			zap.String("tenant_id", u.TenantID),
			zap.String("target_tenant_id", target.Hex()),
			zap.Error(err))
		g.deny(r, caller, target, string(authz.ReasonTenantAccessDenied))
		return apierr.New(apierr.TenantAccessDenied)
	}
	if d.Allowed {
		return nil
	}
	g.log.Warn("access denied",
		zap.String("reason", string(d.Reason)),
		zap.String("user_id", u.ID),
		zap.String("role", u.Role),
		zap.String("tenant_id", u.TenantID),
		zap.String("target_tenant_id", target.Hex()),
		zap.String("required", required.String()),
		zap.String("path", r.URL.Path))
	g.deny(r, caller, target, string(d.Reason))
	return apierr.New(apierr.Code(d.Reason))
}

func (g *Gate) deny(r *http.Request, caller authz.Caller, target primitive.ObjectID, reason string) {
	g.metrics.RecordDenial(reason)
	g.audit.AccessDenied(r.Context(), r, caller.UserID, target, reason)
}

// AuthorizeEmployee authorizes access to data owned by emp: the employee
// themself needs only the employee role, anyone else needs manager.
func (g *Gate) AuthorizeEmployee(r *http.Request, emp models.Employee) error {
	u, err := User(r)
	if err != nil {
		return err
	}
	return g.Authorize(r, emp.TenantID, authz.RequiredForEmployeeResource(u.Caller(), emp.UserID))
}

// Scope resolves the tenant a list or create request operates on. Tenant
// users always get their own tenant; an explicit tenant_id that differs is
// denied. Platform admins must name the tenant explicitly.
func (g *Gate) Scope(r *http.Request, explicit string, required authz.Role) (primitive.ObjectID, error) {
	u, err := User(r)
	if err != nil {
		return primitive.NilObjectID, err
	}
	target := u.TenantObjectID()
	if explicit != "" {
		id, perr := primitive.ObjectIDFromHex(explicit)
		if perr != nil {
			return primitive.NilObjectID, apierr.Newf(apierr.InvalidParameterFormat, "tenant_id must be a valid id.")
		}
		target = id
	}
	if target.IsZero() {
		return primitive.NilObjectID, apierr.Newf(apierr.InvalidParameterFormat, "tenant_id is required.")
	}
	if err := g.Authorize(r, target, required); err != nil {
		return primitive.NilObjectID, err
	}
	return target, nil
}

// Tenant loads a tenant through the cache. Missing tenants become NOT_FOUND.
func (g *Gate) Tenant(ctx context.Context, id primitive.ObjectID) (models.Tenant, error) {
	t, err := g.tenants.Get(ctx, id)
	if err != nil {
		if errors.Is(err, tenantstore.ErrNotFound) {
			return models.Tenant{}, apierr.Newf(apierr.NotFound, "Tenant not found.")
		}
		return models.Tenant{}, err
	}
	return t, nil
}

// RequireFeature checks the tenant's plan for flag. It returns the loaded
// tenant so callers do not fetch it again.
func (g *Gate) RequireFeature(r *http.Request, tenantID primitive.ObjectID, flag plans.Feature) (models.Tenant, error) {
	t, err := g.Tenant(r.Context(), tenantID)
	if err != nil {
		return models.Tenant{}, err
	}
	if plans.HasFeature(&t, flag) {
		return t, nil
	}
	actor := primitive.NilObjectID
	if u, ok := auth.CurrentUser(r); ok {
		actor = u.UserObjectID()
	}
	tier := string(plans.Resolve(t.SubscriptionTier).Tier)
	g.log.Warn("feature not available",
		zap.String("tenant_id", tenantID.Hex()),
		zap.String("feature", string(flag)),
		zap.String("tier", tier),
		zap.String("path", r.URL.Path))
	g.metrics.RecordDenial(string(apierr.FeatureNotAvailable))
	g.audit.FeatureDenied(r.Context(), r, actor, tenantID, string(flag), tier)
	return models.Tenant{}, apierr.New(apierr.FeatureNotAvailable).WithDetails(map[string]string{
		"feature": string(flag),
		"tier":    tier,
	})
}

// LimitExceeded records a rejected seat reservation and returns the API error.
func (g *Gate) LimitExceeded(r *http.Request, t models.Tenant) error {
	actor := primitive.NilObjectID
	if u, ok := auth.CurrentUser(r); ok {
		actor = u.UserObjectID()
	}
	g.log.Warn("employee limit reached",
		zap.String("tenant_id", t.ID.Hex()),
		zap.Int("max_employees", t.MaxEmployees),
		zap.Int("employee_count", t.EmployeeCount))
	g.metrics.RecordDenial(string(apierr.LimitExceeded))
	g.audit.LimitExceeded(r.Context(), r, actor, t.ID, t.MaxEmployees)
	return apierr.New(apierr.LimitExceeded).WithDetails(map[string]int{
		"maxEmployees":  t.MaxEmployees,
		"employeeCount": t.EmployeeCount,
	})
}
