// Package authz is the access control guard: a pure decision function over
// a caller's role and tenant and the tenant that owns the target resource.
//
// HTTP glue (reading the session user, writing error responses, logging the
// denial) lives in the gates package; authz itself has no side effects.
package authz

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reason explains why a decision denied access.
type Reason string

// Denial reasons. They double as API error codes.
const (
	ReasonTenantAccessDenied Reason = "TENANT_ACCESS_DENIED"
	ReasonInsufficientRole   Reason = "INSUFFICIENT_ROLE"
)

// ErrMalformed is returned by Decide for inputs that cannot be judged at all
// (missing identifiers, unknown roles). Normal denials are not errors.
var ErrMalformed = errors.New("authz: malformed access check")

// Caller is the resolved identity of whoever makes the request.
type Caller struct {
	UserID   primitive.ObjectID
	Role     Role
	TenantID primitive.ObjectID // NilObjectID only for platform admins
}

// Decision is the tagged result of an access check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(r Reason) Decision { return Decision{Allowed: false, Reason: r} }

// Decide evaluates, in order:
//  1. platform admins are allowed everywhere
//  2. a caller outside the target tenant is denied (TENANT_ACCESS_DENIED)
//  3. a caller ranked below required is denied (INSUFFICIENT_ROLE)
//  4. everyone else is allowed
//
// The tenant check runs before any role check, so a cross-tenant request
// never reveals whether the caller's role would have been sufficient.
func Decide(caller Caller, target primitive.ObjectID, required Role) (Decision, error) {
	if caller.UserID.IsZero() || !caller.Role.IsValid() || !required.IsValid() {
		return Decision{}, ErrMalformed
	}
	if caller.Role == PlatformAdmin {
		return allow, nil
	}
	if caller.TenantID.IsZero() || target.IsZero() {
		return Decision{}, ErrMalformed
	}
	if caller.TenantID != target {
		return deny(ReasonTenantAccessDenied), nil
	}
	if !caller.Role.AtLeast(required) {
		return deny(ReasonInsufficientRole), nil
	}
	return allow, nil
}

// DecideRole checks rank only, for operations that are not owned by a
// tenant (e.g., the tenant directory itself).
func DecideRole(caller Caller, required Role) (Decision, error) {
	if caller.UserID.IsZero() || !caller.Role.IsValid() || !required.IsValid() {
		return Decision{}, ErrMalformed
	}
	if !caller.Role.AtLeast(required) {
		return deny(ReasonInsufficientRole), nil
	}
	return allow, nil
}

// RequiredForEmployeeResource returns the minimum role for touching data
// that belongs to an employee: the employee themself needs only Employee,
// everyone else in the tenant needs at least Manager.
func RequiredForEmployeeResource(caller Caller, ownerUserID primitive.ObjectID) Role {
	if !ownerUserID.IsZero() && caller.UserID == ownerUserID {
		return Employee
	}
	return Manager
}
