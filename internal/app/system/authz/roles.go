// internal/app/system/authz/roles.go
package authz

import (
	"fmt"
	"strings"
)

// Role is a closed enumeration of user roles. The zero value is not a valid role.
type Role struct {
	name string
}

// The set of roles, lowest rank first.
var (
	Employee      = newRole("employee", 1)
	Manager       = newRole("manager", 2)
	TenantAdmin   = newRole("tenant_admin", 3)
	PlatformAdmin = newRole("platform_admin", 4)
)

var (
	roles = make(map[string]Role)
	ranks = make(map[Role]int)
)

func newRole(name string, rank int) Role {
	r := Role{name}
	roles[name] = r
	ranks[r] = rank
	return r
}

// ParseRole parses a role name (case-insensitive, surrounding space ignored).
func ParseRole(value string) (Role, error) {
	r, ok := roles[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return Role{}, fmt.Errorf("invalid role %q", value)
	}
	return r, nil
}

// MustParseRole is ParseRole that panics on unknown names. Use it only for constants.
func MustParseRole(value string) Role {
	r, err := ParseRole(value)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the stored name of the role.
func (r Role) String() string { return r.name }

// MarshalText lets roles render in JSON and zap fields.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.name), nil }

// IsValid reports whether r is one of the declared roles.
func (r Role) IsValid() bool {
	_, ok := ranks[r]
	return ok
}

// Rank returns the declared rank of the role, 0 for the zero Role.
func (r Role) Rank() int { return ranks[r] }

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.IsValid() && r.Rank() >= min.Rank()
}

// TenantRoles returns the roles a tenant admin may assign, lowest first.
func TenantRoles() []Role {
	return []Role{Employee, Manager, TenantAdmin}
}
