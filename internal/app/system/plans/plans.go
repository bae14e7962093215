// Package plans resolves a tenant's subscription tier into its feature set
// and numeric limits. Resolution is a pure table lookup.
package plans

import (
	"strings"

	"github.com/dalemusser/perfhub/internal/domain/models"
)

// Tier is a closed enumeration of subscription tiers.
type Tier string

// Ordered tiers, lowest capability first.
const (
	Forming    Tier = "forming"
	Storming   Tier = "storming"
	Norming    Tier = "norming"
	Performing Tier = "performing"
)

// Flat special tiers. They have a fixed feature set and no rank.
const (
	MJScott Tier = "mj_scott"
	AppSumo Tier = "appsumo"
)

// Lowest is what unknown tier strings resolve to.
const Lowest = Forming

// Feature names a boolean capability gate.
type Feature string

const (
	DepartmentManagement   Feature = "departmentManagement"
	BulkEmployeeOperations Feature = "bulkEmployeeOperations"
	AdvancedAnalytics      Feature = "advancedAnalytics"
	APIAccess              Feature = "apiAccess"
	SSOIntegration         Feature = "ssoIntegration"
	CustomBranding         Feature = "customBranding"
	PrioritySupport        Feature = "prioritySupport"
)

// AllFeatures lists every flag in display order.
var AllFeatures = []Feature{
	DepartmentManagement,
	BulkEmployeeOperations,
	AdvancedAnalytics,
	APIAccess,
	SSOIntegration,
	CustomBranding,
	PrioritySupport,
}

// Features is the resolved capability set for one tier.
// MaxEmployees is nil when the tier is unlimited.
type Features struct {
	Tier         Tier             `json:"tier"`
	MaxEmployees *int             `json:"maxEmployees"`
	Flags        map[Feature]bool `json:"features"`
}

// Has reports whether the flag is on. Unknown flags are off.
func (f Features) Has(flag Feature) bool {
	return f.Flags[flag]
}

// Limit returns the employee cap as stored on tenants: -1 for unlimited.
func (f Features) Limit() int {
	if f.MaxEmployees == nil {
		return models.UnlimitedEmployees
	}
	return *f.MaxEmployees
}

type row struct {
	max   int // -1 unlimited
	flags []Feature
	rank  int // 0 for flat tiers
}

var table = map[Tier]row{
	Forming:  {max: 25, rank: 1},
	Storming: {max: 100, rank: 2, flags: []Feature{DepartmentManagement}},
	Norming: {max: 250, rank: 3, flags: []Feature{
		DepartmentManagement, BulkEmployeeOperations, AdvancedAnalytics, CustomBranding,
	}},
	Performing: {max: -1, rank: 4, flags: AllFeatures},
	MJScott: {max: -1, flags: []Feature{
		DepartmentManagement, BulkEmployeeOperations, AdvancedAnalytics, CustomBranding, PrioritySupport,
	}},
	AppSumo: {max: 50, flags: []Feature{DepartmentManagement, BulkEmployeeOperations}},
}

// Parse maps a stored tier string to a Tier. The second result is false for
// strings that are not in the table, in which case Lowest is returned.
func Parse(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := table[t]; !ok {
		return Lowest, false
	}
	return t, true
}

// Resolve returns the feature set for tier. It never fails: unrecognized or
// legacy tier values resolve to the lowest tier.
func Resolve(tier string) Features {
	t, _ := Parse(tier)
	r := table[t]

	flags := make(map[Feature]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		flags[f] = false
	}
	for _, f := range r.flags {
		flags[f] = true
	}

	out := Features{Tier: t, Flags: flags}
	if r.max >= 0 {
		m := r.max
		out.MaxEmployees = &m
	}
	return out
}

// HasFeature reports whether the tenant's tier grants flag. A nil tenant
// (not loaded, not resolved) has no premium features.
func HasFeature(t *models.Tenant, flag Feature) bool {
	if t == nil {
		return false
	}
	return Resolve(t.SubscriptionTier).Has(flag)
}

// Rank orders the capability tiers. Flat tiers and unknown strings return 0.
func Rank(t Tier) int {
	return table[t].rank
}

// IsFlat reports whether t is a fixed special tier outside the ordering.
func IsFlat(t Tier) bool {
	r, ok := table[t]
	return ok && r.rank == 0
}

// Tiers returns every known tier, ordered tiers first.
func Tiers() []Tier {
	return []Tier{Forming, Storming, Norming, Performing, MJScott, AppSumo}
}
