package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnlimitedEmployees is the MaxEmployees value for tenants without a seat cap.
const UnlimitedEmployees = -1

// Tenant represents a customer company in PerfHub. It is the unit of data
// isolation: users, employees and departments carry its ID, and goals,
// feedback and reviews inherit it through their employee.
//
// Tenants are never hard-deleted; IsActive=false deactivates them.
type Tenant struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"-"`

	// Domain is the company's email domain (e.g., "acme.com"). Unique.
	Domain string `bson:"domain" json:"domain"`

	// SubscriptionTier is the plan key resolved by the plans package.
	// Unknown values are tolerated and resolve to the lowest tier.
	SubscriptionTier string `bson:"subscription_tier" json:"subscriptionTier"`

	// MaxEmployees is the seat cap; UnlimitedEmployees (-1) means no cap.
	MaxEmployees int `bson:"max_employees" json:"maxEmployees"`

	// EmployeeCount is the number of reserved employee seats. It is only
	// changed by atomic increments in the tenant store.
	EmployeeCount int `bson:"employee_count" json:"employeeCount"`

	IsActive bool `bson:"is_active" json:"isActive"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Unlimited reports whether the tenant has no seat cap.
func (t Tenant) Unlimited() bool {
	return t.MaxEmployees < 0
}
