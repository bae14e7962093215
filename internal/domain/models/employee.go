package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Employee status values.
const (
	EmployeeActive     = "active"
	EmployeeInactive   = "inactive"
	EmployeeTerminated = "terminated"
)

// Employee is the tenant-scoped extension of a User (1:1 via UserID).
//
// Invariants kept by the employee store and handlers:
//   - TenantID equals the user's tenant
//   - ManagerID and DepartmentID, when set, point inside the same tenant
//   - the manager chain never loops back to the employee
type Employee struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID  `bson:"user_id" json:"userId"`
	TenantID      primitive.ObjectID  `bson:"tenant_id" json:"tenantId"`
	ManagerID     *primitive.ObjectID `bson:"manager_id,omitempty" json:"managerId,omitempty"`
	DepartmentID  *primitive.ObjectID `bson:"department_id,omitempty" json:"departmentId,omitempty"`
	JobPositionID *primitive.ObjectID `bson:"job_position_id,omitempty" json:"jobPositionId,omitempty"`

	FullName   string `bson:"full_name" json:"fullName"`
	FullNameCI string `bson:"full_name_ci" json:"-"`
	Email      string `bson:"email" json:"email"`
	JobTitle   string `bson:"job_title,omitempty" json:"jobTitle,omitempty"`
	Status     string `bson:"status" json:"status"`

	// FeedbackToken is the public, unauthenticated feedback link token.
	FeedbackToken string `bson:"feedback_token" json:"feedbackToken"`

	HireDate  *time.Time `bson:"hire_date,omitempty" json:"hireDate,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// IsValidEmployeeStatus reports whether s is a known employee status.
func IsValidEmployeeStatus(s string) bool {
	switch s {
	case EmployeeActive, EmployeeInactive, EmployeeTerminated:
		return true
	}
	return false
}
