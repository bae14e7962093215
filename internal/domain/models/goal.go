package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal status values.
const (
	GoalNotStarted = "not_started"
	GoalInProgress = "in_progress"
	GoalCompleted  = "completed"
	GoalCancelled  = "cancelled"
)

// Goal belongs to an employee. TenantID is copied from the employee at
// creation and only used for indexed listing; access checks always follow
// EmployeeID back to the employee's tenant.
type Goal struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EmployeeID  primitive.ObjectID `bson:"employee_id" json:"employeeId"`
	TenantID    primitive.ObjectID `bson:"tenant_id" json:"-"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	Status      string             `bson:"status" json:"status"`
	Progress    int                `bson:"progress" json:"progress"` // 0-100
	DueDate     *time.Time         `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"createdBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
