package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review status values.
const (
	ReviewDraft     = "draft"
	ReviewSubmitted = "submitted"
	ReviewCompleted = "completed"
)

// PerformanceReview is a periodic review of an employee written by a
// reviewer (a manager or tenant admin in the same tenant).
type PerformanceReview struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EmployeeID     primitive.ObjectID `bson:"employee_id" json:"employeeId"`
	TenantID       primitive.ObjectID `bson:"tenant_id" json:"-"`
	ReviewerUserID primitive.ObjectID `bson:"reviewer_user_id" json:"reviewerUserId"`
	Period         string             `bson:"period" json:"period"` // e.g. "2026-Q3"
	Status         string             `bson:"status" json:"status"`
	OverallRating  int                `bson:"overall_rating,omitempty" json:"overallRating,omitempty"` // 1-5
	Strengths      string             `bson:"strengths,omitempty" json:"strengths,omitempty"`
	Improvements   string             `bson:"improvements,omitempty" json:"improvements,omitempty"`
	Comments       string             `bson:"comments,omitempty" json:"comments,omitempty"`
	SubmittedAt    *time.Time         `bson:"submitted_at,omitempty" json:"submittedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
