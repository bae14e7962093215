package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Feedback sources.
const (
	FeedbackInternal   = "internal"    // submitted by a signed-in colleague
	FeedbackPublicLink = "public_link" // submitted through the employee's feedback URL
)

// Feedback is a piece of feedback about one employee. Givers may be
// anonymous; GiverUserID is nil for public-link submissions.
type Feedback struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	EmployeeID  primitive.ObjectID  `bson:"employee_id" json:"employeeId"`
	TenantID    primitive.ObjectID  `bson:"tenant_id" json:"-"`
	GiverUserID *primitive.ObjectID `bson:"giver_user_id,omitempty" json:"giverUserId,omitempty"`
	GiverName   string              `bson:"giver_name,omitempty" json:"giverName,omitempty"`
	IsAnonymous bool                `bson:"is_anonymous" json:"isAnonymous"`
	Kind        string              `bson:"kind" json:"type"` // positive | constructive | general
	Content     string              `bson:"content" json:"content"`
	Rating      int                 `bson:"rating,omitempty" json:"rating,omitempty"` // 1-5, 0 = unrated
	Source      string              `bson:"source" json:"source"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
