package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotificationFeedbackReceived  = "feedback_received"
	NotificationGoalAssigned      = "goal_assigned"
	NotificationGoalReminder      = "goal_reminder"
	NotificationPerformanceReview = "performance_review"
	NotificationSystemUpdate      = "system_update"
	NotificationWeeklyDigest      = "weekly_digest"
)

// Notification status values.
const (
	NotificationUnread   = "unread"
	NotificationRead     = "read"
	NotificationArchived = "archived"
)

// Notification is a durable in-app notification for one user. Only Status
// and ReadAt change after creation.
type Notification struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Type     string             `bson:"type" json:"type"`
	Title    string             `bson:"title" json:"title"`
	Message  string             `bson:"message" json:"message"`
	Status   string             `bson:"status" json:"status"`
	Metadata map[string]string  `bson:"metadata,omitempty" json:"metadata,omitempty"`

	ReadAt    *time.Time `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
}

// IsValidNotificationType reports whether t is a known notification type.
func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationFeedbackReceived, NotificationGoalAssigned, NotificationGoalReminder,
		NotificationPerformanceReview, NotificationSystemUpdate, NotificationWeeklyDigest:
		return true
	}
	return false
}

// NotificationPreferences is owned 1:1 by a user. A user without a stored
// row has DefaultNotificationPreferences.
type NotificationPreferences struct {
	UserID        primitive.ObjectID `bson:"_id" json:"userId"`
	Email         bool               `bson:"email" json:"emailNotifications"`
	Push          bool               `bson:"push" json:"pushNotifications"`
	Feedback      bool               `bson:"feedback" json:"feedbackNotifications"`
	GoalReminders bool               `bson:"goal_reminders" json:"goalReminders"`
	WeeklyDigest  bool               `bson:"weekly_digest" json:"weeklyDigest"`

	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// DefaultNotificationPreferences returns the preferences a new user starts with.
func DefaultNotificationPreferences(userID primitive.ObjectID) NotificationPreferences {
	return NotificationPreferences{
		UserID:        userID,
		Email:         true,
		Push:          true,
		Feedback:      true,
		GoalReminders: true,
		WeeklyDigest:  false,
	}
}
