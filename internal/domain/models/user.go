package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a sign-in identity. Every user except a platform_admin belongs to
// exactly one tenant; platform admins have a nil TenantID.
type User struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email      string              `bson:"email" json:"email"` // normalized lowercase, unique
	FullName   string              `bson:"full_name" json:"fullName"`
	FullNameCI string              `bson:"full_name_ci" json:"-"`
	Role       string              `bson:"role" json:"role"` // platform_admin | tenant_admin | manager | employee
	TenantID   *primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenantId,omitempty"`
	Status     string              `bson:"status" json:"status"` // active | disabled

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
