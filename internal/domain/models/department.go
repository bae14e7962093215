package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Department groups employees inside a tenant. Departments form a tree via
// ParentDepartmentID; the parent must be in the same tenant and the chain
// must not contain cycles.
type Department struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TenantID           primitive.ObjectID  `bson:"tenant_id" json:"tenantId"`
	Name               string              `bson:"name" json:"name"`
	NameCI             string              `bson:"name_ci" json:"-"`
	Description        string              `bson:"description,omitempty" json:"description,omitempty"`
	ParentDepartmentID *primitive.ObjectID `bson:"parent_department_id,omitempty" json:"parentDepartmentId,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
