// internal/app/features/departments/handler.go
package departments

import (
	"errors"
	"net/http"

	departmentstore "github.com/dalemusser/perfhub/internal/app/store/departments"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the department tree of a tenant. Reads are open to every
// tenant member; changes need a tenant admin and the departmentManagement
// feature.
type Handler struct {
	DB       *mongo.Database
	Gate     *gates.Gate
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Gate:     gate,
		AuditLog: audit,
		Log:      logger,
	}
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, departmentstore.ErrNotFound):
		return apierr.Newf(apierr.NotFound, "Department not found.")
	case errors.Is(err, departmentstore.ErrDuplicateName):
		return apierr.Newf(apierr.Conflict, "A department with this name already exists.")
	case errors.Is(err, departmentstore.ErrParentNotInTenant):
		return apierr.New(apierr.InvalidRequestBody).WithDetails(map[string]string{
			"parentDepartmentId": "must be a department of the same tenant",
		})
	case errors.Is(err, departmentstore.ErrParentCycle):
		return apierr.Newf(apierr.Conflict, "Parent assignment would create a department cycle.")
	case errors.Is(err, departmentstore.ErrHasChildren):
		return apierr.Newf(apierr.Conflict, "Department has sub-departments.")
	}
	return err
}

func actorID(r *http.Request) primitive.ObjectID {
	if u, ok := auth.CurrentUser(r); ok {
		return u.UserObjectID()
	}
	return primitive.NilObjectID
}
