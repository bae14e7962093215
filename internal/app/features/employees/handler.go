// internal/app/features/employees/handler.go
package employees

import (
	"errors"

	departmentstore "github.com/dalemusser/perfhub/internal/app/store/departments"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	"github.com/dalemusser/perfhub/internal/app/store/tenantcache"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves employee CRUD. Creating an employee also creates its
// sign-in user; deleting one removes everything the employee owns.
type Handler struct {
	DB       *mongo.Database
	Tenants  *tenantcache.Cache
	Gate     *gates.Gate
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, tenants *tenantcache.Cache, gate *gates.Gate,
	audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Tenants:  tenants,
		Gate:     gate,
		AuditLog: audit,
		Log:      logger,
	}
}

// employeeView is an employee with its user's role. The public feedback
// token is only shown to the employee and to managers and above.
type employeeView struct {
	models.Employee
	Role string `json:"role,omitempty"`
}

func present(u *auth.SessionUser, e models.Employee, role string) employeeView {
	if u == nil || (u.UserObjectID() != e.UserID && !u.Caller().Role.AtLeast(authz.Manager)) {
		e.FeedbackToken = ""
	}
	return employeeView{Employee: e, Role: role}
}

// refErr maps reference-validation failures to API errors.
func refErr(err error) error {
	switch {
	case errors.Is(err, employeestore.ErrManagerNotInTenant):
		return apierr.New(apierr.InvalidRequestBody).WithDetails(map[string]string{
			"managerId": "must be an employee of the same tenant",
		})
	case errors.Is(err, employeestore.ErrManagerCycle):
		return apierr.Newf(apierr.Conflict, "Manager assignment would create a reporting cycle.")
	case errors.Is(err, departmentstore.ErrNotFound):
		return apierr.New(apierr.InvalidRequestBody).WithDetails(map[string]string{
			"departmentId": "must be a department of the same tenant",
		})
	case errors.Is(err, employeestore.ErrNotFound):
		return apierr.Newf(apierr.NotFound, "Employee not found.")
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return apierr.Newf(apierr.Conflict, "A user with this email already exists.")
	case errors.Is(err, employeestore.ErrDuplicateUser):
		return apierr.Newf(apierr.Conflict, "This user already has an employee record.")
	}
	return err
}
