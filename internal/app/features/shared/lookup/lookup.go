// Package lookup loads the parent resources that feature handlers authorize
// against, mapping missing rows to NOT_FOUND.
package lookup

import (
	"context"
	"errors"

	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Employee loads an employee by id.
func Employee(ctx context.Context, db *mongo.Database, id primitive.ObjectID) (models.Employee, error) {
	e, err := employeestore.New(db).GetByID(ctx, id)
	if errors.Is(err, employeestore.ErrNotFound) {
		return models.Employee{}, apierr.Newf(apierr.NotFound, "Employee not found.")
	}
	return e, err
}

// NotFound maps store ErrNotFound sentinels to a NOT_FOUND API error naming
// what, and passes other errors through.
func NotFound(err, sentinel error, what string) error {
	if errors.Is(err, sentinel) {
		return apierr.Newf(apierr.NotFound, "%s not found.", what)
	}
	return err
}
