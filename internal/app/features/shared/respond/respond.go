// Package respond holds the JSON response helpers shared by the API features.
package respond

import (
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/tracing"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	apierr.WriteJSON(w, status, v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) {
	apierr.WriteJSON(w, http.StatusOK, v)
}

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) {
	apierr.WriteJSON(w, http.StatusCreated, v)
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err as an API error. Internal errors are logged with the
// request's trace id.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if log != nil {
		log = log.With(tracing.Field(r.Context()), zap.String("path", r.URL.Path))
	}
	apierr.Write(w, log, err)
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return inputval.ObjectID(name, chi.URLParam(r, name))
}
