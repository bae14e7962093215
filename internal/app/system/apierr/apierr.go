// Package apierr defines the typed error taxonomy returned by the JSON API
// and writes it as {"error": code, "message": ..., "details": ...}.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	Unauthenticated        Code = "UNAUTHENTICATED"
	TenantAccessDenied     Code = "TENANT_ACCESS_DENIED"
	InsufficientRole       Code = "INSUFFICIENT_ROLE"
	LimitExceeded          Code = "LIMIT_EXCEEDED"
	FeatureNotAvailable    Code = "FEATURE_NOT_AVAILABLE"
	InvalidRequestBody     Code = "INVALID_REQUEST_BODY"
	InvalidParameterFormat Code = "INVALID_PARAMETER_FORMAT"
	NotFound               Code = "NOT_FOUND"
	Conflict               Code = "CONFLICT"
	RateLimited            Code = "RATE_LIMITED"
	ProviderUnavailable    Code = "PROVIDER_UNAVAILABLE"
	Internal               Code = "INTERNAL"
)

type codeInfo struct {
	status  int
	message string
}

var codes = map[Code]codeInfo{
	Unauthenticated:        {http.StatusUnauthorized, "Please sign in to continue."},
	TenantAccessDenied:     {http.StatusForbidden, "You don't have permission to access this resource."},
	InsufficientRole:       {http.StatusForbidden, "You don't have permission to perform this action."},
	LimitExceeded:          {http.StatusForbidden, "Upgrade your plan: employee limit reached."},
	FeatureNotAvailable:    {http.StatusForbidden, "Upgrade your plan to use this feature."},
	InvalidRequestBody:     {http.StatusBadRequest, "The request body is invalid."},
	InvalidParameterFormat: {http.StatusBadRequest, "A request parameter is malformed."},
	NotFound:               {http.StatusNotFound, "The requested resource was not found."},
	Conflict:               {http.StatusConflict, "The request conflicts with existing data."},
	RateLimited:            {http.StatusTooManyRequests, "Too many requests. Please try again later."},
	ProviderUnavailable:    {http.StatusServiceUnavailable, "This feature is temporarily unavailable."},
	Internal:               {http.StatusInternalServerError, "Something went wrong."},
}

// Status returns the HTTP status for the code, 500 for unknown codes.
func (c Code) Status() int {
	if ci, ok := codes[c]; ok {
		return ci.status
	}
	return http.StatusInternalServerError
}

// Error is an API error. Message is safe to show to end users; the wrapped
// cause is only ever logged.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status for e.
func (e *Error) Status() int { return e.Code.Status() }

// New returns an Error with the default message for code.
func New(code Code) *Error {
	return &Error{Code: code, Message: codes[code].message}
}

// Newf returns an Error with a custom message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details (e.g., per-field validation errors).
func (e *Error) WithDetails(d any) *Error {
	e.Details = d
	return e
}

// Wrap returns an Error of code that carries cause for logging.
func Wrap(code Code, cause error) *Error {
	e := New(code)
	e.cause = cause
	return e
}

// As extracts an *Error from err. Anything else becomes Internal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(Internal, err)
}

type body struct {
	Error   Code   `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Write renders err as JSON. Non-API errors become INTERNAL and are logged at
// error level; the client sees only the generic message.
func Write(w http.ResponseWriter, log *zap.Logger, err error) {
	ae := As(err)
	if ae.Code == Internal && log != nil {
		log.Error("internal error", zap.Error(err))
	}
	if ae.Code == RateLimited && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", "3600")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status())
	_ = json.NewEncoder(w).Encode(body{Error: ae.Code, Message: ae.Message, Details: ae.Details})
}

// WriteJSON renders v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Recoverer turns panics into INTERNAL responses.
func Recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"))
					Write(w, nil, New(Internal))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
