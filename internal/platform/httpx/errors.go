// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrValidation    = errors.New("validation failed")
	ErrUnprocessable = errors.New("unprocessable entity")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
)

// StatusOf maps an error to an HTTP status and problem title. Unknown errors
// map to 500.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, ErrUnprocessable):
		return http.StatusUnprocessableEntity, "Unprocessable Entity"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. Internal
// errors never echo their message.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusOf(err)
	if status == http.StatusInternalServerError {
		Problem(w, status, title, "")
		return
	}
	Problem(w, status, title, err.Error())
}
