package http

import (
	"errors"
	"net/http"

	"fintrack/internal/analytics"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

var badRequestErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrEmptyAccount,
	core.ErrDescriptionTooLong,
	core.ErrUnknownKind,
	core.ErrInvalidRowsPerPage,
	core.ErrUnsupportedCurrency,
	auth.ErrInvalidUsername,
	auth.ErrInvalidEmail,
	auth.ErrPasswordTooShort,
	auth.ErrPasswordTooLong,
	auth.ErrInvalidToken,
}

// errorStatus maps a service error to a status and a message that is safe to
// show. ok is false for unexpected errors.
func errorStatus(err error) (status int, msg string, ok bool) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error(), true
		}
	}

	var unknownInterval *analytics.UnknownIntervalError
	var badCalc *analytics.InvalidCalculationTypeError
	switch {
	case errors.As(err, &unknownInterval), errors.As(err, &badCalc):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not found", true
	case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, err.Error(), true
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error(), true
	case errors.Is(err, auth.ErrInactiveAccount):
		return http.StatusForbidden, err.Error(), true
	}
	return http.StatusInternalServerError, "", false
}

// writeError answers with the mapped status, logging unexpected errors.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg, ok := errorStatus(err)
	if !ok {
		s.internalError(w, r, op+" failed", err)
		return
	}
	ErrorResponse(status, msg).Write(w)
}
