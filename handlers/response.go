package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"attendance/clock"
	"attendance/export"
	"attendance/remotelog"
	"attendance/roster"
	"attendance/session"
	"attendance/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP statuses. Anything unrecognised is
// an internal error.
func statusFor(err error) int {
	var syncErr *remotelog.SyncError
	switch {
	case errors.Is(err, session.ErrGuardViolation):
		return http.StatusConflict
	case errors.Is(err, session.ErrMissingIdentity),
		errors.Is(err, store.ErrUnknownBreakKind),
		errors.Is(err, store.ErrNegativeMinutes):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrUnknownEmployee),
		errors.Is(err, roster.ErrNotFound),
		errors.Is(err, store.ErrNoRecord),
		errors.Is(err, export.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, clock.ErrInvalidRange):
		return http.StatusUnprocessableEntity
	case errors.As(err, &syncErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, r, status, msg)
}
