package visit

import "github.com/clinicadesk/clinica_backend/pkg/apperr"

var (
	ErrVisitNotFound        = apperr.New(apperr.ErrNotFound, "visit not found")
	ErrAppointmentNotFound  = apperr.New(apperr.ErrNotFound, "appointment not found")
	ErrProfessionalNotFound = apperr.New(apperr.ErrNotFound, "professional not found")

	ErrTooFarAhead   = apperr.New(apperr.ErrInvalidInput, "visit is scheduled too far ahead")
	ErrNotInFuture   = apperr.New(apperr.ErrInvalidInput, "visit must be rescheduled to a future time")
	ErrInvalidPeriod = apperr.New(apperr.ErrInvalidInput, "period start must not be after its end")

	ErrVisitExists = apperr.New(apperr.ErrConflict, "appointment already has a visit")

	ErrAlreadyConfirmed = apperr.New(apperr.ErrInvalidState, "visit already confirmed")
	ErrNotEditable      = apperr.New(apperr.ErrInvalidState, "visit can no longer be edited")
	ErrConfirmedDelete  = apperr.New(apperr.ErrInvalidState, "confirmed visits cannot be deleted")
)
