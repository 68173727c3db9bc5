package scheduling

import "github.com/clinicadesk/clinica_backend/pkg/apperr"

var (
	ErrAppointmentNotFound  = apperr.New(apperr.ErrNotFound, "appointment not found")
	ErrPatientNotFound      = apperr.New(apperr.ErrNotFound, "patient not found")
	ErrProfessionalNotFound = apperr.New(apperr.ErrNotFound, "professional not found")

	ErrNotInFuture          = apperr.New(apperr.ErrInvalidInput, "appointment must be scheduled in the future")
	ErrOutsideBusinessHours = apperr.New(apperr.ErrInvalidInput, "appointment is outside business hours")
	ErrSunday               = apperr.New(apperr.ErrInvalidInput, "appointments cannot be scheduled on Sundays")
	ErrInvalidWeekday       = apperr.New(apperr.ErrInvalidInput, "weekday must be one of monday..sunday")
	ErrInvalidPeriod        = apperr.New(apperr.ErrInvalidInput, "period start must not be after its end")
	ErrInvalidDays          = apperr.New(apperr.ErrInvalidInput, "days must be between 1 and 90")

	ErrSlotTaken = apperr.New(apperr.ErrConflict, "professional already has an appointment at this time")

	ErrNotEditable      = apperr.New(apperr.ErrInvalidState, "appointment can no longer be edited")
	ErrNotCancellable   = apperr.New(apperr.ErrInvalidState, "appointment can no longer be cancelled")
	ErrAlreadyConfirmed = apperr.New(apperr.ErrInvalidState, "attendance already confirmed for this appointment")
)
