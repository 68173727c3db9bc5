package directory

import "github.com/clinicadesk/clinica_backend/pkg/apperr"

var (
	ErrPatientNotFound      = apperr.New(apperr.ErrNotFound, "patient not found")
	ErrProfessionalNotFound = apperr.New(apperr.ErrNotFound, "professional not found")
)
