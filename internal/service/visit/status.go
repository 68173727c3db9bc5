package visit

import (
	"time"

	"github.com/clinicadesk/clinica_backend/internal/repo"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// DeriveStatus reports a visit's state at now. An unconfirmed visit whose
// time has passed counts as cancelled.
func DeriveStatus(v *repo.Visit, now time.Time) Status {
	switch {
	case v.Confirmed:
		return StatusConfirmed
	case v.ScheduledAt.Before(now):
		return StatusCancelled
	default:
		return StatusPending
	}
}

// IsOverdue reports whether v's time passed without confirmation.
func IsOverdue(v *repo.Visit, now time.Time) bool {
	return !v.Confirmed && v.ScheduledAt.Before(now)
}
