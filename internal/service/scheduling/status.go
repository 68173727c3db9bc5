package scheduling

import "time"

// Status is derived from an appointment's time and its visit, never stored.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusScheduled, StatusConfirmed, StatusCompleted, StatusMissed}

// DeriveStatus computes the status of an appointment at now.
//
// attended means the appointment has a confirmed visit; that wins over time.
// An unattended appointment whose time passed is missed. One starting within
// window is confirmed; later ones are scheduled.
func DeriveStatus(scheduledAt time.Time, attended bool, now time.Time, window time.Duration) Status {
	switch {
	case attended:
		return StatusCompleted
	case scheduledAt.Before(now):
		return StatusMissed
	case scheduledAt.Sub(now) <= window:
		return StatusConfirmed
	default:
		return StatusScheduled
	}
}
