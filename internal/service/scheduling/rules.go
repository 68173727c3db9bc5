package scheduling

import (
	"time"

	"github.com/clinicadesk/clinica_backend/config"
)

// Options are the clinic's calendar rules.
type Options struct {
	Location           *time.Location
	BusinessStartHour  int
	BusinessEndHour    int
	RecurrenceMonths   int
	ConfirmationWindow time.Duration
}

func DefaultOptions() Options {
	return Options{
		Location:           time.UTC,
		BusinessStartHour:  8,
		BusinessEndHour:    18,
		RecurrenceMonths:   3,
		ConfirmationWindow: 2 * time.Hour,
	}
}

func OptionsFromConfig(c config.SchedulingConfig) (Options, error) {
	loc, err := c.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Location:           loc,
		BusinessStartHour:  c.BusinessStartHour,
		BusinessEndHour:    c.BusinessEndHour,
		RecurrenceMonths:   c.RecurrenceMonths,
		ConfirmationWindow: c.ConfirmationWindow(),
	}, nil
}

// checkSlot applies the calendar rules to a proposed appointment time.
func (o Options) checkSlot(at, now time.Time) error {
	if !at.After(now) {
		return ErrNotInFuture
	}
	local := at.In(o.Location)
	if h := local.Hour(); h < o.BusinessStartHour || h >= o.BusinessEndHour {
		return ErrOutsideBusinessHours
	}
	if local.Weekday() == time.Sunday {
		return ErrSunday
	}
	return nil
}

// dayBounds returns the local midnight starting t's day and the next one.
func (o Options) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(o.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, o.Location)
	return start, start.AddDate(0, 0, 1)
}

func (o Options) dayKey(t time.Time) string {
	return t.In(o.Location).Format(time.DateOnly)
}
