package scheduling

import (
	"strings"
	"time"
)

// Weekday tokens stored on recurring appointments.
const (
	WeekdayMonday    = "monday"
	WeekdayTuesday   = "tuesday"
	WeekdayWednesday = "wednesday"
	WeekdayThursday  = "thursday"
	WeekdayFriday    = "friday"
	WeekdaySaturday  = "saturday"
	WeekdaySunday    = "sunday"
)

var weekdayTokens = map[time.Weekday]string{
	time.Monday:    WeekdayMonday,
	time.Tuesday:   WeekdayTuesday,
	time.Wednesday: WeekdayWednesday,
	time.Thursday:  WeekdayThursday,
	time.Friday:    WeekdayFriday,
	time.Saturday:  WeekdaySaturday,
	time.Sunday:    WeekdaySunday,
}

// WeekdayOption is a token with its display label.
type WeekdayOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Weekdays lists the accepted weekday tokens, Monday first.
func Weekdays() []WeekdayOption {
	order := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	out := make([]WeekdayOption, 0, len(order))
	for _, d := range order {
		out = append(out, WeekdayOption{Value: weekdayTokens[d], Label: d.String()})
	}
	return out
}

// WeekdayToken returns the token of t's calendar day in loc.
func WeekdayToken(t time.Time, loc *time.Location) string {
	return weekdayTokens[t.In(loc).Weekday()]
}

// ValidWeekday reports whether s is one of the seven tokens.
func ValidWeekday(s string) bool {
	for _, tok := range weekdayTokens {
		if s == tok {
			return true
		}
	}
	return false
}

// normalizeWeekday lower-cases and trims a client-supplied token.
func normalizeWeekday(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WeeklyOccurrences returns the instants one, two, ... weeks after start. The
// horizon is counted from the first occurrence: the series runs up to and
// including one week plus months after start. Steps are taken on the wall
// clock of loc so a series keeps its local time across DST changes.
func WeeklyOccurrences(start time.Time, months int, loc *time.Location) []time.Time {
	local := start.In(loc)
	horizon := local.AddDate(0, 0, 7).AddDate(0, months, 0)

	var out []time.Time
	for week := 1; ; week++ {
		next := local.AddDate(0, 0, 7*week)
		if next.After(horizon) {
			break
		}
		out = append(out, next)
	}
	return out
}
