package automation

import (
	"fmt"
	"time"

	"project-automation-api/internal/domain"
)

// ResolveDate computes base ± offset calendar days. base is either "current_day" (now) or the
// name of a project date field. It returns nil when that field is empty on the project.
func ResolveDate(base string, offset int, direction domain.Direction, project *domain.Project, now time.Time) (*time.Time, error) {
	var from time.Time
	if base == domain.DateBaseCurrentDay {
		from = now
	} else {
		if project == nil {
			return nil, fmt.Errorf("date base %q needs a project", base)
		}
		value, err := project.DateField(base)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, nil
		}
		from = *value
	}

	days := offset
	if direction == domain.DirectionBefore {
		days = -offset
	}
	resolved := from.AddDate(0, 0, days)
	return &resolved, nil
}

// civilDate drops the clock part of t, keeping the calendar day as seen in t's own location.
// DATE columns arrive as UTC midnight, so they are never shifted into another zone.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from from to to.
func DaysBetween(from, to time.Time) int {
	return int(civilDate(to).Sub(civilDate(from)).Hours() / 24)
}

// IsFiringDay reports whether a periodic rule with the given interval fires after elapsed days.
// Day zero never fires.
func IsFiringDay(elapsed, interval int) bool {
	return interval > 0 && elapsed > 0 && elapsed%interval == 0
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Date-only values are placed in loc.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t, nil
}
