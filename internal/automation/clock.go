package automation

import "time"

// Clock supplies "now" to a run. A run reads it exactly once and threads the value through.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// SystemClock returns wall-clock time in loc (UTC when nil).
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

type fixedClock time.Time

// FixedClock always returns t. Used for tests and for replaying past days.
func FixedClock(t time.Time) Clock {
	return fixedClock(t)
}

func (c fixedClock) Now() time.Time {
	return time.Time(c)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
