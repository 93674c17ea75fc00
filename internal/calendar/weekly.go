package calendar

import "time"

// Weekly excludes instants whose weekday is in the exclude set, indexed by
// time.Weekday (Sunday=0 .. Saturday=6).
type Weekly struct {
	base
	loc     *time.Location
	exclude [7]bool
}

// NewWeekly returns a Weekly calendar evaluated in loc (UTC if nil). By
// default Saturday and Sunday are excluded, matching Quartz's WeeklyCalendar.
func NewWeekly(loc *time.Location) *Weekly {
	if loc == nil {
		loc = time.UTC
	}
	w := &Weekly{loc: loc}
	w.exclude[time.Saturday] = true
	w.exclude[time.Sunday] = true
	return w
}

// SetDayExcluded marks weekday excluded or included.
func (w *Weekly) SetDayExcluded(day time.Weekday, excluded bool) {
	w.exclude[day] = excluded
}

// IsDayExcluded reports whether weekday is currently excluded.
func (w *Weekly) IsDayExcluded(day time.Weekday) bool {
	return w.exclude[day]
}

func (w *Weekly) IsTimeIncluded(t time.Time) bool {
	t = t.In(w.loc)
	if w.baseExcludes(t) {
		return false
	}
	return !w.exclude[t.Weekday()]
}

func (w *Weekly) NextIncludedTime(t time.Time) time.Time {
	cand := startOfDay(t.In(w.loc))
	for i := 0; i < 7*8; i++ {
		if w.IsTimeIncluded(cand) {
			base := w.baseNextIncluded(cand)
			if base.After(cand) {
				cand = startOfDay(base)
				continue
			}
			return cand
		}
		cand = cand.AddDate(0, 0, 1)
	}
	return cand
}
