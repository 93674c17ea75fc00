package calendar

import (
	"sort"
	"time"
)

// Holiday excludes a sorted set of specific calendar dates (time-of-day is
// ignored — the whole day is excluded).
type Holiday struct {
	base
	loc   *time.Location
	dates []time.Time // start-of-day instants, kept sorted
}

// NewHoliday returns a Holiday calendar evaluated in loc (UTC if nil).
func NewHoliday(loc *time.Location) *Holiday {
	if loc == nil {
		loc = time.UTC
	}
	return &Holiday{loc: loc}
}

// AddExcludedDate adds a date to the exclude set, keeping it sorted.
func (h *Holiday) AddExcludedDate(d time.Time) {
	d = startOfDay(d.In(h.loc))
	i := sort.Search(len(h.dates), func(i int) bool { return !h.dates[i].Before(d) })
	if i < len(h.dates) && h.dates[i].Equal(d) {
		return
	}
	h.dates = append(h.dates, time.Time{})
	copy(h.dates[i+1:], h.dates[i:])
	h.dates[i] = d
}

// RemoveExcludedDate removes d from the exclude set if present.
func (h *Holiday) RemoveExcludedDate(d time.Time) {
	d = startOfDay(d.In(h.loc))
	i := sort.Search(len(h.dates), func(i int) bool { return !h.dates[i].Before(d) })
	if i < len(h.dates) && h.dates[i].Equal(d) {
		h.dates = append(h.dates[:i], h.dates[i+1:]...)
	}
}

// ExcludedDates returns the sorted exclude set.
func (h *Holiday) ExcludedDates() []time.Time {
	out := make([]time.Time, len(h.dates))
	copy(out, h.dates)
	return out
}

func (h *Holiday) isExcluded(day time.Time) bool {
	i := sort.Search(len(h.dates), func(i int) bool { return !h.dates[i].Before(day) })
	return i < len(h.dates) && h.dates[i].Equal(day)
}

func (h *Holiday) IsTimeIncluded(t time.Time) bool {
	t = t.In(h.loc)
	if h.baseExcludes(t) {
		return false
	}
	return !h.isExcluded(startOfDay(t))
}

func (h *Holiday) NextIncludedTime(t time.Time) time.Time {
	cand := startOfDay(t.In(h.loc))
	for i := 0; i < len(h.dates)+8; i++ {
		if h.IsTimeIncluded(cand) {
			base := h.baseNextIncluded(cand)
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
