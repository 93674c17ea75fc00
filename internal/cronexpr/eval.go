package cronexpr

import "time"

// maxSearchYear bounds forward search; expressions that can never again be
// satisfied (e.g. a year field entirely in the past) return a zero time.
const maxSearchYear = 2199

// IsSatisfiedBy reports whether t matches every field of the expression.
func (e *Expression) IsSatisfiedBy(t time.Time) bool {
	t = t.In(e.loc)
	if !e.fields[fieldSeconds].bits[t.Second()] {
		return false
	}
	if !e.fields[fieldMinutes].bits[t.Minute()] {
		return false
	}
	if !e.fields[fieldHours].bits[t.Hour()] {
		return false
	}
	if !e.fields[fieldMonth].bits[int(t.Month())] {
		return false
	}
	if !yearMatches(e.fields[fieldYear], t.Year()) {
		return false
	}
	return daySatisfied(e, t.Year(), t.Month(), t.Day())
}

func yearMatches(f field, year int) bool {
	if f.all {
		return true
	}
	return f.years[year]
}

// GetNextValidTimeAfter returns the earliest instant strictly after t that
// satisfies the expression, or the zero Time if none exists before
// maxSearchYear.
func (e *Expression) GetNextValidTimeAfter(t time.Time) time.Time {
	cand := t.In(e.loc).Truncate(time.Second).Add(time.Second)

	for iter := 0; iter < 10_000_000; iter++ {
		if cand.Year() > maxSearchYear {
			return time.Time{}
		}

		if !e.yearFieldMatches(cand.Year()) {
			ny, ok := nextYear(e.fields[fieldYear], cand.Year())
			if !ok {
				return time.Time{}
			}
			cand = time.Date(ny, 1, 1, 0, 0, 0, 0, e.loc)
			continue
		}

		if !e.fields[fieldMonth].bits[int(cand.Month())] {
			nm, wrapped := nextInRange(e.fields[fieldMonth].bits[:], int(cand.Month()), 1, 12)
			y := cand.Year()
			if wrapped {
				y++
			}
			cand = time.Date(y, time.Month(nm), 1, 0, 0, 0, 0, e.loc)
			continue
		}

		if !daySatisfied(e, cand.Year(), cand.Month(), cand.Day()) {
			cand = time.Date(cand.Year(), cand.Month(), cand.Day(), 0, 0, 0, 0, e.loc).AddDate(0, 0, 1)
			continue
		}

		if !e.fields[fieldHours].bits[cand.Hour()] {
			nh, wrapped := nextInRange(e.fields[fieldHours].bits[:], cand.Hour(), 0, 23)
			if wrapped {
				cand = time.Date(cand.Year(), cand.Month(), cand.Day(), 0, 0, 0, 0, e.loc).AddDate(0, 0, 1)
			} else {
				cand = time.Date(cand.Year(), cand.Month(), cand.Day(), nh, 0, 0, 0, e.loc)
			}
			continue
		}

		if !e.fields[fieldMinutes].bits[cand.Minute()] {
			nmin, wrapped := nextInRange(e.fields[fieldMinutes].bits[:], cand.Minute(), 0, 59)
			if wrapped {
				cand = time.Date(cand.Year(), cand.Month(), cand.Day(), cand.Hour(), 0, 0, 0, e.loc).Add(time.Hour)
			} else {
				cand = time.Date(cand.Year(), cand.Month(), cand.Day(), cand.Hour(), nmin, 0, 0, e.loc)
			}
			continue
		}

		if !e.fields[fieldSeconds].bits[cand.Second()] {
			ns, wrapped := nextInRange(e.fields[fieldSeconds].bits[:], cand.Second(), 0, 59)
			if wrapped {
				cand = time.Date(cand.Year(), cand.Month(), cand.Day(), cand.Hour(), cand.Minute(), 0, 0, e.loc).Add(time.Minute)
			} else {
				cand = time.Date(cand.Year(), cand.Month(), cand.Day(), cand.Hour(), cand.Minute(), ns, 0, e.loc)
			}
			continue
		}

		return cand
	}
	return time.Time{}
}

// GetNextInvalidTimeAfter returns the earliest instant strictly after t at
// which the expression is NOT satisfied. Used by cron-calendars, which
// exclude instants where the expression matches.
func (e *Expression) GetNextInvalidTimeAfter(t time.Time) time.Time {
	cand := t.In(e.loc).Truncate(time.Second).Add(time.Second)
	for iter := 0; iter < 10_000_000; iter++ {
		if cand.Year() > maxSearchYear {
			return time.Time{}
		}
		if !e.IsSatisfiedBy(cand) {
			return cand
		}
		cand = cand.Add(time.Second)
	}
	return time.Time{}
}

func (e *Expression) yearFieldMatches(y int) bool {
	return yearMatches(e.fields[fieldYear], y)
}

// nextYear returns the smallest year >= from satisfying the year field
// (from itself when the field is unconstrained).
func nextYear(f field, from int) (int, bool) {
	if f.all {
		return from, true
	}
	for y := from; y <= maxSearchYear; y++ {
		if f.years[y] {
			return y, true
		}
	}
	return 0, false
}

// nextInRange returns the smallest set value >= from within [lo,hi]; if
// none exists, wraps to the smallest set value in [lo,hi] and reports
// wrapped=true so the caller carries into the next higher unit.
func nextInRange(bits []bool, from, lo, hi int) (int, bool) {
	for v := from; v <= hi; v++ {
		if bits[v] {
			return v, false
		}
	}
	for v := lo; v <= hi; v++ {
		if bits[v] {
			return v, true
		}
	}
	return lo, true
}

func daySatisfied(e *Expression, y int, m time.Month, d int) bool {
	dom := e.fields[fieldDayOfMonth]
	dow := e.fields[fieldDayOfWeek]

	domRestricted := isDomRestricted(dom)
	dowRestricted := isDowRestricted(dow)

	domOK := domSatisfied(dom, y, m, d, e.loc)
	dowOK := dowSatisfied(dow, y, m, d, e.loc)

	switch {
	case domRestricted && dowRestricted:
		return domOK || dowOK
	case domRestricted:
		return domOK
	case dowRestricted:
		return dowOK
	default:
		return true
	}
}

func isDomRestricted(f field) bool {
	return !f.all && !f.noSpec
}

func isDowRestricted(f field) bool {
	return !f.all && !f.noSpec
}

func domSatisfied(f field, y int, m time.Month, d int, loc *time.Location) bool {
	if f.noSpec {
		return true
	}
	last := daysInMonth(y, m)
	switch {
	case f.lastDayOfMonth:
		return d == last
	case f.lastWeekdayOfMonth:
		return d == lastWeekdayOfMonth(y, m, loc)
	case f.nearestWeekdayOf != 0:
		return d == nearestWeekday(y, m, f.nearestWeekdayOf, loc)
	default:
		return d >= 0 && d < len(f.bits) && f.bits[d]
	}
}

func dowSatisfied(f field, y int, m time.Month, d int, loc *time.Location) bool {
	if f.noSpec {
		return true
	}
	wd := int(time.Date(y, m, d, 0, 0, 0, 0, loc).Weekday())
	switch {
	case f.nthOccurrence > 0:
		return wd == f.nthDow && (d-1)/7+1 == f.nthOccurrence
	case f.lastDow >= 0:
		return wd == f.lastDow && d+7 > daysInMonth(y, m)
	default:
		return wd >= 0 && wd < len(f.bits) && f.bits[wd]
	}
}

func daysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func lastWeekdayOfMonth(y int, m time.Month, loc *time.Location) int {
	last := daysInMonth(y, m)
	wd := time.Date(y, m, last, 0, 0, 0, 0, loc).Weekday()
	switch wd {
	case time.Saturday:
		return last - 1
	case time.Sunday:
		return last - 2
	default:
		return last
	}
}

func nearestWeekday(y int, m time.Month, target int, loc *time.Location) int {
	last := daysInMonth(y, m)
	if target < 1 {
		target = 1
	}
	if target > last {
		target = last
	}
	wd := time.Date(y, m, target, 0, 0, 0, 0, loc).Weekday()
	switch {
	case wd == time.Saturday && target == 1:
		return target + 2
	case wd == time.Saturday:
		return target - 1
	case wd == time.Sunday && target == last:
		return target - 2
	case wd == time.Sunday:
		return target + 1
	default:
		return target
	}
}
