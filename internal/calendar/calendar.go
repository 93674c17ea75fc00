// Package calendar implements Quartz-style exclusion calendars: predicates
// over instants that triggers consult to skip dates that would otherwise be
// valid fire times (holidays, weekends, blackout days, ...).
package calendar

import "time"

// Calendar excludes instants from a trigger's fire-time computation. A
// calendar may stack on a base calendar: an instant is included only if both
// this calendar and its base include it.
type Calendar interface {
	// IsTimeIncluded reports whether t is NOT excluded by this calendar or
	// its base.
	IsTimeIncluded(t time.Time) bool
	// NextIncludedTime returns the next instant, searching from t, that is
	// not excluded by this calendar or its base. Day-granular calendars
	// return the start of the first included day at or after t's day, which
	// is earlier than t when t's own day is included.
	NextIncludedTime(t time.Time) time.Time
	// Description is an optional human-readable label.
	Description() string
	// SetDescription sets the label returned by Description.
	SetDescription(string)
	// BaseCalendar returns the calendar this one stacks on, or nil.
	BaseCalendar() Calendar
	// SetBaseCalendar replaces the base calendar.
	SetBaseCalendar(Calendar)
}

// base provides the shared description/base-calendar plumbing every
// concrete calendar embeds, mirroring Quartz's BaseCalendar.
type base struct {
	description string
	baseCal     Calendar
}

func (b *base) Description() string          { return b.description }
func (b *base) SetDescription(d string)       { b.description = d }
func (b *base) BaseCalendar() Calendar        { return b.baseCal }
func (b *base) SetBaseCalendar(c Calendar)    { b.baseCal = c }

// baseExcludes reports whether the stacked base calendar excludes t; a nil
// base never excludes anything.
func (b *base) baseExcludes(t time.Time) bool {
	return b.baseCal != nil && !b.baseCal.IsTimeIncluded(t)
}

// baseNextIncluded forwards to the base calendar's NextIncludedTime, or
// returns t unchanged if there is no base.
func (b *base) baseNextIncluded(t time.Time) time.Time {
	if b.baseCal == nil {
		return t
	}
	return b.baseCal.NextIncludedTime(t)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
