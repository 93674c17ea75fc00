package calendar

import "time"

// BaseCalendarOnly is a calendar that excludes nothing of its own and
// simply forwards to its stacked base — used as the root of a calendar
// chain, or standalone when a trigger needs a named calendar that imposes
// no exclusions yet.
type BaseCalendarOnly struct {
	base
}

// NewBase returns a calendar with no exclusions of its own.
func NewBase() *BaseCalendarOnly {
	return &BaseCalendarOnly{}
}

func (b *BaseCalendarOnly) IsTimeIncluded(t time.Time) bool {
	return !b.baseExcludes(t)
}

func (b *BaseCalendarOnly) NextIncludedTime(t time.Time) time.Time {
	if b.baseCal == nil {
		return t
	}
	return b.baseNextIncluded(t)
}
