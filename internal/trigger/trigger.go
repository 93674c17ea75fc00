package trigger

import (
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
)

// MisfirePolicy enumerates the family-specific misfire instructions. The
// zero value is always the sentinel "smart policy" for that family.
type MisfirePolicy int

const (
	MisfireSmartPolicy MisfirePolicy = iota
	MisfireIgnore

	// Simple family.
	MisfireFireNow
	MisfireRescheduleNowWithExistingRepeatCount
	MisfireRescheduleNowWithRemainingRepeatCount
	MisfireRescheduleNextWithExistingCount
	MisfireRescheduleNextWithRemainingCount

	// Cron / calendar-interval families.
	MisfireDoNothing
	MisfireFireOnceNow
)

// Trigger is the common contract shared by every trigger family.
type Trigger interface {
	Key() TriggerKey
	JobKey() JobKey
	Description() string
	CalendarName() string
	JobData() JobDataMap
	Priority() int
	StartTime() time.Time
	EndTime() (time.Time, bool)
	MisfireInstruction() MisfirePolicy

	PreviousFireTime() (time.Time, bool)
	NextFireTime() (time.Time, bool)

	// ComputeFirstFireTime sets and returns the trigger's initial
	// nextFireTime, respecting cal. Returns the zero Time and false if no
	// fire time exists (e.g. entirely excluded by cal).
	ComputeFirstFireTime(cal calendar.Calendar) (time.Time, bool)

	// Triggered is called when the engine actually fires this trigger: it
	// advances timesTriggered-equivalent state, sets previousFireTime to
	// the fired nextFireTime, and recomputes nextFireTime.
	Triggered(cal calendar.Calendar)

	// UpdateAfterMisfire applies this trigger's family-specific misfire
	// recovery rule, given the calendar currently in effect.
	UpdateAfterMisfire(cal calendar.Calendar, now time.Time)

	// Clone returns a deep-enough copy for store entry/retrieval isolation.
	Clone() Trigger
}

// common holds the fields and behavior shared by every family; embedded by
// each concrete trigger type.
type common struct {
	key          TriggerKey
	jobKey       JobKey
	description  string
	calendarName string
	jobData      JobDataMap
	priority     int

	startTime time.Time
	endTime   time.Time
	hasEnd    bool

	previousFireTime time.Time
	hasPrevious      bool
	nextFireTime     time.Time
	hasNext          bool

	misfire MisfirePolicy
}

const defaultPriority = 5

func newCommon(key TriggerKey, jobKey JobKey, startTime time.Time) common {
	return common{
		key:       key,
		jobKey:    jobKey,
		priority:  defaultPriority,
		startTime: startTime,
	}
}

func (c *common) Key() TriggerKey               { return c.key }
func (c *common) JobKey() JobKey                 { return c.jobKey }
func (c *common) Description() string            { return c.description }
func (c *common) CalendarName() string           { return c.calendarName }
func (c *common) JobData() JobDataMap            { return c.jobData }
func (c *common) SetJobData(data JobDataMap)      { c.jobData = data }
func (c *common) Priority() int                  { return c.priority }
func (c *common) SetPriority(p int)              { c.priority = p }
func (c *common) StartTime() time.Time           { return c.startTime }
func (c *common) MisfireInstruction() MisfirePolicy { return c.misfire }
func (c *common) SetMisfireInstruction(p MisfirePolicy) { c.misfire = p }
func (c *common) SetDescription(d string)        { c.description = d }
func (c *common) SetCalendarName(name string)    { c.calendarName = name }

func (c *common) EndTime() (time.Time, bool) { return c.endTime, c.hasEnd }
func (c *common) SetEndTime(t time.Time)     { c.endTime, c.hasEnd = t, true }

func (c *common) PreviousFireTime() (time.Time, bool) { return c.previousFireTime, c.hasPrevious }
func (c *common) NextFireTime() (time.Time, bool)     { return c.nextFireTime, c.hasNext }

func (c *common) setNext(t time.Time, ok bool) {
	c.nextFireTime, c.hasNext = t, ok
}

func (c *common) setPrevious(t time.Time) {
	c.previousFireTime, c.hasPrevious = t, true
}

// pastEndTime reports whether t is at or beyond the trigger's endTime, when
// one is set.
func (c *common) pastEndTime(t time.Time) bool {
	return c.hasEnd && !t.Before(c.endTime)
}

// skipExcluded advances t forward past any instants the calendar excludes,
// using its NextIncludedTime. A nil cal excludes nothing, so t is returned
// as is; false is reported when no later included time is found.
func skipExcluded(cal calendar.Calendar, t time.Time) (time.Time, bool) {
	if cal == nil {
		return t, true
	}
	for i := 0; i < 1000; i++ {
		if cal.IsTimeIncluded(t) {
			return t, true
		}
		nxt := cal.NextIncludedTime(t)
		if nxt.IsZero() || !nxt.After(t) {
			return time.Time{}, false
		}
		t = nxt
	}
	return time.Time{}, false
}
