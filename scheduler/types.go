// Package scheduler is the public API: a single-threaded acquire/fire loop
// driving the in-memory job store over a bounded worker pool, with
// calendars, misfire recovery, pause/resume, and listener fan-out.
package scheduler

import (
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
	"github.com/jholhewres/goquartz/internal/events"
	"github.com/jholhewres/goquartz/internal/jobfactory"
	"github.com/jholhewres/goquartz/internal/store"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// Re-exported core types so callers depend only on this package.
type (
	JobKey            = trigger.JobKey
	TriggerKey        = trigger.TriggerKey
	JobDetail         = trigger.JobDetail
	JobDataMap        = trigger.JobDataMap
	Trigger           = trigger.Trigger
	Simple            = trigger.Simple
	Cron              = trigger.Cron
	CalendarInterval  = trigger.CalendarInterval
	IntervalUnit      = trigger.IntervalUnit
	MisfirePolicy     = trigger.MisfirePolicy
	GroupMatcher      = trigger.GroupMatcher
	TriggerState      = store.TriggerState
	CompletionInstruction = store.CompletionInstruction
	TriggerFiredBundle    = store.TriggerFiredBundle
	Job                 = jobfactory.Job
	JobExecutionContext = jobfactory.JobExecutionContext
	JobListener       = events.JobListener
	TriggerListener   = events.TriggerListener
	SchedulerListener = events.SchedulerListener
	Calendar          = calendar.Calendar

	Annual  = calendar.Annual
	Monthly = calendar.Monthly
	Weekly  = calendar.Weekly
	Holiday = calendar.Holiday
	CronCal = calendar.Cron
)

const (
	DefaultGroup = trigger.DefaultGroup

	UnitMillisecond = trigger.UnitMillisecond
	UnitSecond      = trigger.UnitSecond
	UnitMinute      = trigger.UnitMinute
	UnitHour        = trigger.UnitHour
	UnitDay         = trigger.UnitDay
	UnitWeek        = trigger.UnitWeek
	UnitMonth       = trigger.UnitMonth
	UnitYear        = trigger.UnitYear

	MisfireSmartPolicy                           = trigger.MisfireSmartPolicy
	MisfireIgnore                                = trigger.MisfireIgnore
	MisfireFireNow                                = trigger.MisfireFireNow
	MisfireRescheduleNowWithExistingRepeatCount    = trigger.MisfireRescheduleNowWithExistingRepeatCount
	MisfireRescheduleNowWithRemainingRepeatCount   = trigger.MisfireRescheduleNowWithRemainingRepeatCount
	MisfireRescheduleNextWithExistingCount        = trigger.MisfireRescheduleNextWithExistingCount
	MisfireRescheduleNextWithRemainingCount       = trigger.MisfireRescheduleNextWithRemainingCount
	MisfireDoNothing                              = trigger.MisfireDoNothing
	MisfireFireOnceNow                            = trigger.MisfireFireOnceNow

	StateWaiting       = store.StateWaiting
	StateAcquired      = store.StateAcquired
	StateExecuting     = store.StateExecuting
	StateComplete      = store.StateComplete
	StatePaused        = store.StatePaused
	StateBlocked       = store.StateBlocked
	StatePausedBlocked = store.StatePausedBlocked
	StateError         = store.StateError
	StateNone          = store.StateNone

	NoOp                      = store.NoOp
	ReExecuteJob              = store.ReExecuteJob
	DeleteTrigger             = store.DeleteTrigger
	SetTriggerComplete        = store.SetTriggerComplete
	SetTriggerError           = store.SetTriggerError
	SetAllJobTriggersError    = store.SetAllJobTriggersError
	SetAllJobTriggersComplete = store.SetAllJobTriggersComplete
)

func NewJobKey(name, group string) JobKey         { return trigger.NewJobKey(name, group) }
func NewTriggerKey(name, group string) TriggerKey { return trigger.NewTriggerKey(name, group) }
func GroupEquals(g string) GroupMatcher           { return trigger.GroupEquals(g) }
func GroupStartsWith(g string) GroupMatcher       { return trigger.GroupStartsWith(g) }
func GroupEndsWith(g string) GroupMatcher         { return trigger.GroupEndsWith(g) }
func GroupContains(g string) GroupMatcher         { return trigger.GroupContains(g) }
func AnyGroup() GroupMatcher                      { return trigger.AnyGroup() }

// NewSimpleTrigger constructs a Simple trigger firing at startTime and
// repeating repeatCount additional times (trigger.UnlimitedRepeatCount for
// open-ended) every repeatInterval.
func NewSimpleTrigger(key TriggerKey, jobKey JobKey, startTime time.Time, repeatCount int, repeatInterval time.Duration) *Simple {
	return trigger.NewSimple(key, jobKey, startTime, repeatCount, repeatInterval)
}

// NewCronTrigger parses expr (in loc, UTC if nil) and constructs a Cron
// trigger starting at startTime.
func NewCronTrigger(key TriggerKey, jobKey JobKey, startTime time.Time, expr string, loc *time.Location) (*Cron, error) {
	return trigger.NewCron(key, jobKey, startTime, expr, loc)
}

// NewCalendarIntervalTrigger constructs a CalendarInterval trigger firing
// every interval Units starting at startTime, evaluated in loc (UTC if
// nil).
func NewCalendarIntervalTrigger(key TriggerKey, jobKey JobKey, startTime time.Time, interval int, unit IntervalUnit, loc *time.Location) *CalendarInterval {
	return trigger.NewCalendarInterval(key, jobKey, startTime, interval, unit, loc)
}

// UnlimitedRepeatCount marks a Simple trigger as repeating indefinitely.
const UnlimitedRepeatCount = trigger.UnlimitedRepeatCount
