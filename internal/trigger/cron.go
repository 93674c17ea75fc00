package trigger

import (
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
	"github.com/jholhewres/goquartz/internal/cronexpr"
)

// Cron fires according to a parsed cron expression.
type Cron struct {
	common
	expr *cronexpr.Expression
	raw  string
}

// NewCron parses expr (in loc, UTC if nil) and constructs a Cron trigger.
func NewCron(key TriggerKey, jobKey JobKey, startTime time.Time, expr string, loc *time.Location) (*Cron, error) {
	e, err := cronexpr.Parse(expr, loc)
	if err != nil {
		return nil, err
	}
	return &Cron{common: newCommon(key, jobKey, startTime), expr: e, raw: expr}, nil
}

func (c *Cron) Expression() string { return c.raw }

func (c *Cron) Clone() Trigger {
	out := *c
	out.jobData = c.jobData.Clone()
	return &out
}

func (c *Cron) ComputeFirstFireTime(cal calendar.Calendar) (time.Time, bool) {
	// GetNextValidTimeAfter is strictly-after; startTime itself may match.
	t := c.startTime
	if !c.expr.IsSatisfiedBy(t) {
		t = c.expr.GetNextValidTimeAfter(t)
	}
	return c.settle(t, cal)
}

func (c *Cron) Triggered(cal calendar.Calendar) {
	next, hasNext := c.NextFireTime()
	if !hasNext {
		return
	}
	c.setPrevious(next)
	t := c.expr.GetNextValidTimeAfter(next)
	c.settle(t, cal)
}

func (c *Cron) UpdateAfterMisfire(cal calendar.Calendar, now time.Time) {
	policy := c.misfire
	if policy == MisfireSmartPolicy {
		policy = MisfireFireOnceNow
	}
	switch policy {
	case MisfireIgnore:
		return
	case MisfireDoNothing:
		base := now
		if prev, ok := c.PreviousFireTime(); ok && prev.After(base) {
			base = prev
		}
		t := c.expr.GetNextValidTimeAfter(base)
		c.settle(t, cal)
	case MisfireFireOnceNow:
		c.settle(now, cal)
	default:
		c.settle(now, cal)
	}
}

// settle applies the end-time truncation and calendar exclusion to a
// candidate fire time, storing the result as nextFireTime.
func (c *Cron) settle(t time.Time, cal calendar.Calendar) (time.Time, bool) {
	for i := 0; i < 1000; i++ {
		if t.IsZero() {
			c.setNext(time.Time{}, false)
			return time.Time{}, false
		}
		if c.pastEndTime(t) {
			c.setNext(time.Time{}, false)
			return time.Time{}, false
		}
		if cal == nil || cal.IsTimeIncluded(t) {
			c.setNext(t, true)
			return t, true
		}
		t = c.expr.GetNextValidTimeAfter(t)
	}
	c.setNext(time.Time{}, false)
	return time.Time{}, false
}
