package calendar

import (
	"time"

	"github.com/jholhewres/goquartz/internal/cronexpr"
)

// Cron excludes instants where the underlying cron expression is satisfied
// — the inverse sense of a trigger's own cron field. Useful for blacking
// out a recurring maintenance window.
type Cron struct {
	base
	expr *cronexpr.Expression
}

// NewCron parses expr and returns a calendar excluding the instants it
// matches, evaluated in loc (UTC if nil).
func NewCron(expr string, loc *time.Location) (*Cron, error) {
	e, err := cronexpr.Parse(expr, loc)
	if err != nil {
		return nil, err
	}
	return &Cron{expr: e}, nil
}

func (c *Cron) IsTimeIncluded(t time.Time) bool {
	if c.baseExcludes(t) {
		return false
	}
	return !c.expr.IsSatisfiedBy(t)
}

// NextIncludedTime alternates between jumping past the cron expression's
// excluded range and advancing past the base calendar's own exclusions
// until both agree on an included instant. Per-iteration it advances by at
// least one millisecond to guard against GetNextInvalidTimeAfter returning
// a fixed point when called again with the same instant.
func (c *Cron) NextIncludedTime(t time.Time) time.Time {
	cand := t
	for i := 0; i < 10_000; i++ {
		if !c.expr.IsSatisfiedBy(cand) && !c.baseExcludes(cand) {
			return cand
		}
		if c.expr.IsSatisfiedBy(cand) {
			nxt := c.expr.GetNextInvalidTimeAfter(cand)
			if nxt.IsZero() {
				return time.Time{}
			}
			cand = nxt
			continue
		}
		// excluded only by the base calendar
		nxt := c.baseNextIncluded(cand)
		if !nxt.After(cand) {
			nxt = cand.Add(time.Millisecond)
		}
		cand = nxt
	}
	return cand
}
