package trigger

import (
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
)

// UnlimitedRepeatCount marks a Simple trigger as repeating indefinitely
// until endTime truncates it.
const UnlimitedRepeatCount = -1

// Simple fires once at startTime then every repeatInterval thereafter, for
// up to repeatCount additional fires.
type Simple struct {
	common
	RepeatCount    int
	RepeatInterval time.Duration
	TimesTriggered int
}

// NewSimple constructs a Simple trigger firing at startTime and repeating
// repeatCount additional times (UnlimitedRepeatCount for open-ended) every
// repeatInterval.
func NewSimple(key TriggerKey, jobKey JobKey, startTime time.Time, repeatCount int, repeatInterval time.Duration) *Simple {
	return &Simple{
		common:         newCommon(key, jobKey, startTime),
		RepeatCount:    repeatCount,
		RepeatInterval: repeatInterval,
	}
}

func (s *Simple) Clone() Trigger {
	out := *s
	out.jobData = s.jobData.Clone()
	return &out
}

// hasRemaining reports whether another repeat is available beyond
// TimesTriggered.
func (s *Simple) hasRemaining() bool {
	return s.RepeatCount == UnlimitedRepeatCount || s.TimesTriggered <= s.RepeatCount
}

func (s *Simple) ComputeFirstFireTime(cal calendar.Calendar) (time.Time, bool) {
	t, ok := s.nextIncludedSlot(cal, s.startTime)
	if !ok {
		s.setNext(time.Time{}, false)
		return time.Time{}, false
	}
	s.setNext(t, true)
	return t, true
}

func (s *Simple) Triggered(cal calendar.Calendar) {
	next, hasNext := s.NextFireTime()
	if !hasNext {
		return
	}
	s.setPrevious(next)
	s.TimesTriggered++

	cand, ok := s.nextIncludedSlot(cal, next.Add(s.RepeatInterval))
	if !ok {
		s.setNext(time.Time{}, false)
		return
	}
	s.setNext(cand, true)
}

// nextIncludedSlot advances cand along the repeat pattern until cal
// includes it, consuming one repeat per skipped slot so the schedule's
// endpoint stays fixed. Reports false once endTime or the repeat count is
// exhausted. Skipped slots keep the pattern's time-of-day: a daily 09:00
// trigger blocked on a weekend resumes Monday 09:00, not at the
// calendar's next included midnight.
func (s *Simple) nextIncludedSlot(cal calendar.Calendar, cand time.Time) (time.Time, bool) {
	for i := 0; i < 10_000; i++ {
		if s.pastEndTime(cand) || !s.hasRemaining() {
			return time.Time{}, false
		}
		if cal == nil || cal.IsTimeIncluded(cand) {
			return cand, true
		}
		if s.RepeatInterval <= 0 {
			return time.Time{}, false
		}
		cand = cand.Add(s.RepeatInterval)
		s.TimesTriggered++
	}
	return time.Time{}, false
}

func (s *Simple) UpdateAfterMisfire(cal calendar.Calendar, now time.Time) {
	policy := s.misfire
	if policy == MisfireSmartPolicy {
		if s.RepeatCount == 0 {
			policy = MisfireFireNow
		} else {
			policy = MisfireRescheduleNowWithRemainingRepeatCount
		}
	}

	switch policy {
	case MisfireIgnore:
		return
	case MisfireFireNow:
		s.setNextChecked(now, cal)
	case MisfireRescheduleNowWithExistingRepeatCount:
		s.setNextChecked(now, cal)
	case MisfireRescheduleNowWithRemainingRepeatCount:
		if s.RepeatCount != UnlimitedRepeatCount {
			s.RepeatCount = s.RepeatCount - s.TimesTriggered
			if s.RepeatCount < 0 {
				s.RepeatCount = 0
			}
		}
		s.TimesTriggered = 0
		s.setNextChecked(now, cal)
	case MisfireRescheduleNextWithExistingCount:
		s.slideToNextSlot(cal, now)
	case MisfireRescheduleNextWithRemainingCount:
		if s.RepeatCount != UnlimitedRepeatCount {
			s.RepeatCount = s.RepeatCount - s.TimesTriggered
			if s.RepeatCount < 0 {
				s.RepeatCount = 0
			}
		}
		s.TimesTriggered = 0
		s.slideToNextSlot(cal, now)
	default:
		s.setNextChecked(now, cal)
	}
}

func (s *Simple) setNextChecked(t time.Time, cal calendar.Calendar) {
	t, ok := skipExcluded(cal, t)
	if !ok || s.pastEndTime(t) || !s.hasRemaining() {
		s.setNext(time.Time{}, false)
		return
	}
	s.setNext(t, true)
}

// slideToNextSlot advances nextFireTime forward along the repeat pattern
// until it reaches or passes now, without resetting previousFireTime.
func (s *Simple) slideToNextSlot(cal calendar.Calendar, now time.Time) {
	next, ok := s.NextFireTime()
	if !ok {
		s.setNext(time.Time{}, false)
		return
	}
	for next.Before(now) && s.hasRemaining() {
		if s.RepeatInterval <= 0 {
			break
		}
		next = next.Add(s.RepeatInterval)
		s.TimesTriggered++
	}
	next, ok = s.nextIncludedSlot(cal, next)
	if !ok {
		s.setNext(time.Time{}, false)
		return
	}
	s.setNext(next, true)
}
