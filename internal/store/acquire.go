package store

import (
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// TriggerFiredBundle is handed to the job factory and worker pool once a
// trigger has actually fired.
type TriggerFiredBundle struct {
	JobDetail         trigger.JobDetail
	Trigger           trigger.Trigger
	Calendar          calendar.Calendar
	FiredAt           time.Time
	ScheduledFireTime time.Time
	PreviousFireTime  time.Time
	HasPreviousFire   bool
	NextFireTime      time.Time
	HasNextFire       bool
	FireInstanceID    string
}

// AcquireNextTriggers selects up to maxCount WAITING triggers whose
// nextFireTime is at or before noLaterThan+timeWindow (overdue triggers
// included), applying misfire recovery along the way and re-anchoring the
// window to the first selected trigger's fire time plus timeWindow.
func (s *Store) AcquireNextTriggers(now, noLaterThan time.Time, maxCount int, timeWindow time.Duration) []trigger.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	var acquired []*TriggerWrapper
	seenJobs := map[trigger.JobKey]struct{}{}
	skipped := map[trigger.TriggerKey]struct{}{}
	window := noLaterThan.Add(timeWindow)

	for len(acquired) < maxCount {
		w := s.timeTriggers.peekFirstEligible(window, skipped)
		if w == nil {
			break
		}

		ft, _ := w.nextFireTime()
		if ft.Add(s.MisfireThreshold).Before(now) {
			if s.applyMisfireLocked(w, now) {
				continue
			}
		}

		jobKey := w.Trigger.JobKey()
		if detail, ok := s.jobsByKey[jobKey]; ok && detail.ConcurrentExecutionDisallowed {
			if _, already := seenJobs[jobKey]; already {
				skipped[w.key()] = struct{}{}
				continue
			}
		}

		if len(acquired) == 0 {
			window = ft.Add(timeWindow)
		}

		s.timeTriggers.remove(w.key())
		w.State = StateAcquired
		w.FireInstanceID = s.nextFireInstanceID()
		seenJobs[jobKey] = struct{}{}
		acquired = append(acquired, w)
	}

	out := make([]trigger.Trigger, 0, len(acquired))
	for _, w := range acquired {
		out = append(out, w.Trigger)
	}
	return out
}

// ReleaseAcquiredTrigger reverts an ACQUIRED trigger back to WAITING and
// re-inserts it into the time index.
func (s *Store) ReleaseAcquiredTrigger(key trigger.TriggerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggersByKey[key]
	if !ok || w.State != StateAcquired {
		return
	}
	w.State = StateWaiting
	if _, ok := w.nextFireTime(); ok {
		s.timeTriggers.insert(w)
	}
	s.wake()
}

// TriggersFired advances each still-ACQUIRED trigger's schedule and
// returns the fired bundles ready for execution. Triggers whose named
// calendar was removed since acquisition are discarded.
func (s *Store) TriggersFired(keys []trigger.TriggerKey, now time.Time) []TriggerFiredBundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []TriggerFiredBundle
	for _, key := range keys {
		w, ok := s.triggersByKey[key]
		if !ok || w.State != StateAcquired {
			continue
		}

		calName := w.Trigger.CalendarName()
		var cal calendar.Calendar
		if calName != "" {
			var found bool
			cal, found = s.calendarsByName[calName]
			if !found {
				s.timeTriggers.remove(key)
				delete(s.triggersByKey, key)
				s.removeFromTriggerGroupIndex(key.Group, key)
				continue
			}
		}

		prevFireTime, hasPrev := w.Trigger.PreviousFireTime()
		scheduledFireTime, _ := w.Trigger.NextFireTime()

		w.Trigger.Triggered(cal)

		w.State = StateWaiting
		nextFireTime, hasNext := w.Trigger.NextFireTime()
		if hasNext {
			s.timeTriggers.insert(w)
		}

		jobKey := w.Trigger.JobKey()
		detail, hasJob := s.jobsByKey[jobKey]
		if hasJob && detail.ConcurrentExecutionDisallowed {
			s.blockedJobs[jobKey] = struct{}{}
			for otherKey, other := range s.triggersByKey {
				if otherKey == key || other.Trigger.JobKey() != jobKey {
					continue
				}
				switch other.State {
				case StateWaiting:
					s.timeTriggers.remove(otherKey)
					other.State = StateBlocked
				case StatePaused:
					other.State = StatePausedBlocked
				}
			}
		}

		out = append(out, TriggerFiredBundle{
			JobDetail:         detail,
			Trigger:           w.Trigger,
			Calendar:          cal,
			FiredAt:           now,
			ScheduledFireTime: scheduledFireTime,
			PreviousFireTime:  prevFireTime,
			HasPreviousFire:   hasPrev,
			NextFireTime:      nextFireTime,
			HasNextFire:       hasNext,
			FireInstanceID:    w.FireInstanceID,
		})
	}
	s.wake()
	return out
}

// TriggeredJobComplete applies a post-execution completion instruction.
// updatedJobData, when non-nil, replaces the stored job data for jobs with
// PersistJobDataAfterExecution set.
func (s *Store) TriggeredJobComplete(key trigger.TriggerKey, jobKey trigger.JobKey, instruction CompletionInstruction, updatedJobData trigger.JobDataMap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if detail, ok := s.jobsByKey[jobKey]; ok && detail.PersistJobDataAfterExecution && updatedJobData != nil {
		detail.JobData = updatedJobData.Clone()
		s.jobsByKey[jobKey] = detail
	}

	if detail, ok := s.jobsByKey[jobKey]; ok && detail.ConcurrentExecutionDisallowed {
		delete(s.blockedJobs, jobKey)
		for otherKey, other := range s.triggersByKey {
			if other.Trigger.JobKey() != jobKey {
				continue
			}
			switch other.State {
			case StateBlocked:
				other.State = StateWaiting
				if _, ok := other.nextFireTime(); ok {
					s.timeTriggers.insert(other)
				}
			case StatePausedBlocked:
				other.State = StatePaused
			}
			_ = otherKey
		}
		s.wake()
	}

	switch instruction {
	case NoOp:
	case ReExecuteJob:
	case DeleteTrigger:
		w, ok := s.triggersByKey[key]
		if ok {
			if _, hasNext := w.nextFireTime(); !hasNext {
				s.timeTriggers.remove(key)
				delete(s.triggersByKey, key)
				s.removeFromTriggerGroupIndex(key.Group, key)
				s.pruneOrphanedJobLocked(jobKey)
			}
		}
	case SetTriggerComplete:
		s.setTriggerTerminalLocked(key, StateComplete)
	case SetTriggerError:
		s.setTriggerTerminalLocked(key, StateError)
	case SetAllJobTriggersComplete:
		for k, w := range s.triggersByKey {
			if w.Trigger.JobKey() == jobKey {
				s.setTriggerTerminalLocked(k, StateComplete)
			}
		}
	case SetAllJobTriggersError:
		for k, w := range s.triggersByKey {
			if w.Trigger.JobKey() == jobKey {
				s.setTriggerTerminalLocked(k, StateError)
			}
		}
	}
	s.wake()
}

func (s *Store) setTriggerTerminalLocked(key trigger.TriggerKey, state TriggerState) {
	w, ok := s.triggersByKey[key]
	if !ok {
		return
	}
	s.timeTriggers.remove(key)
	w.State = state
}

func (s *Store) pruneOrphanedJobLocked(jobKey trigger.JobKey) {
	detail, ok := s.jobsByKey[jobKey]
	if !ok || detail.Durable {
		return
	}
	for _, w := range s.triggersByKey {
		if w.Trigger.JobKey() == jobKey {
			return
		}
	}
	delete(s.jobsByKey, jobKey)
	s.removeFromJobGroupIndex(jobKey.Group, jobKey)
}

// DrainMisfireEvents returns and clears the triggers that misfired (and
// those whose misfire recovery exhausted their schedule) since the last
// call. The scheduler fans these out to listeners outside the store mutex.
func (s *Store) DrainMisfireEvents() (misfired, finalized []trigger.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	misfired, s.pendingMisfired = s.pendingMisfired, nil
	finalized, s.pendingFinalized = s.pendingFinalized, nil
	return misfired, finalized
}

// applyMisfireLocked implements the misfire application algorithm,
// returning true if the trigger's schedule actually changed.
func (s *Store) applyMisfireLocked(w *TriggerWrapper, now time.Time) bool {
	ft, ok := w.nextFireTime()
	if !ok {
		return false
	}
	if ft.After(now.Add(-s.MisfireThreshold)) {
		return false
	}
	if w.Trigger.MisfireInstruction() == trigger.MisfireIgnore {
		return false
	}

	old := ft
	s.timeTriggers.remove(w.key())
	s.pendingMisfired = append(s.pendingMisfired, w.Trigger.Clone())

	cal := s.lookupCalendar(w.Trigger.CalendarName())
	w.Trigger.UpdateAfterMisfire(cal, now)

	newFt, hasNew := w.nextFireTime()
	if !hasNew {
		w.State = StateComplete
		s.pendingFinalized = append(s.pendingFinalized, w.Trigger.Clone())
		return true
	}
	if w.State == StateWaiting {
		s.timeTriggers.insert(w)
	}
	return !newFt.Equal(old)
}
