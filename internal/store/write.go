package store

import (
	"fmt"

	"github.com/jholhewres/goquartz/internal/calendar"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// StoreJob inserts or (if replace) overwrites a job descriptor.
func (s *Store) StoreJob(detail trigger.JobDetail, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobsByKey[detail.Key]; exists && !replace {
		return &ErrAlreadyExists{Kind: "job", Key: detail.Key.String()}
	}
	s.jobsByKey[detail.Key] = detail.Clone()
	s.addToGroupIndex(s.jobsByGroup, detail.Key.Group, detail.Key)
	return nil
}

// StoreTrigger inserts or (if replace) overwrites a trigger, computing its
// first fire time and inserting it into the time index if eligible.
func (s *Store) StoreTrigger(t trigger.Trigger, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := t.Key()
	if _, exists := s.triggersByKey[key]; exists && !replace {
		return &ErrAlreadyExists{Kind: "trigger", Key: key.String()}
	}
	if _, ok := s.jobsByKey[t.JobKey()]; !ok {
		return &ErrDependencyMissing{Reason: "storeTrigger: job " + t.JobKey().String() + " does not exist"}
	}

	if old, exists := s.triggersByKey[key]; exists {
		s.timeTriggers.remove(key)
		s.removeFromTriggerGroupIndex(old.key().Group, key)
	}

	cal := s.lookupCalendar(t.CalendarName())
	t.ComputeFirstFireTime(cal)

	w := &TriggerWrapper{Trigger: t, State: StateWaiting}
	s.applyPauseState(w)

	s.triggersByKey[key] = w
	s.addToTriggerGroupIndex(key.Group, key)

	if w.State == StateWaiting {
		if _, ok := w.nextFireTime(); ok {
			s.timeTriggers.insert(w)
		}
	}
	s.wake()
	return nil
}

// applyPauseState sets w's state to PAUSED/PAUSED_BLOCKED/BLOCKED when the
// new trigger's group or job is currently paused/blocked.
func (s *Store) applyPauseState(w *TriggerWrapper) {
	key := w.key()
	jobKey := w.Trigger.JobKey()

	paused := s.isTriggerGroupPaused(key.Group) || s.isJobGroupPaused(jobKey.Group)
	_, blocked := s.blockedJobs[jobKey]

	switch {
	case paused && blocked:
		w.State = StatePausedBlocked
	case paused:
		w.State = StatePaused
	case blocked:
		w.State = StateBlocked
	}
}

func (s *Store) lookupCalendar(name string) calendar.Calendar {
	if name == "" {
		return nil
	}
	return s.calendarsByName[name]
}

// RemoveJob deletes a job and all of its triggers.
func (s *Store) RemoveJob(key trigger.JobKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeJobLocked(key)
}

func (s *Store) removeJobLocked(key trigger.JobKey) (bool, error) {
	if _, ok := s.jobsByKey[key]; !ok {
		return false, nil
	}
	for tk, w := range s.triggersByKey {
		if w.Trigger.JobKey() == key {
			s.removeTriggerLocked(tk, true)
		}
	}
	delete(s.jobsByKey, key)
	s.removeFromJobGroupIndex(key.Group, key)
	s.wake()
	return true, nil
}

// RemoveTrigger deletes a trigger, and its job too if the job is
// non-durable and this was its last trigger.
func (s *Store) RemoveTrigger(key trigger.TriggerKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeTriggerLocked(key, false)
}

func (s *Store) removeTriggerLocked(key trigger.TriggerKey, fromJobRemoval bool) (bool, error) {
	w, ok := s.triggersByKey[key]
	if !ok {
		return false, nil
	}
	jobKey := w.Trigger.JobKey()

	s.timeTriggers.remove(key)
	delete(s.triggersByKey, key)
	s.removeFromTriggerGroupIndex(key.Group, key)

	if fromJobRemoval {
		return true, nil
	}

	if detail, ok := s.jobsByKey[jobKey]; ok && !detail.Durable {
		remaining := false
		for _, other := range s.triggersByKey {
			if other.Trigger.JobKey() == jobKey {
				remaining = true
				break
			}
		}
		if !remaining {
			delete(s.jobsByKey, jobKey)
			s.removeFromJobGroupIndex(jobKey.Group, jobKey)
		}
	}
	s.wake()
	return true, nil
}

// ReplaceTrigger swaps the trigger stored at key for newTrigger, which
// must target the same job.
func (s *Store) ReplaceTrigger(key trigger.TriggerKey, newTrigger trigger.Trigger) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.triggersByKey[key]
	if !ok {
		return false, nil
	}
	if _, ok := s.jobsByKey[newTrigger.JobKey()]; !ok {
		return false, &ErrDependencyMissing{Reason: "replaceTrigger: job " + newTrigger.JobKey().String() + " does not exist"}
	}
	if newTrigger.JobKey() != old.Trigger.JobKey() {
		return false, fmt.Errorf("replaceTrigger: new trigger targets job %s, but %s targets job %s", newTrigger.JobKey(), key, old.Trigger.JobKey())
	}

	s.timeTriggers.remove(key)
	delete(s.triggersByKey, key)
	s.removeFromTriggerGroupIndex(key.Group, key)
	_ = old

	cal := s.lookupCalendar(newTrigger.CalendarName())
	newTrigger.ComputeFirstFireTime(cal)

	w := &TriggerWrapper{Trigger: newTrigger, State: StateWaiting}
	s.applyPauseState(w)
	s.triggersByKey[newTrigger.Key()] = w
	s.addToTriggerGroupIndex(newTrigger.Key().Group, newTrigger.Key())
	if w.State == StateWaiting {
		if _, ok := w.nextFireTime(); ok {
			s.timeTriggers.insert(w)
		}
	}
	s.wake()
	return true, nil
}

// StoreCalendar inserts or replaces a named calendar. If updateTriggers is
// set, every trigger referencing it recomputes its schedule.
func (s *Store) StoreCalendar(name string, cal calendar.Calendar, replace, updateTriggers bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.calendarsByName[name]; exists && !replace {
		return &ErrAlreadyExists{Kind: "calendar", Key: name}
	}
	s.calendarsByName[name] = cal

	if !updateTriggers {
		return nil
	}
	for key, w := range s.triggersByKey {
		if w.Trigger.CalendarName() != name {
			continue
		}
		s.timeTriggers.remove(key)
		w.Trigger.ComputeFirstFireTime(cal)
		if w.State == StateWaiting {
			if _, ok := w.nextFireTime(); ok {
				s.timeTriggers.insert(w)
			}
		}
	}
	s.wake()
	return nil
}

// RemoveCalendar deletes a named calendar, failing with
// ErrDependencyMissing if any stored trigger still references it.
func (s *Store) RemoveCalendar(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendarsByName[name]; !ok {
		return false, nil
	}
	for _, w := range s.triggersByKey {
		if w.Trigger.CalendarName() == name {
			return false, &ErrDependencyMissing{Reason: "removeCalendar: calendar " + name + " is referenced by trigger " + w.Trigger.Key().String()}
		}
	}
	delete(s.calendarsByName, name)
	return true, nil
}

// ClearAll removes every job, trigger, and calendar, and resets pause
// state.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.wake()
}
