package store

import "github.com/jholhewres/goquartz/internal/trigger"

// RetrieveJob returns a clone of the stored job descriptor.
func (s *Store) RetrieveJob(key trigger.JobKey) (trigger.JobDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.jobsByKey[key]
	if !ok {
		return trigger.JobDetail{}, false
	}
	return d.Clone(), true
}

// RetrieveTrigger returns a clone of the stored trigger.
func (s *Store) RetrieveTrigger(key trigger.TriggerKey) (trigger.Trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggersByKey[key]
	if !ok {
		return nil, false
	}
	return w.Trigger.Clone(), true
}

// CheckJobExists reports whether key is stored.
func (s *Store) CheckJobExists(key trigger.JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobsByKey[key]
	return ok
}

// CheckTriggerExists reports whether key is stored.
func (s *Store) CheckTriggerExists(key trigger.TriggerKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.triggersByKey[key]
	return ok
}

// JobCount returns the number of stored jobs.
func (s *Store) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobsByKey)
}

// TriggerCount returns the number of stored triggers.
func (s *Store) TriggerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.triggersByKey)
}

// GetTriggerState returns the current lifecycle state of key, or StateNone
// if unrecognized.
func (s *Store) GetTriggerState(key trigger.TriggerKey) TriggerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggersByKey[key]
	if !ok {
		return StateNone
	}
	return w.State
}

// GetJobKeys returns every job key whose group matches m.
func (s *Store) GetJobKeys(m trigger.GroupMatcher) []trigger.JobKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trigger.JobKey
	for k := range s.jobsByKey {
		if m.Matches(k.Group) {
			out = append(out, k)
		}
	}
	return out
}

// GetTriggerKeys returns every trigger key whose group matches m.
func (s *Store) GetTriggerKeys(m trigger.GroupMatcher) []trigger.TriggerKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trigger.TriggerKey
	for k := range s.triggersByKey {
		if m.Matches(k.Group) {
			out = append(out, k)
		}
	}
	return out
}

// GetCalendarNames returns the names of every stored calendar.
func (s *Store) GetCalendarNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calendarsByName))
	for n := range s.calendarsByName {
		out = append(out, n)
	}
	return out
}

// GetJobGroupNames returns every non-empty job group.
func (s *Store) GetJobGroupNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobsByGroup))
	for g := range s.jobsByGroup {
		out = append(out, g)
	}
	return out
}

// GetTriggerGroupNames returns every non-empty trigger group.
func (s *Store) GetTriggerGroupNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.triggersByGroup))
	for g := range s.triggersByGroup {
		out = append(out, g)
	}
	return out
}

// GetTriggersForJob returns every trigger targeting key.
func (s *Store) GetTriggersForJob(key trigger.JobKey) []trigger.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []trigger.Trigger
	for _, w := range s.triggersByKey {
		if w.Trigger.JobKey() == key {
			out = append(out, w.Trigger.Clone())
		}
	}
	return out
}
