package store

import "github.com/jholhewres/goquartz/internal/trigger"

// PauseTrigger moves a single trigger to PAUSED (or PAUSED_BLOCKED if its
// job is currently blocked), removing it from the time index.
func (s *Store) PauseTrigger(key trigger.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggersByKey[key]
	if !ok {
		return &ErrNotFound{Kind: "trigger", Key: key.String()}
	}
	s.pauseTriggerLocked(w)
	s.wake()
	return nil
}

func (s *Store) pauseTriggerLocked(w *TriggerWrapper) {
	switch w.State {
	case StateComplete, StateError:
		return
	case StateBlocked:
		w.State = StatePausedBlocked
	default:
		w.State = StatePaused
	}
	s.timeTriggers.remove(w.key())
}

// ResumeTrigger moves a trigger back to WAITING/BLOCKED, re-inserting it
// into the time index if it becomes WAITING and has a next fire time. If
// its computed nextFireTime has fallen behind, misfire recovery is applied
// by AcquireNextTriggers on its next pass.
func (s *Store) ResumeTrigger(key trigger.TriggerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.triggersByKey[key]
	if !ok {
		return &ErrNotFound{Kind: "trigger", Key: key.String()}
	}
	s.resumeTriggerLocked(w)
	s.wake()
	return nil
}

func (s *Store) resumeTriggerLocked(w *TriggerWrapper) {
	switch w.State {
	case StatePausedBlocked:
		w.State = StateBlocked
		return
	case StatePaused:
		w.State = StateWaiting
	default:
		return
	}
	if _, ok := w.nextFireTime(); ok {
		s.timeTriggers.insert(w)
	}
}

// PauseJob pauses every trigger of a job.
func (s *Store) PauseJob(key trigger.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.triggersByKey {
		if w.Trigger.JobKey() == key {
			s.pauseTriggerLocked(w)
		}
	}
	s.wake()
	return nil
}

// ResumeJob resumes every trigger of a job.
func (s *Store) ResumeJob(key trigger.JobKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.triggersByKey {
		if w.Trigger.JobKey() == key {
			s.resumeTriggerLocked(w)
		}
	}
	s.wake()
	return nil
}

// PauseTriggers pauses every trigger whose group matches m, and records
// each matched group in pausedTriggerGroups so triggers stored later under
// the same group start out paused.
func (s *Store) PauseTriggers(m trigger.GroupMatcher) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := map[string]struct{}{}
	for key, w := range s.triggersByKey {
		if !m.Matches(key.Group) {
			continue
		}
		groups[key.Group] = struct{}{}
		s.pauseTriggerLocked(w)
	}
	for g := range groups {
		s.pausedTriggerGroups[g] = struct{}{}
	}
	// Also record a directly-named group even if it currently has no
	// triggers, so triggers stored into it later start paused.
	if m.Op == trigger.MatchEquals {
		s.pausedTriggerGroups[m.Group] = struct{}{}
		groups[m.Group] = struct{}{}
	}
	s.wake()
	return setToSlice(groups)
}

// ResumeTriggers resumes every trigger whose group matches m and clears
// the matched groups from pausedTriggerGroups.
func (s *Store) ResumeTriggers(m trigger.GroupMatcher) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := map[string]struct{}{}
	for key, w := range s.triggersByKey {
		if !m.Matches(key.Group) {
			continue
		}
		groups[key.Group] = struct{}{}
		s.resumeTriggerLocked(w)
	}
	for g := range s.pausedTriggerGroups {
		if m.Matches(g) {
			groups[g] = struct{}{}
			delete(s.pausedTriggerGroups, g)
		}
	}
	s.wake()
	return setToSlice(groups)
}

// PauseJobs pauses every trigger belonging to a job whose group matches m.
func (s *Store) PauseJobs(m trigger.GroupMatcher) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := map[string]struct{}{}
	for jobKey := range s.jobsByKey {
		if !m.Matches(jobKey.Group) {
			continue
		}
		groups[jobKey.Group] = struct{}{}
		for _, w := range s.triggersByKey {
			if w.Trigger.JobKey() == jobKey {
				s.pauseTriggerLocked(w)
			}
		}
	}
	for g := range groups {
		s.pausedJobGroups[g] = struct{}{}
	}
	s.wake()
	return setToSlice(groups)
}

// ResumeJobs resumes every trigger belonging to a job whose group matches m.
func (s *Store) ResumeJobs(m trigger.GroupMatcher) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := map[string]struct{}{}
	for jobKey := range s.jobsByKey {
		if !m.Matches(jobKey.Group) {
			continue
		}
		groups[jobKey.Group] = struct{}{}
		for _, w := range s.triggersByKey {
			if w.Trigger.JobKey() == jobKey {
				s.resumeTriggerLocked(w)
			}
		}
	}
	for g := range s.pausedJobGroups {
		if m.Matches(g) {
			delete(s.pausedJobGroups, g)
		}
	}
	s.wake()
	return setToSlice(groups)
}

// PauseAll pauses every trigger in the store.
func (s *Store) PauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.triggersByKey {
		s.pauseTriggerLocked(w)
	}
	for g := range s.triggersByGroup {
		s.pausedTriggerGroups[g] = struct{}{}
	}
	s.wake()
}

// ResumeAll resumes every trigger in the store and clears all paused
// groups.
func (s *Store) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.triggersByKey {
		s.resumeTriggerLocked(w)
	}
	s.pausedTriggerGroups = make(map[string]struct{})
	s.pausedJobGroups = make(map[string]struct{})
	s.wake()
}

// GetPausedTriggerGroups returns the currently paused trigger groups.
func (s *Store) GetPausedTriggerGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pausedTriggerGroups))
	for g := range s.pausedTriggerGroups {
		out = append(out, g)
	}
	return out
}

func setToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
