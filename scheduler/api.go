package scheduler

import (
	"errors"
	"time"

	"github.com/jholhewres/goquartz/internal/persist"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// ErrJobKeyMismatch is returned by RescheduleJob when the replacement
// trigger targets a different job than the one being replaced.
var ErrJobKeyMismatch = errors.New("scheduler: replacement trigger targets a different job")

// ScheduleJob stores detail (if not already present) and t together,
// returning t's computed first fire time.
func (s *Scheduler) ScheduleJob(detail JobDetail, t Trigger) (time.Time, bool, error) {
	if !s.store.CheckJobExists(detail.Key) {
		if err := s.store.StoreJob(detail, false); err != nil {
			return time.Time{}, false, err
		}
	}
	if err := s.store.StoreTrigger(t, false); err != nil {
		return time.Time{}, false, err
	}
	next, hasNext := t.NextFireTime()
	return next, hasNext, nil
}

// JobWithTriggers pairs a job descriptor with the triggers to store
// alongside it, for bulk scheduling via ScheduleJobs.
type JobWithTriggers struct {
	Detail   JobDetail
	Triggers []Trigger
}

// ScheduleJobs bulk-stores a set of job/trigger pairs, honoring replace.
func (s *Scheduler) ScheduleJobs(jobs []JobWithTriggers, replace bool) error {
	for _, jt := range jobs {
		if err := s.store.StoreJob(jt.Detail, replace); err != nil {
			return err
		}
		for _, t := range jt.Triggers {
			if err := s.store.StoreTrigger(t, replace); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnscheduleJob removes a single trigger by key.
func (s *Scheduler) UnscheduleJob(key TriggerKey) (bool, error) {
	return s.store.RemoveTrigger(key)
}

// RescheduleJob replaces the trigger at key with newTrigger, which must
// target the same job, returning the replacement's computed next fire
// time.
func (s *Scheduler) RescheduleJob(key TriggerKey, newTrigger Trigger) (time.Time, bool, error) {
	old, ok := s.store.RetrieveTrigger(key)
	if !ok {
		return time.Time{}, false, nil
	}
	if old.JobKey() != newTrigger.JobKey() {
		return time.Time{}, false, ErrJobKeyMismatch
	}
	if _, err := s.store.ReplaceTrigger(key, newTrigger); err != nil {
		return time.Time{}, false, err
	}
	t, ok := newTrigger.NextFireTime()
	return t, ok, nil
}

// DeleteJob removes a job and all of its triggers.
func (s *Scheduler) DeleteJob(key JobKey) (bool, error) {
	removed, err := s.store.RemoveJob(key)
	if removed {
		s.bus.FireJobDeleted(key)
	}
	return removed, err
}

// AddJob stores detail without any trigger. storeNonDurableWhileAwaiting
// allows a non-durable job to be stored even though it has no trigger yet
// (the caller is expected to schedule one shortly after).
func (s *Scheduler) AddJob(detail JobDetail, replace, storeNonDurableWhileAwaiting bool) error {
	if !detail.Durable && !storeNonDurableWhileAwaiting {
		return errors.New("scheduler: non-durable job requires a trigger unless storeNonDurableWhileAwaitingScheduling is set")
	}
	if err := s.store.StoreJob(detail, replace); err != nil {
		return err
	}
	s.bus.FireJobAdded(detail)
	return nil
}

// TriggerJob fires jobKey once, immediately, outside its normal schedule,
// carrying data as the ad-hoc trigger's job data.
func (s *Scheduler) TriggerJob(jobKey JobKey, data JobDataMap) error {
	if !s.store.CheckJobExists(jobKey) {
		return &triggerJobNoSuchJob{jobKey}
	}
	key := trigger.NewTriggerKey("", "manual-trigger")
	t := trigger.NewSimple(key, jobKey, time.Now(), 0, 0)
	t.SetJobData(data)
	return s.store.StoreTrigger(t, false)
}

type triggerJobNoSuchJob struct{ key JobKey }

func (e *triggerJobNoSuchJob) Error() string {
	return "scheduler: no such job " + e.key.String()
}

// PauseTrigger pauses a single trigger.
func (s *Scheduler) PauseTrigger(key TriggerKey) error {
	if err := s.store.PauseTrigger(key); err != nil {
		return err
	}
	s.bus.FireTriggerPaused(key)
	return nil
}

// ResumeTrigger resumes a single trigger.
func (s *Scheduler) ResumeTrigger(key TriggerKey) error {
	if err := s.store.ResumeTrigger(key); err != nil {
		return err
	}
	s.bus.FireTriggerResumed(key)
	return nil
}

// PauseJob pauses every trigger of a job.
func (s *Scheduler) PauseJob(key JobKey) error {
	if err := s.store.PauseJob(key); err != nil {
		return err
	}
	s.bus.FireJobPaused(key)
	return nil
}

// ResumeJob resumes every trigger of a job.
func (s *Scheduler) ResumeJob(key JobKey) error {
	if err := s.store.ResumeJob(key); err != nil {
		return err
	}
	s.bus.FireJobResumed(key)
	return nil
}

// PauseAll pauses every trigger in the store.
func (s *Scheduler) PauseAll() { s.store.PauseAll() }

// ResumeAll resumes every trigger in the store.
func (s *Scheduler) ResumeAll() { s.store.ResumeAll() }

// PauseTriggers pauses every trigger whose group matches m and returns the
// groups that were affected.
func (s *Scheduler) PauseTriggers(m GroupMatcher) []string {
	return s.store.PauseTriggers(m)
}

// ResumeTriggers resumes every trigger whose group matches m and returns
// the groups that were affected.
func (s *Scheduler) ResumeTriggers(m GroupMatcher) []string {
	return s.store.ResumeTriggers(m)
}

// PauseJobs pauses every trigger of a job whose group matches m.
func (s *Scheduler) PauseJobs(m GroupMatcher) []string { return s.store.PauseJobs(m) }

// ResumeJobs resumes every trigger of a job whose group matches m.
func (s *Scheduler) ResumeJobs(m GroupMatcher) []string { return s.store.ResumeJobs(m) }

// GetPausedTriggerGroups returns the currently paused trigger groups.
func (s *Scheduler) GetPausedTriggerGroups() []string { return s.store.GetPausedTriggerGroups() }

// Clear removes every job, trigger, and calendar from the store.
func (s *Scheduler) Clear() {
	s.store.ClearAll()
	s.bus.FireSchedulingDataCleared()
}

// CheckJobExists reports whether key is stored.
func (s *Scheduler) CheckJobExists(key JobKey) bool { return s.store.CheckJobExists(key) }

// CheckTriggerExists reports whether key is stored.
func (s *Scheduler) CheckTriggerExists(key TriggerKey) bool { return s.store.CheckTriggerExists(key) }

// GetTriggerState returns a trigger's current lifecycle state, with
// PAUSED_BLOCKED surfaced as PAUSED.
func (s *Scheduler) GetTriggerState(key TriggerKey) TriggerState {
	st := s.store.GetTriggerState(key)
	if st == StatePausedBlocked {
		return StatePaused
	}
	return st
}

// GetJobKeys returns every job key whose group matches m.
func (s *Scheduler) GetJobKeys(m GroupMatcher) []JobKey { return s.store.GetJobKeys(m) }

// GetTriggerKeys returns every trigger key whose group matches m.
func (s *Scheduler) GetTriggerKeys(m GroupMatcher) []TriggerKey { return s.store.GetTriggerKeys(m) }

// GetJobGroupNames returns every non-empty job group.
func (s *Scheduler) GetJobGroupNames() []string { return s.store.GetJobGroupNames() }

// GetTriggerGroupNames returns every non-empty trigger group.
func (s *Scheduler) GetTriggerGroupNames() []string { return s.store.GetTriggerGroupNames() }

// GetTriggersForJob returns every trigger targeting key.
func (s *Scheduler) GetTriggersForJob(key JobKey) []Trigger { return s.store.GetTriggersForJob(key) }

// RetrieveJob returns a clone of the stored job descriptor.
func (s *Scheduler) RetrieveJob(key JobKey) (JobDetail, bool) { return s.store.RetrieveJob(key) }

// RetrieveTrigger returns a clone of the stored trigger.
func (s *Scheduler) RetrieveTrigger(key TriggerKey) (Trigger, bool) {
	return s.store.RetrieveTrigger(key)
}

// ExportSnapshot captures every job, trigger, calendar, paused group and
// blocked job for a persist.Snapshotter to save. A trigger paused on its
// own, outside a paused group, is exported without its paused state.
func (s *Scheduler) ExportSnapshot() (persist.Snapshot, error) { return s.store.Export() }

// ImportSnapshot replaces the scheduler's entire store with snap, as
// loaded from a persist.Snapshotter at cold start.
func (s *Scheduler) ImportSnapshot(snap persist.Snapshot) error { return s.store.Import(snap) }
