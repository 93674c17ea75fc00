package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// ErrNotFound is returned when a lookup key is not present in the store.
type ErrNotFound struct{ Kind, Key string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.Key) }

// ErrAlreadyExists is returned by a store* operation called with
// replace=false against an existing key.
type ErrAlreadyExists struct{ Kind, Key string }

func (e *ErrAlreadyExists) Error() string { return fmt.Sprintf("%s %q already exists", e.Kind, e.Key) }

// ErrDependencyMissing is returned when an operation references a job,
// trigger, or calendar that does not exist.
type ErrDependencyMissing struct{ Reason string }

func (e *ErrDependencyMissing) Error() string { return e.Reason }

// Store is the single coherent in-memory job store: a reentrant-feeling
// API guarded by one mutex, exposing the acquire/release/fired/complete
// protocol the scheduler loop drives.
type Store struct {
	mu sync.Mutex

	jobsByKey     map[trigger.JobKey]trigger.JobDetail
	triggersByKey map[trigger.TriggerKey]*TriggerWrapper

	jobsByGroup     map[string]map[trigger.JobKey]struct{}
	triggersByGroup map[string]map[trigger.TriggerKey]struct{}

	timeTriggers timeIndex

	calendarsByName map[string]calendar.Calendar

	pausedTriggerGroups map[string]struct{}
	pausedJobGroups     map[string]struct{}

	blockedJobs map[trigger.JobKey]struct{}

	pendingMisfired  []trigger.Trigger
	pendingFinalized []trigger.Trigger

	MisfireThreshold time.Duration

	signal chan struct{}

	fireSeed int64
}

// New returns an empty Store. misfireThreshold defaults to 5s when zero.
func New(misfireThreshold time.Duration) *Store {
	if misfireThreshold <= 0 {
		misfireThreshold = 5 * time.Second
	}
	return &Store{
		jobsByKey:           make(map[trigger.JobKey]trigger.JobDetail),
		triggersByKey:       make(map[trigger.TriggerKey]*TriggerWrapper),
		jobsByGroup:         make(map[string]map[trigger.JobKey]struct{}),
		triggersByGroup:     make(map[string]map[trigger.TriggerKey]struct{}),
		calendarsByName:     make(map[string]calendar.Calendar),
		pausedTriggerGroups: make(map[string]struct{}),
		pausedJobGroups:     make(map[string]struct{}),
		blockedJobs:         make(map[trigger.JobKey]struct{}),
		MisfireThreshold:    misfireThreshold,
		signal:              make(chan struct{}, 1),
		fireSeed:            time.Now().UnixNano(),
	}
}

// Signal returns the channel the scheduler loop selects on to learn a
// store mutation may require re-planning. Sends are non-blocking: at most
// one pending wake is ever buffered.
func (s *Store) Signal() <-chan struct{} { return s.signal }

func (s *Store) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Store) nextFireInstanceID() string {
	s.fireSeed++
	return fmt.Sprintf("%d", s.fireSeed)
}

func (s *Store) addToGroupIndex(idx map[string]map[trigger.JobKey]struct{}, group string, key trigger.JobKey) {
	m, ok := idx[group]
	if !ok {
		m = make(map[trigger.JobKey]struct{})
		idx[group] = m
	}
	m[key] = struct{}{}
}

func (s *Store) removeFromJobGroupIndex(group string, key trigger.JobKey) {
	m, ok := s.jobsByGroup[group]
	if !ok {
		return
	}
	delete(m, key)
	if len(m) == 0 {
		delete(s.jobsByGroup, group)
	}
}

func (s *Store) addToTriggerGroupIndex(group string, key trigger.TriggerKey) {
	m, ok := s.triggersByGroup[group]
	if !ok {
		m = make(map[trigger.TriggerKey]struct{})
		s.triggersByGroup[group] = m
	}
	m[key] = struct{}{}
}

func (s *Store) removeFromTriggerGroupIndex(group string, key trigger.TriggerKey) {
	m, ok := s.triggersByGroup[group]
	if !ok {
		return
	}
	delete(m, key)
	if len(m) == 0 {
		delete(s.triggersByGroup, group)
	}
}

func (s *Store) isTriggerGroupPaused(group string) bool {
	_, ok := s.pausedTriggerGroups[group]
	return ok
}

func (s *Store) isJobGroupPaused(group string) bool {
	_, ok := s.pausedJobGroups[group]
	return ok
}
