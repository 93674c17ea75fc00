package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jholhewres/goquartz/internal/calendar"
	"github.com/jholhewres/goquartz/internal/events"
	"github.com/jholhewres/goquartz/internal/jobfactory"
	"github.com/jholhewres/goquartz/internal/store"
	"github.com/jholhewres/goquartz/internal/trigger"
	"github.com/jholhewres/goquartz/internal/workerpool"
)

// Scheduler is the engine: a single scheduling goroutine that drives the
// job store's acquire/fire/complete protocol over a bounded worker pool.
type Scheduler struct {
	cfg Config

	store    *store.Store
	bus      *events.Bus
	pool     *workerpool.Pool
	factory  *jobfactory.Factory
	registry *jobfactory.Registry

	halted atomic.Bool
	paused atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	loopWg sync.WaitGroup

	executingMu sync.Mutex
	executing   map[trigger.TriggerKey]store.TriggerFiredBundle
}

// New constructs a Scheduler around registry for job instantiation. The
// scheduler does not start its loop until Start is called.
func New(registry *jobfactory.Registry, opts ...Option) *Scheduler {
	cfg := NewConfig(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:       cfg,
		store:     store.New(cfg.MisfireThreshold),
		bus:       events.NewBus(cfg.Logger),
		pool:      workerpool.New(cfg.WorkerPoolSize, cfg.Logger),
		factory:   jobfactory.NewFactory(registry),
		registry:  registry,
		ctx:       ctx,
		cancel:    cancel,
		executing: make(map[trigger.TriggerKey]store.TriggerFiredBundle),
	}
}

// InstanceName returns the scheduler's configured logical name.
func (s *Scheduler) InstanceName() string { return s.cfg.InstanceName }

// InstanceID returns the scheduler's instance identifier.
func (s *Scheduler) InstanceID() string { return s.cfg.InstanceID }

// GetContext returns the scheduler's lifetime context, cancelled on
// Shutdown — suitable for passing to jobs that want to observe scheduler
// shutdown cooperatively.
func (s *Scheduler) GetContext() context.Context { return s.ctx }

// Start begins the acquire/fire loop.
func (s *Scheduler) Start() {
	if s.halted.Load() {
		return
	}
	s.loopWg.Add(1)
	go s.run()
	s.bus.FireSchedulerStarted()
}

// Standby pauses the loop without stopping it; acquired work in flight
// continues to completion, but no new triggers are acquired.
func (s *Scheduler) Standby() {
	s.paused.Store(true)
	s.bus.FireSchedulerPaused()
}

// Resume takes the scheduler out of standby.
func (s *Scheduler) Resume() {
	s.paused.Store(false)
	s.bus.FireSchedulerResumed()
}

// Shutdown halts the loop. If wait is true, it blocks until in-flight jobs
// complete; otherwise the scheduler's context is cancelled so cooperative
// jobs can unwind early.
func (s *Scheduler) Shutdown(wait bool) {
	s.bus.FireSchedulerShuttingDown()
	s.halted.Store(true)
	s.loopWg.Wait()
	s.pool.Shutdown(wait)
	s.cancel()
	s.bus.FireSchedulerShutdown()
}

func (s *Scheduler) run() {
	defer s.loopWg.Done()
	signal := s.store.Signal()

	for !s.halted.Load() {
		if s.paused.Load() {
			select {
			case <-signal:
			case <-time.After(time.Second):
			case <-s.ctx.Done():
				return
			}
			continue
		}

		now := time.Now()
		available := s.pool.BlockForAvailableThreads()
		maxCount := available
		if maxCount > s.cfg.BatchSize {
			maxCount = s.cfg.BatchSize
		}

		acquired := s.store.AcquireNextTriggers(now, now.Add(s.cfg.IdleWaitTime), maxCount, s.cfg.BatchTimeWindow)

		misfired, finalized := s.store.DrainMisfireEvents()
		for _, t := range misfired {
			s.bus.FireTriggerMisfired(t)
		}
		for _, t := range finalized {
			s.bus.FireTriggerFinalized(t)
		}

		if len(acquired) == 0 {
			select {
			case <-signal:
			case <-time.After(s.cfg.IdleWaitTime):
			case <-s.ctx.Done():
				return
			}
			continue
		}

		for _, t := range acquired {
			s.waitAndFire(t, signal)
		}
	}
}

// waitAndFire blocks until t's fire time (or a schedule change releases
// it back), then runs the fire/dispatch sequence.
func (s *Scheduler) waitAndFire(t trigger.Trigger, signal <-chan struct{}) {
	ft, ok := t.NextFireTime()
	if !ok {
		s.store.ReleaseAcquiredTrigger(t.Key())
		return
	}

	for {
		now := time.Now()
		if !now.Before(ft) {
			break
		}
		wait := ft.Sub(now)
		if wait > 50*time.Millisecond {
			wait = 50 * time.Millisecond
		}
		select {
		case <-signal:
			s.store.ReleaseAcquiredTrigger(t.Key())
			return
		case <-time.After(wait):
		case <-s.ctx.Done():
			s.store.ReleaseAcquiredTrigger(t.Key())
			return
		}
	}

	bundles := s.store.TriggersFired([]trigger.TriggerKey{t.Key()}, time.Now())
	for _, b := range bundles {
		s.dispatch(b)
	}
}

// dispatch vets, instantiates, and submits a fired bundle to the worker
// pool.
func (s *Scheduler) dispatch(b store.TriggerFiredBundle) {
	if s.bus.VetoJobExecution(b) {
		s.bus.FireJobExecutionVetoed(b)
		s.store.TriggeredJobComplete(b.Trigger.Key(), b.JobDetail.Key, store.NoOp, nil)
		return
	}

	s.bus.FireTriggerFired(b)
	s.trackExecuting(b, true)

	job, err := s.factory.NewJob(b)
	if err != nil {
		s.bus.FireSchedulerError(fmt.Sprintf("job factory failed for %s", b.JobDetail.Key), err, time.Now())
		s.trackExecuting(b, false)
		s.store.TriggeredJobComplete(b.Trigger.Key(), b.JobDetail.Key, store.SetTriggerError, nil)
		return
	}

	s.pool.Submit(func(ctx context.Context) {
		defer s.trackExecuting(b, false)
		for {
			jec := jobfactory.NewJobExecutionContext(ctx, b)
			data, jobErr := job.Execute(jec)

			instruction := store.NoOp
			if jobErr != nil {
				instruction = store.SetTriggerError
			}
			if override, ok := jec.CompletionInstruction(); ok {
				instruction = override
			}
			s.bus.FireJobWasExecuted(b, jobErr)

			// A job that asks to be re-executed runs again on the same
			// worker without completing the trigger, until it picks a
			// different instruction or the scheduler shuts down.
			if instruction == store.ReExecuteJob && ctx.Err() == nil {
				continue
			}

			s.bus.FireTriggerComplete(b, instruction)
			s.store.TriggeredJobComplete(b.Trigger.Key(), b.JobDetail.Key, instruction, data)

			if !b.HasNextFire {
				s.bus.FireTriggerFinalized(b.Trigger)
			}
			return
		}
	})
}

func (s *Scheduler) trackExecuting(b store.TriggerFiredBundle, executing bool) {
	s.executingMu.Lock()
	defer s.executingMu.Unlock()
	if executing {
		s.executing[b.Trigger.Key()] = b
	} else {
		delete(s.executing, b.Trigger.Key())
	}
}

// GetCurrentlyExecutingJobs returns a snapshot of bundles currently
// in-flight on the worker pool.
func (s *Scheduler) GetCurrentlyExecutingJobs() []store.TriggerFiredBundle {
	s.executingMu.Lock()
	defer s.executingMu.Unlock()
	out := make([]store.TriggerFiredBundle, 0, len(s.executing))
	for _, b := range s.executing {
		out = append(out, b)
	}
	return out
}

// AddJobListener registers l with the scheduler's event bus.
func (s *Scheduler) AddJobListener(l events.JobListener) { s.bus.AddJobListener(l) }

// AddTriggerListener registers l with the scheduler's event bus.
func (s *Scheduler) AddTriggerListener(l events.TriggerListener) { s.bus.AddTriggerListener(l) }

// AddSchedulerListener registers l with the scheduler's event bus.
func (s *Scheduler) AddSchedulerListener(l events.SchedulerListener) { s.bus.AddSchedulerListener(l) }

// RemoveJobListener deregisters the job listener named name.
func (s *Scheduler) RemoveJobListener(name string) { s.bus.RemoveJobListener(name) }

// RemoveTriggerListener deregisters the trigger listener named name.
func (s *Scheduler) RemoveTriggerListener(name string) { s.bus.RemoveTriggerListener(name) }

// RegisterJobType registers a constructor for typeID with the factory's
// registry.
func (s *Scheduler) RegisterJobType(typeID string, ctor func() jobfactory.Job) {
	s.registry.Register(typeID, ctor)
}

// StoreCalendar inserts or replaces a named calendar.
func (s *Scheduler) StoreCalendar(name string, cal calendar.Calendar, replace, updateTriggers bool) error {
	return s.store.StoreCalendar(name, cal, replace, updateTriggers)
}

// RemoveCalendar deletes a named calendar.
func (s *Scheduler) RemoveCalendar(name string) (bool, error) { return s.store.RemoveCalendar(name) }

// GetCalendarNames returns the names of every stored calendar.
func (s *Scheduler) GetCalendarNames() []string { return s.store.GetCalendarNames() }
