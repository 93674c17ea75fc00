package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jholhewres/goquartz/internal/store"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// Bus fans out lifecycle events to registered listeners synchronously,
// recovering from a panicking listener so one bad callback cannot corrupt
// store state or block the others.
type Bus struct {
	logger *slog.Logger

	mu               sync.RWMutex
	jobListeners     []JobListener
	triggerListeners []TriggerListener
	schedListeners   []SchedulerListener
}

// NewBus returns an empty Bus. logger defaults to slog.Default() when nil.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

func (b *Bus) AddJobListener(l JobListener)         { b.mu.Lock(); defer b.mu.Unlock(); b.jobListeners = append(b.jobListeners, l) }
func (b *Bus) AddTriggerListener(l TriggerListener) { b.mu.Lock(); defer b.mu.Unlock(); b.triggerListeners = append(b.triggerListeners, l) }
func (b *Bus) AddSchedulerListener(l SchedulerListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.schedListeners = append(b.schedListeners, l)
}

func (b *Bus) RemoveJobListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobListeners = filterJob(b.jobListeners, name)
}

func (b *Bus) RemoveTriggerListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggerListeners = filterTrigger(b.triggerListeners, name)
}

func filterJob(ls []JobListener, name string) []JobListener {
	out := ls[:0]
	for _, l := range ls {
		if l.Name() != name {
			out = append(out, l)
		}
	}
	return out
}

func filterTrigger(ls []TriggerListener, name string) []TriggerListener {
	out := ls[:0]
	for _, l := range ls {
		if l.Name() != name {
			out = append(out, l)
		}
	}
	return out
}

func (b *Bus) safeCall(who string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("listener panicked", "listener", who, "panic", r)
		}
	}()
	fn()
}

// VetoJobExecution asks every trigger listener whether to veto bundle's
// execution; the first Veto wins.
func (b *Bus) VetoJobExecution(bundle store.TriggerFiredBundle) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.triggerListeners {
		decision := Proceed
		b.safeCall(l.Name(), func() { decision = l.VetoJobExecution(bundle) })
		if decision == Veto {
			return true
		}
	}
	return false
}

func (b *Bus) FireTriggerFired(bundle store.TriggerFiredBundle) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.triggerListeners {
		l := l
		b.safeCall(l.Name(), func() { l.TriggerFired(bundle) })
	}
	for _, l := range b.jobListeners {
		l := l
		b.safeCall(l.Name(), func() { l.JobToBeExecuted(bundle) })
	}
}

func (b *Bus) FireJobExecutionVetoed(bundle store.TriggerFiredBundle) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.jobListeners {
		l := l
		b.safeCall(l.Name(), func() { l.JobExecutionVetoed(bundle) })
	}
}

func (b *Bus) FireJobWasExecuted(bundle store.TriggerFiredBundle, jobErr error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.jobListeners {
		l := l
		b.safeCall(l.Name(), func() { l.JobWasExecuted(bundle, jobErr) })
	}
}

func (b *Bus) FireTriggerComplete(bundle store.TriggerFiredBundle, instruction store.CompletionInstruction) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.triggerListeners {
		l := l
		b.safeCall(l.Name(), func() { l.TriggerComplete(bundle, instruction) })
	}
}

func (b *Bus) FireTriggerMisfired(t trigger.Trigger) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.triggerListeners {
		l := l
		b.safeCall(l.Name(), func() { l.TriggerMisfired(t) })
	}
}

func (b *Bus) FireTriggerFinalized(t trigger.Trigger) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.schedListeners {
		l := l
		b.safeCall("scheduler", func() { l.TriggerFinalized(t) })
	}
}

func (b *Bus) fireSched(fn func(SchedulerListener)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.schedListeners {
		l := l
		b.safeCall("scheduler", func() { fn(l) })
	}
}

func (b *Bus) FireSchedulerStarted()       { b.fireSched(func(l SchedulerListener) { l.SchedulerStarted() }) }
func (b *Bus) FireSchedulerPaused()        { b.fireSched(func(l SchedulerListener) { l.SchedulerPaused() }) }
func (b *Bus) FireSchedulerResumed()       { b.fireSched(func(l SchedulerListener) { l.SchedulerResumed() }) }
func (b *Bus) FireSchedulerShuttingDown()  { b.fireSched(func(l SchedulerListener) { l.SchedulerShuttingDown() }) }
func (b *Bus) FireSchedulerShutdown()      { b.fireSched(func(l SchedulerListener) { l.SchedulerShutdown() }) }
func (b *Bus) FireSchedulingDataCleared()  { b.fireSched(func(l SchedulerListener) { l.SchedulingDataCleared() }) }

func (b *Bus) FireJobAdded(d trigger.JobDetail) {
	b.fireSched(func(l SchedulerListener) { l.JobAdded(d) })
}
func (b *Bus) FireJobDeleted(k trigger.JobKey) {
	b.fireSched(func(l SchedulerListener) { l.JobDeleted(k) })
}
func (b *Bus) FireJobPaused(k trigger.JobKey) {
	b.fireSched(func(l SchedulerListener) { l.JobPaused(k) })
}
func (b *Bus) FireJobResumed(k trigger.JobKey) {
	b.fireSched(func(l SchedulerListener) { l.JobResumed(k) })
}
func (b *Bus) FireTriggerPaused(k trigger.TriggerKey) {
	b.fireSched(func(l SchedulerListener) { l.TriggerPaused(k) })
}
func (b *Bus) FireTriggerResumed(k trigger.TriggerKey) {
	b.fireSched(func(l SchedulerListener) { l.TriggerResumed(k) })
}
func (b *Bus) FireSchedulerError(msg string, err error, at time.Time) {
	b.fireSched(func(l SchedulerListener) { l.SchedulerError(msg, err, at) })
}
