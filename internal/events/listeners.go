// Package events implements the listener registries and synchronous
// fan-out bus for job, trigger, and scheduler lifecycle callbacks.
package events

import (
	"time"

	"github.com/jholhewres/goquartz/internal/store"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// VetoDecision lets a TriggerListener veto a job execution before it
// happens.
type VetoDecision int

const (
	Proceed VetoDecision = iota
	Veto
)

// JobListener observes job execution lifecycle events.
type JobListener interface {
	Name() string
	JobToBeExecuted(bundle store.TriggerFiredBundle)
	JobWasExecuted(bundle store.TriggerFiredBundle, jobErr error)
	JobExecutionVetoed(bundle store.TriggerFiredBundle)
}

// TriggerListener observes trigger lifecycle events and may veto an
// execution before it starts.
type TriggerListener interface {
	Name() string
	TriggerFired(bundle store.TriggerFiredBundle)
	VetoJobExecution(bundle store.TriggerFiredBundle) VetoDecision
	TriggerMisfired(t trigger.Trigger)
	TriggerComplete(bundle store.TriggerFiredBundle, instruction store.CompletionInstruction)
}

// SchedulerListener observes scheduler-wide lifecycle events.
type SchedulerListener interface {
	SchedulerStarted()
	SchedulerPaused()
	SchedulerResumed()
	SchedulerShuttingDown()
	SchedulerShutdown()
	JobAdded(detail trigger.JobDetail)
	JobDeleted(key trigger.JobKey)
	JobPaused(key trigger.JobKey)
	JobResumed(key trigger.JobKey)
	TriggerPaused(key trigger.TriggerKey)
	TriggerResumed(key trigger.TriggerKey)
	TriggerFinalized(t trigger.Trigger)
	SchedulingDataCleared()
	SchedulerError(msg string, err error, at time.Time)
}
