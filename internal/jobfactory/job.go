// Package jobfactory materializes a Job instance from a fired trigger
// bundle: a registered-constructor strategy, optionally layered with
// reflective property binding from the merged job data map.
package jobfactory

import (
	"context"

	"github.com/jholhewres/goquartz/internal/store"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// Job is executed once per trigger fire. A non-nil returned JobDataMap
// becomes the job's persisted data when the descriptor's
// PersistJobDataAfterExecution is set.
//
// Execute may call jec.SetCompletionInstruction to choose how the store
// treats its trigger once execution finishes (re-fire, delete the
// trigger, mark the job's whole trigger group complete or errored, and
// so on). If Execute never calls it, the scheduler falls back to NoOp
// on success and SetTriggerError on a returned error.
type Job interface {
	Execute(jec *JobExecutionContext) (trigger.JobDataMap, error)
}

// JobExecutionContext is handed to a job's Execute method. It embeds the
// scheduler's lifetime context (cancelled on Shutdown) and the fired
// bundle that produced this run, and is the job's only way to override
// the completion instruction the scheduler would otherwise pick.
type JobExecutionContext struct {
	context.Context

	// Bundle describes the trigger fire that produced this execution.
	Bundle store.TriggerFiredBundle

	instruction CompletionInstruction
	overridden  bool
}

// CompletionInstruction re-exports store.CompletionInstruction so job
// implementations don't need to import internal/store directly.
type CompletionInstruction = store.CompletionInstruction

// Re-exported completion instructions for job implementations.
const (
	NoOp                      = store.NoOp
	ReExecuteJob              = store.ReExecuteJob
	DeleteTrigger             = store.DeleteTrigger
	SetTriggerComplete        = store.SetTriggerComplete
	SetTriggerError           = store.SetTriggerError
	SetAllJobTriggersError    = store.SetAllJobTriggersError
	SetAllJobTriggersComplete = store.SetAllJobTriggersComplete
)

// NewJobExecutionContext wraps ctx with bundle for a single job run.
func NewJobExecutionContext(ctx context.Context, bundle store.TriggerFiredBundle) *JobExecutionContext {
	return &JobExecutionContext{Context: ctx, Bundle: bundle}
}

// SetCompletionInstruction overrides the instruction the scheduler
// applies to this trigger after Execute returns. The last call before
// Execute returns wins.
func (jec *JobExecutionContext) SetCompletionInstruction(instruction CompletionInstruction) {
	jec.instruction = instruction
	jec.overridden = true
}

// CompletionInstruction returns the instruction set via
// SetCompletionInstruction and whether Execute ever called it.
func (jec *JobExecutionContext) CompletionInstruction() (CompletionInstruction, bool) {
	return jec.instruction, jec.overridden
}
