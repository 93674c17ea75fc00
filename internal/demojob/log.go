// Package demojob provides a minimal Job implementation for
// cmd/goquartzd's "log" job type, registered by default so bundles and the
// CLI wizard have something runnable out of the box without requiring a
// caller-supplied binary.
package demojob

import (
	"log/slog"

	"github.com/jholhewres/goquartz/internal/jobfactory"
	"github.com/jholhewres/goquartz/internal/trigger"
)

// Log is a Job that writes a message to a logger on every fire. Real job
// types are expected to be registered by the embedding application via
// scheduler.RegisterJobType; Log exists so `goquartzd job create` has a
// working default to wire a trigger to.
type Log struct {
	Logger  *slog.Logger
	Message string `job:"message"`
}

// Execute implements jobfactory.Job.
func (j *Log) Execute(jec *jobfactory.JobExecutionContext) (trigger.JobDataMap, error) {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	msg := j.Message
	if msg == "" {
		msg = "job fired"
	}
	logger.Info(msg, "job_type", "log")
	return nil, nil
}
