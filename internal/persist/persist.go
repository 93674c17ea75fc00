// Package persist defines the scheduler's optional persistence seam: a
// point-in-time snapshot of job-store state that a backend can save and
// later reload to cold-start a scheduler with its prior schedule intact.
// It is not a replacement for the in-memory store's transactional
// acquire/fire/complete protocol, which always runs in memory.
package persist

import (
	"context"
	"time"
)

// JobRecord is the persisted form of a trigger.JobDetail.
type JobRecord struct {
	Name, Group string

	TypeID      string
	Description string
	JobDataJSON []byte

	Durable                       bool
	ConcurrentExecutionDisallowed bool
	PersistJobDataAfterExecution  bool

	Tags []string
}

// TriggerRecord is the persisted form of a trigger.Trigger. Kind selects
// which family-specific fields in ConfigJSON apply ("simple", "cron", or
// "calendarinterval").
type TriggerRecord struct {
	Name, Group string
	JobName, JobGroup string

	Kind string

	Description  string
	CalendarName string
	Priority     int

	StartTime time.Time
	EndTime   time.Time
	HasEnd    bool

	MisfireInstruction int

	JobDataJSON []byte
	ConfigJSON  []byte
}

// SimpleConfig is the ConfigJSON payload for a "simple" TriggerRecord.
type SimpleConfig struct {
	RepeatCount    int
	RepeatInterval time.Duration
	TimesTriggered int
}

// CronConfig is the ConfigJSON payload for a "cron" TriggerRecord.
type CronConfig struct {
	Expression string
	TimeZone   string
}

// CalendarIntervalConfig is the ConfigJSON payload for a
// "calendarinterval" TriggerRecord.
type CalendarIntervalConfig struct {
	Interval              int
	Unit                  int
	TimesTriggered        int
	TimeZone              string
	PreserveHourAcrossDst bool
}

// CalendarRecord is the persisted form of a named calendar. Kind selects
// the payload shape in ConfigJSON ("annual", "monthly", "weekly",
// "holiday", "cron", "base").
type CalendarRecord struct {
	Name        string
	Description string
	Kind        string
	ConfigJSON  []byte
}

// BlockedJob identifies a concurrent-execution-disallowed job that has an
// execution in flight, so its other triggers are held BLOCKED.
type BlockedJob struct {
	Name, Group string
}

// Snapshot is the full persisted state of a job store at a point in time.
type Snapshot struct {
	TakenAt time.Time

	Jobs      []JobRecord
	Triggers  []TriggerRecord
	Calendars []CalendarRecord

	PausedJobGroups     []string
	PausedTriggerGroups []string
	BlockedJobs         []BlockedJob
}

// Snapshotter saves and restores scheduler state. Implementations are
// expected to replace their entire persisted state on every SaveSnapshot
// call: the scheduler's in-memory store is the single source of truth
// while running, and persistence exists for cold-start recovery and
// external inspection, not incremental replication.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}
