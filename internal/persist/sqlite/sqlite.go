// Package sqlite implements persist.Snapshotter over a local SQLite file,
// storing the scheduler's state in a five-table schema.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jholhewres/goquartz/internal/persist"
)

// Config holds SQLite-specific configuration for a persist.Snapshotter.
type Config struct {
	Path        string
	JournalMode string
	BusyTimeout int
}

// Backend wraps a SQLite connection as a persist.Snapshotter.
type Backend struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at config.Path and migrates the
// scheduler schema into it.
func Open(config Config) (*Backend, error) {
	if config.Path == "" {
		config.Path = "./data/goquartz.db"
	}
	if config.JournalMode == "" {
		config.JournalMode = "WAL"
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5000
	}

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create database directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d&_foreign_keys=ON", config.Path, config.JournalMode, config.BusyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database %q: %w", config.Path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Backend{db: db}, nil
}

// Close closes the underlying database connection.
func (b *Backend) Close() error { return b.db.Close() }

// Ping checks database connectivity.
func (b *Backend) Ping() error { return b.db.Ping() }

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    name TEXT NOT NULL,
    job_group TEXT NOT NULL,
    type_id TEXT NOT NULL,
    description TEXT DEFAULT '',
    job_data_json BLOB,
    durable INTEGER DEFAULT 0,
    concurrent_disallowed INTEGER DEFAULT 0,
    persist_job_data INTEGER DEFAULT 0,
    tags_json BLOB,
    PRIMARY KEY (job_group, name)
);

CREATE TABLE IF NOT EXISTS triggers (
    name TEXT NOT NULL,
    trigger_group TEXT NOT NULL,
    job_name TEXT NOT NULL,
    job_group TEXT NOT NULL,
    kind TEXT NOT NULL,
    description TEXT DEFAULT '',
    calendar_name TEXT DEFAULT '',
    priority INTEGER DEFAULT 5,
    start_time TEXT NOT NULL,
    end_time TEXT,
    misfire_instruction INTEGER DEFAULT 0,
    job_data_json BLOB,
    config_json BLOB,
    PRIMARY KEY (trigger_group, name)
);

CREATE TABLE IF NOT EXISTS calendars (
    name TEXT PRIMARY KEY,
    description TEXT DEFAULT '',
    kind TEXT NOT NULL,
    config_json BLOB
);

CREATE TABLE IF NOT EXISTS paused_groups (
    kind TEXT NOT NULL,
    group_name TEXT NOT NULL,
    PRIMARY KEY (kind, group_name)
);

CREATE TABLE IF NOT EXISTS blocked_jobs (
    name TEXT NOT NULL,
    job_group TEXT NOT NULL,
    PRIMARY KEY (job_group, name)
);
`

// SaveSnapshot replaces the database's entire persisted state with snap,
// inside a single transaction.
func (b *Backend) SaveSnapshot(ctx context.Context, snap persist.Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM jobs", "DELETE FROM triggers", "DELETE FROM calendars", "DELETE FROM paused_groups", "DELETE FROM blocked_jobs"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: clear tables: %w", err)
		}
	}

	for _, j := range snap.Jobs {
		tagsJSON, err := persist.MarshalTags(j.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO jobs
			(name, job_group, type_id, description, job_data_json, durable, concurrent_disallowed, persist_job_data, tags_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.Name, j.Group, j.TypeID, j.Description, j.JobDataJSON,
			boolToInt(j.Durable), boolToInt(j.ConcurrentExecutionDisallowed), boolToInt(j.PersistJobDataAfterExecution), tagsJSON); err != nil {
			return fmt.Errorf("sqlite: insert job %s.%s: %w", j.Group, j.Name, err)
		}
	}

	for _, t := range snap.Triggers {
		var endTime any
		if t.HasEnd {
			endTime = persist.FormatTime(t.EndTime)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO triggers
			(name, trigger_group, job_name, job_group, kind, description, calendar_name, priority, start_time, end_time, misfire_instruction, job_data_json, config_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Name, t.Group, t.JobName, t.JobGroup, t.Kind, t.Description, t.CalendarName, t.Priority,
			persist.FormatTime(t.StartTime), endTime, t.MisfireInstruction, t.JobDataJSON, t.ConfigJSON); err != nil {
			return fmt.Errorf("sqlite: insert trigger %s.%s: %w", t.Group, t.Name, err)
		}
	}

	for _, c := range snap.Calendars {
		if _, err := tx.ExecContext(ctx, `INSERT INTO calendars (name, description, kind, config_json) VALUES (?, ?, ?, ?)`,
			c.Name, c.Description, c.Kind, c.ConfigJSON); err != nil {
			return fmt.Errorf("sqlite: insert calendar %s: %w", c.Name, err)
		}
	}

	for _, g := range snap.PausedJobGroups {
		if _, err := tx.ExecContext(ctx, `INSERT INTO paused_groups (kind, group_name) VALUES ('job', ?)`, g); err != nil {
			return fmt.Errorf("sqlite: insert paused job group %s: %w", g, err)
		}
	}
	for _, g := range snap.PausedTriggerGroups {
		if _, err := tx.ExecContext(ctx, `INSERT INTO paused_groups (kind, group_name) VALUES ('trigger', ?)`, g); err != nil {
			return fmt.Errorf("sqlite: insert paused trigger group %s: %w", g, err)
		}
	}
	for _, bj := range snap.BlockedJobs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO blocked_jobs (name, job_group) VALUES (?, ?)`, bj.Name, bj.Group); err != nil {
			return fmt.Errorf("sqlite: insert blocked job %s.%s: %w", bj.Group, bj.Name, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads back the entire persisted state.
func (b *Backend) LoadSnapshot(ctx context.Context) (persist.Snapshot, error) {
	var snap persist.Snapshot

	jobRows, err := b.db.QueryContext(ctx, `SELECT name, job_group, type_id, description, job_data_json, durable, concurrent_disallowed, persist_job_data, tags_json FROM jobs`)
	if err != nil {
		return snap, fmt.Errorf("sqlite: query jobs: %w", err)
	}
	defer jobRows.Close()
	for jobRows.Next() {
		var j persist.JobRecord
		var durable, concurrent, persistData int
		var tagsJSON []byte
		if err := jobRows.Scan(&j.Name, &j.Group, &j.TypeID, &j.Description, &j.JobDataJSON, &durable, &concurrent, &persistData, &tagsJSON); err != nil {
			return snap, fmt.Errorf("sqlite: scan job row: %w", err)
		}
		j.Durable, j.ConcurrentExecutionDisallowed, j.PersistJobDataAfterExecution = durable != 0, concurrent != 0, persistData != 0
		j.Tags, err = persist.UnmarshalTags(tagsJSON)
		if err != nil {
			return snap, err
		}
		snap.Jobs = append(snap.Jobs, j)
	}
	if err := jobRows.Err(); err != nil {
		return snap, fmt.Errorf("sqlite: iterate jobs: %w", err)
	}

	trigRows, err := b.db.QueryContext(ctx, `SELECT name, trigger_group, job_name, job_group, kind, description, calendar_name, priority, start_time, end_time, misfire_instruction, job_data_json, config_json FROM triggers`)
	if err != nil {
		return snap, fmt.Errorf("sqlite: query triggers: %w", err)
	}
	defer trigRows.Close()
	for trigRows.Next() {
		var t persist.TriggerRecord
		var startTime string
		var endTime sql.NullString
		if err := trigRows.Scan(&t.Name, &t.Group, &t.JobName, &t.JobGroup, &t.Kind, &t.Description, &t.CalendarName, &t.Priority, &startTime, &endTime, &t.MisfireInstruction, &t.JobDataJSON, &t.ConfigJSON); err != nil {
			return snap, fmt.Errorf("sqlite: scan trigger row: %w", err)
		}
		if t.StartTime, err = persist.ParseTime(startTime); err != nil {
			return snap, fmt.Errorf("sqlite: parse trigger start time for %s.%s: %w", t.Group, t.Name, err)
		}
		if endTime.Valid {
			if t.EndTime, err = persist.ParseTime(endTime.String); err != nil {
				return snap, fmt.Errorf("sqlite: parse trigger end time for %s.%s: %w", t.Group, t.Name, err)
			}
			t.HasEnd = true
		}
		snap.Triggers = append(snap.Triggers, t)
	}
	if err := trigRows.Err(); err != nil {
		return snap, fmt.Errorf("sqlite: iterate triggers: %w", err)
	}

	calRows, err := b.db.QueryContext(ctx, `SELECT name, description, kind, config_json FROM calendars`)
	if err != nil {
		return snap, fmt.Errorf("sqlite: query calendars: %w", err)
	}
	defer calRows.Close()
	for calRows.Next() {
		var c persist.CalendarRecord
		if err := calRows.Scan(&c.Name, &c.Description, &c.Kind, &c.ConfigJSON); err != nil {
			return snap, fmt.Errorf("sqlite: scan calendar row: %w", err)
		}
		snap.Calendars = append(snap.Calendars, c)
	}
	if err := calRows.Err(); err != nil {
		return snap, fmt.Errorf("sqlite: iterate calendars: %w", err)
	}

	groupRows, err := b.db.QueryContext(ctx, `SELECT kind, group_name FROM paused_groups`)
	if err != nil {
		return snap, fmt.Errorf("sqlite: query paused groups: %w", err)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var kind, name string
		if err := groupRows.Scan(&kind, &name); err != nil {
			return snap, fmt.Errorf("sqlite: scan paused group row: %w", err)
		}
		if kind == "job" {
			snap.PausedJobGroups = append(snap.PausedJobGroups, name)
		} else {
			snap.PausedTriggerGroups = append(snap.PausedTriggerGroups, name)
		}
	}
	if err := groupRows.Err(); err != nil {
		return snap, fmt.Errorf("sqlite: iterate paused groups: %w", err)
	}

	blockedRows, err := b.db.QueryContext(ctx, `SELECT name, job_group FROM blocked_jobs`)
	if err != nil {
		return snap, fmt.Errorf("sqlite: query blocked jobs: %w", err)
	}
	defer blockedRows.Close()
	for blockedRows.Next() {
		var bj persist.BlockedJob
		if err := blockedRows.Scan(&bj.Name, &bj.Group); err != nil {
			return snap, fmt.Errorf("sqlite: scan blocked job row: %w", err)
		}
		snap.BlockedJobs = append(snap.BlockedJobs, bj)
	}
	if err := blockedRows.Err(); err != nil {
		return snap, fmt.Errorf("sqlite: iterate blocked jobs: %w", err)
	}

	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
