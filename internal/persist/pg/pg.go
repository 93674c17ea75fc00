// Package pg implements persist.Snapshotter over PostgreSQL via the pgx
// stdlib driver, storing the scheduler's state in a five-table schema.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jholhewres/goquartz/internal/persist"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Backend wraps a PostgreSQL connection pool as a persist.Snapshotter.
type Backend struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens a PostgreSQL connection pool and migrates the scheduler
// schema into it.
func Open(config Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 25
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = 30 * time.Minute
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database, config.User, config.Password, config.SSLMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pg: ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("pg: apply schema: %w", err)
	}

	logger.Info("pg: connected", "host", config.Host, "database", config.Database)
	return &Backend{db: db, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close() error { return b.db.Close() }

// Ping checks database connectivity.
func (b *Backend) Ping() error { return b.db.Ping() }

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    name TEXT NOT NULL,
    job_group TEXT NOT NULL,
    type_id TEXT NOT NULL,
    description TEXT DEFAULT '',
    job_data_json BYTEA,
    durable BOOLEAN DEFAULT FALSE,
    concurrent_disallowed BOOLEAN DEFAULT FALSE,
    persist_job_data BOOLEAN DEFAULT FALSE,
    tags_json BYTEA,
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
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ,
    misfire_instruction INTEGER DEFAULT 0,
    job_data_json BYTEA,
    config_json BYTEA,
    PRIMARY KEY (trigger_group, name)
);

CREATE TABLE IF NOT EXISTS calendars (
    name TEXT PRIMARY KEY,
    description TEXT DEFAULT '',
    kind TEXT NOT NULL,
    config_json BYTEA
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
		return fmt.Errorf("pg: begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM jobs", "DELETE FROM triggers", "DELETE FROM calendars", "DELETE FROM paused_groups", "DELETE FROM blocked_jobs"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pg: clear tables: %w", err)
		}
	}

	for _, j := range snap.Jobs {
		tagsJSON, err := persist.MarshalTags(j.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO jobs
			(name, job_group, type_id, description, job_data_json, durable, concurrent_disallowed, persist_job_data, tags_json)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			j.Name, j.Group, j.TypeID, j.Description, j.JobDataJSON,
			j.Durable, j.ConcurrentExecutionDisallowed, j.PersistJobDataAfterExecution, tagsJSON); err != nil {
			return fmt.Errorf("pg: insert job %s.%s: %w", j.Group, j.Name, err)
		}
	}

	for _, t := range snap.Triggers {
		var endTime any
		if t.HasEnd {
			endTime = t.EndTime
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO triggers
			(name, trigger_group, job_name, job_group, kind, description, calendar_name, priority, start_time, end_time, misfire_instruction, job_data_json, config_json)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			t.Name, t.Group, t.JobName, t.JobGroup, t.Kind, t.Description, t.CalendarName, t.Priority,
			t.StartTime, endTime, t.MisfireInstruction, t.JobDataJSON, t.ConfigJSON); err != nil {
			return fmt.Errorf("pg: insert trigger %s.%s: %w", t.Group, t.Name, err)
		}
	}

	for _, c := range snap.Calendars {
		if _, err := tx.ExecContext(ctx, `INSERT INTO calendars (name, description, kind, config_json) VALUES ($1, $2, $3, $4)`,
			c.Name, c.Description, c.Kind, c.ConfigJSON); err != nil {
			return fmt.Errorf("pg: insert calendar %s: %w", c.Name, err)
		}
	}

	for _, g := range snap.PausedJobGroups {
		if _, err := tx.ExecContext(ctx, `INSERT INTO paused_groups (kind, group_name) VALUES ('job', $1)`, g); err != nil {
			return fmt.Errorf("pg: insert paused job group %s: %w", g, err)
		}
	}
	for _, g := range snap.PausedTriggerGroups {
		if _, err := tx.ExecContext(ctx, `INSERT INTO paused_groups (kind, group_name) VALUES ('trigger', $1)`, g); err != nil {
			return fmt.Errorf("pg: insert paused trigger group %s: %w", g, err)
		}
	}
	for _, bj := range snap.BlockedJobs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO blocked_jobs (name, job_group) VALUES ($1, $2)`, bj.Name, bj.Group); err != nil {
			return fmt.Errorf("pg: insert blocked job %s.%s: %w", bj.Group, bj.Name, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads back the entire persisted state.
func (b *Backend) LoadSnapshot(ctx context.Context) (persist.Snapshot, error) {
	var snap persist.Snapshot

	jobRows, err := b.db.QueryContext(ctx, `SELECT name, job_group, type_id, description, job_data_json, durable, concurrent_disallowed, persist_job_data, tags_json FROM jobs`)
	if err != nil {
		return snap, fmt.Errorf("pg: query jobs: %w", err)
	}
	defer jobRows.Close()
	for jobRows.Next() {
		var j persist.JobRecord
		var tagsJSON []byte
		if err := jobRows.Scan(&j.Name, &j.Group, &j.TypeID, &j.Description, &j.JobDataJSON,
			&j.Durable, &j.ConcurrentExecutionDisallowed, &j.PersistJobDataAfterExecution, &tagsJSON); err != nil {
			return snap, fmt.Errorf("pg: scan job row: %w", err)
		}
		if j.Tags, err = persist.UnmarshalTags(tagsJSON); err != nil {
			return snap, err
		}
		snap.Jobs = append(snap.Jobs, j)
	}
	if err := jobRows.Err(); err != nil {
		return snap, fmt.Errorf("pg: iterate jobs: %w", err)
	}

	trigRows, err := b.db.QueryContext(ctx, `SELECT name, trigger_group, job_name, job_group, kind, description, calendar_name, priority, start_time, end_time, misfire_instruction, job_data_json, config_json FROM triggers`)
	if err != nil {
		return snap, fmt.Errorf("pg: query triggers: %w", err)
	}
	defer trigRows.Close()
	for trigRows.Next() {
		var t persist.TriggerRecord
		var endTime sql.NullTime
		if err := trigRows.Scan(&t.Name, &t.Group, &t.JobName, &t.JobGroup, &t.Kind, &t.Description, &t.CalendarName, &t.Priority,
			&t.StartTime, &endTime, &t.MisfireInstruction, &t.JobDataJSON, &t.ConfigJSON); err != nil {
			return snap, fmt.Errorf("pg: scan trigger row: %w", err)
		}
		if endTime.Valid {
			t.EndTime, t.HasEnd = endTime.Time, true
		}
		snap.Triggers = append(snap.Triggers, t)
	}
	if err := trigRows.Err(); err != nil {
		return snap, fmt.Errorf("pg: iterate triggers: %w", err)
	}

	calRows, err := b.db.QueryContext(ctx, `SELECT name, description, kind, config_json FROM calendars`)
	if err != nil {
		return snap, fmt.Errorf("pg: query calendars: %w", err)
	}
	defer calRows.Close()
	for calRows.Next() {
		var c persist.CalendarRecord
		if err := calRows.Scan(&c.Name, &c.Description, &c.Kind, &c.ConfigJSON); err != nil {
			return snap, fmt.Errorf("pg: scan calendar row: %w", err)
		}
		snap.Calendars = append(snap.Calendars, c)
	}
	if err := calRows.Err(); err != nil {
		return snap, fmt.Errorf("pg: iterate calendars: %w", err)
	}

	groupRows, err := b.db.QueryContext(ctx, `SELECT kind, group_name FROM paused_groups`)
	if err != nil {
		return snap, fmt.Errorf("pg: query paused groups: %w", err)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var kind, name string
		if err := groupRows.Scan(&kind, &name); err != nil {
			return snap, fmt.Errorf("pg: scan paused group row: %w", err)
		}
		if kind == "job" {
			snap.PausedJobGroups = append(snap.PausedJobGroups, name)
		} else {
			snap.PausedTriggerGroups = append(snap.PausedTriggerGroups, name)
		}
	}
	if err := groupRows.Err(); err != nil {
		return snap, fmt.Errorf("pg: iterate paused groups: %w", err)
	}

	blockedRows, err := b.db.QueryContext(ctx, `SELECT name, job_group FROM blocked_jobs`)
	if err != nil {
		return snap, fmt.Errorf("pg: query blocked jobs: %w", err)
	}
	defer blockedRows.Close()
	for blockedRows.Next() {
		var bj persist.BlockedJob
		if err := blockedRows.Scan(&bj.Name, &bj.Group); err != nil {
			return snap, fmt.Errorf("pg: scan blocked job row: %w", err)
		}
		snap.BlockedJobs = append(snap.BlockedJobs, bj)
	}
	if err := blockedRows.Err(); err != nil {
		return snap, fmt.Errorf("pg: iterate blocked jobs: %w", err)
	}

	return snap, nil
}
