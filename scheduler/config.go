package scheduler

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Config holds the construction-time knobs for a Scheduler.
type Config struct {
	InstanceName string
	InstanceID   string

	WorkerPoolSize    int
	MisfireThreshold  time.Duration
	IdleWaitTime      time.Duration
	BatchSize         int
	BatchTimeWindow   time.Duration

	Logger *slog.Logger
}

// Option customizes a Config built by NewConfig.
type Option func(*Config)

// WithInstanceName sets the scheduler's logical name.
func WithInstanceName(name string) Option { return func(c *Config) { c.InstanceName = name } }

// WithInstanceID sets the scheduler's instance id directly, bypassing
// auto-generation.
func WithInstanceID(id string) Option { return func(c *Config) { c.InstanceID = id } }

// WithWorkerPoolSize sets the number of worker goroutines.
func WithWorkerPoolSize(n int) Option { return func(c *Config) { c.WorkerPoolSize = n } }

// WithMisfireThreshold sets how far behind nextFireTime must fall before a
// trigger is considered misfired.
func WithMisfireThreshold(d time.Duration) Option { return func(c *Config) { c.MisfireThreshold = d } }

// WithIdleWaitTime sets how long the loop waits when no trigger is due.
func WithIdleWaitTime(d time.Duration) Option { return func(c *Config) { c.IdleWaitTime = d } }

// WithBatchSize caps how many triggers a single acquire call returns.
func WithBatchSize(n int) Option { return func(c *Config) { c.BatchSize = n } }

// WithBatchTimeWindow sets how far past the first acquired trigger's fire
// time the acquire window extends to batch nearby triggers together.
func WithBatchTimeWindow(d time.Duration) Option { return func(c *Config) { c.BatchTimeWindow = d } }

// WithLogger sets the scheduler's logger, defaulting to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// NewConfig builds a Config: when no option sets the instance id, it is
// read from GOQUARTZ_INSTANCE_ID, else generated from hostname + start
// time; plus sane worker pool / batching defaults.
func NewConfig(opts ...Option) Config {
	c := Config{
		InstanceName:     "goquartz",
		WorkerPoolSize:   10,
		MisfireThreshold: 5 * time.Second,
		IdleWaitTime:     time.Second,
		BatchSize:        1,
		BatchTimeWindow:  0,
		Logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.InstanceID == "" {
		c.InstanceID = os.Getenv("GOQUARTZ_INSTANCE_ID")
	}
	if c.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown-host"
		}
		c.InstanceID = fmt.Sprintf("%s-%d", host, time.Now().UnixNano())
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
