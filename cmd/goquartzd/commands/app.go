// Package commands implements goquartzd's cobra CLI: an operator front-end
// over an embedded Scheduler instance, one file per command group with a
// shared root command wiring them together.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jholhewres/goquartz/internal/config"
	"github.com/jholhewres/goquartz/internal/demojob"
	"github.com/jholhewres/goquartz/internal/jobfactory"
	"github.com/jholhewres/goquartz/internal/notify/discord"
	"github.com/jholhewres/goquartz/internal/persist"
	"github.com/jholhewres/goquartz/internal/persist/pg"
	"github.com/jholhewres/goquartz/internal/persist/sqlite"
	"github.com/jholhewres/goquartz/scheduler"
)

// App bundles the pieces every subcommand needs: the configured scheduler,
// its registry (so `job create` can list known types), and an optional
// snapshotter to cold-start from and save back to on exit.
type App struct {
	Cfg         config.Config
	Scheduler   *scheduler.Scheduler
	Registry    *jobfactory.Registry
	Logger      *slog.Logger
	Snapshotter persist.Snapshotter
}

// NewApp loads configuration from cfgPath, builds a Scheduler around it,
// and wires the optional persistence and Discord collaborators the config
// names. The scheduler's loop is not started; one-shot CLI commands only
// need the store, not the acquire/fire goroutine.
func NewApp(cfgPath string) (*App, error) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	registry := jobfactory.NewRegistry()
	registry.Register("log", func() jobfactory.Job { return &demojob.Log{Logger: logger} })

	sched := scheduler.New(registry,
		scheduler.WithInstanceName(cfg.InstanceName),
		scheduler.WithWorkerPoolSize(cfg.WorkerPoolSize),
		scheduler.WithMisfireThreshold(cfg.MisfireThreshold),
		scheduler.WithIdleWaitTime(cfg.IdleWaitTime),
		scheduler.WithBatchSize(cfg.BatchSize),
		scheduler.WithBatchTimeWindow(cfg.BatchTimeWindow),
		scheduler.WithLogger(logger),
	)

	app := &App{Cfg: cfg, Scheduler: sched, Registry: registry, Logger: logger}

	if err := app.wirePersistence(); err != nil {
		return nil, err
	}
	app.wireDiscord()

	return app, nil
}

func (a *App) wirePersistence() error {
	ctx := context.Background()
	switch a.Cfg.Persist.Backend {
	case config.PersistNone:
		return nil

	case config.PersistSQLite:
		backend, err := sqlite.Open(sqlite.Config{Path: a.Cfg.Persist.SQLitePath})
		if err != nil {
			return fmt.Errorf("open sqlite snapshotter: %w", err)
		}
		a.Snapshotter = backend

	case config.PersistPostgres:
		password := a.Cfg.Persist.PGPassword
		if password == "" && isInteractive() {
			prompted, err := readSecret(fmt.Sprintf("postgres password for %s@%s: ", a.Cfg.Persist.PGUser, a.Cfg.Persist.PGHost))
			if err != nil {
				return fmt.Errorf("read postgres password: %w", err)
			}
			password = prompted
		}
		backend, err := pg.Open(pg.Config{
			Host:     a.Cfg.Persist.PGHost,
			Port:     a.Cfg.Persist.PGPort,
			Database: a.Cfg.Persist.PGDatabase,
			User:     a.Cfg.Persist.PGUser,
			Password: password,
			SSLMode:  a.Cfg.Persist.PGSSLMode,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("open postgres snapshotter: %w", err)
		}
		a.Snapshotter = backend

	default:
		return fmt.Errorf("unknown persist backend %q", a.Cfg.Persist.Backend)
	}

	snap, err := a.Snapshotter.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := a.Scheduler.ImportSnapshot(snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

func (a *App) wireDiscord() {
	if !a.Cfg.Discord.Enabled {
		return
	}
	token := a.Cfg.Discord.Token
	if token == "" && isInteractive() {
		prompted, err := readSecret("discord bot token: ")
		if err != nil {
			a.Logger.Warn("discord notifier disabled", "error", err)
			return
		}
		token = prompted
	}
	notifier, err := discord.New(discord.Config{
		Token:     token,
		ChannelID: a.Cfg.Discord.ChannelID,
	}, a.Logger)
	if err != nil {
		a.Logger.Warn("discord notifier disabled", "error", err)
		return
	}
	a.Scheduler.AddSchedulerListener(notifier)
}

// SaveSnapshot persists the scheduler's current store state if a
// snapshotter is configured; it is a no-op otherwise.
func (a *App) SaveSnapshot() error {
	if a.Snapshotter == nil {
		return nil
	}
	snap, err := a.Scheduler.ExportSnapshot()
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	return a.Snapshotter.SaveSnapshot(context.Background(), snap)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
