// Package config loads cmd/goquartzd's process configuration: a YAML file
// with ${VAR} environment expansion, backed by godotenv for local .env
// developer setups.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PersistBackend names which Snapshotter implementation to wire in.
type PersistBackend string

const (
	PersistNone     PersistBackend = ""
	PersistSQLite   PersistBackend = "sqlite"
	PersistPostgres PersistBackend = "postgres"
)

// Config is the top-level shape of goquartzd's config.yaml.
type Config struct {
	InstanceName string `yaml:"instance_name"`

	WorkerPoolSize   int           `yaml:"worker_pool_size"`
	MisfireThreshold time.Duration `yaml:"misfire_threshold"`
	IdleWaitTime     time.Duration `yaml:"idle_wait_time"`
	BatchSize        int           `yaml:"batch_size"`
	BatchTimeWindow  time.Duration `yaml:"batch_time_window"`

	LogLevel string `yaml:"log_level"`

	Persist  PersistConfig  `yaml:"persist"`
	Discord  DiscordConfig  `yaml:"discord"`
	BundlesDir string       `yaml:"bundles_dir"`
}

// PersistConfig selects and configures the optional persistence adapter.
type PersistConfig struct {
	Backend PersistBackend `yaml:"backend"`

	SQLitePath string `yaml:"sqlite_path"`

	PGHost     string `yaml:"pg_host"`
	PGPort     int    `yaml:"pg_port"`
	PGDatabase string `yaml:"pg_database"`
	PGUser     string `yaml:"pg_user"`
	PGPassword string `yaml:"pg_password"`
	PGSSLMode  string `yaml:"pg_ssl_mode"`
}

// DiscordConfig configures the optional Discord notification sink.
type DiscordConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// Default returns the zero-value config filled in with the same worker
// pool, misfire, idle-wait and batching defaults scheduler.NewConfig
// applies; the instance name defaults to "goquartzd".
func Default() Config {
	return Config{
		InstanceName:     "goquartzd",
		WorkerPoolSize:   10,
		MisfireThreshold: 5 * time.Second,
		IdleWaitTime:     time.Second,
		BatchSize:        1,
		LogLevel:         "info",
		Persist: PersistConfig{
			SQLitePath: "./goquartz.db",
			PGHost:     "localhost",
			PGPort:     5432,
			PGSSLMode:  "disable",
		},
	}
}

// envVarPattern matches ${VAR_NAME} references in config values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads .env (if present, without overwriting the process
// environment), then parses path, expanding ${VAR} references in the raw
// YAML text before unmarshalling over Default().
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(raw), func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}

	resolveSecrets(&cfg)
	return cfg, nil
}

// resolveSecrets fills in empty secret fields from well-known environment
// variables: Discord's bot token and the Postgres password.
func resolveSecrets(cfg *Config) {
	if cfg.Discord.Token == "" {
		if tok := os.Getenv("GOQUARTZ_DISCORD_TOKEN"); tok != "" {
			cfg.Discord.Token = tok
		}
	}
	if cfg.Persist.PGPassword == "" {
		if pw := os.Getenv("GOQUARTZ_PG_PASSWORD"); pw != "" {
			cfg.Persist.PGPassword = pw
		}
	}
}
