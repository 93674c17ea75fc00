package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("GOQUARTZ_TEST_INSTANCE", "from-env")
	path := writeConfig(t, "instance_name: ${GOQUARTZ_TEST_INSTANCE}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InstanceName != "from-env" {
		t.Fatalf("got InstanceName=%q want from-env", cfg.InstanceName)
	}
}

func TestLoadLeavesUnknownVarPlaceholderIntact(t *testing.T) {
	path := writeConfig(t, "instance_name: ${GOQUARTZ_TEST_UNSET_VAR}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InstanceName != "${GOQUARTZ_TEST_UNSET_VAR}" {
		t.Fatalf("expected unresolved placeholder left intact, got %q", cfg.InstanceName)
	}
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, "instance_name: custom\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.WorkerPoolSize != want.WorkerPoolSize || cfg.MisfireThreshold != want.MisfireThreshold {
		t.Fatalf("expected defaults to survive partial overrides, got %+v", cfg)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error reading a nonexistent config file")
	}
}

func TestResolveSecretsFallsBackToEnv(t *testing.T) {
	t.Setenv("GOQUARTZ_DISCORD_TOKEN", "secret-token")
	path := writeConfig(t, "instance_name: x\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "secret-token" {
		t.Fatalf("expected discord token from env fallback, got %q", cfg.Discord.Token)
	}
}

func TestResolveSecretsPrefersExplicitValue(t *testing.T) {
	t.Setenv("GOQUARTZ_DISCORD_TOKEN", "from-env")
	path := writeConfig(t, "discord:\n  token: explicit-value\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "explicit-value" {
		t.Fatalf("expected explicit config value to win over env fallback, got %q", cfg.Discord.Token)
	}
}
