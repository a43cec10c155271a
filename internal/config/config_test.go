package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
archive:
  page_size: 50
  sync_interval: 12h
  backup_path: "./data/test_history.json"

storage:
  db_path: "./data/test.db"

engine:
  singles: 5
  coverage_sets: 10

server:
  addr: "127.0.0.1:9090"

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Archive.PageSize != 50 {
		t.Errorf("Unexpected page size: %d", cfg.Archive.PageSize)
	}
	if cfg.Archive.SyncInterval != 12*time.Hour {
		t.Errorf("Unexpected sync interval: %v", cfg.Archive.SyncInterval)
	}
	if cfg.Engine.Singles != 5 || cfg.Engine.CoverageSets != 10 {
		t.Errorf("Unexpected engine config: %+v", cfg.Engine)
	}
	// untouched keys keep their defaults
	if cfg.Engine.StrategySeed != 42 || cfg.Engine.CandidateSeed != 12345 {
		t.Errorf("Unexpected seeds: %d / %d", cfg.Engine.StrategySeed, cfg.Engine.CandidateSeed)
	}
	if cfg.Server.HistoryPageSize != 50 {
		t.Errorf("Unexpected history page size: %d", cfg.Server.HistoryPageSize)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Archive.MaxRetries != 5 || cfg.Archive.BreakerFailures != 5 {
		t.Errorf("Unexpected archive defaults: %+v", cfg.Archive)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SSQ_PLANNER_ENGINE_SINGLES", "3")
	t.Setenv("SSQ_PLANNER_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Singles != 3 {
		t.Errorf("expected env override of singles, got %d", cfg.Engine.Singles)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env override of level, got %s", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/ssq-planner.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateErrors(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{
			name:    "missing telegram token when enabled",
			mutate:  func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "1" },
			wantErr: true,
		},
		{name: "too many singles", mutate: func(c *Config) { c.Engine.Singles = 9 }, wantErr: true},
		{name: "zero singles", mutate: func(c *Config) { c.Engine.Singles = 0 }, wantErr: true},
		{name: "zero coverage", mutate: func(c *Config) { c.Engine.CoverageSets = 0 }, wantErr: true},
		{name: "zero seed", mutate: func(c *Config) { c.Engine.CandidateSeed = 0 }, wantErr: true},
		{name: "oversized page", mutate: func(c *Config) { c.Archive.PageSize = 500 }, wantErr: true},
		{name: "short sync interval", mutate: func(c *Config) { c.Archive.SyncInterval = time.Second }, wantErr: true},
		{name: "missing db path", mutate: func(c *Config) { c.Storage.DBPath = "" }, wantErr: true},
		{
			name:    "server disabled skips server checks",
			mutate:  func(c *Config) { c.Server.Enabled = false; c.Server.Addr = "" },
			wantErr: false,
		},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
