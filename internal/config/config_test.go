package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // keep a developer's .env out of the test
	for _, k := range []string{"DISCORD_TOKEN", "STORE_BACKEND", "DATABASE_URL", "WEB_BIND", "CORS_ORIGINS", "JWT_SECRET", "LOCK_WAIT_TIMEOUT", "REMINDER_INTERVAL", "REMINDER_AFTER", "LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.WebBind != "0.0.0.0:3000" {
		t.Errorf("WebBind = %q", cfg.WebBind)
	}
	if cfg.LockWaitTimeout != 5*time.Second || cfg.ReminderAfter != 10*time.Minute {
		t.Errorf("durations = %s / %s", cfg.LockWaitTimeout, cfg.ReminderAfter)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOCK_WAIT_TIMEOUT", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != BackendSQLite || cfg.SQLitePath != "/tmp/x.db" {
		t.Errorf("backend = %q path = %q", cfg.StoreBackend, cfg.SQLitePath)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.LockWaitTimeout != 250*time.Millisecond {
		t.Errorf("LockWaitTimeout = %s", cfg.LockWaitTimeout)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{StoreBackend: "memory", JWTSecret: "s", ReminderInterval: time.Minute, LogLevel: "info"}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"postgres without url", func(c *Config) { c.StoreBackend = "postgres" }, false},
		{"postgres with url", func(c *Config) { c.StoreBackend = "postgres"; c.DatabaseURL = "postgres://x" }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, false},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }, false},
		{"zero reminder interval", func(c *Config) { c.ReminderInterval = 0 }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("warn"); err != nil || l != slog.LevelWarn {
		t.Fatalf("ParseLevel(warn) = %v, %v", l, err)
	}
}
