package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: debug
jwt:
  secret: test-secret
  expire_hours: 12
storage:
  type: local
  local_path: `+uploads+`
cors:
  allowed_origins:
    - http://localhost:3000
sweep:
  interval_minutes: 5
  lock_ttl_seconds: 30
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.JWT.ExpireTime != 12*time.Hour {
		t.Fatalf("jwt expiry = %v, want 12h", cfg.JWT.ExpireTime)
	}
	if cfg.Database.Driver != "mysql" {
		t.Fatalf("default driver = %q", cfg.Database.Driver)
	}
	if cfg.Sweep.Interval() != 5*time.Minute || cfg.Sweep.LockTTL() != 30*time.Second {
		t.Fatalf("sweep = %v / %v", cfg.Sweep.Interval(), cfg.Sweep.LockTTL())
	}
	if !cfg.Sweep.Enabled {
		t.Fatal("sweep should default to enabled")
	}
	if cfg.RateLimit.MaxRequests != 6000 {
		t.Fatalf("rate limit default = %d", cfg.RateLimit.MaxRequests)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Fatalf("cors origins = %v", cfg.CORS.AllowedOrigins)
	}
	if _, err := os.Stat(uploads); err != nil {
		t.Fatalf("local storage dir not created: %v", err)
	}
}

func TestLoadConfigRejectsWeakSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
storage:
  type: minio
`)
	if _, err := LoadConfig(dir); err == nil {
		t.Fatal("expected weak secret to be rejected in release mode")
	}
}

func TestSweepConfigDefaults(t *testing.T) {
	var s SweepConfig
	if s.Interval() != time.Minute || s.LockTTL() != 2*time.Minute {
		t.Fatalf("defaults = %v / %v", s.Interval(), s.LockTTL())
	}
}

func TestLoadShippedConfig(t *testing.T) {
	// oss 不会在工作目录创建本地上传目录
	t.Setenv("STORAGE_TYPE", "oss")
	t.Setenv("DATABASE_PASSWORD", "from-env")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Database.ParseTime {
		t.Fatal("parse_time not decoded, DATETIME columns would fail to scan")
	}
	if cfg.Database.Password != "from-env" {
		t.Fatalf("password = %q, env override ignored", cfg.Database.Password)
	}
	if cfg.Sweep.IntervalMinutes != 1 || cfg.Sweep.LockTTLSeconds != 120 {
		t.Fatalf("sweep = %+v", cfg.Sweep)
	}
	if cfg.Sweep.LockTTL() != 2*time.Minute {
		t.Fatalf("lock ttl = %v", cfg.Sweep.LockTTL())
	}
}
