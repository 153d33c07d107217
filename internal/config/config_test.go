package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.LockBackend = BackendRedis
	cfg.RedisAddress = "localhost:6379"
	cfg.RedisPassword = "secret"

	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.LockBackend != BackendRedis || loaded.RedisAddress != "localhost:6379" {
		t.Errorf("loaded = %+v, want redis backend", loaded)
	}
	if loaded.RedisPassword != "" {
		t.Error("secrets must not be written to the config file")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".quoteflow"), 0755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(map[string]any{"debounce": "2s"})
	if err := os.WriteFile(filepath.Join(dir, ".quoteflow", "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DebounceDuration() != 2*time.Second {
		t.Errorf("Debounce = %s, want 2s", cfg.DebounceDuration())
	}
	if cfg.LockTTLDuration() != 180*time.Second || cfg.MaxItems != 20 {
		t.Errorf("defaults lost: ttl=%s max=%d", cfg.LockTTLDuration(), cfg.MaxItems)
	}
}

func TestResolve_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QUOTEFLOW_LOCK_BACKEND", BackendDynamoDB)
	t.Setenv("QUOTEFLOW_MAX_ITEMS", "5")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.LockBackend != BackendDynamoDB || cfg.MaxItems != 5 || cfg.DynamoDBEndpoint != "http://localhost:8000" {
		t.Errorf("cfg = %+v, want env values applied", cfg)
	}
}

func TestResolve_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("QUOTEFLOW_HTTP_ADDR=:9999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUOTEFLOW_HTTP_ADDR", "")
	os.Unsetenv("QUOTEFLOW_HTTP_ADDR")

	cfg, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want :9999 from .env", cfg.HTTPAddr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "negative reconcile delay", mutate: func(c *Config) { c.ReconcileDelay = "-1s" }},
		{name: "unknown backend", mutate: func(c *Config) { c.LockBackend = "etcd" }, wantErr: true},
		{name: "unknown policy", mutate: func(c *Config) { c.LockFailurePolicy = "maybe" }, wantErr: true},
		{name: "bad duration", mutate: func(c *Config) { c.Debounce = "soon" }, wantErr: true},
		{name: "negative max items", mutate: func(c *Config) { c.MaxItems = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", &buf)

	LogError(logger, "http", "createQuotation", "binding request", map[string]string{"id": "QUO-001"}, errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "boom" || entry["module"] != "http" || entry["level"] != "error" {
		t.Errorf("entry = %v", entry)
	}
	if entry["data"] == nil {
		t.Error("data field missing")
	}
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	l := NewLogger("chatty", &bytes.Buffer{})
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %s, want info", l.GetLevel())
	}
}
