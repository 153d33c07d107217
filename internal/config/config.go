package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Lock backends
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config represents the flat quoteflow configuration.
// Durations are Go duration strings ("180s", "5s").
type Config struct {
	Version           string `json:"version"`
	DBPath            string `json:"db_path,omitempty"`
	LockBackend       string `json:"lock_backend,omitempty"`        // sqlite, dynamodb or redis
	LockTTL           string `json:"lock_ttl,omitempty"`            // default 180s
	LockFailurePolicy string `json:"lock_failure_policy,omitempty"` // open or closed
	Debounce          string `json:"debounce,omitempty"`            // default 5s
	ReconcileDelay    string `json:"reconcile_delay,omitempty"`     // default 3s; negative reconciles at once
	MaxItems          int    `json:"max_items,omitempty"`           // per quotation, default 20
	HTTPAddr          string `json:"http_addr,omitempty"`
	LogLevel          string `json:"log_level,omitempty"`

	DynamoDBTable    string `json:"dynamodb_table,omitempty"`
	DynamoDBEndpoint string `json:"dynamodb_endpoint,omitempty"`
	AWSRegion        string `json:"aws_region,omitempty"`

	RedisAddress  string `json:"redis_address,omitempty"`
	RedisPassword string `json:"-"`

	PubSubProject      string `json:"pubsub_project,omitempty"`
	PubSubSubscription string `json:"pubsub_subscription,omitempty"`
	PubSubTopic        string `json:"pubsub_topic,omitempty"`
	PubSubCredentials  string `json:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Version:           "1",
		LockBackend:       BackendSQLite,
		LockTTL:           "180s",
		LockFailurePolicy: "open",
		Debounce:          "5s",
		ReconcileDelay:    "3s",
		MaxItems:          20,
		HTTPAddr:          ":8080",
		LogLevel:          "info",
	}
}

// LoadConfig reads .quoteflow/config.json from the specified directory.
// Returns error if no config found - caller should handle accordingly.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ".quoteflow", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	qfDir := filepath.Join(dir, ".quoteflow")
	if err := os.MkdirAll(qfDir, 0755); err != nil {
		return fmt.Errorf("failed to create .quoteflow dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(qfDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Resolve builds the effective configuration for dir: defaults, then
// .quoteflow/config.json when present, then dir/.env, then the process environment.
func Resolve(dir string) (*Config, error) {
	cfg, err := LoadConfig(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}

	// A missing .env is normal; variables already set in the environment win.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"QUOTEFLOW_DB_PATH", &c.DBPath},
		{"QUOTEFLOW_LOCK_BACKEND", &c.LockBackend},
		{"QUOTEFLOW_LOCK_TTL", &c.LockTTL},
		{"QUOTEFLOW_LOCK_FAILURE_POLICY", &c.LockFailurePolicy},
		{"QUOTEFLOW_DEBOUNCE", &c.Debounce},
		{"QUOTEFLOW_RECONCILE_DELAY", &c.ReconcileDelay},
		{"QUOTEFLOW_HTTP_ADDR", &c.HTTPAddr},
		{"QUOTEFLOW_LOG_LEVEL", &c.LogLevel},
		{"DYNAMODB_TABLE", &c.DynamoDBTable},
		{"DYNAMODB_ENDPOINT", &c.DynamoDBEndpoint},
		{"AWS_REGION", &c.AWSRegion},
		{"REDIS_ADDRESS", &c.RedisAddress},
		{"REDIS_PASSWORD", &c.RedisPassword},
		{"PUBSUB_PROJECT_ID", &c.PubSubProject},
		{"PUBSUB_SUBSCRIPTION", &c.PubSubSubscription},
		{"PUBSUB_TOPIC", &c.PubSubTopic},
		{"PUBSUB_CREDENTIALS_JSON", &c.PubSubCredentials},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("QUOTEFLOW_MAX_ITEMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QUOTEFLOW_MAX_ITEMS %q: %w", v, err)
		}
		c.MaxItems = n
	}
	return nil
}

// Validate checks backend names and duration strings.
func (c *Config) Validate() error {
	switch c.LockBackend {
	case "", BackendSQLite, BackendDynamoDB, BackendRedis:
	default:
		return fmt.Errorf("unknown lock backend %q (want sqlite, dynamodb or redis)", c.LockBackend)
	}
	switch c.LockFailurePolicy {
	case "", "open", "closed":
	default:
		return fmt.Errorf("unknown lock failure policy %q (want open or closed)", c.LockFailurePolicy)
	}
	for name, v := range map[string]string{
		"lock_ttl":        c.LockTTL,
		"debounce":        c.Debounce,
		"reconcile_delay": c.ReconcileDelay,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if c.MaxItems < 0 {
		return fmt.Errorf("max_items must not be negative, got %d", c.MaxItems)
	}
	return nil
}

// LockTTLDuration returns the parsed lock TTL, zero when unset.
func (c *Config) LockTTLDuration() time.Duration { return parseDuration(c.LockTTL) }

// DebounceDuration returns the parsed debounce window, zero when unset.
func (c *Config) DebounceDuration() time.Duration { return parseDuration(c.Debounce) }

// ReconcileDelayDuration returns the parsed reconciliation delay, zero when unset.
func (c *Config) ReconcileDelayDuration() time.Duration { return parseDuration(c.ReconcileDelay) }

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
