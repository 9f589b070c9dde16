package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server settings. Values come from an optional YAML file,
// with environment variables taking precedence over both the file and the
// defaults.
type Config struct {
	// Addr is the HTTP listen address (default ":8080").
	Addr string `yaml:"addr"`

	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `yaml:"database_url"`

	// SchedulerTick is the notification loop resolution, as a Go duration
	// string (default "60s"). Per-user cadence is configured on the user.
	SchedulerTick string `yaml:"scheduler_tick"`

	// WebhookURL receives notification digests as JSON POSTs. Empty means
	// digests are delivered on the in-process SSE feed only.
	WebhookURL string `yaml:"webhook_url"`

	// AdminToken guards management endpoints. Empty disables the guard,
	// which is only sensible in development.
	AdminToken string `yaml:"admin_token"`

	// SeedDefaults installs the default pipeline into an empty statuses
	// collection on startup (default true).
	SeedDefaults *bool `yaml:"seed_defaults"`
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "postgres://postgres:postgres@db:5432/workbot?sslmode=disable"
	}
	if c.SchedulerTick == "" {
		c.SchedulerTick = "60s"
	}
}

func (c *Config) applyEnv() {
	c.Addr = getenv("ADDR", c.Addr)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	c.SchedulerTick = getenv("SCHEDULER_TICK", c.SchedulerTick)
	c.WebhookURL = getenv("WEBHOOK_URL", c.WebhookURL)
	c.AdminToken = getenv("ADMIN_TOKEN", c.AdminToken)
}

// Tick parses SchedulerTick, falling back to one minute on garbage.
func (c *Config) Tick() time.Duration {
	d, err := time.ParseDuration(c.SchedulerTick)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// Seed handles the nil-pointer case for the default (true).
func (c *Config) Seed() bool {
	if c.SeedDefaults == nil {
		return true
	}
	return *c.SeedDefaults
}

// LoadConfig reads the YAML file when it exists; a missing file just means
// defaults plus environment.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
