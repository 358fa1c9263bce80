// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Store settings.
	DBDriver    string // "sqlite" or "pgx"
	DBPath      string // SQLite file, used when DBDriver is sqlite.
	DatabaseURL string // Postgres DSN, used when DBDriver is pgx.

	// Project layout.
	ProjectRoot string // Files served by /api/file must live under it.
	CatalogPath string // Optional YAML worker catalog.
	ScriptsDir  string
	LogDir      string
	RepoURL     string // Base for expanding "PR #n" references.

	// Dashboard windows.
	StaleAfter        time.Duration // Heartbeats older than this do not count as working or idle.
	RecentWindow      time.Duration // Finished work stays visible this long.
	AnnouncementLimit int

	// Change-triggered reload.
	Watch     bool
	WatchDirs []string

	// Operator auth for lifecycle actions. Empty disables auth.
	JWTPublicKeyPath string

	// Agent start/stop throttle per operator (or client IP). Zero disables it.
	ActionRatePerMinute int
	ActionBurst         int

	// MCP endpoint.
	MCPEnabled bool

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Every malformed variable is reported, not just the first.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	root := envStr("QUEUEDASH_PROJECT_ROOT", "")
	if root == "" {
		wd, err := os.Getwd()
		collect(err)
		root = wd
	}

	cfg := Config{
		DBDriver:         envStr("QUEUEDASH_DB_DRIVER", "sqlite"),
		DBPath:           envStr("QUEUEDASH_DB_PATH", filepath.Join(root, ".agent-queue.db")),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		ProjectRoot:      root,
		CatalogPath:      envStr("QUEUEDASH_CATALOG", ""),
		ScriptsDir:       envStr("QUEUEDASH_SCRIPTS_DIR", filepath.Join(root, "scripts")),
		LogDir:           envStr("QUEUEDASH_LOG_DIR", filepath.Join(root, "logs")),
		RepoURL:          strings.TrimRight(envStr("QUEUEDASH_REPO_URL", ""), "/"),
		WatchDirs:        envList("QUEUEDASH_WATCH_DIRS", []string{"web", "internal"}),
		JWTPublicKeyPath: envStr("QUEUEDASH_JWT_PUBLIC_KEY", ""),
		OTELEndpoint:     envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:      envStr("OTEL_SERVICE_NAME", "queuedash"),
		LogLevel:         envStr("QUEUEDASH_LOG_LEVEL", "info"),
	}

	var err error
	cfg.Port, err = envInt("QUEUEDASH_PORT", 3000)
	collect(err)
	cfg.ReadTimeout, err = envDuration("QUEUEDASH_READ_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.WriteTimeout, err = envDuration("QUEUEDASH_WRITE_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.StaleAfter, err = envDuration("QUEUEDASH_STALE_AFTER", 30*time.Minute)
	collect(err)
	cfg.RecentWindow, err = envDuration("QUEUEDASH_RECENT_WINDOW", time.Hour)
	collect(err)
	cfg.AnnouncementLimit, err = envInt("QUEUEDASH_ANNOUNCEMENT_LIMIT", 5)
	collect(err)
	cfg.Watch, err = envBool("QUEUEDASH_WATCH", false)
	collect(err)
	cfg.MCPEnabled, err = envBool("QUEUEDASH_MCP", false)
	collect(err)
	cfg.ActionRatePerMinute, err = envInt("QUEUEDASH_ACTION_RATE", 6)
	collect(err)
	cfg.ActionBurst, err = envInt("QUEUEDASH_ACTION_BURST", 3)
	collect(err)
	cfg.OTELInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", false)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("config: QUEUEDASH_DB_PATH is required for the sqlite driver")
		}
	case "pgx":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the pgx driver")
		}
	default:
		return fmt.Errorf("config: QUEUEDASH_DB_DRIVER must be sqlite or pgx, got %q", c.DBDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: QUEUEDASH_PORT must be between 1 and 65535")
	}
	if c.StaleAfter <= 0 || c.RecentWindow <= 0 {
		return fmt.Errorf("config: QUEUEDASH_STALE_AFTER and QUEUEDASH_RECENT_WINDOW must be positive")
	}
	if c.AnnouncementLimit <= 0 {
		return fmt.Errorf("config: QUEUEDASH_ANNOUNCEMENT_LIMIT must be positive")
	}
	if c.ActionRatePerMinute < 0 || (c.ActionRatePerMinute > 0 && c.ActionBurst <= 0) {
		return fmt.Errorf("config: QUEUEDASH_ACTION_RATE must not be negative and QUEUEDASH_ACTION_BURST must be positive when it is set")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
