// Package config loads Grove's ambient configuration: storage locations,
// circuit breaker and auto-skip policy knobs, and the optional backend
// selectors for Postgres and the NATS event sidecar.
//
// Grounded on the teacher's internal/config/config.go: env vars with a
// GROVE_ prefix and envOrDefault fallbacks, env vars always overriding
// whatever an optional TOML file sets.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/bivory/grove/internal/core"
)

// Config is every knob the gate, storage, journal, and optional sidecars
// consult. internal/core.Config is derived from the circuit-breaker/
// auto-skip fields at startup via GateConfig.
type Config struct {
	SessionsDir string // GROVE_SESSIONS_DIR
	StatsLog    string // GROVE_STATS_LOG

	MaxBlocks         int    // GROVE_MAX_BLOCKS
	CooldownSeconds   int64  // GROVE_COOLDOWN_SECONDS
	AutoSkipEnabled   bool   // GROVE_AUTO_SKIP_ENABLED
	AutoSkipThreshold int    // GROVE_AUTO_SKIP_THRESHOLD
	AutoSkipDecider   string // GROVE_AUTO_SKIP_DECIDER

	Backend     string // GROVE_BACKEND ("file" default, or "postgres")
	DatabaseURL string // GROVE_DATABASE_URL (required when Backend == "postgres")

	NATSURL string // GROVE_NATS_URL (optional, empty = no event sidecar)
}

// fileOverlay is the shape of an optional GROVE_CONFIG_FILE TOML document.
// Only the circuit-breaker/auto-skip knobs may be set this way; every
// field is optional so a partial file overlays only what it names.
type fileOverlay struct {
	MaxBlocks         *int    `toml:"max_blocks"`
	CooldownSeconds   *int64  `toml:"cooldown_seconds"`
	AutoSkipEnabled   *bool   `toml:"auto_skip_enabled"`
	AutoSkipThreshold *int    `toml:"auto_skip_threshold"`
	AutoSkipDecider   *string `toml:"auto_skip_decider"`
}

// Load reads Config from the environment, applying a GROVE_CONFIG_FILE
// overlay (if set) for the circuit-breaker/auto-skip knobs before env vars
// are re-applied on top — env vars win whenever both are set.
func Load() (*Config, error) {
	def := core.DefaultConfig()

	c := &Config{
		SessionsDir:       envOrDefault("GROVE_SESSIONS_DIR", ""),
		MaxBlocks:         def.MaxBlocks,
		CooldownSeconds:   def.CooldownSeconds,
		AutoSkipEnabled:   def.AutoSkipEnabled,
		AutoSkipThreshold: def.AutoSkipThreshold,
		AutoSkipDecider:   def.AutoSkipDecider,
		Backend:           envOrDefault("GROVE_BACKEND", "file"),
		DatabaseURL:       os.Getenv("GROVE_DATABASE_URL"),
		NATSURL:           os.Getenv("GROVE_NATS_URL"),
	}

	if c.SessionsDir == "" {
		dir, err := defaultSessionsDir()
		if err != nil {
			return nil, err
		}
		c.SessionsDir = dir
	}
	c.StatsLog = envOrDefault("GROVE_STATS_LOG", filepath.Join(c.SessionsDir, "..", "stats.log"))

	if path := os.Getenv("GROVE_CONFIG_FILE"); path != "" {
		if err := applyFileOverlay(c, path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("GROVE_MAX_BLOCKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, core.ConfigErr("GROVE_MAX_BLOCKS: %v", err)
		}
		c.MaxBlocks = n
	}
	if v := os.Getenv("GROVE_COOLDOWN_SECONDS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, core.ConfigErr("GROVE_COOLDOWN_SECONDS: %v", err)
		}
		c.CooldownSeconds = n
	}
	if v := os.Getenv("GROVE_AUTO_SKIP_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, core.ConfigErr("GROVE_AUTO_SKIP_ENABLED: %v", err)
		}
		c.AutoSkipEnabled = b
	}
	if v := os.Getenv("GROVE_AUTO_SKIP_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, core.ConfigErr("GROVE_AUTO_SKIP_THRESHOLD: %v", err)
		}
		c.AutoSkipThreshold = n
	}
	if v := os.Getenv("GROVE_AUTO_SKIP_DECIDER"); v != "" {
		c.AutoSkipDecider = v
	}

	if c.Backend == "postgres" && c.DatabaseURL == "" {
		return nil, core.ConfigErr("GROVE_DATABASE_URL is required when GROVE_BACKEND=postgres")
	}

	return c, nil
}

func applyFileOverlay(c *Config, path string) error {
	var overlay fileOverlay
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return core.ConfigErr("failed to parse %s: %v", path, err)
	}
	if overlay.MaxBlocks != nil {
		c.MaxBlocks = *overlay.MaxBlocks
	}
	if overlay.CooldownSeconds != nil {
		c.CooldownSeconds = *overlay.CooldownSeconds
	}
	if overlay.AutoSkipEnabled != nil {
		c.AutoSkipEnabled = *overlay.AutoSkipEnabled
	}
	if overlay.AutoSkipThreshold != nil {
		c.AutoSkipThreshold = *overlay.AutoSkipThreshold
	}
	if overlay.AutoSkipDecider != nil {
		c.AutoSkipDecider = *overlay.AutoSkipDecider
	}
	return nil
}

// defaultSessionsDir mirrors original_source's FileSessionStore::new
// resolution order and never fails: $XDG_STATE_HOME, then
// $HOME/.local/state, then the OS temp dir.
func defaultSessionsDir() (string, error) {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "grove", "sessions"), nil
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "grove", "sessions"), nil
	}
	return filepath.Join(os.TempDir(), "grove", "sessions"), nil
}

// GateConfig projects the circuit-breaker/auto-skip fields into the pure
// core.Config the gate state machine consumes.
func (c *Config) GateConfig() core.Config {
	return core.Config{
		MaxBlocks:         c.MaxBlocks,
		CooldownSeconds:   c.CooldownSeconds,
		AutoSkipEnabled:   c.AutoSkipEnabled,
		AutoSkipThreshold: c.AutoSkipThreshold,
		AutoSkipDecider:   c.AutoSkipDecider,
	}
}

// ProjectStatsLogPath returns the project-local stats log path under cwd's
// .grove directory, used by hooks that log events relative to the project
// being worked in rather than the global GROVE_STATS_LOG.
func ProjectStatsLogPath(cwd string) string {
	return filepath.Join(cwd, ".grove", "stats.log")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
