// Package config provides configuration types and defaults for beehive.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/log"
)

// Config holds every recognized configuration option (spec.md §6).
type Config struct {
	SessionName          string            `mapstructure:"session_name"`
	DBPath               string            `mapstructure:"db_path"`
	LogLevel             string            `mapstructure:"log_level"`
	DBTimeout            time.Duration     `mapstructure:"db_timeout"`
	PaneMapping          map[string]string `mapstructure:"pane_mapping"`
	RemindInterval       time.Duration     `mapstructure:"remind_interval"`
	TIdle                time.Duration     `mapstructure:"t_idle"`
	TSilent              time.Duration     `mapstructure:"t_silent"`
	InjectorConcurrency  int               `mapstructure:"injector_concurrency"`
	ObserverBee          string            `mapstructure:"observer_bee"`
	TickInterval         time.Duration     `mapstructure:"tick_interval"`
	RoleInjectionTimeout time.Duration     `mapstructure:"role_injection_timeout"`
	TmuxBinPath          string            `mapstructure:"tmux_bin_path"`
	DryRun               bool              `mapstructure:"dry_run"`
}

// Defaults returns a Config with sensible default values, matching the
// values spec.md §6 names as examples.
func Defaults() Config {
	return Config{
		SessionName:          "hive",
		DBPath:               "hive/hive_memory.db",
		LogLevel:             "info",
		DBTimeout:            5 * time.Second,
		PaneMapping:          DefaultPaneMapping(),
		RemindInterval:       5 * time.Minute,
		TIdle:                2 * time.Minute,
		TSilent:              10 * time.Minute,
		InjectorConcurrency:  4,
		ObserverBee:          string(domain.Queen),
		TickInterval:         5 * time.Second,
		RoleInjectionTimeout: 30 * time.Second,
		TmuxBinPath:          "tmux",
		DryRun:               false,
	}
}

// DefaultPaneMapping is the out-of-the-box bee-to-pane layout: a single
// tmux window split into four panes.
func DefaultPaneMapping() map[string]string {
	return map[string]string{
		"queen":     "0.0",
		"developer": "0.1",
		"qa":        "0.2",
		"analyst":   "0.3",
	}
}

// Validate rejects a Config that would leave the hive unable to start.
func (c Config) Validate() error {
	if c.SessionName == "" {
		return fmt.Errorf("session_name must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.InjectorConcurrency <= 0 {
		return fmt.Errorf("injector_concurrency must be positive")
	}
	if len(c.PaneMapping) == 0 {
		return fmt.Errorf("pane_mapping must not be empty")
	}
	if !domain.BeeName(c.ObserverBee).IsWorker() {
		return fmt.Errorf("observer_bee must be one of the worker bees, got %q", c.ObserverBee)
	}
	for bee := range c.PaneMapping {
		if !domain.BeeName(bee).IsWorker() {
			return fmt.Errorf("pane_mapping has unknown bee %q", bee)
		}
	}
	return nil
}

// DefaultConfigPath is the location `Load` reads from when no --config
// flag is given. No command writes a file there; WriteDefaultConfig does
// so only when called with this path.
const DefaultConfigPath = "hive/hive.yaml"

// Load builds a Config by layering, highest precedence first: CLI flags
// already bound to v, `BEEHIVE_`-prefixed environment variables, the YAML
// file at path (or DefaultConfigPath), and compiled-in defaults.
func Load(v *viper.Viper, path string) (Config, error) {
	defaults := Defaults()
	v.SetDefault("session_name", defaults.SessionName)
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("db_timeout", defaults.DBTimeout)
	v.SetDefault("pane_mapping", defaults.PaneMapping)
	v.SetDefault("remind_interval", defaults.RemindInterval)
	v.SetDefault("t_idle", defaults.TIdle)
	v.SetDefault("t_silent", defaults.TSilent)
	v.SetDefault("injector_concurrency", defaults.InjectorConcurrency)
	v.SetDefault("observer_bee", defaults.ObserverBee)
	v.SetDefault("tick_interval", defaults.TickInterval)
	v.SetDefault("role_injection_timeout", defaults.RoleInjectionTimeout)
	v.SetDefault("tmux_bin_path", defaults.TmuxBinPath)
	v.SetDefault("dry_run", defaults.DryRun)

	v.SetEnvPrefix("BEEHIVE")
	v.AutomaticEnv()

	if path == "" {
		path = DefaultConfigPath
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "no config file found, using defaults and environment", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// EnsureDBDir creates the directory holding db_path, mirroring the
// teacher's config-directory creation in WriteDefaultConfig.
func EnsureDBDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}
