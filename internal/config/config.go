// Package config loads IdleAbsurditree settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/generator"
	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/optimization"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "absurditree.yaml"

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all IdleAbsurditree configuration.
type Config struct {
	// Economy and loop timing
	Game GameConfig `yaml:"game"`

	// Generator catalog; order defines the save's count indices
	Generators []generator.Definition `yaml:"generators"`

	// Save persistence
	Storage StorageConfig `yaml:"storage"`

	// HTTP and websocket server
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GameConfig tunes the economy.
type GameConfig struct {
	TickInterval     string  `yaml:"tick_interval"`
	AutosaveInterval string  `yaml:"autosave_interval"`
	GainWindow       string  `yaml:"gain_window"`
	OfflineCap       string  `yaml:"offline_cap"` // Longest absence credited
	ClickBaseValue   float64 `yaml:"click_base_value"`
	ClickMultiplier  float64 `yaml:"click_multiplier"`
}

// StorageConfig selects where the save and the event ledger live.
type StorageConfig struct {
	Driver     string `yaml:"driver"` // file, sqlite, memory
	Path       string `yaml:"path"`   // Save file, or the database for sqlite
	Compress   bool   `yaml:"compress"`
	Slot       string `yaml:"slot"`        // sqlite only
	LedgerPath string `yaml:"ledger_path"` // file driver only; empty keeps events in memory
}

// ServerConfig configures cmd/absurditree-server.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	DevRoutes         bool     `yaml:"dev_routes"`
	BroadcastInterval string   `yaml:"broadcast_interval"`
	ClickRate         float64  `yaml:"click_rate"` // Websocket actions per second per client
	ClickBurst        int      `yaml:"click_burst"`
	AllowedOrigins    []string `yaml:"allowed_origins"` // Empty allows any origin
	Profile           string   `yaml:"profile"`         // Hub tuning: default, stress, low
	MaxClients        *int     `yaml:"max_clients"`     // Overrides the profile; 0 is unlimited
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			TickInterval:     "100ms",
			AutosaveInterval: "30s",
			GainWindow:       "5s",
			OfflineCap:       "24h",
			ClickBaseValue:   1.0,
			ClickMultiplier:  1.0,
		},
		Generators: generator.DefaultCatalog(),
		Storage: StorageConfig{
			Driver:     DriverFile,
			Path:       "savegame.json",
			Slot:       "default",
			LedgerPath: "absurditree-events.db",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			BroadcastInterval: "250ms",
			ClickRate:         20,
			ClickBurst:        40,
			Profile:           optimization.ProfileDefault,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ABSURDITREE_SAVE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ABSURDITREE_STORAGE"); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("ABSURDITREE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ABSURDITREE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ABSURDITREE_DEV_ROUTES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ABSURDITREE_DEV_ROUTES: %w", err)
		}
		c.Server.DevRoutes = b
	}
	return nil
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// EngineSettings converts the game section for engine.NewManager.
func (c *Config) EngineSettings() (engine.Settings, error) {
	var s engine.Settings
	var err error
	if s.TickInterval, err = parseDuration("game.tick_interval", c.Game.TickInterval); err != nil {
		return s, err
	}
	if s.AutosaveInterval, err = parseDuration("game.autosave_interval", c.Game.AutosaveInterval); err != nil {
		return s, err
	}
	if s.GainWindow, err = parseDuration("game.gain_window", c.Game.GainWindow); err != nil {
		return s, err
	}
	if s.OfflineCap, err = parseDuration("game.offline_cap", c.Game.OfflineCap); err != nil {
		return s, err
	}
	s.ClickBaseValue = c.Game.ClickBaseValue
	s.ClickMultiplier = c.Game.ClickMultiplier
	return s, nil
}

// GetBroadcastInterval returns server.broadcast_interval, defaulting to 250ms.
func (c *Config) GetBroadcastInterval() time.Duration {
	d, err := time.ParseDuration(c.Server.BroadcastInterval)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}

// Tuning returns the hub tuning for server.profile with server.max_clients applied.
func (c *Config) Tuning() (*optimization.Config, error) {
	t, err := optimization.Profile(c.Server.Profile)
	if err != nil {
		return nil, fmt.Errorf("server.profile: %w", err)
	}
	if c.Server.MaxClients != nil {
		t.MaxClients = *c.Server.MaxClients
	}
	return t, nil
}

// Catalog returns the configured generators.
func (c *Config) Catalog() generator.Catalog {
	return generator.Catalog(c.Generators)
}

// LoggerOptions converts the logging section for logger.New.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	s, err := c.EngineSettings()
	if err != nil {
		return err
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("game.tick_interval must be positive")
	}
	if s.AutosaveInterval <= 0 {
		return fmt.Errorf("game.autosave_interval must be positive")
	}
	if s.GainWindow <= 0 {
		return fmt.Errorf("game.gain_window must be positive")
	}
	if s.OfflineCap < 0 {
		return fmt.Errorf("game.offline_cap must not be negative")
	}
	if c.Game.ClickBaseValue < 0 || c.Game.ClickMultiplier < 0 {
		return fmt.Errorf("game click value and multiplier must not be negative")
	}

	if err := c.Catalog().Validate(); err != nil {
		return fmt.Errorf("generators: %w", err)
	}

	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q (want file, sqlite or memory)", c.Storage.Driver)
	}

	if _, err := parseDuration("server.broadcast_interval", c.Server.BroadcastInterval); err != nil {
		return err
	}
	if c.Server.ClickRate <= 0 || c.Server.ClickBurst <= 0 {
		return fmt.Errorf("server.click_rate and server.click_burst must be positive")
	}
	if _, err := c.Tuning(); err != nil {
		return err
	}
	if c.Server.MaxClients != nil && *c.Server.MaxClients < 0 {
		return fmt.Errorf("server.max_clients must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
