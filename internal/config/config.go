package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for rewind.
type Config struct {
	// Enabled turns recording on or off. Timeline, restore and prune keep
	// working while recording is disabled.
	Enabled    bool             `toml:"enabled"`
	DataDir    string           `toml:"data_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	Storage    StorageConfig    `toml:"storage"`
	Retention  RetentionConfig  `toml:"retention"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// StorageConfig controls where backup payloads are kept.
type StorageConfig struct {
	Mode              string `toml:"storage_mode"` // "auto", "git", "snapshot" or "file"
	Root              string `toml:"root"`         // backend data lives below this directory
	MaxStorageMB      int64  `toml:"max_storage_mb"`
	CompressThreshold int64  `toml:"compress_threshold"`
	InlineFloor       int64  `toml:"inline_floor"`
}

// RetentionConfig holds the tiered pruning windows.
type RetentionConfig struct {
	EntriesHours          int `toml:"entries_hours"`
	HourlyCheckpointsDays int `toml:"hourly_checkpoints_days"`
	DailyCheckpointsDays  int `toml:"daily_checkpoints_days"`
}

// EncryptionConfig selects optional at-rest encryption of backups.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// Default values for settings that have one.
const (
	DefaultStorageMode       = "auto"
	DefaultMaxStorageMB      = 1024
	DefaultCompressThreshold = 4 * 1024
	DefaultInlineFloor       = 512

	DefaultEntriesHours          = 24
	DefaultHourlyCheckpointsDays = 7
	DefaultDailyCheckpointsDays  = 30
)

// DefaultIgnore lists paths recording skips unless configured otherwise.
var DefaultIgnore = []string{".git", "node_modules", "*.swp", "*~", ".DS_Store"}

// defaults returns a Config with every non-path setting at its default.
func defaults() Config {
	return Config{
		Enabled:  true,
		LogLevel: "info",
		Storage: StorageConfig{
			Mode:              DefaultStorageMode,
			MaxStorageMB:      DefaultMaxStorageMB,
			CompressThreshold: DefaultCompressThreshold,
			InlineFloor:       DefaultInlineFloor,
		},
		Retention: RetentionConfig{
			EntriesHours:          DefaultEntriesHours,
			HourlyCheckpointsDays: DefaultHourlyCheckpointsDays,
			DailyCheckpointsDays:  DefaultDailyCheckpointsDays,
		},
		Encryption: EncryptionConfig{Type: "none"},
		Database:   DatabaseConfig{Type: "sqlite"},
	}
}

// NewConfig creates a Config rooted at dataDir with default settings.
func NewConfig(dataDir string) *Config {
	cfg := defaults()
	cfg.DataDir = dataDir
	cfg.LogDir = filepath.Join(dataDir, "log")
	cfg.Storage.Root = filepath.Join(dataDir, "store")
	cfg.Database.DataDir = dataDir
	cfg.Encryption.PublicKeyPath = filepath.Join(dataDir, "keys", "rewind.pub")
	cfg.Encryption.PrivateKeyPath = filepath.Join(dataDir, "keys", "rewind.key")
	cfg.Filesystem.Ignore = append([]string(nil), DefaultIgnore...)
	return &cfg
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case "", "auto", "git", "snapshot", "btrfs", "file":
	default:
		return fmt.Errorf("unknown storage_mode %q", c.Storage.Mode)
	}
	if c.Storage.MaxStorageMB < 0 {
		return fmt.Errorf("max_storage_mb must not be negative")
	}
	if c.Storage.CompressThreshold < 0 || c.Storage.InlineFloor < 0 {
		return fmt.Errorf("compress_threshold and inline_floor must not be negative")
	}
	r := c.Retention
	if r.EntriesHours < 0 || r.HourlyCheckpointsDays < 0 || r.DailyCheckpointsDays < 0 {
		return fmt.Errorf("retention windows must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Settings missing from the
// input keep their defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := defaults()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. An existing file is never overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
