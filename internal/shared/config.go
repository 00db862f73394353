package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Processor ProcessorConfig `toml:"processor"`
	Watcher   WatcherConfig   `toml:"watcher"`
	Client    ClientConfig    `toml:"client"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port address the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ScannerConfig contains library scanner settings.
type ScannerConfig struct {
	FFProbePath     string   `toml:"ffprobe_path"`
	ProbeIntervalMS int      `toml:"probe_interval_ms"`
	Extensions      []string `toml:"extensions"`
}

// ProbeInterval returns the pacing delay between file probes.
func (s ScannerConfig) ProbeInterval() time.Duration {
	return time.Duration(s.ProbeIntervalMS) * time.Millisecond
}

// ProcessorConfig contains processing engine settings.
type ProcessorConfig struct {
	FFMpegPath          string `toml:"ffmpeg_path"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// PollInterval returns how often the engine checks the job queue.
func (p ProcessorConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

// WatcherConfig contains file watcher settings.
type WatcherConfig struct {
	Enabled         bool `toml:"enabled"`
	DebounceSeconds int  `toml:"debounce_seconds"`
}

// Debounce returns the per-path quiet period before a file event is acted on.
func (w WatcherConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceSeconds) * time.Second
}

// ClientConfig contains settings for clients of the medley API (CLI and dashboard).
type ClientConfig struct {
	BaseURL          string `toml:"base_url"`
	PollIntervalMS   int    `toml:"poll_interval_ms"`
	SaveDebounceMS   int    `toml:"save_debounce_ms"`
	NoticeDurationMS int    `toml:"notice_duration_ms"`
}

// PollInterval returns the status polling cadence.
func (c ClientConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// SaveDebounce returns the quiet period before an edited field is saved.
func (c ClientConfig) SaveDebounce() time.Duration {
	return time.Duration(c.SaveDebounceMS) * time.Millisecond
}

// NoticeDuration returns how long a notification stays visible.
func (c ClientConfig) NoticeDuration() time.Duration {
	return time.Duration(c.NoticeDurationMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig serializes the given config to TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
