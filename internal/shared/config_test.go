package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./medley.db" {
			t.Errorf("expected database path ./medley.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}

		if config.Client.BaseURL != "http://127.0.0.1:5000" {
			t.Errorf("expected client base URL http://127.0.0.1:5000, got %s", config.Client.BaseURL)
		}

		if config.Client.PollInterval() != 5*time.Second {
			t.Errorf("expected poll interval 5s, got %s", config.Client.PollInterval())
		}

		if config.Client.SaveDebounce() != 2*time.Second {
			t.Errorf("expected save debounce 2s, got %s", config.Client.SaveDebounce())
		}

		if config.Watcher.Debounce() != 2*time.Second {
			t.Errorf("expected watcher debounce 2s, got %s", config.Watcher.Debounce())
		}

		if config.Scanner.FFProbePath != "ffprobe" {
			t.Errorf("expected ffprobe path ffprobe, got %s", config.Scanner.FFProbePath)
		}

		if len(config.Scanner.Extensions) == 0 {
			t.Error("expected default scanner extensions")
		}

		if config.Processor.PollInterval() != 5*time.Second {
			t.Errorf("expected processor poll interval 5s, got %s", config.Processor.PollInterval())
		}
	})

	t.Run("Addr", func(t *testing.T) {
		sc := ServerConfig{Host: "0.0.0.0", Port: 8080}
		if sc.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected 0.0.0.0:8080, got %s", sc.Addr())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080

[scanner]
ffprobe_path = "/usr/local/bin/ffprobe"
probe_interval_ms = 50
extensions = [".mkv", ".mp4"]

[processor]
ffmpeg_path = "/usr/local/bin/ffmpeg"
poll_interval_seconds = 10

[watcher]
enabled = false
debounce_seconds = 3

[client]
base_url = "http://media.local:8080"
poll_interval_ms = 1000
save_debounce_ms = 500
notice_duration_ms = 2500
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Scanner.ProbeInterval() != 50*time.Millisecond {
			t.Errorf("expected probe interval 50ms, got %s", config.Scanner.ProbeInterval())
		}

		if config.Watcher.Enabled {
			t.Error("expected watcher to be disabled")
		}

		if config.Client.BaseURL != "http://media.local:8080" {
			t.Errorf("expected client base URL http://media.local:8080, got %s", config.Client.BaseURL)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Error("expected error loading missing config")
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		config := DefaultConfig()
		config.Server.Port = 9999

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}

		if loaded.Server.Port != 9999 {
			t.Errorf("expected saved port 9999, got %d", loaded.Server.Port)
		}

		if err := SaveConfig(configPath, nil); err == nil {
			t.Error("expected error saving nil config")
		}
	})
}
