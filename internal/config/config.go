package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds user preferences and sync settings.
type Config struct {
	// Remote backend. Empty RemoteURL disables all remote mirroring.
	RemoteURL string `yaml:"remote_url" json:"remote_url"`
	RemoteKey string `yaml:"remote_key" json:"remote_key"`

	// Local database path. Empty means ~/.tasktide/tasktide.db.
	DBPath string `yaml:"db_path" json:"db_path"`

	// Background poll interval in seconds. 0 disables polling.
	PollSecs int `yaml:"poll_secs" json:"poll_secs"`

	// Logging.
	LogLevel   string `yaml:"log_level" json:"log_level"`
	LogFile    string `yaml:"log_file" json:"log_file"`
	LogConsole bool   `yaml:"log_console" json:"log_console"`
}

// DefaultConfig returns default settings with env overrides applied.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".tasktide", "logs", "tasktide.log")
	}

	poll := 60
	if v := os.Getenv("TASKTIDE_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			poll = n
		}
	}

	return &Config{
		RemoteURL:  os.Getenv("TASKTIDE_REMOTE_URL"),
		RemoteKey:  os.Getenv("TASKTIDE_REMOTE_KEY"),
		DBPath:     os.Getenv("TASKTIDE_DB"),
		PollSecs:   poll,
		LogLevel:   getEnv("TASKTIDE_LOG_LEVEL", "INFO"),
		LogFile:    getEnv("TASKTIDE_LOG_FILE", logPath),
		LogConsole: os.Getenv("TASKTIDE_LOG_CONSOLE") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Path returns the config file location (~/.tasktide/config.yaml).
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tasktide", "config.yaml"), nil
}

// Load reads the config file, falling back to defaults when absent.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config file, creating ~/.tasktide if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
