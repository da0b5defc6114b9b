package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	SetupPath     string         `toml:"setup_path"`
	AI            AIConfig       `toml:"ai"`
	Planning      PlanningConfig `toml:"planning"`
	Notifications NotifyConfig   `toml:"notifications"`
	Calendar      CalendarConfig `toml:"calendar"`
	Server        ServerConfig   `toml:"server"`
	Log           LogConfig      `toml:"log"`
}

type AIConfig struct {
	Provider       string  `toml:"provider"` // "openai" or "claude-cli"
	Model          string  `toml:"model"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	PromptVersion  string  `toml:"prompt_version"`
	MaxRetries     int     `toml:"max_retries"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// PlanningConfig holds fallbacks for preferences the setup file leaves out.
type PlanningConfig struct {
	MaxHoursDay       float64 `toml:"max_hours_day"`
	MaxHoursWeek      float64 `toml:"max_hours_week"` // 0 = unlimited
	MinSessionMinutes int     `toml:"min_session_minutes"`
	Locale            string  `toml:"locale"` // "de" or "en"
}

type NotifyConfig struct {
	Enabled     bool `toml:"enabled"`
	LeadMinutes int  `toml:"lead_minutes"`
}

type CalendarConfig struct {
	Source string `toml:"source"` // ICS URL or file path
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		AI: AIConfig{
			Provider:       "openai",
			Temperature:    0.7,
			MaxTokens:      16000,
			PromptVersion:  "few-shot-cot",
			MaxRetries:     3,
			TimeoutSeconds: 180,
		},
		Planning: PlanningConfig{
			MaxHoursDay:       8,
			MaxHoursWeek:      40,
			MinSessionMinutes: 60,
			Locale:            "de",
		},
		Notifications: NotifyConfig{
			Enabled:     true,
			LeadMinutes: 10,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "studyr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.SetupPath == "" {
		cfg.SetupPath = filepath.Join(filepath.Dir(path), "setup.toml")
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.AI.APIKey == "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("STUDYR_AI_PROVIDER"); v != "" {
		cfg.AI.Provider = v
	}
	if v := os.Getenv("STUDYR_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("STUDYR_SETUP"); v != "" {
		cfg.SetupPath = v
	}
	if v := os.Getenv("STUDYR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default config to path unless a file exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	out, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

// Set stores a single "section.key" value in the config file at path
// using a read-modify-write approach to preserve other settings. Numeric
// and boolean strings are stored as TOML numbers and booleans.
func Set(path, key, value string) error {
	section, name, ok := strings.Cut(key, ".")
	if !ok || section == "" || name == "" {
		if key != "setup_path" {
			return fmt.Errorf("invalid key %q (want section.key)", key)
		}
	}

	cfg := make(map[string]any)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if !ok {
		cfg[key] = value
	} else {
		sec, isMap := cfg[section].(map[string]any)
		if !isMap {
			sec = make(map[string]any)
		}
		sec[name] = typedValue(value)
		cfg[section] = sec
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	var check Config
	if err := toml.NewDecoder(bytes.NewReader(out)).DisallowUnknownFields().Decode(&check); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

func typedValue(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
