package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	UI       UIConfig       `toml:"ui"`
	Server   ServerConfig   `toml:"server"`
}

type APIConfig struct {
	BaseURL         string `toml:"base_url"`
	Timeout         string `toml:"timeout"`
	GenerateTimeout string `toml:"generate_timeout"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds runtime log sink settings.
type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the local logfmt file written in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type UIConfig struct {
	Theme         string    `toml:"theme"`
	ConfirmDelete bool      `toml:"confirm_delete"`
	SuccessNotice string    `toml:"success_notice"`
	ErrorNotice   string    `toml:"error_notice"`
	Keys          KeyConfig `toml:"keys"`
}

// KeyConfig overrides selected TUI bindings. Blank fields keep the default key.
type KeyConfig struct {
	Filter      string `toml:"filter"`
	ActivityLog string `toml:"activity_log"`
	ToggleTheme string `toml:"toggle_theme"`
	Grab        string `toml:"grab"`
	Generate    string `toml:"generate"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

const (
	DefaultBaseURL         = "http://127.0.0.1:8000"
	DefaultTimeout         = 15 * time.Second
	DefaultGenerateTimeout = 2 * time.Minute
	DefaultSuccessNotice   = 3 * time.Second
	DefaultErrorNotice     = 4 * time.Second
)

func Default(dbPath string) Config {
	return Config{
		API: APIConfig{
			BaseURL:         DefaultBaseURL,
			Timeout:         DefaultTimeout.String(),
			GenerateTimeout: DefaultGenerateTimeout.String(),
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".kanboard/log",
			},
		},
		UI: UIConfig{
			Theme:         "light",
			ConfirmDelete: true,
			SuccessNotice: DefaultSuccessNotice.String(),
			ErrorNotice:   DefaultErrorNotice.String(),
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8765",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("api.base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}

	durations := []struct {
		name  string
		value string
	}{
		{"api.timeout", c.API.Timeout},
		{"api.generate_timeout", c.API.GenerateTimeout},
		{"ui.success_notice", c.UI.SuccessNotice},
		{"ui.error_notice", c.UI.ErrorNotice},
	}
	for _, d := range durations {
		if _, err := parsePositiveDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	switch strings.ToLower(strings.TrimSpace(c.UI.Theme)) {
	case "light", "dark":
	default:
		return fmt.Errorf("invalid ui.theme: %q", c.UI.Theme)
	}

	keys := []struct {
		name  string
		value string
	}{
		{"ui.keys.filter", c.UI.Keys.Filter},
		{"ui.keys.activity_log", c.UI.Keys.ActivityLog},
		{"ui.keys.toggle_theme", c.UI.Keys.ToggleTheme},
		{"ui.keys.grab", c.UI.Keys.Grab},
		{"ui.keys.generate", c.UI.Keys.Generate},
	}
	for _, k := range keys {
		if strings.ContainsAny(strings.TrimSpace(k.value), " \t") {
			return fmt.Errorf("invalid %s: %q", k.name, k.value)
		}
	}
	return nil
}

// RequestTimeout returns the per-request API timeout.
func (c Config) RequestTimeout() time.Duration {
	return durationOr(c.API.Timeout, DefaultTimeout)
}

// GenerateTimeout returns the timeout applied to AI prompt generation requests.
func (c Config) GenerateTimeout() time.Duration {
	return durationOr(c.API.GenerateTimeout, DefaultGenerateTimeout)
}

// NoticeDurations returns how long success and error notices stay visible.
func (c Config) NoticeDurations() (success, failure time.Duration) {
	return durationOr(c.UI.SuccessNotice, DefaultSuccessNotice), durationOr(c.UI.ErrorNotice, DefaultErrorNotice)
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := parsePositiveDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
