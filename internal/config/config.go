package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "jobcal.yaml"

// CalDAVConfig holds the CalDAV publishing target.
type CalDAVConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CalendarName string `yaml:"calendar_name"`
}

// Enabled reports whether enough is configured to publish to CalDAV.
func (c CalDAVConfig) Enabled() bool {
	return c.Username != "" && c.Password != "" && c.CalendarName != ""
}

// GoogleConfig holds the Google OAuth client and the publishing calendar.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenFile    string `yaml:"token_file"`
	CalendarID   string `yaml:"calendar_id"`
}

// Config is the top-level client configuration.
type Config struct {
	// APIBaseURL is the backend root, e.g. "http://localhost:8000".
	APIBaseURL string `yaml:"api_base_url"`

	// SessionFile stores the backend session cookie between runs.
	SessionFile string `yaml:"session_file"`

	// Timezone is the IANA zone used for editing and display.
	Timezone string `yaml:"timezone"`

	// StateFile tracks what has been published to calendar sinks.
	StateFile string `yaml:"state_file"`

	// Schedule is the cron spec used by "sync --watch 0".
	Schedule string `yaml:"schedule"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" (default) or "json".
	LogFormat string `yaml:"log_format"`

	// Timeout bounds each backend request.
	Timeout time.Duration `yaml:"timeout"`

	Google GoogleConfig `yaml:"google"`
	CalDAV CalDAVConfig `yaml:"caldav"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:  "http://localhost:8000",
		SessionFile: "session.json",
		Timezone:    "Asia/Tokyo",
		StateFile:   "sync-state.json",
		Schedule:    "*/15 * * * *",
		LogLevel:    "info",
		LogFormat:   "text",
		Timeout:     30 * time.Second,
		Google: GoogleConfig{
			TokenFile:  "token-google.json",
			CalendarID: "primary",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (if any), then
// environment variables, which may come from a .env file.
func Load(path string) (*Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No config file found, using defaults and environment.", "file", path)
		} else {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.APIBaseURL, "JOBCAL_API_BASE_URL")
	setString(&c.SessionFile, "JOBCAL_SESSION_FILE")
	setString(&c.Timezone, "PRIMARY_TIMEZONE")
	setString(&c.StateFile, "JOBCAL_STATE_FILE")
	setString(&c.Schedule, "JOBCAL_SCHEDULE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	if v := os.Getenv("JOBCAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		} else {
			slog.Warn("Ignoring invalid JOBCAL_TIMEOUT.", "value", v, "error", err)
		}
	}

	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.TokenFile, "GOOGLE_TOKEN_FILE")
	setString(&c.Google.CalendarID, "GOOGLE_CALENDAR_ID")

	setString(&c.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	setString(&c.CalDAV.Username, "ICLOUD_USERNAME")
	setString(&c.CalDAV.Password, "ICLOUD_APP_SPECIFIC_PASSWORD")
	setString(&c.CalDAV.CalendarName, "ICLOUD_CALENDAR_NAME")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tz, err)
	}
	return loc, nil
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
