package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"JOBCAL_API_BASE_URL", "JOBCAL_SESSION_FILE", "PRIMARY_TIMEZONE", "JOBCAL_STATE_FILE",
	"JOBCAL_SCHEDULE", "LOG_LEVEL", "LOG_FORMAT", "JOBCAL_TIMEOUT",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_TOKEN_FILE", "GOOGLE_CALENDAR_ID",
	"CALDAV_ENDPOINT", "ICLOUD_USERNAME", "ICLOUD_APP_SPECIFIC_PASSWORD", "ICLOUD_CALENDAR_NAME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "primary", cfg.Google.CalendarID)
	assert.False(t, cfg.CalDAV.Enabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
api_base_url: https://jobcal.example.com
timezone: UTC
timeout: 45s
log_level: debug
google:
  calendar_id: jobs@group.calendar.google.com
caldav:
  username: me@icloud.com
  password: from-file
  calendar_name: 就活
`)
	t.Setenv("ICLOUD_APP_SPECIFIC_PASSWORD", "from-env")
	t.Setenv("JOBCAL_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://jobcal.example.com", cfg.APIBaseURL)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "jobs@group.calendar.google.com", cfg.Google.CalendarID)
	assert.Equal(t, "token-google.json", cfg.Google.TokenFile)
	assert.Equal(t, "from-env", cfg.CalDAV.Password)
	assert.True(t, cfg.CalDAV.Enabled())
}

func TestLoadInvalidTimezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRIMARY_TIMEZONE", "Mars/Olympus")
	_, err := Load("")
	assert.ErrorContains(t, err, "invalid timezone")
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "timeout: -1s\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "api_base_url: [\n"))
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	c := &Config{LogLevel: "WARN"}
	assert.Equal(t, slog.LevelWarn, c.Level())
	c.LogLevel = "verbose"
	assert.Equal(t, slog.LevelInfo, c.Level())
}
