package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultAppID, cfg.Instagram.AppID)
	assert.Equal(t, DefaultBaseURL, cfg.Instagram.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Instagram.Timeout)
	assert.Equal(t, "http", cfg.Instagram.Transport)

	assert.Equal(t, "following", cfg.Collector.Kind)
	assert.Equal(t, 200, cfg.Collector.PageSize)
	assert.Equal(t, 2, cfg.Collector.MinDelay)
	assert.Equal(t, 4, cfg.Collector.MaxDelay)
	assert.Equal(t, 0, cfg.Collector.MaxRetries)
	assert.Equal(t, "./following.json", cfg.Collector.OutputFile)
	assert.False(t, cfg.Collector.Resume)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGFOLLOW_SESSION_ID", "test-session-id")
	t.Setenv("IGFOLLOW_CSRF_TOKEN", "test-csrf-token")
	t.Setenv("IGFOLLOW_COOKIES", "ig_did=abc; mid=def")
	t.Setenv("IGFOLLOW_TIMEOUT", "45s")
	t.Setenv("IGFOLLOW_PAGE_SIZE", "50")
	t.Setenv("IGFOLLOW_MIN_DELAY", "1")
	t.Setenv("IGFOLLOW_MAX_DELAY", "9")
	t.Setenv("IGFOLLOW_OUTPUT_FILE", "/tmp/out.json")
	t.Setenv("IGFOLLOW_RESUME", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/prospects")
	t.Setenv("IGFOLLOW_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "test-session-id", cfg.Instagram.SessionID)
	assert.Equal(t, "test-csrf-token", cfg.Instagram.CSRFToken)
	assert.Equal(t, "ig_did=abc; mid=def", cfg.Instagram.Cookies)
	assert.Equal(t, 45*time.Second, cfg.Instagram.Timeout)
	assert.Equal(t, 50, cfg.Collector.PageSize)
	assert.Equal(t, 1, cfg.Collector.MinDelay)
	assert.Equal(t, 9, cfg.Collector.MaxDelay)
	assert.Equal(t, "/tmp/out.json", cfg.Collector.OutputFile)
	assert.True(t, cfg.Collector.Resume)
	assert.Equal(t, "postgres://localhost/prospects", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.HasCredentials())
}

func TestSessionFromCookieString(t *testing.T) {
	tests := []struct {
		name        string
		cfg         InstagramConfig
		wantSession string
		wantCSRF    string
	}{
		{"separate fields", InstagramConfig{SessionID: "s", CSRFToken: "c"}, "s", "c"},
		{"cookie string only", InstagramConfig{Cookies: "csrftoken=c2; sessionid=s2; mid=x"}, "s2", "c2"},
		{"fields win over cookies", InstagramConfig{SessionID: "s", Cookies: "sessionid=s2; csrftoken=c2"}, "s", "c2"},
		{"empty cookie value", InstagramConfig{Cookies: "sessionid=; csrftoken=c"}, "", "c"},
		{"nothing", InstagramConfig{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, csrf := tt.cfg.Session()
			assert.Equal(t, tt.wantSession, session)
			assert.Equal(t, tt.wantCSRF, csrf)
		})
	}

	cfg := DefaultConfig()
	cfg.Instagram.Cookies = "ds_user_id=9; sessionid=blob"
	cfg.Instagram.CSRFToken = "tok"
	assert.True(t, cfg.HasCredentials())
}

func TestCookieValue(t *testing.T) {
	cookies := "ds_user_id=9; sessionid=abc%3A1; csrftoken = tok ;mid="
	assert.Equal(t, "abc%3A1", CookieValue(cookies, "sessionid"))
	assert.Equal(t, "9", CookieValue(cookies, "ds_user_id"))
	assert.Equal(t, "tok", CookieValue(cookies, "csrftoken"))
	assert.Equal(t, "", CookieValue(cookies, "mid"))
	assert.Equal(t, "", CookieValue(cookies, "rur"))
	assert.Equal(t, "", CookieValue("", "sessionid"))
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("IGFOLLOW_PAGE_SIZE", "lots")
	t.Setenv("IGFOLLOW_TIMEOUT", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGFOLLOW_PAGE_SIZE")
	assert.Contains(t, err.Error(), "IGFOLLOW_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero page size", func(c *Config) { c.Collector.PageSize = 0 }, "page size"},
		{"page size too large", func(c *Config) { c.Collector.PageSize = 500 }, "page size"},
		{"negative min delay", func(c *Config) { c.Collector.MinDelay = -1 }, "min delay"},
		{"max below min", func(c *Config) { c.Collector.MinDelay = 5; c.Collector.MaxDelay = 3 }, "max delay"},
		{"equal delays", func(c *Config) { c.Collector.MinDelay = 3; c.Collector.MaxDelay = 3 }, ""},
		{"zero delays", func(c *Config) { c.Collector.MinDelay = 0; c.Collector.MaxDelay = 0 }, ""},
		{"negative retries", func(c *Config) { c.Collector.MaxRetries = -1 }, "max retries"},
		{"missing output", func(c *Config) { c.Collector.OutputFile = "" }, "output file"},
		{"bad kind", func(c *Config) { c.Collector.Kind = "likes" }, "collection kind"},
		{"followers kind", func(c *Config) { c.Collector.Kind = "followers" }, ""},
		{"bad transport", func(c *Config) { c.Instagram.Transport = "carrier-pigeon" }, "transport"},
		{"stealth transport", func(c *Config) { c.Instagram.Transport = "stealth" }, ""},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"session-id":  "flag-session-id",
		"csrf-token":  "flag-csrf-token",
		"output":      "/flag/following.json",
		"page-size":   100,
		"min-delay":   0,
		"max-delay":   1,
		"max-retries": 2,
		"resume":      true,
		"kind":        "followers",
		"timeout":     5 * time.Second,
		"log-level":   "error",
	})

	assert.Equal(t, "flag-session-id", cfg.Instagram.SessionID)
	assert.Equal(t, "flag-csrf-token", cfg.Instagram.CSRFToken)
	assert.Equal(t, "/flag/following.json", cfg.Collector.OutputFile)
	assert.Equal(t, 100, cfg.Collector.PageSize)
	assert.Equal(t, 0, cfg.Collector.MinDelay)
	assert.Equal(t, 1, cfg.Collector.MaxDelay)
	assert.Equal(t, 2, cfg.Collector.MaxRetries)
	assert.True(t, cfg.Collector.Resume)
	assert.Equal(t, "followers", cfg.Collector.Kind)
	assert.Equal(t, 5*time.Second, cfg.Instagram.Timeout)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Instagram.SessionID = "save-test-session"
	cfg.Collector.PageSize = 120
	cfg.Instagram.Timeout = 10 * time.Second
	require.NoError(t, cfg.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))
	assert.Equal(t, "save-test-session", loaded.Instagram.SessionID)
	assert.Equal(t, 120, loaded.Collector.PageSize)
	assert.Equal(t, 10*time.Second, loaded.Instagram.Timeout)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("collector: [unterminated"), 0600))

	err := DefaultConfig().LoadFromFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yamlData := "collector:\n  page_size: 50\n  min_delay: 1\n  max_delay: 3\nlogging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(configPath, []byte(yamlData), 0600))

	t.Setenv("HOME", dir)
	t.Setenv("IGFOLLOW_MAX_DELAY", "6")

	cfg, err := Load(configPath, map[string]interface{}{"page-size": 75})
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.Collector.PageSize) // flag beats file
	assert.Equal(t, 1, cfg.Collector.MinDelay)  // file beats default
	assert.Equal(t, 6, cfg.Collector.MaxDelay)  // env beats file
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load("", map[string]interface{}{"min-delay": 5, "max-delay": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
