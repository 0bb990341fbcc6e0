package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"igfollow/pkg/storage"
)

// Config holds all configuration options for the collector
type Config struct {
	// Instagram session and transport
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Paging behaviour
	Collector CollectorConfig `yaml:"collector" json:"collector"`

	// Prospects database used by crossref
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the session credentials and how requests are sent
type InstagramConfig struct {
	SessionID string        `yaml:"session_id" json:"session_id"`
	CSRFToken string        `yaml:"csrf_token" json:"csrf_token"`
	Cookies   string        `yaml:"cookies" json:"cookies"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	AppID     string        `yaml:"app_id" json:"app_id"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	Transport string        `yaml:"transport" json:"transport"`
	Proxy     string        `yaml:"proxy" json:"proxy"`
}

// CollectorConfig holds pagination and checkpoint settings
type CollectorConfig struct {
	Kind              string `yaml:"kind" json:"kind"`
	PageSize          int    `yaml:"page_size" json:"page_size"`
	MinDelay          int    `yaml:"min_delay" json:"min_delay"`
	MaxDelay          int    `yaml:"max_delay" json:"max_delay"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxRetries        int    `yaml:"max_retries" json:"max_retries"`
	OutputFile        string `yaml:"output_file" json:"output_file"`
	Resume            bool   `yaml:"resume" json:"resume"`
}

// DatabaseConfig holds the prospects database connection
type DatabaseConfig struct {
	URL string `yaml:"url" json:"url"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const (
	DefaultAppID     = "936619743392459"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
	DefaultBaseURL   = "https://www.instagram.com"
	MaxPageSize      = 200
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: DefaultUserAgent,
			AppID:     DefaultAppID,
			BaseURL:   DefaultBaseURL,
			Timeout:   30 * time.Second,
			Transport: "http",
		},
		Collector: CollectorConfig{
			Kind:       "following",
			PageSize:   200,
			MinDelay:   2,
			MaxDelay:   4,
			OutputFile: "./following.json",
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = strings.ToLower(v) == "true" || v == "1"
		}
	}

	setString("IGFOLLOW_SESSION_ID", &c.Instagram.SessionID)
	setString("IGFOLLOW_CSRF_TOKEN", &c.Instagram.CSRFToken)
	setString("IGFOLLOW_COOKIES", &c.Instagram.Cookies)
	setString("IGFOLLOW_USER_AGENT", &c.Instagram.UserAgent)
	setString("IGFOLLOW_APP_ID", &c.Instagram.AppID)
	setString("IGFOLLOW_TRANSPORT", &c.Instagram.Transport)
	setString("IGFOLLOW_PROXY", &c.Instagram.Proxy)
	setString("IGFOLLOW_BASE_URL", &c.Instagram.BaseURL)
	if v := os.Getenv("IGFOLLOW_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGFOLLOW_TIMEOUT: %w", err))
		} else {
			c.Instagram.Timeout = d
		}
	}

	setString("IGFOLLOW_KIND", &c.Collector.Kind)
	setInt("IGFOLLOW_PAGE_SIZE", &c.Collector.PageSize)
	setInt("IGFOLLOW_MIN_DELAY", &c.Collector.MinDelay)
	setInt("IGFOLLOW_MAX_DELAY", &c.Collector.MaxDelay)
	setInt("IGFOLLOW_REQUESTS_PER_MINUTE", &c.Collector.RequestsPerMinute)
	setInt("IGFOLLOW_MAX_RETRIES", &c.Collector.MaxRetries)
	setString("IGFOLLOW_OUTPUT_FILE", &c.Collector.OutputFile)
	setBool("IGFOLLOW_RESUME", &c.Collector.Resume)

	// DATABASE_URL is shared with the rest of the product tooling
	setString("DATABASE_URL", &c.Database.URL)
	setString("IGFOLLOW_DATABASE_URL", &c.Database.URL)

	setBool("IGFOLLOW_NOTIFICATIONS_ENABLED", &c.Notifications.Enabled)
	setString("IGFOLLOW_LOG_LEVEL", &c.Logging.Level)
	setString("IGFOLLOW_LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igfollow.yaml",
		".igfollow.yml",
		filepath.Join(home, ".config", "igfollow", "config.yaml"),
		filepath.Join(home, ".config", "igfollow", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Collector.PageSize <= 0 || c.Collector.PageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("page size must be between 1 and %d", MaxPageSize))
	}
	if c.Collector.MinDelay < 0 {
		errs = append(errs, errors.New("min delay cannot be negative"))
	}
	if c.Collector.MaxDelay < c.Collector.MinDelay {
		errs = append(errs, errors.New("max delay must not be less than min delay"))
	}
	if c.Collector.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Collector.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Collector.OutputFile == "" {
		errs = append(errs, errors.New("output file is required"))
	}
	switch strings.ToLower(c.Collector.Kind) {
	case "following", "followers":
	default:
		errs = append(errs, fmt.Errorf("invalid collection kind: %q", c.Collector.Kind))
	}

	if c.Instagram.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}
	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	switch strings.ToLower(c.Instagram.Transport) {
	case "http", "stealth":
	default:
		errs = append(errs, fmt.Errorf("invalid transport: %q", c.Instagram.Transport))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// HasCredentials reports whether a usable session is configured
func (c *Config) HasCredentials() bool {
	session, csrf := c.Instagram.Session()
	return session != "" && csrf != ""
}

// Session returns the session id and CSRF token, falling back to the
// sessionid and csrftoken entries of the cookie string.
func (c *InstagramConfig) Session() (sessionID, csrfToken string) {
	sessionID, csrfToken = c.SessionID, c.CSRFToken
	if sessionID == "" {
		sessionID = CookieValue(c.Cookies, "sessionid")
	}
	if csrfToken == "" {
		csrfToken = CookieValue(c.Cookies, "csrftoken")
	}
	return sessionID, csrfToken
}

// CookieValue returns the value of the named cookie in a Cookie header
// string, or "" when it is absent.
func CookieValue(cookies, name string) string {
	for _, part := range strings.Split(cookies, ";") {
		key, value, ok := strings.Cut(part, "=")
		if ok && strings.TrimSpace(key) == name {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := storage.WriteBytesAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in flags are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["session-id"].(string); ok && v != "" {
		c.Instagram.SessionID = v
	}
	if v, ok := flags["csrf-token"].(string); ok && v != "" {
		c.Instagram.CSRFToken = v
	}
	if v, ok := flags["transport"].(string); ok && v != "" {
		c.Instagram.Transport = v
	}
	if v, ok := flags["proxy"].(string); ok && v != "" {
		c.Instagram.Proxy = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok {
		c.Instagram.Timeout = v
	}
	if v, ok := flags["kind"].(string); ok && v != "" {
		c.Collector.Kind = v
	}
	if v, ok := flags["page-size"].(int); ok {
		c.Collector.PageSize = v
	}
	if v, ok := flags["min-delay"].(int); ok {
		c.Collector.MinDelay = v
	}
	if v, ok := flags["max-delay"].(int); ok {
		c.Collector.MaxDelay = v
	}
	if v, ok := flags["rate-limit"].(int); ok {
		c.Collector.RequestsPerMinute = v
	}
	if v, ok := flags["max-retries"].(int); ok {
		c.Collector.MaxRetries = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Collector.OutputFile = v
	}
	if v, ok := flags["resume"].(bool); ok {
		c.Collector.Resume = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igfollow.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
