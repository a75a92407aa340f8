package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all client configuration.
type Config struct {
	// Backend settings
	APIURL string `yaml:"api_url"`

	// Generation defaults
	DefaultVoice  string  `yaml:"default_voice"`
	Temperature   float64 `yaml:"temperature"`
	TopP          float64 `yaml:"top_p"`
	AutoNormalize bool    `yaml:"auto_normalize"`

	// Validation settings
	MinScriptWords int `yaml:"min_script_words"`

	// Polling settings
	PollInterval      time.Duration `yaml:"poll_interval"`
	FastPollInterval  time.Duration `yaml:"fast_poll_interval"`
	BusyRetryInterval time.Duration `yaml:"busy_retry_interval"`

	// Timeouts. GenerateTimeout of zero means unbounded: project creation
	// and stitching are allowed to take minutes for long scripts.
	StatusTimeout   time.Duration `yaml:"status_timeout"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`

	// Local storage settings
	StateDir      string        `yaml:"state_dir"`
	HistoryPath   string        `yaml:"history_path"`
	DownloadDir   string        `yaml:"download_dir"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`

	// Logging settings
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration with the following precedence, lowest first:
// built-in defaults, an optional YAML config file, environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	path := configFilePath()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		cfg.StateDir = filepath.Join(base, "emberglow")
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = filepath.Join(cfg.StateDir, "history.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		APIURL:            "http://localhost:8000",
		DefaultVoice:      "smart_voice",
		Temperature:       0.3,
		TopP:              0.95,
		AutoNormalize:     true,
		MinScriptWords:    10,
		PollInterval:      5 * time.Second,
		FastPollInterval:  1500 * time.Millisecond,
		BusyRetryInterval: 2 * time.Second,
		StatusTimeout:     10 * time.Second,
		GenerateTimeout:   0,
		DownloadDir:       ".",
		SessionMaxAge:     24 * time.Hour,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// configFilePath returns the YAML config file to load, or "" when none exists.
// EMBERGLOW_CONFIG overrides the default location.
func configFilePath() string {
	if path := os.Getenv("EMBERGLOW_CONFIG"); path != "" {
		return path
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(base, "emberglow", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnvString("EMBERGLOW_API_URL", c.APIURL)
	c.DefaultVoice = getEnvString("EMBERGLOW_DEFAULT_VOICE", c.DefaultVoice)
	c.Temperature = getEnvFloat("EMBERGLOW_TEMPERATURE", c.Temperature)
	c.TopP = getEnvFloat("EMBERGLOW_TOP_P", c.TopP)
	c.AutoNormalize = getEnvBool("EMBERGLOW_AUTO_NORMALIZE", c.AutoNormalize)
	c.MinScriptWords = getEnvInt("EMBERGLOW_MIN_SCRIPT_WORDS", c.MinScriptWords)
	c.PollInterval = getEnvDuration("EMBERGLOW_POLL_INTERVAL", c.PollInterval)
	c.FastPollInterval = getEnvDuration("EMBERGLOW_FAST_POLL_INTERVAL", c.FastPollInterval)
	c.BusyRetryInterval = getEnvDuration("EMBERGLOW_BUSY_RETRY_INTERVAL", c.BusyRetryInterval)
	c.StatusTimeout = getEnvDuration("EMBERGLOW_STATUS_TIMEOUT", c.StatusTimeout)
	c.GenerateTimeout = getEnvDuration("EMBERGLOW_GENERATE_TIMEOUT", c.GenerateTimeout)
	c.StateDir = getEnvString("EMBERGLOW_STATE_DIR", c.StateDir)
	c.HistoryPath = getEnvString("EMBERGLOW_HISTORY_PATH", c.HistoryPath)
	c.DownloadDir = getEnvString("EMBERGLOW_DOWNLOAD_DIR", c.DownloadDir)
	c.SessionMaxAge = getEnvDuration("EMBERGLOW_SESSION_MAX_AGE", c.SessionMaxAge)
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("EMBERGLOW_API_URL cannot be empty")
	}

	if c.Temperature < 0.1 || c.Temperature > 1.0 {
		return errors.New("EMBERGLOW_TEMPERATURE must be between 0.1 and 1.0")
	}

	if c.TopP < 0.1 || c.TopP > 1.0 {
		return errors.New("EMBERGLOW_TOP_P must be between 0.1 and 1.0")
	}

	if c.MinScriptWords < 1 {
		return errors.New("EMBERGLOW_MIN_SCRIPT_WORDS must be at least 1")
	}

	if c.PollInterval <= 0 || c.FastPollInterval <= 0 || c.BusyRetryInterval <= 0 {
		return errors.New("poll intervals must be positive")
	}

	if c.StatusTimeout <= 0 {
		return errors.New("EMBERGLOW_STATUS_TIMEOUT must be positive")
	}

	if c.GenerateTimeout < 0 {
		return errors.New("EMBERGLOW_GENERATE_TIMEOUT must be non-negative")
	}

	if c.SessionMaxAge <= 0 {
		return errors.New("EMBERGLOW_SESSION_MAX_AGE must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
