// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Record sources
const (
	CSVSource    = "csv"
	SQLiteSource = "sqlite"
)

// DefaultDomainThreshold is the minimum device count (exclusive) for an
// os or browser category to be part of its facet domain.
const DefaultDomainThreshold = 100

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// Record sources
	DataSource   string `mapstructure:"datasource"`
	EventsPath   string `mapstructure:"eventspath"`
	DevicesPath  string `mapstructure:"devicespath"`
	StoragePath  string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Dashboard settings
	DomainThreshold       int64 `mapstructure:"domainthreshold"`
	SessionTimeoutSeconds int   `mapstructure:"sessiontimeoutseconds"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		loaded, err := Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	})
	return cfg
}

// Load reads defaults and environment variables into a fresh Config.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("appname", "trafficlens")
	v.SetDefault("appport", "3000")
	v.SetDefault("environment", Development)
	v.SetDefault("loglevel", string(LogLevelDebug))
	v.SetDefault("datasource", CSVSource)
	v.SetDefault("eventspath", "data/events.csv")
	v.SetDefault("devicespath", "data/devices.csv")
	v.SetDefault("storagepath", "storage")
	v.SetDefault("logsdir", "logs")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)
	v.SetDefault("domainthreshold", DefaultDomainThreshold)
	v.SetDefault("sessiontimeoutseconds", 1800)
	v.SetDefault("jobintervalseconds", 60)

	v.BindEnv("appname", "TRAFFICLENS_APP_NAME")
	v.BindEnv("appport", "TRAFFICLENS_APP_PORT")
	v.BindEnv("environment", "TRAFFICLENS_ENV")
	v.BindEnv("loglevel", "TRAFFICLENS_LOG_LEVEL")
	v.BindEnv("datasource", "TRAFFICLENS_DATA_SOURCE")
	v.BindEnv("eventspath", "TRAFFICLENS_EVENTS_PATH")
	v.BindEnv("devicespath", "TRAFFICLENS_DEVICES_PATH")
	v.BindEnv("storagepath", "TRAFFICLENS_STORAGE_PATH")
	v.BindEnv("logsdir", "TRAFFICLENS_LOGS_DIR")
	v.BindEnv("logsmaxsizeinmb", "TRAFFICLENS_LOGS_MAX_SIZE_IN_MB")
	v.BindEnv("logsmaxbackups", "TRAFFICLENS_LOGS_MAX_BACKUPS")
	v.BindEnv("logsmaxageindays", "TRAFFICLENS_LOGS_MAX_AGE_IN_DAYS")
	v.BindEnv("domainthreshold", "TRAFFICLENS_DOMAIN_THRESHOLD")
	v.BindEnv("sessiontimeoutseconds", "TRAFFICLENS_SESSION_TIMEOUT_SECONDS")
	v.BindEnv("jobintervalseconds", "TRAFFICLENS_JOB_INTERVAL_SECONDS")

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c.DatabaseName = c.GetDatabasePath()
	return c, nil
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validSources := map[string]bool{
		CSVSource:    true,
		SQLiteSource: true,
	}
	if !validSources[c.DataSource] {
		return fmt.Errorf("invalid data source: %s", c.DataSource)
	}

	if c.DomainThreshold < 0 {
		return fmt.Errorf("domain threshold must not be negative: %d", c.DomainThreshold)
	}
	if c.SessionTimeoutSeconds <= 0 {
		return fmt.Errorf("session timeout must be positive: %d", c.SessionTimeoutSeconds)
	}
	if c.JobIntervalSeconds <= 0 {
		return fmt.Errorf("job interval must be positive: %d", c.JobIntervalSeconds)
	}

	return nil
}

// GetDatabasePath returns the SQLite file holding the record tables
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.StoragePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetSessionTimeout returns the dashboard session idle timeout in seconds.
func (c *Config) GetSessionTimeout() int {
	return c.SessionTimeoutSeconds
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
