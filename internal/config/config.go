package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the bbsync CLI.
type Config struct {
	// BaseURL is the Learn instance, e.g. "https://lms.example.edu".
	BaseURL string `yaml:"base_url"`

	// SyncDir is the local mirror directory.
	SyncDir string `yaml:"sync_dir"`

	// DestURL overrides the destination with a gocloud bucket URL
	// (e.g. "s3://course-mirror"). Empty means file:// under SyncDir.
	DestURL string `yaml:"dest_url"`

	// Workers is the number of concurrent download workers.
	Workers int `yaml:"workers"`

	// Timeout for individual HTTP requests.
	Timeout time.Duration `yaml:"timeout"`

	// EnabledCourses limits syncing to these course ids. Empty means all.
	EnabledCourses []string `yaml:"enabled_courses"`

	// CourseAliases maps course ids to folder names.
	CourseAliases map[string]string `yaml:"course_aliases"`

	// AutoSyncInterval enables periodic syncing in watch mode.
	AutoSyncInterval time.Duration `yaml:"auto_sync_interval"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		SyncDir:          filepath.Join(home, "Documents", "BlackBoard Sync"),
		Workers:          3,
		Timeout:          30 * time.Second,
		AutoSyncInterval: 30 * time.Minute,
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	BaseURL          string            `yaml:"base_url"`
	SyncDir          string            `yaml:"sync_dir"`
	DestURL          string            `yaml:"dest_url"`
	Workers          int               `yaml:"workers"`
	Timeout          string            `yaml:"timeout"`
	EnabledCourses   []string          `yaml:"enabled_courses"`
	CourseAliases    map[string]string `yaml:"course_aliases"`
	AutoSyncInterval string            `yaml:"auto_sync_interval"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.SyncDir != "" {
		cfg.SyncDir = yc.SyncDir
	}
	if yc.DestURL != "" {
		cfg.DestURL = yc.DestURL
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if len(yc.EnabledCourses) > 0 {
		cfg.EnabledCourses = yc.EnabledCourses
	}
	if len(yc.CourseAliases) > 0 {
		cfg.CourseAliases = yc.CourseAliases
	}
	if yc.AutoSyncInterval != "" {
		d, err := time.ParseDuration(yc.AutoSyncInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse auto_sync_interval: %w", err)
		}
		cfg.AutoSyncInterval = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the BBSYNC_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("BBSYNC_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("BBSYNC_SYNC_DIR"); v != "" {
		c.SyncDir = v
	}
	if v := os.Getenv("BBSYNC_DEST_URL"); v != "" {
		c.DestURL = v
	}
	if v := os.Getenv("BBSYNC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse BBSYNC_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("BBSYNC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse BBSYNC_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("BBSYNC_ENABLED_COURSES"); v != "" {
		c.EnabledCourses = strings.Split(v, ",")
	}
	if v := os.Getenv("BBSYNC_AUTO_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse BBSYNC_AUTO_SYNC_INTERVAL: %w", err)
		}
		c.AutoSyncInterval = d
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("config: invalid base_url: %w", err)
	}
	if c.DestURL == "" && c.SyncDir == "" {
		return errors.New("config: sync_dir or dest_url is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	return nil
}

// BucketURL returns the destination bucket URL, deriving a file:// URL from
// SyncDir when no explicit destination is configured. metadata=skip keeps
// the fileblob driver from writing sidecar attribute files into the mirror.
func (c *Config) BucketURL() string {
	if c.DestURL != "" {
		return c.DestURL
	}
	return "file://" + filepath.ToSlash(c.SyncDir) + "?create_dir=true&metadata=skip"
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "bbsync.yaml"
	}
	return filepath.Join(dir, "bbsync", "config.yaml")
}
