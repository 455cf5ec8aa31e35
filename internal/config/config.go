// Package config holds the CLI settings shared by every command. Values are resolved by
// viper from flags, SOLARSYNC_* environment variables and the config file, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/openmined/solarsync/internal/utils"
)

const (
	BackendDrive = "drive"
	BackendS3    = "s3"
	BackendMem   = "mem"
)

var Backends = []string{BackendDrive, BackendS3, BackendMem}

var (
	home, _            = os.UserHomeDir()
	DefaultConfigDir   = filepath.Join(home, ".solarsync")
	DefaultConfigPath  = filepath.Join(DefaultConfigDir, "config.json")
	DefaultHistoryPath = filepath.Join(DefaultConfigDir, "history.db")
	DefaultLogFilePath = filepath.Join(DefaultConfigDir, "logs", "solarsync.log")
)

type S3 struct {
	Bucket        string `json:"bucket"`
	Region        string `json:"region"`
	Endpoint      string `json:"endpoint,omitempty"`
	AccessKey     string `json:"access_key,omitempty"`
	SecretKey     string `json:"secret_key,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	UseAccelerate bool   `json:"use_accelerate,omitempty"`
}

type Config struct {
	Backend string `json:"backend"`
	// Credentials is a base64 encoded service account key for the drive backend.
	Credentials string `json:"credentials,omitempty"`
	S3          S3     `json:"s3"`
	Concurrency int    `json:"concurrency"`
	HistoryDB   string `json:"history_db"`
	LogLevel    string `json:"log_level"`
	LogFile     string `json:"log_file"`
	Path        string `json:"-"`
}

func Default() *Config {
	return &Config{
		Backend:   BackendDrive,
		HistoryDB: DefaultHistoryPath,
		LogLevel:  "info",
		LogFile:   DefaultLogFilePath,
		Path:      DefaultConfigPath,
	}
}

func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("backend %q must be one of %s", c.Backend, strings.Join(Backends, ", ")))
	}
	switch c.Backend {
	case BackendDrive:
		if c.Credentials == "" {
			errs = append(errs, errors.New("credentials are required for the drive backend"))
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3.bucket is required for the s3 backend"))
		}
		if c.S3.Region == "" && c.S3.Endpoint == "" {
			errs = append(errs, errors.New("s3.region or s3.endpoint is required for the s3 backend"))
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			errs = append(errs, errors.New("s3.access_key and s3.secret_key must be set together"))
		}
	}

	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency %d must not be negative", c.Concurrency))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Dir is where the config file lives. Locks and default state go next to it.
func (c *Config) Dir() string {
	if c.Path == "" {
		return DefaultConfigDir
	}
	return filepath.Dir(c.Path)
}

// Save writes the config as JSON. The file is private since it may hold credentials.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
