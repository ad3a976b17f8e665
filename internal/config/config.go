package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"library-console/library"
)

// Config holds all application configuration.
type Config struct {
	DataDir        string // directory holding users.txt, books.txt, transactions.txt
	Backend        string // "text" or "sqlite"
	DBPath         string // sqlite file; defaults to <DataDir>/library.db
	LenientReturns bool   // allow returning a book without an open loan
	LogLevel       string // debug, info, warn, error
}

// FromEnv returns the configuration defaults, overridden by LIBRARY_*
// environment variables. Command line flags are layered on top by the caller.
func FromEnv() (*Config, error) {
	lenient, err := getEnvBool("LIBRARY_LENIENT_RETURNS", false)
	if err != nil {
		return nil, err
	}
	return &Config{
		DataDir:        getEnv("LIBRARY_DATA_DIR", "."),
		Backend:        getEnv("LIBRARY_BACKEND", library.BackendText),
		DBPath:         getEnv("LIBRARY_DB", ""),
		LenientReturns: lenient,
		LogLevel:       getEnv("LIBRARY_LOG_LEVEL", "warn"),
	}, nil
}

// Validate normalises the config and rejects unknown values.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend != library.BackendText && c.Backend != library.BackendSQLite {
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, library.BackendText, library.BackendSQLite)
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "library.db")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DataDir: %s, Backend: %s, DB: %s, LenientReturns: %t, LogLevel: %s}",
		c.DataDir, c.Backend, c.DBPath, c.LenientReturns, c.LogLevel)
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvBool retrieves an environment variable as a bool with a default fallback.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}
