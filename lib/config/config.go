// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "OSVOICE_CONFIG"

// Config is the vault configuration.
type Config struct {
	// DataDir holds the secret file and, by default, the database.
	DataDir string `yaml:"data_dir"`

	// Database is the SQLite database path.
	Database string `yaml:"database"`

	// SecretEnv names the environment variable that overrides the
	// root secret.
	SecretEnv string `yaml:"secret_env"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Transfer configures key export and import.
	Transfer TransferConfig `yaml:"transfer"`
}

// TransferConfig configures key transfer between installations.
type TransferConfig struct {
	// IdentityFile is this installation's age identity, used by
	// import.
	IdentityFile string `yaml:"identity_file"`

	// Recipients are default age public keys for export.
	Recipients []string `yaml:"recipients"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	base, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		base = filepath.Join(homeDir, ".config")
	}

	return &Config{
		DataDir:   filepath.Join(base, "osvoice"),
		Database:  "${OSVOICE_DATA}/osvoice.db",
		SecretEnv: "OSVOICE_API_KEY_SECRET",
		LogLevel:  "info",
		Transfer: TransferConfig{
			IdentityFile: "${OSVOICE_DATA}/transfer-identity.txt",
		},
	}
}

// Load reads the file named by OSVOICE_CONFIG, or returns the
// expanded defaults if it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile reads path and merges it over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// SetDataDir replaces DataDir. Paths still at their default location
// under the old DataDir move with it, so --data-dir relocates the
// database and identity file too.
func (c *Config) SetDataDir(dir string) {
	if c.Database == filepath.Join(c.DataDir, "osvoice.db") {
		c.Database = filepath.Join(dir, "osvoice.db")
	}
	if c.Transfer.IdentityFile == filepath.Join(c.DataDir, "transfer-identity.txt") {
		c.Transfer.IdentityFile = filepath.Join(dir, "transfer-identity.txt")
	}
	c.DataDir = dir
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.DataDir = expandVars(c.DataDir, vars)
	vars["OSVOICE_DATA"] = c.DataDir

	c.Database = expandVars(c.Database, vars)
	c.Transfer.IdentityFile = expandVars(c.Transfer.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return parts[2]
	})
}

// Level returns LogLevel as a slog.Level. Unknown values yield Info;
// Validate reports them.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir is required"))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("database is required"))
	}
	if c.SecretEnv == "" {
		errs = append(errs, fmt.Errorf("secret_env is required"))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel))
	}

	if strings.Contains(c.DataDir+c.Database+c.Transfer.IdentityFile, "${") {
		errs = append(errs, fmt.Errorf("unexpanded variable in path configuration"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsureDataDir creates DataDir with owner-only permissions.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.DataDir, err)
	}
	return nil
}
