// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright 2026 Allis Tauri <allista@gmail.com>

// Package config handles the user configuration of get_isolation_sources.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is the number of accessions per efetch request.
const DefaultBatchSize = 100

// MaxBatchSize caps --batch-size; larger efetch id lists get truncated
// responses from NCBI.
const MaxBatchSize = 200

// Config represents the user configuration file.
type Config struct {
	// Email is the contact e-mail sent to NCBI with every request.
	Email string `yaml:"email,omitempty"`
	// APIKey is the optional NCBI API key.
	APIKey string `yaml:"api_key,omitempty"`
	// BatchSize is the number of accessions per efetch request.
	BatchSize int `yaml:"batch_size,omitempty"`
	// CachePath overrides the default record cache location.
	CachePath string `yaml:"cache_path,omitempty"`
	// DisableCache turns the record cache off entirely.
	DisableCache bool `yaml:"disable_cache,omitempty"`
}

// Default returns a Config with defaults applied.
func Default() *Config {
	return &Config{BatchSize: DefaultBatchSize}
}

// DefaultPath returns the default config file location under the user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "get_isolation_sources", "config.yaml"), nil
}

// DefaultCachePath returns the default record cache location under the
// user cache directory.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "get_isolation_sources", "records.db"), nil
}

// Load reads a Config from a file path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return cfg, nil
}

// Save writes the Config to a file path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(c)
}

// ApplyEnv overlays ENTREZ_EMAIL and NCBI_API_KEY from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ENTREZ_EMAIL"); v != "" {
		c.Email = v
	}
	if v := getenv("NCBI_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	if c.Email == "" {
		return errors.New("contact e-mail is required by the NCBI usage policy")
	}
	at := strings.IndexByte(c.Email, '@')
	if at <= 0 || at == len(c.Email)-1 {
		return fmt.Errorf("invalid e-mail address: %q", c.Email)
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch size must be between 1 and %d, got %d", MaxBatchSize, c.BatchSize)
	}
	return nil
}
