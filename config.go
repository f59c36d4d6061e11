// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the per-repo configuration file, read from
// the directory passed to Load.
const ConfigFileName = "forge.yaml"

// Config is the on-disk configuration for a build invocation: thread
// budget, cache directory, and the external tool paths the planner's step
// factories shell out to.
type Config struct {
	Parallelism int        `yaml:"parallelism"`
	CacheDir    string     `yaml:"cache_dir"`
	OutRoot     string     `yaml:"out_root"`
	Tools       ToolConfig `yaml:"tools"`
}

// ToolConfig names the external binaries the fan-out planner invokes.
// Empty fields fall back to the planner's own PATH-relative defaults.
type ToolConfig struct {
	Dexer    string `yaml:"dexer"`
	XZ       string `yaml:"xz"`
	ZipScrub string `yaml:"zip_scrub"`
}

// Default returns the configuration used when no forge.yaml is present.
func Default() *Config {
	return &Config{
		Parallelism: 0, // 0 = RecommendedParallelism()
		CacheDir:    ".forge-cache",
		OutRoot:     "out",
	}
}

// Load reads and parses ConfigFileName from dir, falling back to Default
// for any field the file doesn't set.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, returning Default() instead of an error when
// ConfigFileName is absent or unreadable.
func LoadOrDefault(dir string) *Config {
	cfg, err := Load(dir)
	if err != nil {
		return Default()
	}
	return cfg
}

// CacheAbsPath returns the absolute action-cache directory, resolved
// relative to dir if CacheDir is itself relative.
func (c *Config) CacheAbsPath(dir string) string {
	if filepath.IsAbs(c.CacheDir) {
		return c.CacheDir
	}
	return filepath.Join(dir, c.CacheDir)
}

// OutAbsPath returns the absolute build output root, resolved relative to
// dir if OutRoot is itself relative.
func (c *Config) OutAbsPath(dir string) string {
	if filepath.IsAbs(c.OutRoot) {
		return c.OutRoot
	}
	return filepath.Join(dir, c.OutRoot)
}
