// Package config loads versionscan settings from .versionscan.yaml, an
// optional .env file and VERSIONSCAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	versionscan "github.com/bcomnes/versionscan/pkg"
)

// FileName is the config file looked up in the scan root.
const FileName = ".versionscan.yaml"

// Environment variables that override the config file.
const (
	EnvLogLevel = "VERSIONSCAN_LOG_LEVEL"
	EnvMaxDepth = "VERSIONSCAN_MAX_DEPTH"
	EnvPart     = "VERSIONSCAN_PART"
)

// ExcludeConfig adds regexes to the built-in exclusion lists.
type ExcludeConfig struct {
	Folders    []string `yaml:"folders"`
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// VetoConfig adds context vetoes, keyed by category name ("*", "swift") or extension ("py").
type VetoConfig struct {
	PrevLine map[string][]string `yaml:"prev_line"`
	NextLine map[string][]string `yaml:"next_line"`
	Overlap  map[string][]string `yaml:"overlap"`
	InLine   map[string][]string `yaml:"in_line"`
}

// Config represents versionscan configuration options
type Config struct {
	// MaxDepth is how many directory levels below the root are scanned
	MaxDepth int `yaml:"max_depth"`

	// Part is the default part to bump (major, minor, patch, build)
	Part string `yaml:"part"`

	// LogLevel sets the logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// GitTag commits and tags after a successful rewrite
	GitTag bool `yaml:"git_tag"`

	MinLineLen int `yaml:"min_line_len"`
	MaxLineLen int `yaml:"max_line_len"`

	// Ignore lists doublestar globs, relative to the root, that are never scanned
	Ignore []string `yaml:"ignore"`

	Exclude ExcludeConfig `yaml:"exclude"`
	Veto    VetoConfig    `yaml:"veto"`

	// Patterns replaces the detection regexes for files with the given base name
	Patterns map[string][]string `yaml:"patterns"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:   versionscan.DefaultMaxDepth,
		Part:       "build",
		LogLevel:   "info",
		MinLineLen: versionscan.DefaultMinLineLen,
		MaxLineLen: versionscan.DefaultMaxLineLen,
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromDir loads FileName from dir.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, FileName))
}

// LoadEnv loads dir/.env into the process environment if it exists.
// Variables that are already set keep their value.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from VERSIONSCAN_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPart); v != "" {
		c.Part = v
	}
	if v := os.Getenv(EnvMaxDepth); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvMaxDepth, v)
		}
		c.MaxDepth = n
	}
	return c.Validate()
}

// Validate checks values that would otherwise only fail deep inside a run.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 || c.MaxDepth > versionscan.MaxRecursionDepth {
		return fmt.Errorf("max_depth %d outside [0, %d]", c.MaxDepth, versionscan.MaxRecursionDepth)
	}
	if _, err := versionscan.ParsePart(c.Part); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	for _, g := range c.Ignore {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("%w: ignore glob %q", versionscan.ErrInvalidPattern, g)
		}
	}
	return nil
}

// Rules merges the configured additions into the built-in rule tables.
func (c *Config) Rules() (versionscan.RulesConfig, error) {
	extra := versionscan.RulesConfig{
		ExcludeFolders:    c.Exclude.Folders,
		ExcludeExtensions: c.Exclude.Extensions,
		ExcludeFilenames:  c.Exclude.Filenames,
		IgnoreGlobs:       c.Ignore,
		MinLineLen:        c.MinLineLen,
		MaxLineLen:        c.MaxLineLen,
		FilePatterns:      c.Patterns,
	}
	var err error
	if extra.PrevLine, err = byCategory(c.Veto.PrevLine); err != nil {
		return extra, err
	}
	if extra.NextLine, err = byCategory(c.Veto.NextLine); err != nil {
		return extra, err
	}
	if extra.Overlap, err = byCategory(c.Veto.Overlap); err != nil {
		return extra, err
	}
	if extra.InLine, err = byCategory(c.Veto.InLine); err != nil {
		return extra, err
	}
	return versionscan.DefaultRulesConfig().Extend(extra), nil
}

func byCategory(in map[string][]string) (map[versionscan.FileCategory][]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[versionscan.FileCategory][]string, len(in))
	for name, sources := range in {
		cat, err := versionscan.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out[cat] = append(out[cat], sources...)
	}
	return out, nil
}
