package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".tally.yaml"

// Config holds all linetally configuration.
type Config struct {
	// Scan settings
	Jobs         int      `yaml:"jobs"`           // 0 = one worker per CPU
	Hidden       bool     `yaml:"hidden"`         // include dot files and directories
	Gitignore    bool     `yaml:"gitignore"`      // honor .gitignore files
	MaxFileBytes int64    `yaml:"max_file_bytes"` // 0 = unlimited
	SkipDirs     []string `yaml:"skip_dirs"`      // directory names never entered
	Exclude      []string `yaml:"exclude"`        // doublestar patterns, root-relative

	// Output settings
	Format string `yaml:"format"` // table, json, csv, markdown
	Color  string `yaml:"color"`  // auto, always, never

	Languages LanguagesConfig `yaml:"languages"`
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Watch     WatchConfig     `yaml:"watch"`
	History   HistoryConfig   `yaml:"history"`
}

// Valid values for the enumerated settings.
var (
	ValidFormats = []string{"table", "json", "csv", "markdown"}
	ValidColors  = []string{"auto", "always", "never"}
)

// DefaultSkipDirs are dependency and build directories that hold no
// first-party source.
var DefaultSkipDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "bower_components", "vendor",
	"target", "dist", "build", "out",
	"__pycache__", ".venv",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Jobs:         0,
		Gitignore:    true,
		MaxFileBytes: 5 * 1024 * 1024,
		SkipDirs:     append([]string(nil), DefaultSkipDirs...),
		Exclude:      []string{"**/*.min.js"},

		Format: "table",
		Color:  "auto",

		Languages: LanguagesConfig{},

		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},

		Store: StoreConfig{
			Path: filepath.Join(".tally", "snapshots.db"),
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},

		History: HistoryConfig{
			DayLimit:  30,
			WeekLimit: 12,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TALLY_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Jobs = n
		}
	}
	if v := os.Getenv("TALLY_FORMAT"); v != "" {
		c.Format = strings.ToLower(v)
	}
	if v := os.Getenv("TALLY_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("TALLY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	// https://no-color.org
	if os.Getenv("NO_COLOR") != "" {
		c.Color = "never"
	}
}

// GetJobs returns the number of scan workers, at least one.
func (c *Config) GetJobs() int {
	if c.Jobs <= 0 {
		return runtime.NumCPU()
	}
	return c.Jobs
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative: %d", c.Jobs)
	}
	if c.MaxFileBytes < 0 {
		return fmt.Errorf("max_file_bytes must not be negative: %d", c.MaxFileBytes)
	}
	if !oneOf(c.Format, ValidFormats) {
		return fmt.Errorf("invalid format: %s (valid: %v)", c.Format, ValidFormats)
	}
	if !oneOf(c.Color, ValidColors) {
		return fmt.Errorf("invalid color mode: %s (valid: %v)", c.Color, ValidColors)
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern: %q", p)
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	return c.History.Validate()
}

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}
