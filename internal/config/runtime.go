package config

import (
	"fmt"
	"time"
)

// LanguagesConfig extends language detection.
type LanguagesConfig struct {
	// Extensions maps an extra file extension to a language name.
	Extensions map[string]string `yaml:"extensions,omitempty"`
	// Overrides maps a glob over slash-separated paths to a language name.
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// StoreConfig configures the snapshot database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// GetDebounce returns the debounce interval as a duration.
func (c WatchConfig) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Validate rejects an unparsable debounce.
func (c WatchConfig) Validate() error {
	if c.Debounce == "" {
		return nil
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return fmt.Errorf("invalid watch debounce %q: %w", c.Debounce, err)
	}
	if d <= 0 {
		return fmt.Errorf("watch debounce must be positive: %s", c.Debounce)
	}
	return nil
}

// HistoryConfig limits the rows shown by the history table.
type HistoryConfig struct {
	DayLimit  int `yaml:"day_limit"`
	WeekLimit int `yaml:"week_limit"`
}

// Validate requires positive limits.
func (c HistoryConfig) Validate() error {
	if c.DayLimit <= 0 || c.WeekLimit <= 0 {
		return fmt.Errorf("history limits must be positive (day_limit=%d, week_limit=%d)", c.DayLimit, c.WeekLimit)
	}
	return nil
}
