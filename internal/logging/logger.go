// Package logging provides categorized zap loggers for linetally.
// A single root logger is built from config at startup; every subsystem asks
// for a named child by category. Logs go to stderr (and optionally a file) so
// stdout stays machine-readable.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"linetally/internal/config"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryScan     Category = "scan"     // Discovery and file processing
	CategoryClassify Category = "classify" // Per-line classification
	CategoryHistory  Category = "history"  // Git history analysis
	CategoryWatch    Category = "watch"    // Filesystem watcher
	CategoryStore    Category = "store"    // Snapshot database
	CategoryAudit    Category = "audit"    // Tree-sitter cross-check
	CategoryConfig   Category = "config"   // Configuration loading
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategoryScan,
	CategoryClassify,
	CategoryHistory,
	CategoryWatch,
	CategoryStore,
	CategoryAudit,
	CategoryConfig,
}

var (
	root     = zap.NewNop()
	loggers  = make(map[Category]*zap.Logger)
	loggerMu sync.RWMutex
)

// ParseLevel maps a config level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Build creates the root logger. verbose forces debug level.
func Build(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch cfg.Format {
	case "", "console":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zc.Sampling = nil
	case "json":
		zc.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// Init installs the root logger and drops cached category loggers.
func Init(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	root = l
	loggers = make(map[Category]*zap.Logger)
}

// Get returns the logger for a category. Before Init it is a no-op logger.
func Get(category Category) *zap.Logger {
	loggerMu.RLock()
	if l, ok := loggers[category]; ok {
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	loggerMu.Lock()
	defer loggerMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	l := root.Named(string(category))
	loggers[category] = l
	return l
}

// Sync flushes the root logger. Errors from syncing a terminal are ignored.
func Sync() {
	loggerMu.RLock()
	l := root
	loggerMu.RUnlock()
	_ = l.Sync()
}

// Timer tracks the duration of an operation.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop(fields ...zap.Field) time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug(t.op+" completed", append(fields, zap.Duration("elapsed", elapsed))...)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration, fields ...zap.Field) time.Duration {
	elapsed := time.Since(t.start)
	fields = append(fields, zap.Duration("elapsed", elapsed))
	if elapsed > threshold {
		Get(t.category).Warn(t.op+" slow", append(fields, zap.Duration("threshold", threshold))...)
	} else {
		Get(t.category).Debug(t.op+" completed", fields...)
	}
	return elapsed
}
