package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"linetally/internal/config"
)

func resetLogging(t *testing.T) {
	t.Helper()
	Init(nil)
	t.Cleanup(func() { Init(nil) })
}

func TestGet_NoopBeforeInit(t *testing.T) {
	resetLogging(t)

	l := Get(CategoryScan)
	require.NotNil(t, l)
	l.Info("discarded")
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestGet_NamedChildren(t *testing.T) {
	resetLogging(t)

	core, logs := observer.New(zapcore.DebugLevel)
	Init(zap.New(core))

	for _, c := range Categories {
		Get(c).Debug("hello", zap.String("cat", string(c)))
	}

	entries := logs.All()
	require.Len(t, entries, len(Categories))
	for i, c := range Categories {
		assert.Equal(t, string(c), entries[i].LoggerName)
	}
}

func TestGet_Cached(t *testing.T) {
	resetLogging(t)
	Init(zap.NewExample())
	assert.Same(t, Get(CategoryStore), Get(CategoryStore))
}

func TestInit_DropsCache(t *testing.T) {
	resetLogging(t)

	before := Get(CategoryWatch)
	core, logs := observer.New(zapcore.InfoLevel)
	Init(zap.New(core))
	after := Get(CategoryWatch)

	assert.NotSame(t, before, after)
	after.Info("rescan")
	assert.Equal(t, 1, logs.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBuild_Levels(t *testing.T) {
	l, err := Build(config.LoggingConfig{Level: "warn", Format: "json"}, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = Build(config.LoggingConfig{Level: "warn"}, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestBuild_Invalid(t *testing.T) {
	_, err := Build(config.LoggingConfig{Level: "shout"}, false)
	assert.Error(t, err)

	_, err = Build(config.LoggingConfig{Format: "xml"}, false)
	assert.Error(t, err)
}

func TestBuild_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tally.log")

	l, err := Build(config.LoggingConfig{Level: "info", Format: "json", File: path}, false)
	require.NoError(t, err)
	l.Named(string(CategoryConfig)).Info("loaded", zap.String("path", ".tally.yaml"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"logger":"config"`), string(data))
	assert.Contains(t, string(data), `"path":".tally.yaml"`)
}

func TestTimer(t *testing.T) {
	resetLogging(t)
	core, logs := observer.New(zapcore.DebugLevel)
	Init(zap.New(core))

	StartTimer(CategoryScan, "scan").Stop(zap.Int("files", 3))
	StartTimer(CategoryScan, "scan").StopWithThreshold(-time.Second)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "scan completed", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "scan slow", entries[1].Message)
}
