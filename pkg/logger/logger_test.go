package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	log, err := NewLogger(
		WithLevel("debug"),
		WithOutputPaths([]string{path}),
		WithInitialFields(map[string]interface{}{"service": "pdf2md"}),
	)
	require.NoError(t, err)

	log.Named("test").Info("hello", String("engine", "tesseract"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"engine":"tesseract"`)
	assert.Contains(t, string(data), `"service":"pdf2md"`)
	assert.Contains(t, string(data), `"logger":"test"`)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(WithLevel("loud"), WithOutputPaths([]string{"stderr"}))
	assert.Error(t, err)
}

func TestTestLogger_SharesEntriesAcrossChildren(t *testing.T) {
	root := NewTestLogger()
	child := root.Named("convert").With(String("runId", "abc"))

	root.Info("root message")
	child.Warn("child message", Int("page", 2))

	entries := root.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "convert", entries[1].Name)
	assert.Len(t, entries[1].Fields, 2)
	assert.Equal(t, []string{"child message"}, root.Messages("WARN"))

	root.Clear()
	assert.Empty(t, root.GetEntries())
}

func TestNewLogger_DevelopmentAddsStacktrace(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name  string
		dev   bool
		trace bool
	}{
		{name: "production", dev: false, trace: false},
		{name: "development", dev: true, trace: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".log")
			log, err := NewLogger(
				WithLevel("debug"),
				WithEncoding("json"),
				WithDevelopment(tt.dev),
				WithOutputPaths([]string{path}),
			)
			require.NoError(t, err)

			log.Warn("engine returned empty")
			_ = log.Sync()

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"level":"warn"`)
			if tt.trace {
				assert.Contains(t, string(data), `"stacktrace"`)
			} else {
				assert.NotContains(t, string(data), `"stacktrace"`)
			}
		})
	}
}

func TestOptions_ApplyToConfig(t *testing.T) {
	cfg := &Config{}
	for _, opt := range []Option{
		WithLevel("warn"),
		WithEncoding("json"),
		WithDevelopment(true),
		WithOutputPaths([]string{"stdout"}),
	} {
		opt(cfg)
	}

	assert.Equal(t, &Config{
		Level:       "warn",
		Encoding:    "json",
		Development: true,
		OutputPaths: []string{"stdout"},
	}, cfg)
}
