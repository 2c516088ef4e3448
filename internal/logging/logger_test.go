package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONWritesStandardKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "compositor.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	NewComponentLogger(logger, "mixer").Info("stage complete", Args(String("stage", "soundtrack"), Int("inputs", 2))...)
	logger.Debug("hidden")

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "stage complete", entry["msg"])
	assert.Equal(t, "mixer", entry["component"])
	assert.Equal(t, "soundtrack", entry["stage"])
	assert.Contains(t, entry, "ts")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml", OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")}})
	require.Error(t, err)
}

func TestResolveFormatAutoToFileIsJSON(t *testing.T) {
	assert.Equal(t, "json", resolveFormat("auto", []string{"/tmp/compositor.log"}))
	assert.Equal(t, "console", resolveFormat("console", nil))
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	WarnWithContext(logger, "probe failed", "probe_fallback", Error(errors.New("boom")), String(FieldImpact, "default duration used"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "probe_fallback", entry[FieldEventType])
	assert.Equal(t, "check logs for details", entry[FieldErrorHint])
	assert.Equal(t, "default duration used", entry[FieldImpact])
}

func TestConsoleHandlerFormatsComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, err := New(Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	require.NoError(t, err)

	NewComponentLogger(logger, "pool").Info("worker started", Args(String("image", "a.jpg"))...)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "[pool] worker started")
	assert.Contains(t, out, "- image=a.jpg")
}
