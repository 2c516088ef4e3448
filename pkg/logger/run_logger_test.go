package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoggerWritesSections(t *testing.T) {
	dir := t.TempDir()
	rl, err := NewRunLogger(dir, "run-1", "Holiday")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-1", "log.txt"), rl.Path())

	rl.Phase("slideshow", "building base video")
	rl.Property("segments", 5)
	rl.Size("output_size", 1536)
	rl.Command("ffmpeg -y -i a.png out.mp4")
	rl.Output("")
	rl.Output("frame=1")
	rl.Error("boom %d", 7)
	require.NoError(t, rl.Close(false, "renderer failed"))

	rl.Info("after close is ignored")
	require.NoError(t, rl.Close(true, ""))

	data, err := os.ReadFile(rl.Path())
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Run ID: run-1")
	assert.Contains(t, text, "Title: Holiday")
	assert.Contains(t, text, "PHASE: slideshow")
	assert.Contains(t, text, "Description: building base video")
	assert.Contains(t, text, "PROPERTY: segments = 5")
	assert.Contains(t, text, "PROPERTY: output_size = 1.5 kB")
	assert.Contains(t, text, "COMMAND: ffmpeg -y -i a.png out.mp4")
	assert.Contains(t, text, "OUTPUT:\nframe=1")
	assert.Contains(t, text, "ERROR: boom 7")
	assert.Contains(t, text, "RUN FAILED")
	assert.NotContains(t, text, "after close")
}
