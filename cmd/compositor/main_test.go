package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("COMPOSITOR_DATA_PATH", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "compositor.toml")
	body := "[paths]\ndata_dir = \"" + filepath.ToSlash(filepath.Join(dir, "data")) + "\"\n\n[logging]\nformat = \"json\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample configuration to "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[video]")

	_, err = execute(t, "config", "init", "--path", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--path", target, "--overwrite")
	assert.NoError(t, err)
}

func TestConfigValidate(t *testing.T) {
	path := writeTestConfig(t)

	out, err := execute(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Config path: "+path)
	assert.Contains(t, out, "Warning: Vertical outro not found")
	assert.Contains(t, out, "Configuration valid")
	assert.NotContains(t, out, "defaults were used")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 0\n"), 0o644))

	_, err := execute(t, "--config", path, "config", "validate")
	assert.Error(t, err)
}

func TestJobsAddAndList(t *testing.T) {
	path := writeTestConfig(t)
	media := t.TempDir()

	out, err := execute(t, "--config", path, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No jobs")

	out, err = execute(t, "--config", path, "jobs", "add", "--media", media, "--title", "Beach Day", "--priority", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Queued job 1")

	_, err = execute(t, "--config", path, "jobs", "add", "--media", media)
	require.NoError(t, err)

	out, err = execute(t, "--config", path, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Beach Day")
	assert.Contains(t, out, "queued")
	assert.Contains(t, out, media)
	assert.Less(t, strings.Index(out, "Beach Day"), strings.Index(out, media))
}

func TestJobsAddRequiresMedia(t *testing.T) {
	path := writeTestConfig(t)
	_, err := execute(t, "--config", path, "jobs", "add")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of --manifest or --media is required")
}

func TestLoadManifestResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	body := `title = "Trip"
media_dir = "photos"
soundtrack = "song.mp3"
stabs = ["whoosh.wav"]
seed = 42
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	m, err := loadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "Trip", m.Title)
	assert.Equal(t, filepath.Join(dir, "photos"), m.MediaDir)
	assert.Equal(t, "song.mp3", m.Soundtrack)
	assert.Equal(t, []string{"whoosh.wav"}, m.Stabs)
	assert.Equal(t, uint64(42), m.Seed)
	assert.Empty(t, m.OutputDir)
}

func TestLoadManifestRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.toml")
	require.NoError(t, os.WriteFile(path, []byte("media_dir = \"/m\"\nmedia_dri = \"/x\"\n"), 0o644))
	_, err := loadManifest(path)
	assert.Error(t, err)
}

func TestManifestFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	require.NoError(t, os.WriteFile(path, []byte("title = \"File\"\nmedia_dir = \"/m\"\nseed = 1\n"), 0o644))

	f := manifestFlags{path: path, title: "Flag", seed: 9}
	m, err := f.manifest()
	require.NoError(t, err)
	assert.Equal(t, "Flag", m.Title)
	assert.Equal(t, filepath.Clean("/m"), m.MediaDir)
	assert.Equal(t, uint64(9), m.Seed)
}

func TestRenderTablePadsRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}}, []columnAlignment{alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "1")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}
