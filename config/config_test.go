package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compositor.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.normalize())
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("COMPOSITOR_DATA_PATH", dataDir)

	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NotEmpty(t, path)
	assert.Equal(t, defaultFPS, cfg.Video.FPS)
	assert.Equal(t, filepath.Join(dataDir, "videos"), cfg.Paths.OutputDir)
	assert.Equal(t, filepath.Join(dataDir, "compositor.db"), cfg.Paths.DBPath)
}

func TestLoadSampleConfig(t *testing.T) {
	t.Setenv("COMPOSITOR_DATA_PATH", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, CreateSample(path))

	cfg, resolved, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, 0.5, cfg.Transitions.Duration)
	assert.Equal(t, "65db41", cfg.SubscribeOverlay.Chromakey.Color)
	assert.Equal(t, 42, cfg.Subtitles.MaxLineWidth)
	assert.Equal(t, []int{10, 10, 10}, []int{cfg.Subtitles.MarginL, cfg.Subtitles.MarginR, cfg.Subtitles.MarginV})
	assert.Equal(t, "base_transition_500ms.mp3", cfg.Audio.StabFile)
	assert.NotEmpty(t, cfg.Parallax.Presets)
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+filepath.ToSlash(dataDir)+`"
fonts_dir = "/opt/fonts"

[video]
orientation = "Horizontal"
segment_duration = 4.0

[transitions]
duration = 1.0
types = ["FADE", "wipeleft"]
`)
	cfg, _, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "horizontal", cfg.Video.Orientation)
	assert.Equal(t, []string{"fade", "wipeleft"}, cfg.Transitions.Types)
	assert.Equal(t, "/opt/fonts", cfg.Paths.FontsDir)

	w, h := cfg.Resolution("")
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
	w, h = cfg.Resolution("vertical")
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)
}

func TestLoadRejectsTransitionNotShorterThanSegment(t *testing.T) {
	t.Setenv("COMPOSITOR_DATA_PATH", t.TempDir())
	path := writeConfig(t, `
[video]
segment_duration = 0.5

[transitions]
duration = 0.5
`)
	_, _, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be shorter than video.segment_duration")
}

func TestWorkersEnvOverride(t *testing.T) {
	t.Setenv("COMPOSITOR_DATA_PATH", t.TempDir())
	t.Setenv("WORKERS", "6")
	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Parallax.Workers)
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]func(*Config){
		"zero workers":       func(c *Config) { c.Parallax.Workers = 0 },
		"inverted effects":   func(c *Config) { c.Parallax.MinEffects = 5; c.Parallax.MaxEffects = 2 },
		"inverted isometric": func(c *Config) { c.Parallax.IsometricMin = 0.9 },
		"bad watermark":      func(c *Config) { c.Watermark.Enabled = true; c.Watermark.Style = "spiral" },
		"bad title colour":   func(c *Config) { c.Title.FontColor = "#FFF" },
		"bad key colour":     func(c *Config) { c.SubscribeOverlay.Chromakey.Color = "green" },
		"effects no file":    func(c *Config) { c.Effects.Enabled = true },
		"bad orientation":    func(c *Config) { c.Video.Orientation = "square" },
		"negative margin":    func(c *Config) { c.Subtitles.Enabled = true; c.Subtitles.MarginV = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.normalize())
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRandomTitleColourAllowed(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.normalize())
	cfg.Title.FontColor = "random"
	assert.NoError(t, cfg.Validate())
}

func TestAssetPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.TemplateDir = "/data/templates"
	cfg.Paths.EffectsDir = "/data/effects"
	cfg.Effects.OverlayFile = "grain.mp4"

	assert.Equal(t, "/data/templates/name_subscribe_like.mp4", cfg.SubscribeOverlayPath("vertical"))
	assert.Equal(t, "/data/templates/name_subscribe_like_horizontal.mp4", cfg.SubscribeOverlayPath("horizontal"))
	assert.Equal(t, "/data/effects/grain.mp4", cfg.EffectOverlayPath())
	assert.Equal(t, "/abs/font.ttf", cfg.FontPath("/abs/font.ttf"))
}

func TestOutroPath(t *testing.T) {
	cfg := Default()
	cfg.Paths.TemplateDir = "/data/templates"
	assert.Equal(t, "/data/templates/outro_vertical.mp4", cfg.OutroPath(""))
	assert.Equal(t, "/data/templates/outro_horizontal.mp4", cfg.OutroPath("horizontal"))
	assert.Equal(t, "/data/templates/title.mp4", cfg.TemplatePath("title.mp4"))
}
