package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds the storage layout. Empty entries are derived from DataDir.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	OutputDir   string `toml:"output_dir"`
	ScratchDir  string `toml:"scratch_dir"`
	LogDir      string `toml:"log_dir"`
	DBPath      string `toml:"db_path"`
	TemplateDir string `toml:"template_dir"`
	EffectsDir  string `toml:"effects_dir"`
	FontsDir    string `toml:"fonts_dir"`
}

// Server holds HTTP API and job worker settings.
type Server struct {
	Port                int    `toml:"port"`
	Environment         string `toml:"environment"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// Video holds output geometry and encoder settings.
type Video struct {
	Orientation      string  `toml:"orientation"`
	VerticalWidth    int     `toml:"vertical_width"`
	VerticalHeight   int     `toml:"vertical_height"`
	HorizontalWidth  int     `toml:"horizontal_width"`
	HorizontalHeight int     `toml:"horizontal_height"`
	FPS              int     `toml:"fps"`
	SegmentDuration  float64 `toml:"segment_duration"`
	TimeLimit        float64 `toml:"time_limit"`
	CRF              int     `toml:"crf"`
	Preset           string  `toml:"preset"`
	FFmpegBinary     string  `toml:"ffmpeg_binary"`
	ScriptThreshold  int     `toml:"script_threshold"`
	OutroVertical    string  `toml:"outro_vertical"`
	OutroHorizontal  string  `toml:"outro_horizontal"`
}

// Transitions holds the xfade duration and palette.
type Transitions struct {
	Duration float64  `toml:"duration"`
	Types    []string `toml:"types"`
}

// Watermark holds the moving drawtext watermark settings.
type Watermark struct {
	Enabled   bool    `toml:"enabled"`
	Text      string  `toml:"text"`
	FontFile  string  `toml:"font_file"`
	FontSize  int     `toml:"font_size"`
	FontColor string  `toml:"font_color"`
	Opacity   float64 `toml:"opacity"`
	Speed     int     `toml:"speed"`
	Style     string  `toml:"style"`
}

// ParallaxPreset is one depth animation with its intensity range.
type ParallaxPreset struct {
	Name         string  `toml:"name"`
	MinIntensity float64 `toml:"min_intensity"`
	MaxIntensity float64 `toml:"max_intensity"`
}

// Parallax holds the depth clip render pool settings.
type Parallax struct {
	Enabled         bool             `toml:"enabled"`
	Binary          string           `toml:"binary"`
	Workers         int              `toml:"workers"`
	MinEffects      int              `toml:"min_effects"`
	MaxEffects      int              `toml:"max_effects"`
	ZoomProbability float64          `toml:"zoom_probability"`
	IsometricMin    float64          `toml:"isometric_min"`
	IsometricMax    float64          `toml:"isometric_max"`
	HeightMin       float64          `toml:"height_min"`
	HeightMax       float64          `toml:"height_max"`
	RenderHeight    int              `toml:"render_height"`
	Vignette        bool             `toml:"vignette"`
	DepthOfField    bool             `toml:"depth_of_field"`
	Presets         []ParallaxPreset `toml:"presets"`
}

// Audio holds soundtrack, voiceover and stab mixing settings.
type Audio struct {
	SoundtrackVolume float64 `toml:"soundtrack_volume"`
	FadeDuration     float64 `toml:"fade_duration"`
	VoiceoverDelay   float64 `toml:"voiceover_delay"`
	StabVolume       float64 `toml:"stab_volume"`
	StabFile         string  `toml:"stab_file"`
	SampleRate       int     `toml:"sample_rate"`
	Bitrate          string  `toml:"bitrate"`
	SidechainRatio   float64 `toml:"sidechain_ratio"`
	SidechainThresh  float64 `toml:"sidechain_threshold"`
	SidechainAttack  float64 `toml:"sidechain_attack"`
	SidechainRelease float64 `toml:"sidechain_release"`
}

// Chromakey describes a green-screen key.
type Chromakey struct {
	Color      string  `toml:"color"`
	Similarity float64 `toml:"similarity"`
	Blend      float64 `toml:"blend"`
}

// SubscribeOverlay holds the chromakeyed call-to-action clip settings.
type SubscribeOverlay struct {
	Enabled        bool      `toml:"enabled"`
	VerticalFile   string    `toml:"vertical_file"`
	HorizontalFile string    `toml:"horizontal_file"`
	Delay          float64   `toml:"delay"`
	Volume         float64   `toml:"volume"`
	Chromakey      Chromakey `toml:"chromakey"`
}

// TitleVideoOverlay holds the optional chromakeyed title clip settings.
type TitleVideoOverlay struct {
	Enabled         bool      `toml:"enabled"`
	File            string    `toml:"file"`
	AppearanceDelay float64   `toml:"appearance_delay"`
	Chromakey       Chromakey `toml:"chromakey"`
}

// Title holds the drawn title text settings.
type Title struct {
	Enabled           bool    `toml:"enabled"`
	FontFile          string  `toml:"font_file"`
	FontSize          int     `toml:"font_size"`
	FontColor         string  `toml:"font_color"`
	AppearanceDelay   float64 `toml:"appearance_delay"`
	VisibleDuration   float64 `toml:"visible_duration"`
	XOffset           int     `toml:"x_offset"`
	YOffset           int     `toml:"y_offset"`
	Opacity           float64 `toml:"opacity"`
	BackgroundEnabled bool    `toml:"background_enabled"`
	BackgroundColor   string  `toml:"background_color"`
	BackgroundOpacity float64 `toml:"background_opacity"`
	BackgroundBorder  int     `toml:"background_border"`
}

// Effects holds the full-frame effect overlay settings.
type Effects struct {
	Enabled     bool    `toml:"enabled"`
	OverlayFile string  `toml:"overlay_file"`
	Opacity     float64 `toml:"opacity"`
	BlendMode   string  `toml:"blend_mode"`
}

// Subtitles holds transcription and burn-in styling settings.
type Subtitles struct {
	Enabled          bool    `toml:"enabled"`
	WhisperBinary    string  `toml:"whisper_binary"`
	Model            string  `toml:"model"`
	Language         string  `toml:"language"`
	FontName         string  `toml:"font_name"`
	FontSize         int     `toml:"font_size"`
	FontColor        string  `toml:"font_color"`
	OutlineColor     string  `toml:"outline_color"`
	ShadowColor      string  `toml:"shadow_color"`
	OutlineThickness int     `toml:"outline_thickness"`
	Alignment        int     `toml:"alignment"`
	ShadowEnabled    bool    `toml:"shadow_enabled"`
	ShadowOpacity    float64 `toml:"shadow_opacity"`
	MaxLineWidth     int     `toml:"max_line_width"`
	TimeOffset       float64 `toml:"time_offset"`
	MarginL          int     `toml:"margin_l"`
	MarginR          int     `toml:"margin_r"`
	MarginV          int     `toml:"margin_v"`
}

// Probe holds the durations used when ffprobe cannot read a file.
type Probe struct {
	OutroFallback   float64 `toml:"outro_fallback"`
	OverlayFallback float64 `toml:"overlay_fallback"`
}

// Logging holds log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config holds all application configuration.
type Config struct {
	Paths             Paths             `toml:"paths"`
	Server            Server            `toml:"server"`
	Video             Video             `toml:"video"`
	Transitions       Transitions       `toml:"transitions"`
	Watermark         Watermark         `toml:"watermark"`
	Parallax          Parallax          `toml:"parallax"`
	Audio             Audio             `toml:"audio"`
	SubscribeOverlay  SubscribeOverlay  `toml:"subscribe_overlay"`
	TitleVideoOverlay TitleVideoOverlay `toml:"title_video_overlay"`
	Title             Title             `toml:"title"`
	Effects           Effects           `toml:"effects"`
	Subtitles         Subtitles         `toml:"subtitles"`
	Probe             Probe             `toml:"probe"`
	Logging           Logging           `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slideshow-compositor/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is not
// an error; defaults are used and exists is false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		projectPath, err := filepath.Abs("compositor.toml")
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
			return defaultPath, true, nil
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
		return defaultPath, false, nil
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

// applyEnv applies the environment overrides kept for deployment scripts.
func (c *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv("COMPOSITOR_ENV")); env != "" {
		c.Server.Environment = env
	}
	if dataPath := strings.TrimSpace(os.Getenv("COMPOSITOR_DATA_PATH")); dataPath != "" {
		c.Paths.DataDir = dataPath
	}
	if workers := strings.TrimSpace(os.Getenv("WORKERS")); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Parallax.Workers = n
		}
	}
}

func (c *Config) normalize() error {
	dataDir, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = dataDir

	derived := []struct {
		target *string
		name   string
	}{
		{&c.Paths.OutputDir, "videos"},
		{&c.Paths.ScratchDir, "scratch"},
		{&c.Paths.LogDir, "logs"},
		{&c.Paths.DBPath, "compositor.db"},
		{&c.Paths.TemplateDir, "templates"},
		{&c.Paths.EffectsDir, "effects"},
		{&c.Paths.FontsDir, "fonts"},
	}
	for _, d := range derived {
		if strings.TrimSpace(*d.target) == "" {
			*d.target = filepath.Join(dataDir, d.name)
			continue
		}
		expanded, err := expandPath(*d.target)
		if err != nil {
			return err
		}
		*d.target = expanded
	}

	c.Server.Environment = strings.ToLower(strings.TrimSpace(c.Server.Environment))
	c.Video.Orientation = strings.ToLower(strings.TrimSpace(c.Video.Orientation))
	c.Watermark.Style = strings.ToLower(strings.TrimSpace(c.Watermark.Style))
	c.Effects.BlendMode = strings.ToLower(strings.TrimSpace(c.Effects.BlendMode))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	for i, t := range c.Transitions.Types {
		c.Transitions.Types[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return nil
}

// Resolution returns the output frame size for an orientation. An empty
// orientation uses the configured default.
func (c *Config) Resolution(orientation string) (int, int) {
	if strings.TrimSpace(orientation) == "" {
		orientation = c.Video.Orientation
	}
	if strings.EqualFold(orientation, "horizontal") {
		return c.Video.HorizontalWidth, c.Video.HorizontalHeight
	}
	return c.Video.VerticalWidth, c.Video.VerticalHeight
}

// SubscribeOverlayPath returns the template clip matching the orientation.
func (c *Config) SubscribeOverlayPath(orientation string) string {
	if strings.TrimSpace(orientation) == "" {
		orientation = c.Video.Orientation
	}
	name := c.SubscribeOverlay.VerticalFile
	if strings.EqualFold(orientation, "horizontal") {
		name = c.SubscribeOverlay.HorizontalFile
	}
	return c.resolveIn(c.Paths.TemplateDir, name)
}

// OutroPath returns the template outro clip matching the orientation.
func (c *Config) OutroPath(orientation string) string {
	if strings.TrimSpace(orientation) == "" {
		orientation = c.Video.Orientation
	}
	name := c.Video.OutroVertical
	if strings.EqualFold(orientation, "horizontal") {
		name = c.Video.OutroHorizontal
	}
	return c.resolveIn(c.Paths.TemplateDir, name)
}

// TemplatePath resolves name against the template directory.
func (c *Config) TemplatePath(name string) string {
	return c.resolveIn(c.Paths.TemplateDir, name)
}

// EffectOverlayPath returns the absolute path of the effect overlay clip.
func (c *Config) EffectOverlayPath() string {
	return c.resolveIn(c.Paths.EffectsDir, c.Effects.OverlayFile)
}

// FontPath returns the absolute path of a font file in the fonts directory.
func (c *Config) FontPath(name string) string {
	return c.resolveIn(c.Paths.FontsDir, name)
}

func (c *Config) resolveIn(dir, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// EnsureDirectories creates the directories the compositor writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.Paths.ScratchDir, c.Paths.LogDir, filepath.Dir(c.Paths.DBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
