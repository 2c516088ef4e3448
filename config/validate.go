package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateVideo,
		c.validateTransitions,
		c.validateWatermark,
		c.validateParallax,
		c.validateAudio,
		c.validateOverlays,
		c.validateTitle,
		c.validateEffects,
		c.validateSubtitles,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PollIntervalSeconds <= 0 {
		return errors.New("server.poll_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateVideo() error {
	switch c.Video.Orientation {
	case "vertical", "horizontal":
	default:
		return fmt.Errorf("video.orientation must be vertical or horizontal, got %q", c.Video.Orientation)
	}
	if c.Video.VerticalWidth <= 0 || c.Video.VerticalHeight <= 0 || c.Video.HorizontalWidth <= 0 || c.Video.HorizontalHeight <= 0 {
		return errors.New("video resolution values must be positive")
	}
	if c.Video.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if c.Video.SegmentDuration <= 0 {
		return errors.New("video.segment_duration must be positive")
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return fmt.Errorf("video.crf must be between 0 and 51, got %d", c.Video.CRF)
	}
	if strings.TrimSpace(c.Video.FFmpegBinary) == "" {
		return errors.New("video.ffmpeg_binary must be set")
	}
	return nil
}

func (c *Config) validateTransitions() error {
	if c.Transitions.Duration <= 0 {
		return errors.New("transitions.duration must be positive")
	}
	if c.Transitions.Duration >= c.Video.SegmentDuration {
		return fmt.Errorf("transitions.duration (%.2f) must be shorter than video.segment_duration (%.2f)",
			c.Transitions.Duration, c.Video.SegmentDuration)
	}
	if len(c.Transitions.Types) == 0 {
		return errors.New("transitions.types must list at least one transition")
	}
	return nil
}

func (c *Config) validateWatermark() error {
	if !c.Watermark.Enabled {
		return nil
	}
	switch c.Watermark.Style {
	case "ccw", "random":
	default:
		return fmt.Errorf("watermark.style must be ccw or random, got %q", c.Watermark.Style)
	}
	if c.Watermark.Speed <= 0 {
		return errors.New("watermark.speed must be positive")
	}
	if c.Watermark.Opacity < 0 || c.Watermark.Opacity > 1 {
		return errors.New("watermark.opacity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateParallax() error {
	p := c.Parallax
	if p.Workers <= 0 {
		return errors.New("parallax.workers must be at least 1")
	}
	if p.MinEffects <= 0 || p.MinEffects > p.MaxEffects {
		return fmt.Errorf("parallax effect range [%d, %d] is invalid", p.MinEffects, p.MaxEffects)
	}
	if p.IsometricMin > p.IsometricMax {
		return errors.New("parallax.isometric_min must not exceed isometric_max")
	}
	if p.HeightMin > p.HeightMax {
		return errors.New("parallax.height_min must not exceed height_max")
	}
	if p.ZoomProbability < 0 || p.ZoomProbability > 1 {
		return errors.New("parallax.zoom_probability must be between 0 and 1")
	}
	if !p.Enabled {
		return nil
	}
	if len(p.Presets) == 0 {
		return errors.New("parallax.presets must not be empty when parallax is enabled")
	}
	for _, preset := range p.Presets {
		if strings.TrimSpace(preset.Name) == "" {
			return errors.New("parallax preset name must be set")
		}
		if preset.MinIntensity > preset.MaxIntensity {
			return fmt.Errorf("parallax preset %s has an inverted intensity range", preset.Name)
		}
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.FadeDuration < 0 || c.Audio.VoiceoverDelay < 0 {
		return errors.New("audio fade and delay durations must not be negative")
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.SidechainRatio < 1 {
		return errors.New("audio.sidechain_ratio must be at least 1")
	}
	return nil
}

func (c *Config) validateOverlays() error {
	if c.SubscribeOverlay.Enabled {
		if err := validateColor("subscribe_overlay.chromakey.color", c.SubscribeOverlay.Chromakey.Color, false); err != nil {
			return err
		}
		if c.SubscribeOverlay.Delay < 0 {
			return errors.New("subscribe_overlay.delay must not be negative")
		}
	}
	if c.TitleVideoOverlay.Enabled {
		if strings.TrimSpace(c.TitleVideoOverlay.File) == "" {
			return errors.New("title_video_overlay.file must be set when the overlay is enabled")
		}
		if err := validateColor("title_video_overlay.chromakey.color", c.TitleVideoOverlay.Chromakey.Color, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateTitle() error {
	if !c.Title.Enabled {
		return nil
	}
	if err := validateColor("title.font_color", c.Title.FontColor, true); err != nil {
		return err
	}
	if c.Title.BackgroundEnabled {
		if err := validateColor("title.background_color", c.Title.BackgroundColor, false); err != nil {
			return err
		}
	}
	if c.Title.VisibleDuration <= 0 {
		return errors.New("title.visible_duration must be positive")
	}
	return nil
}

func (c *Config) validateEffects() error {
	if !c.Effects.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Effects.OverlayFile) == "" {
		return errors.New("effects.overlay_file must be set when effects are enabled")
	}
	if c.Effects.Opacity < 0 || c.Effects.Opacity > 1 {
		return errors.New("effects.opacity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if !c.Subtitles.Enabled {
		return nil
	}
	for _, color := range []struct{ name, value string }{
		{"subtitles.font_color", c.Subtitles.FontColor},
		{"subtitles.outline_color", c.Subtitles.OutlineColor},
		{"subtitles.shadow_color", c.Subtitles.ShadowColor},
	} {
		if err := validateColor(color.name, color.value, false); err != nil {
			return err
		}
	}
	if c.Subtitles.MaxLineWidth <= 0 {
		return errors.New("subtitles.max_line_width must be positive")
	}
	if c.Subtitles.ShadowOpacity < 0 || c.Subtitles.ShadowOpacity > 1 {
		return errors.New("subtitles.shadow_opacity must be between 0 and 1")
	}
	if c.Subtitles.MarginL < 0 || c.Subtitles.MarginR < 0 || c.Subtitles.MarginV < 0 {
		return errors.New("subtitles margins must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "auto", "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format must be auto, json or console, got %q", c.Logging.Format)
	}
}

func validateColor(name, value string, allowRandom bool) error {
	if allowRandom && strings.EqualFold(value, "random") {
		return nil
	}
	if !hexColorPattern.MatchString(value) {
		return fmt.Errorf("%s must be a 6 digit hex colour, got %q", name, value)
	}
	return nil
}
