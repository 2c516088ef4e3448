package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
)

// ProbeResult is the subset of ffprobe JSON output the compositor reads.
type ProbeResult struct {
	Streams []ProbeStream `json:"streams"`
	Format  ProbeFormat   `json:"format"`
}

// ProbeStream describes one stream of a probed file.
type ProbeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

// ProbeFormat describes the container of a probed file.
type ProbeFormat struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

// HasAudio reports whether any stream carries audio.
func (r ProbeResult) HasAudio() bool {
	for _, s := range r.Streams {
		if s.CodecType == "audio" {
			return true
		}
	}
	return false
}

// Duration returns the container duration, falling back to the longest stream.
func (r ProbeResult) Duration() (float64, error) {
	if d, err := parseSeconds(r.Format.Duration); err == nil && d > 0 {
		return d, nil
	}
	longest := 0.0
	for _, s := range r.Streams {
		if d, err := parseSeconds(s.Duration); err == nil && d > longest {
			longest = d
		}
	}
	if longest <= 0 {
		return 0, fmt.Errorf("no duration reported")
	}
	return longest, nil
}

func parseSeconds(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("empty duration")
	}
	return strconv.ParseFloat(value, 64)
}

// ProbeFunc returns ffprobe JSON for a file.
type ProbeFunc func(path string) (string, error)

// DurationProber is implemented by anything able to report a media duration.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Prober reads media metadata through ffprobe.
type Prober struct {
	probe ProbeFunc
}

// NewProber returns a prober backed by ffmpeg-go. A nil probe uses ffprobe.
func NewProber(probe ProbeFunc) *Prober {
	if probe == nil {
		probe = func(path string) (string, error) { return ffmpeg.Probe(path) }
	}
	return &Prober{probe: probe}
}

// Probe runs ffprobe and decodes its output.
func (p *Prober) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return ProbeResult{}, err
	}
	raw, err := p.probe(path)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe %s failed: %w", path, err)
	}
	var result ProbeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return result, nil
}

// Duration returns the duration of a media file in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	result, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	d, err := result.Duration()
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return d, nil
}

// HasAudio reports whether a file carries an audio stream. Probe failures
// report false.
func (p *Prober) HasAudio(ctx context.Context, path string) bool {
	result, err := p.Probe(ctx, path)
	return err == nil && result.HasAudio()
}

// DurationOr probes a duration and falls back to a default with a warning
// when the probe fails. It never returns an error.
func DurationOr(ctx context.Context, p DurationProber, path string, fallback float64, logger *slog.Logger) float64 {
	d, err := p.Duration(ctx, path)
	if err == nil && d > 0 {
		return d
	}
	logging.WarnWithContext(logger, "duration probe failed, using fallback", "probe_fallback",
		logging.String("path", path),
		logging.Float64("fallback_seconds", fallback),
		logging.Error(err),
		logging.String(logging.FieldImpact, "timing derived from default duration"),
		logging.String(logging.FieldErrorHint, "check the file with ffprobe"),
	)
	return fallback
}
