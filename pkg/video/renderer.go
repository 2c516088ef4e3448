package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
)

// Renderer runs video invocations and keeps timing statistics
type Renderer struct {
	runner  render.Runner
	opts    render.ProgramOptions
	logger  *slog.Logger
	Timings *render.Timings
}

// NewRenderer wraps runner. opts controls filter script spilling.
func NewRenderer(runner render.Runner, opts render.ProgramOptions, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		runner:  runner,
		opts:    opts,
		logger:  logger,
		Timings: render.NewTimings(5),
	}
}

// Render runs inv and verifies its output exists.
func (vr *Renderer) Render(ctx context.Context, inv render.Invocation) error {
	startTime := time.Now()
	if err := inv.Run(ctx, vr.runner, vr.opts); err != nil {
		return err
	}
	duration := time.Since(startTime)
	vr.Timings.Add(duration)

	if !fileExists(inv.Output) {
		return fmt.Errorf("ffmpeg %s produced no output at %s", inv.Stage, inv.Output)
	}
	vr.logger.Info("video stage rendered",
		logging.String(logging.FieldStage, inv.Stage),
		logging.Duration("elapsed", duration),
		logging.Duration("average", vr.Timings.Mean()),
	)
	return nil
}

// AverageRenderTime returns the mean of the recent render durations
func (vr *Renderer) AverageRenderTime() time.Duration {
	return vr.Timings.Mean()
}

// sanitizeText keeps letters, digits, and simple punctuation. Quotes,
// colons and backslashes are dropped so the text is safe inside a quoted
// drawtext value.
func sanitizeText(text string) string {
	var result strings.Builder
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			result.WriteRune(r)
		case r == ' ', r == ',', r == '.', r == '?', r == '!', r == '-', r == '(', r == ')', r == '@', r == '_':
			result.WriteRune(r)
		}
	}
	return result.String()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
