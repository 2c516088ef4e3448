package parallax

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
)

// Variant is one render of a scene.
type Variant struct {
	Height int
	Time   float64
	Loop   int
	FPS    int
}

// Job is one engine invocation.
type Job struct {
	Image   string
	Output  string
	Params  Params
	Variant Variant
}

// Engine renders a depth clip for an image and returns its path.
type Engine interface {
	Render(ctx context.Context, job Job) (string, error)
}

// CommandEngine drives a depth engine CLI such as depthflow through a
// render.Runner.
type CommandEngine struct {
	runner render.Runner
}

func NewCommandEngine(runner render.Runner) *CommandEngine {
	return &CommandEngine{runner: runner}
}

// Render runs the engine and checks that the clip was written.
func (e *CommandEngine) Render(ctx context.Context, job Job) (string, error) {
	if err := os.MkdirAll(filepath.Dir(job.Output), 0755); err != nil {
		return "", fmt.Errorf("failed to create clip directory: %w", err)
	}
	stage := "parallax " + filepath.Base(job.Image)
	if err := e.runner.Run(ctx, stage, CommandArgs(job)); err != nil {
		return "", err
	}
	if _, err := os.Stat(job.Output); err != nil {
		return "", fmt.Errorf("depth engine wrote no clip for %s: %w", job.Image, err)
	}
	return job.Output, nil
}

// CommandArgs renders a job as depth engine subcommands: the input, the
// static scene state, one subcommand per animation, then the render. The
// output path is the last argument.
func CommandArgs(job Job) []string {
	args := []string{"input", "-i", job.Image}

	args = append(args, "state",
		"--isometric", filtergraph.Num(job.Params.Isometric),
		"--height", filtergraph.Num(job.Params.Height),
	)
	if job.Params.Vignette {
		args = append(args, "--vignette")
	}
	if job.Params.DepthOfField {
		args = append(args, "--dof")
	}

	for _, a := range job.Params.Animations {
		args = append(args, strings.ToLower(a.Preset), "--intensity", filtergraph.Num(a.Intensity))
		if a.Loop {
			args = append(args, "--loop")
		}
		if a.Reverse {
			args = append(args, "--reverse")
		}
	}

	v := job.Variant
	args = append(args, "main",
		"--height", strconv.Itoa(v.Height),
		"--time", filtergraph.Num(v.Time),
		"--loop", strconv.Itoa(v.Loop),
		"--fps", strconv.Itoa(v.FPS),
		"--output", job.Output,
	)
	return args
}
