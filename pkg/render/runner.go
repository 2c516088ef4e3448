// Package render runs the ffmpeg renderer. Every invocation goes through a
// Runner so pipelines can be exercised with a recording fake.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
)

// DefaultScriptThreshold is the filter graph size above which the graph is
// passed through -filter_complex_script instead of the command line.
const DefaultScriptThreshold = 100000

// Runner executes one renderer invocation. stage names the pipeline step for
// logs and errors.
type Runner interface {
	Run(ctx context.Context, stage string, args []string) error
}

// CommandLog receives command lines and their output.
type CommandLog interface {
	Command(cmd string)
	Output(output string)
}

// ExecRunner runs the renderer binary as a child process.
type ExecRunner struct {
	Binary string
	Logger *slog.Logger
	Log    CommandLog
}

// NewExecRunner returns a runner for binary; an empty binary means ffmpeg.
func NewExecRunner(binary string, logger *slog.Logger, log CommandLog) *ExecRunner {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecRunner{Binary: binary, Logger: logger, Log: log}
}

// Run executes the renderer and fails with its combined output. Cancelling
// ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, stage string, args []string) error {
	if r.Log != nil {
		r.Log.Command(r.Binary + " " + strings.Join(args, " "))
	}
	start := time.Now()
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	output, err := cmd.CombinedOutput()
	if r.Log != nil {
		r.Log.Output(string(output))
	}
	if err != nil {
		tool := filepath.Base(r.Binary)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s cancelled: %w", tool, stage, ctxErr)
		}
		return fmt.Errorf("%s %s failed: %w\nOutput: %s", tool, stage, err, output)
	}
	r.Logger.Debug("renderer stage finished",
		logging.String(logging.FieldStage, stage),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// ProgramOptions controls how a Program is turned into arguments.
type ProgramOptions struct {
	ScriptThreshold int
	ScriptDir       string
}

// ProgramArgs renders the full argument list for a program writing to
// outputPath. Large graphs are written to a script file; the returned cleanup
// removes it and must always be called.
func ProgramArgs(prog filtergraph.Program, outputArgs []string, outputPath string, opts ProgramOptions) ([]string, func(), error) {
	cleanup := func() {}
	args := []string{"-y"}
	args = append(args, prog.InputArgs()...)

	if graph := prog.FilterComplex(); graph != "" {
		threshold := opts.ScriptThreshold
		if threshold <= 0 {
			threshold = DefaultScriptThreshold
		}
		if len(graph) > threshold {
			file, err := os.CreateTemp(opts.ScriptDir, "ffmpeg-filter-*.txt")
			if err != nil {
				return nil, cleanup, fmt.Errorf("failed to create filter file: %w", err)
			}
			name := file.Name()
			cleanup = func() { os.Remove(name) }
			if _, err := file.WriteString(graph); err != nil {
				file.Close()
				return nil, cleanup, fmt.Errorf("failed to write filter file: %w", err)
			}
			if err := file.Close(); err != nil {
				return nil, cleanup, fmt.Errorf("failed to write filter file: %w", err)
			}
			args = append(args, "-filter_complex_script", name)
		} else {
			args = append(args, "-filter_complex", graph)
		}
	}

	args = append(args, prog.MapArgs()...)
	args = append(args, outputArgs...)
	args = append(args, outputPath)
	return args, cleanup, nil
}

// RunProgram renders prog and runs it.
func RunProgram(ctx context.Context, r Runner, stage string, prog filtergraph.Program, outputArgs []string, outputPath string, opts ProgramOptions) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	args, cleanup, err := ProgramArgs(prog, outputArgs, outputPath, opts)
	defer cleanup()
	if err != nil {
		return err
	}
	return r.Run(ctx, stage, args)
}

// Invocation is a ready-to-run program with its output arguments.
type Invocation struct {
	Stage      string
	Program    filtergraph.Program
	OutputArgs []string
	Output     string
}

// Args renders the invocation's argument list; see ProgramArgs.
func (inv Invocation) Args(opts ProgramOptions) ([]string, func(), error) {
	return ProgramArgs(inv.Program, inv.OutputArgs, inv.Output, opts)
}

// Run executes the invocation through r.
func (inv Invocation) Run(ctx context.Context, r Runner, opts ProgramOptions) error {
	return RunProgram(ctx, r, inv.Stage, inv.Program, inv.OutputArgs, inv.Output, opts)
}
