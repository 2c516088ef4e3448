// Package rendertest provides a recording render.Runner for tests.
package rendertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInjected is returned for stages configured to fail.
var ErrInjected = errors.New("injected renderer failure")

// Call is one recorded invocation.
type Call struct {
	Stage string
	Args  []string
}

// Output returns the invocation's output path, its last argument.
func (c Call) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// Has reports whether the argument list contains flag immediately followed by value.
func (c Call) Has(flag, value string) bool {
	for i := 0; i+1 < len(c.Args); i++ {
		if c.Args[i] == flag && c.Args[i+1] == value {
			return true
		}
	}
	return false
}

// Value returns the argument following flag.
func (c Call) Value(flag string) string {
	for i := 0; i+1 < len(c.Args); i++ {
		if c.Args[i] == flag {
			return c.Args[i+1]
		}
	}
	return ""
}

// Values returns every argument following flag, in order.
func (c Call) Values(flag string) []string {
	var out []string
	for i := 0; i+1 < len(c.Args); i++ {
		if c.Args[i] == flag {
			out = append(out, c.Args[i+1])
		}
	}
	return out
}

// Recorder is a render.Runner that records its calls. By default it creates
// the output file of every call so later stages find their inputs.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	failOn   map[string]bool
	NoOutput bool
}

// NewRecorder returns a recorder that fails the named stages.
func NewRecorder(failStages ...string) *Recorder {
	r := &Recorder{failOn: make(map[string]bool)}
	for _, s := range failStages {
		r.failOn[s] = true
	}
	return r
}

// Run records the call.
func (r *Recorder) Run(ctx context.Context, stage string, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := Call{Stage: stage, Args: append([]string(nil), args...)}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	fail := r.failOn[stage]
	r.mu.Unlock()

	if fail {
		return fmt.Errorf("ffmpeg %s failed: %w", stage, ErrInjected)
	}
	if r.NoOutput {
		return nil
	}
	out := call.Output()
	if out == "" || strings.HasPrefix(out, "-") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, []byte(stage), 0o644)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Stages returns the recorded stage names in order.
func (r *Recorder) Stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	stages := make([]string, len(r.calls))
	for i, c := range r.calls {
		stages[i] = c.Stage
	}
	return stages
}

// Find returns the first call for stage.
func (r *Recorder) Find(stage string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.Stage == stage {
			return c, true
		}
	}
	return Call{}, false
}
