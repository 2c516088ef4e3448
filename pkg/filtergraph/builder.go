package filtergraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownLabel is returned when a clause or map references a label no
	// earlier clause produced.
	ErrUnknownLabel = errors.New("unknown filter graph label")
	// ErrDuplicateLabel is returned when two clauses produce the same label.
	ErrDuplicateLabel = errors.New("duplicate filter graph label")
	// ErrLabelReused is returned when a clause output is consumed twice.
	ErrLabelReused = errors.New("filter graph label consumed more than once")
	// ErrDanglingLabel is returned when a clause output is neither consumed nor mapped.
	ErrDanglingLabel = errors.New("filter graph label never consumed")
)

// Input is one renderer input with the options that precede its -i.
type Input struct {
	Path    string
	Options []string
}

// InputOption configures an input.
type InputOption func(*Input)

// WithArgs adds raw options before the input's -i.
func WithArgs(args ...string) InputOption {
	return func(in *Input) { in.Options = append(in.Options, args...) }
}

// Looped reads a still image as a looping stream of the given length and rate.
func Looped(seconds float64, fps int) InputOption {
	return WithArgs("-loop", "1", "-t", Num(seconds), "-framerate", fmt.Sprint(fps))
}

// Lavfi reads the input path as a libavfilter source graph.
func Lavfi() InputOption {
	return WithArgs("-f", "lavfi")
}

// Clause is one labelled chain: inputs, comma separated filters, outputs.
type Clause struct {
	Inputs  []Label
	Filters []Filter
	Outputs []Label
}

func (c Clause) String() string {
	var sb strings.Builder
	for _, in := range c.Inputs {
		sb.WriteString(in.String())
	}
	sb.WriteString(Join(c.Filters...))
	for _, out := range c.Outputs {
		sb.WriteString(out.String())
	}
	return sb.String()
}

// Builder assembles a Program. Input indices are handed out in call order.
type Builder struct {
	inputs  []Input
	clauses []Clause
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Input registers a renderer input and returns its handle.
func (b *Builder) Input(path string, opts ...InputOption) InputHandle {
	in := Input{Path: path}
	for _, opt := range opts {
		opt(&in)
	}
	b.inputs = append(b.inputs, in)
	return InputHandle{Index: len(b.inputs) - 1}
}

// Chain appends a single-input, single-output clause.
func (b *Builder) Chain(in, out Label, filters ...Filter) *Builder {
	return b.Add(Clause{Inputs: []Label{in}, Filters: filters, Outputs: []Label{out}})
}

// Add appends a clause.
func (b *Builder) Add(c Clause) *Builder {
	b.clauses = append(b.clauses, c)
	return b
}

// InputCount returns the number of inputs registered so far.
func (b *Builder) InputCount() int {
	return len(b.inputs)
}

// Build validates the graph and freezes it into a Program mapping the given labels.
func (b *Builder) Build(maps ...Label) (Program, error) {
	produced := make(map[Label]bool)
	consumed := make(map[Label]bool)

	checkRef := func(l Label, where string) error {
		if l.IsInput() {
			idx := inputIndex(l)
			if idx < 0 || idx >= len(b.inputs) {
				return fmt.Errorf("%w: %s in %s (%d inputs)", ErrUnknownLabel, l, where, len(b.inputs))
			}
			return nil
		}
		if !produced[l] {
			return fmt.Errorf("%w: %s in %s", ErrUnknownLabel, l, where)
		}
		if consumed[l] {
			return fmt.Errorf("%w: %s in %s", ErrLabelReused, l, where)
		}
		consumed[l] = true
		return nil
	}

	for i, c := range b.clauses {
		where := fmt.Sprintf("clause %d", i)
		for _, in := range c.Inputs {
			if err := checkRef(in, where); err != nil {
				return Program{}, err
			}
		}
		for _, out := range c.Outputs {
			if produced[out] || out.IsInput() {
				return Program{}, fmt.Errorf("%w: %s in %s", ErrDuplicateLabel, out, where)
			}
			produced[out] = true
		}
	}
	for _, m := range maps {
		if err := checkRef(m, "map"); err != nil {
			return Program{}, err
		}
	}
	for i, c := range b.clauses {
		for _, out := range c.Outputs {
			if !consumed[out] {
				return Program{}, fmt.Errorf("%w: %s from clause %d", ErrDanglingLabel, out, i)
			}
		}
	}

	return Program{
		inputs:  cloneInputs(b.inputs),
		clauses: append([]Clause(nil), b.clauses...),
		maps:    append([]Label(nil), maps...),
	}, nil
}

func inputIndex(l Label) int {
	spec := string(l)
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		spec = spec[:i]
	}
	var idx int
	if _, err := fmt.Sscanf(spec, "%d", &idx); err != nil {
		return -1
	}
	return idx
}

func cloneInputs(in []Input) []Input {
	out := make([]Input, len(in))
	for i, input := range in {
		out[i] = Input{Path: input.Path, Options: append([]string(nil), input.Options...)}
	}
	return out
}
