package filtergraph

import "strings"

// Program is a validated filter graph with its inputs and mapped outputs.
// It is immutable; accessors return copies.
type Program struct {
	inputs  []Input
	clauses []Clause
	maps    []Label
}

// Inputs returns the renderer inputs in index order.
func (p Program) Inputs() []Input {
	return cloneInputs(p.inputs)
}

// Clauses returns the graph's clauses in order.
func (p Program) Clauses() []Clause {
	return append([]Clause(nil), p.clauses...)
}

// Maps returns the mapped output labels.
func (p Program) Maps() []Label {
	return append([]Label(nil), p.maps...)
}

// FilterComplex serialises the graph for -filter_complex. It is empty when
// the program only maps inputs.
func (p Program) FilterComplex() string {
	parts := make([]string, len(p.clauses))
	for i, c := range p.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

// InputArgs renders every input as its options followed by -i path.
func (p Program) InputArgs() []string {
	var args []string
	for _, in := range p.inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}
	return args
}

// MapArgs renders one -map per mapped label.
func (p Program) MapArgs() []string {
	args := make([]string, 0, 2*len(p.maps))
	for _, m := range p.maps {
		args = append(args, "-map", m.MapArg())
	}
	return args
}
