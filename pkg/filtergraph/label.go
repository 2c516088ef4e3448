// Package filtergraph is a small typed representation of ffmpeg filter graphs.
// Filters are assembled into labelled clauses by a Builder, which also
// allocates input indices, and serialised to -filter_complex text only when
// the finished Program is handed to the renderer.
package filtergraph

import (
	"strconv"
	"strings"
)

// Label names a stream inside a filter graph. Input stream references such as
// "0:v" are labels too; they are produced by InputHandle rather than by a clause.
type Label string

// String renders the label the way it appears inside a filter graph.
func (l Label) String() string {
	return "[" + string(l) + "]"
}

// MapArg renders the label for a -map argument. Input streams are mapped by
// specifier, filter outputs by bracketed label.
func (l Label) MapArg() string {
	if l.IsInput() {
		return string(l)
	}
	return l.String()
}

// IsInput reports whether the label refers to a renderer input rather than a
// clause output.
func (l Label) IsInput() bool {
	spec := string(l)
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		spec = spec[:i]
	}
	_, err := strconv.Atoi(spec)
	return err == nil
}

// Labelf builds an indexed label such as v3 or f0w.
func Labelf(prefix string, i int, suffix ...string) Label {
	return Label(prefix + strconv.Itoa(i) + strings.Join(suffix, ""))
}

// InputHandle is the index the builder allocated for an input file.
type InputHandle struct {
	Index int
}

// Video returns the input's video stream.
func (h InputHandle) Video() Label {
	return Label(strconv.Itoa(h.Index) + ":v")
}

// Audio returns the input's audio stream.
func (h InputHandle) Audio() Label {
	return Label(strconv.Itoa(h.Index) + ":a")
}

// Stream returns the input's default stream.
func (h InputHandle) Stream() Label {
	return Label(strconv.Itoa(h.Index))
}
