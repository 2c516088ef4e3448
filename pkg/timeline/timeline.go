// Package timeline computes where the slideshow transitions land. The video
// emitter places its xfades and the audio mixer places its stabs from the
// same Timeline, so both graphs agree on every offset.
package timeline

import (
	"errors"
	"fmt"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/media"
)

// ErrInvalidTransition is returned when a segment is not longer than the
// transition that overlaps it.
var ErrInvalidTransition = errors.New("transition duration must be shorter than segment duration")

// Segment is one slot of the slideshow. Exactly one segment, the last, is the outro.
type Segment struct {
	Item            media.Item
	NominalDuration float64
	IsOutro         bool
}

// Boundary describes the transition between segment i and i+1.
type Boundary struct {
	CumulativeStart  float64 // output time at which segment i ends
	TransitionOffset float64 // xfade offset, CumulativeStart minus the transition
	CumulativeEnd    float64 // output time at which segment i+1 ends
}

// Timeline is the ordered list of boundaries plus the program length.
type Timeline struct {
	Boundaries []Boundary
	total      float64
}

// Build turns ordered items plus the outro into segments.
func Build(items []media.Item, outro media.Item, segmentDuration float64) []Segment {
	segments := make([]Segment, 0, len(items)+1)
	for _, item := range items {
		segments = append(segments, Segment{Item: item, NominalDuration: segmentDuration})
	}
	return append(segments, Segment{Item: outro, NominalDuration: outro.ProbedDuration, IsOutro: true})
}

// Compute walks the segments left to right. The running length starts at the
// first segment's duration; each transition lands t seconds before the running
// end, after which the next segment's duration minus t is added. The outro
// contributes its probed duration instead of its nominal one.
func Compute(segments []Segment, transition, outroDuration float64) (Timeline, error) {
	if len(segments) == 0 {
		return Timeline{}, nil
	}
	for i, seg := range segments {
		if seg.IsOutro && i != len(segments)-1 {
			return Timeline{}, fmt.Errorf("outro must be the last segment, found at %d of %d", i, len(segments))
		}
		if !seg.IsOutro && seg.NominalDuration <= transition {
			return Timeline{}, fmt.Errorf("%w: segment %d lasts %.3fs, transition %.3fs",
				ErrInvalidTransition, i, seg.NominalDuration, transition)
		}
	}

	duration := func(seg Segment) float64 {
		if seg.IsOutro {
			return outroDuration
		}
		return seg.NominalDuration
	}

	cumulative := duration(segments[0])
	if len(segments) == 1 {
		return Timeline{total: cumulative}, nil
	}

	boundaries := make([]Boundary, 0, len(segments)-1)
	for i := 0; i < len(segments)-1; i++ {
		offset := cumulative - transition
		next := cumulative + duration(segments[i+1]) - transition
		boundaries = append(boundaries, Boundary{
			CumulativeStart:  cumulative,
			TransitionOffset: offset,
			CumulativeEnd:    next,
		})
		cumulative = next
	}
	return Timeline{Boundaries: boundaries, total: cumulative}, nil
}

// Offsets returns the xfade offsets in order.
func (t Timeline) Offsets() []float64 {
	offsets := make([]float64, len(t.Boundaries))
	for i, b := range t.Boundaries {
		offsets[i] = b.TransitionOffset
	}
	return offsets
}

// Total returns the program length in seconds.
func (t Timeline) Total() float64 {
	return t.total
}

// Len returns the number of transitions.
func (t Timeline) Len() int {
	return len(t.Boundaries)
}
