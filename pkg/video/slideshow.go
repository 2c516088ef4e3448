package video

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/media"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/timeline"
)

// DefaultTransitions is the xfade palette used when none is configured.
var DefaultTransitions = []string{"hblur", "smoothup", "horzopen", "circleopen", "diagtr", "diagbl"}

// SlideshowOptions configures the base slideshow program.
type SlideshowOptions struct {
	Width              int
	Height             int
	FPS                int
	SegmentDuration    float64
	TransitionDuration float64
	Transitions        []string
	CRF                int
	Preset             string
	Watermark          *Watermark // nil disables the watermark
}

// SlideshowEmitter builds the base video program: one normalised stream per
// segment, folded left to right through xfade.
type SlideshowEmitter struct {
	opts SlideshowOptions
	src  random.Source
}

// NewSlideshowEmitter returns an emitter drawing transitions and zoom motion from src.
func NewSlideshowEmitter(opts SlideshowOptions, src random.Source) *SlideshowEmitter {
	if len(opts.Transitions) == 0 {
		opts.Transitions = DefaultTransitions
	}
	if opts.Preset == "" {
		opts.Preset = "medium"
	}
	return &SlideshowEmitter{opts: opts, src: src}
}

// Emit builds the slideshow invocation writing to output. tl must have been
// computed from the same segments.
func (e *SlideshowEmitter) Emit(segments []timeline.Segment, tl timeline.Timeline, output string) (render.Invocation, error) {
	if len(segments) == 0 {
		return render.Invocation{}, errors.New("slideshow needs at least one segment")
	}
	if tl.Len() != len(segments)-1 {
		return render.Invocation{}, fmt.Errorf("timeline has %d transitions for %d segments", tl.Len(), len(segments))
	}

	b := filtergraph.NewBuilder()
	for i, seg := range segments {
		e.addSegment(b, i, seg)
	}

	cur := filtergraph.Labelf("v", 0)
	for i, offset := range tl.Offsets() {
		faded := filtergraph.Labelf("f", i)
		b.Add(filtergraph.Clause{
			Inputs: []filtergraph.Label{cur, filtergraph.Labelf("v", i+1)},
			Filters: []filtergraph.Filter{filtergraph.Xfade{
				Transition: random.Pick(e.src, e.opts.Transitions),
				Duration:   e.opts.TransitionDuration,
				Offset:     offset,
			}},
			Outputs: []filtergraph.Label{faded},
		})
		cur = faded

		// The xfade that brings in the outro stays clean.
		if e.opts.Watermark != nil && i != tl.Len()-1 {
			marked := filtergraph.Labelf("f", i, "w")
			b.Chain(cur, marked, e.opts.Watermark.Filter())
			cur = marked
		}
	}

	prog, err := b.Build(cur)
	if err != nil {
		return render.Invocation{}, fmt.Errorf("build slideshow graph: %w", err)
	}

	return render.Invocation{
		Stage:   "slideshow",
		Program: prog,
		OutputArgs: []string{
			"-pix_fmt", "yuv420p",
			"-vcodec", "libx264",
			"-crf", strconv.Itoa(e.opts.CRF),
			"-preset", e.opts.Preset,
			"-r", strconv.Itoa(e.opts.FPS),
			"-t", filtergraph.Num(tl.Total()),
		},
		Output: output,
	}, nil
}

func (e *SlideshowEmitter) addSegment(b *filtergraph.Builder, i int, seg timeline.Segment) {
	out := filtergraph.Labelf("v", i)
	w, h := strconv.Itoa(e.opts.Width), strconv.Itoa(e.opts.Height)

	if seg.Item.Kind == media.Image && !seg.IsOutro {
		in := b.Input(seg.Item.Path, filtergraph.Looped(seg.NominalDuration, e.opts.FPS))
		scaled := filtergraph.Labelf("scaled_img", i)
		zoomed := filtergraph.Labelf("zp", i)
		motion := RandomMotion(e.src)
		b.Chain(in.Video(), scaled, filtergraph.Scale{Width: "8000", Height: "-1"})
		b.Chain(scaled, zoomed, motion.Filter(seg.NominalDuration, e.opts.Width, e.opts.Height, e.opts.FPS))
		b.Chain(zoomed, out, filtergraph.Format{PixelFormat: "yuv420p"})
		return
	}

	in := b.Input(seg.Item.Path)
	filters := []filtergraph.Filter{
		filtergraph.SetPTS{Expr: "PTS-STARTPTS"},
		filtergraph.FPS{Rate: e.opts.FPS},
	}
	if seg.IsOutro {
		filters = append(filters, filtergraph.SetSAR{Ratio: "1"})
	}
	filters = append(filters,
		filtergraph.Scale{Width: w, Height: h, ForceAspect: "decrease"},
		filtergraph.Pad{Width: w, Height: h, X: "(ow-iw)/2", Y: "(oh-ih)/2"},
		filtergraph.Format{PixelFormat: "yuv420p"},
	)
	b.Chain(in.Video(), out, filters...)
}
