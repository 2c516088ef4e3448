package video

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
)

// TitlePalette is drawn from when the title colour is "random".
var TitlePalette = []string{"FF00B4", "ff6600", "0b4178"}

// ResolveTitleColor returns color, or a palette entry when color is "random".
func ResolveTitleColor(color string, src random.Source) string {
	if strings.EqualFold(strings.TrimSpace(color), "random") {
		return random.Pick(src, TitlePalette)
	}
	return color
}

// Output labels of the composer stages, in the order the stages run.
const (
	LabelSubscribe  filtergraph.Label = "v_sub"
	LabelTitleVideo filtergraph.Label = "v_title_video"
	LabelEffect     filtergraph.Label = "v_fx"
	LabelTitleText  filtergraph.Label = "v_title"
	LabelSubtitles  filtergraph.Label = "v_subs"
	LabelAudio      filtergraph.Label = "aout"
)

// ChromakeyOverlay is a green-screen clip laid over the main video at Delay
// for Duration seconds.
type ChromakeyOverlay struct {
	Path       string
	Delay      float64
	Duration   float64
	Color      string
	Similarity float64
	Blend      float64
	HasAudio   bool
	Volume     float64
}

// EffectOverlay is a full-frame clip blended over the main video.
type EffectOverlay struct {
	Path         string
	Opacity      float64
	Mode         string
	MainDuration float64
}

// TitleText is the drawn title.
type TitleText struct {
	TextFile          string
	FontFile          string
	FontSize          int
	FontColor         string
	Start             float64
	Visible           float64
	XOffset           int
	YOffset           int
	Alpha             float64
	Background        bool
	BackgroundColor   string
	BackgroundOpacity float64
	BackgroundBorder  int
}

// SubtitleBurn burns an ASS file into the video.
type SubtitleBurn struct {
	Path       string
	FontsDir   string
	ForceStyle string
}

// OverlayOptions selects the composer stages. A nil stage is skipped.
type OverlayOptions struct {
	Width        int
	Height       int
	CRF          int
	Preset       string
	AudioBitrate string

	Subscribe  *ChromakeyOverlay
	TitleVideo *ChromakeyOverlay
	Effect     *EffectOverlay
	Title      *TitleText
	Subtitles  *SubtitleBurn
}

// OverlayComposer builds the final program over the muxed slideshow.
type OverlayComposer struct {
	opts OverlayOptions
}

func NewOverlayComposer(opts OverlayOptions) *OverlayComposer {
	if opts.Preset == "" {
		opts.Preset = "medium"
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = "192k"
	}
	return &OverlayComposer{opts: opts}
}

type stage struct {
	name    string
	enabled bool
}

// Stages returns the names of the enabled stages in run order.
func (c *OverlayComposer) Stages() []string {
	stages := []stage{
		{"subscribe", c.opts.Subscribe != nil},
		{"title_video", c.opts.TitleVideo != nil},
		{"effect", c.opts.Effect != nil},
		{"title", c.opts.Title != nil},
		{"subtitles", c.opts.Subtitles != nil},
	}
	enabled := lo.Filter(stages, func(s stage, _ int) bool { return s.enabled })
	return lo.Map(enabled, func(s stage, _ int) string { return s.name })
}

// composition carries the builder and the label each stage rebinds.
type composition struct {
	b     *filtergraph.Builder
	video filtergraph.Label
	audio filtergraph.Label
	w, h  string
}

// Compose builds the overlay invocation reading mainPath and writing output.
func (c *OverlayComposer) Compose(mainPath, output string) (render.Invocation, error) {
	b := filtergraph.NewBuilder()
	main := b.Input(mainPath)
	comp := &composition{
		b:     b,
		video: main.Video(),
		audio: main.Audio(),
		w:     strconv.Itoa(c.opts.Width),
		h:     strconv.Itoa(c.opts.Height),
	}

	if o := c.opts.Subscribe; o != nil {
		comp.subscribe(o)
	}
	if o := c.opts.TitleVideo; o != nil {
		comp.chromakey(o, "title_video", LabelTitleVideo)
	}
	if o := c.opts.Effect; o != nil {
		comp.effect(o)
	}
	if o := c.opts.Title; o != nil {
		comp.title(o)
	}
	if o := c.opts.Subtitles; o != nil {
		b.Chain(comp.video, LabelSubtitles, filtergraph.Subtitles{
			Path:       o.Path,
			FontsDir:   o.FontsDir,
			ForceStyle: o.ForceStyle,
		})
		comp.video = LabelSubtitles
	}

	prog, err := b.Build(comp.video, comp.audio)
	if err != nil {
		return render.Invocation{}, fmt.Errorf("build overlay graph: %w", err)
	}
	return render.Invocation{
		Stage:   "overlays",
		Program: prog,
		OutputArgs: []string{
			"-c:v", "libx264",
			"-crf", strconv.Itoa(c.opts.CRF),
			"-preset", c.opts.Preset,
			"-c:a", "aac",
			"-b:a", c.opts.AudioBitrate,
		},
		Output: output,
	}, nil
}

func (comp *composition) subscribe(o *ChromakeyOverlay) {
	comp.b.Chain(comp.video, "v_main", filtergraph.SetPTS{Expr: "PTS-STARTPTS"})
	comp.video = "v_main"
	in := comp.chromakey(o, "sub", LabelSubscribe)

	if !o.HasAudio {
		return
	}
	ms := int64(o.Delay * 1000)
	comp.b.Chain(in.Audio(), "a_sub", filtergraph.Adelay{Millis: ms}, filtergraph.Volume{Level: o.Volume})
	comp.b.Chain(comp.audio, "a_main", filtergraph.Volume{Level: 1})
	comp.b.Add(filtergraph.Clause{
		Inputs:  []filtergraph.Label{"a_main", "a_sub"},
		Filters: []filtergraph.Filter{filtergraph.Amix{Inputs: 2}},
		Outputs: []filtergraph.Label{LabelAudio},
	})
	comp.audio = LabelAudio
}

// chromakey keys the clip, shifts it to its delay and overlays it for its
// probed duration.
func (comp *composition) chromakey(o *ChromakeyOverlay, name string, out filtergraph.Label) filtergraph.InputHandle {
	in := comp.b.Input(o.Path)
	keyed := filtergraph.Label(name + "_keyed")
	delay := filtergraph.Num(o.Delay)
	comp.b.Chain(in.Video(), keyed,
		filtergraph.SetPTS{Expr: "PTS-STARTPTS+" + delay + "/TB"},
		filtergraph.Chromakey{Color: o.Color, Similarity: o.Similarity, Blend: o.Blend},
	)
	comp.b.Add(filtergraph.Clause{
		Inputs: []filtergraph.Label{comp.video, keyed},
		Filters: []filtergraph.Filter{filtergraph.Overlay{
			Enable: fmt.Sprintf("'between(t,%s,%s)'", delay, filtergraph.Num(o.Delay+o.Duration)),
		}},
		Outputs: []filtergraph.Label{out},
	})
	comp.video = out
	return in
}

func isOverlayMode(mode string) bool {
	return lo.Contains([]string{"normal", "overlay", "over"}, strings.ToLower(mode))
}

func (comp *composition) effect(o *EffectOverlay) {
	in := comp.b.Input(o.Path)

	if isOverlayMode(o.Mode) {
		comp.b.Chain(in.Video(), "fx",
			filtergraph.Format{PixelFormat: "rgba"},
			filtergraph.ColorChannelMixer{Alpha: o.Opacity},
			filtergraph.SetPTS{Expr: "PTS-STARTPTS"},
			filtergraph.Scale{Width: comp.w, Height: comp.h},
			filtergraph.SetSAR{Ratio: "1"},
		)
		comp.b.Add(filtergraph.Clause{
			Inputs:  []filtergraph.Label{comp.video, "fx"},
			Filters: []filtergraph.Filter{filtergraph.Overlay{Shortest: true}},
			Outputs: []filtergraph.Label{LabelEffect},
		})
		comp.video = LabelEffect
		return
	}

	comp.b.Chain(comp.video, "main_rgb",
		filtergraph.Format{PixelFormat: "rgba"},
		filtergraph.Scale{Width: comp.w, Height: comp.h},
		filtergraph.SetSAR{Ratio: "1"},
		filtergraph.Format{PixelFormat: "rgb24"},
	)
	comp.b.Chain(in.Video(), "fx",
		filtergraph.Format{PixelFormat: "rgba"},
		filtergraph.Trim{Duration: o.MainDuration},
		filtergraph.SetPTS{Expr: "PTS-STARTPTS"},
		filtergraph.Scale{Width: comp.w, Height: comp.h},
		filtergraph.SetSAR{Ratio: "1"},
		filtergraph.Format{PixelFormat: "rgb24"},
	)
	comp.b.Add(filtergraph.Clause{
		Inputs: []filtergraph.Label{"main_rgb", "fx"},
		Filters: []filtergraph.Filter{
			filtergraph.Blend{Mode: strings.ToLower(o.Mode), Opacity: o.Opacity},
			filtergraph.Format{PixelFormat: "yuv420p"},
		},
		Outputs: []filtergraph.Label{LabelEffect},
	})
	comp.video = LabelEffect
}

func (comp *composition) title(o *TitleText) {
	params := []filtergraph.Param{
		filtergraph.P("shadowcolor", "black"),
		filtergraph.P("shadowx", "4"),
		filtergraph.P("shadowy", "2"),
		filtergraph.P("alpha", filtergraph.Num(o.Alpha)),
	}
	if o.Background {
		params = append(params,
			filtergraph.P("box", "1"),
			filtergraph.P("boxcolor", fmt.Sprintf("%s@%s", o.BackgroundColor, filtergraph.Num(o.BackgroundOpacity))),
			filtergraph.P("boxborderw", strconv.Itoa(o.BackgroundBorder)),
		)
	}
	comp.b.Chain(comp.video, LabelTitleText, filtergraph.DrawText{
		TextFile:  quoteIf(o.TextFile),
		FontFile:  quoteIf(o.FontFile),
		FontSize:  o.FontSize,
		FontColor: "0x" + strings.TrimPrefix(strings.ToUpper(o.FontColor), "0X"),
		X:         fmt.Sprintf("((w-tw)/2+%d)", o.XOffset),
		Y:         fmt.Sprintf("((h/2)+(%d))", o.YOffset),
		Enable:    fmt.Sprintf("'between(t,%s,%s)'", filtergraph.Num(o.Start), filtergraph.Num(o.Start+o.Visible)),
		Params:    params,
	})
	comp.video = LabelTitleText
}

func quoteIf(value string) string {
	if value == "" {
		return ""
	}
	return filtergraph.Quote(value)
}
