package filtergraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels(t *testing.T) {
	h := InputHandle{Index: 3}
	assert.Equal(t, "[3:v]", h.Video().String())
	assert.Equal(t, "3:a", h.Audio().MapArg())
	assert.Equal(t, "[3]", h.Stream().String())
	assert.True(t, h.Video().IsInput())

	l := Labelf("f", 2, "w")
	assert.Equal(t, Label("f2w"), l)
	assert.False(t, l.IsInput())
	assert.Equal(t, "[f2w]", l.MapArg())
}

func TestFilterRendering(t *testing.T) {
	cases := []struct {
		filter Filter
		want   string
	}{
		{Scale{Width: "8000", Height: "-1"}, "scale=8000:-1"},
		{Scale{Width: "1080", Height: "1920", ForceAspect: "decrease"}, "scale=1080:1920:force_original_aspect_ratio=decrease"},
		{Pad{Width: "1080", Height: "1920", X: "(ow-iw)/2", Y: "(oh-ih)/2"}, "pad=1080:1920:(ow-iw)/2:(oh-ih)/2"},
		{Xfade{Transition: "hblur", Duration: 0.5, Offset: 5.5}, "xfade=transition=hblur:duration=0.5:offset=5.5"},
		{Xfade{Transition: "diagtr", Duration: 0.5, Offset: 11}, "xfade=transition=diagtr:duration=0.5:offset=11"},
		{Chromakey{Color: "65db41", Similarity: 0.18}, "chromakey=color=0x65db41:similarity=0.18:blend=0.0"},
		{Overlay{Enable: "'between(t,21,44)'"}, "overlay=enable='between(t,21,44)'"},
		{Overlay{Shortest: true}, "overlay=shortest=1"},
		{Blend{Mode: "screen", Opacity: 0.2}, "blend=all_mode=screen:all_opacity=0.2"},
		{Amix{Inputs: 2}, "amix=inputs=2:normalize=0"},
		{Amix{}, "amix=normalize=0"},
		{Adelay{Millis: 5500}, "adelay=5500|5500"},
		{Atrim{Duration: 0.5}, "atrim=duration=0.5"},
		{Volume{Level: 2}, "volume=2.0"},
		{Volume{Level: 0.25}, "volume=0.25"},
		{AFade{Type: "in", Start: 0, Duration: 3}, "afade=t=in:st=0:d=3"},
		{Sidechain{Ratio: 3, Threshold: 0.02, Attack: 20, Release: 500}, "sidechaincompress=ratio=3:threshold=0.02:attack=20:release=500"},
		{Asplit{Outputs: 2}, "asplit=2"},
		{Concat{Segments: 2, Audio: 1}, "concat=n=2:v=0:a=1"},
		{Subtitles{Path: "/tmp/a.ass", FontsDir: "/fonts", ForceStyle: "FontName=Arial"}, "subtitles='/tmp/a.ass':fontsdir='/fonts':force_style='FontName=Arial'"},
		{Null{}, "null"},
		{Raw("anull"), "anull"},
		{
			Zoompan{Zoom: "1+0.001*on", X: "0", Y: "0", Frames: 150, Width: 1080, Height: 1920, FPS: 25},
			"zoompan=z='1+0.001*on':x='0':y='0':d=150:s=1080x1920:fps=25",
		},
		{
			DrawText{TextFile: "/tmp/t.txt", FontSize: 90, FontColor: "0xFFFFFF", Params: []Param{P("alpha", "0.8")}},
			"drawtext=textfile=/tmp/t.txt:fontsize=90:fontcolor=0xFFFFFF:alpha=0.8",
		},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.filter.String())
	}
}

func TestBuilderAllocatesInputsInOrder(t *testing.T) {
	b := NewBuilder()
	main := b.Input("main.mp4")
	sub := b.Input("sub.mp4")
	assert.Equal(t, 0, main.Index)
	assert.Equal(t, 1, sub.Index)
	assert.Equal(t, 2, b.InputCount())

	b.Chain(sub.Video(), "ov", SetPTS{Expr: "PTS-STARTPTS"})
	b.Add(Clause{Inputs: []Label{main.Video(), "ov"}, Filters: []Filter{Overlay{Shortest: true}}, Outputs: []Label{"out"}})

	prog, err := b.Build("out", main.Audio())
	require.NoError(t, err)
	assert.Equal(t, "[1:v]setpts=PTS-STARTPTS[ov];[0:v][ov]overlay=shortest=1[out]", prog.FilterComplex())
	assert.Equal(t, []string{"-i", "main.mp4", "-i", "sub.mp4"}, prog.InputArgs())
	assert.Equal(t, []string{"-map", "[out]", "-map", "0:a"}, prog.MapArgs())
}

func TestBuildValidation(t *testing.T) {
	t.Run("unknown label", func(t *testing.T) {
		b := NewBuilder()
		b.Input("a.mp4")
		b.Chain("missing", "out", Null{})
		_, err := b.Build("out")
		assert.ErrorIs(t, err, ErrUnknownLabel)
	})
	t.Run("input out of range", func(t *testing.T) {
		b := NewBuilder()
		b.Input("a.mp4")
		b.Chain("1:v", "out", Null{})
		_, err := b.Build("out")
		assert.ErrorIs(t, err, ErrUnknownLabel)
	})
	t.Run("duplicate", func(t *testing.T) {
		b := NewBuilder()
		in := b.Input("a.mp4")
		b.Chain(in.Video(), "x", Null{})
		b.Chain(in.Video(), "x", Null{})
		_, err := b.Build("x")
		assert.ErrorIs(t, err, ErrDuplicateLabel)
	})
	t.Run("reused", func(t *testing.T) {
		b := NewBuilder()
		in := b.Input("a.mp4")
		b.Chain(in.Video(), "x", Null{})
		b.Chain("x", "y", Null{})
		_, err := b.Build("x", "y")
		assert.ErrorIs(t, err, ErrLabelReused)
	})
	t.Run("dangling", func(t *testing.T) {
		b := NewBuilder()
		in := b.Input("a.mp4")
		b.Chain(in.Video(), "x", Null{})
		_, err := b.Build(in.Video())
		assert.ErrorIs(t, err, ErrDanglingLabel)
	})
	t.Run("maps input directly", func(t *testing.T) {
		b := NewBuilder()
		in := b.Input("a.mp4")
		prog, err := b.Build(in.Video())
		require.NoError(t, err)
		assert.Empty(t, prog.FilterComplex())
		assert.Equal(t, []string{"-map", "0:v"}, prog.MapArgs())
	})
}

func TestProgramIsImmutable(t *testing.T) {
	b := NewBuilder()
	in := b.Input("a.png", Looped(6, 25))
	b.Chain(in.Video(), "v0", Format{PixelFormat: "yuv420p"})
	prog, err := b.Build("v0")
	require.NoError(t, err)
	before := prog.InputArgs()

	b.Input("late.mp4")
	inputs := prog.Inputs()
	inputs[0].Options[0] = "-mutated"

	if diff := cmp.Diff([]string{"-loop", "1", "-t", "6", "-framerate", "25", "-i", "a.png"}, prog.InputArgs()); diff != "" {
		t.Fatalf("input args changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, before, prog.InputArgs())
	assert.Len(t, prog.Inputs(), 1)
}
