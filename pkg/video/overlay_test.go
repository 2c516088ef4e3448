package video

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
)

func subscribeOverlay(hasAudio bool) *ChromakeyOverlay {
	return &ChromakeyOverlay{
		Path:       "/tpl/name_subscribe_like.mp4",
		Delay:      21,
		Duration:   23,
		Color:      "65db41",
		Similarity: 0.18,
		HasAudio:   hasAudio,
		Volume:     0.5,
	}
}

func allStages() OverlayOptions {
	return OverlayOptions{
		Width:     1080,
		Height:    1920,
		CRF:       22,
		Subscribe: subscribeOverlay(true),
		TitleVideo: &ChromakeyOverlay{
			Path: "/tpl/title.mp4", Delay: 1, Duration: 4, Color: "65db41", Similarity: 0.18,
		},
		Effect: &EffectOverlay{Path: "/fx/dust.mp4", Opacity: 0.2, Mode: "overlay", MainDuration: 36},
		Title: &TitleText{
			TextFile: "/scratch/title.txt", FontFile: "/fonts/M.otf", FontSize: 90, FontColor: "FFFFFF",
			Start: 22, Visible: 5, XOffset: 110, YOffset: -35, Alpha: 0.8,
		},
		Subtitles: &SubtitleBurn{Path: "/scratch/subs.ass", FontsDir: "/fonts", ForceStyle: "FontName=Arial"},
	}
}

func TestOverlayEveryCombinationMapsLastStage(t *testing.T) {
	full := allStages()
	labels := []filtergraph.Label{LabelSubscribe, LabelTitleVideo, LabelEffect, LabelTitleText, LabelSubtitles}

	for mask := 0; mask < 32; mask++ {
		opts := OverlayOptions{Width: full.Width, Height: full.Height, CRF: full.CRF}
		want := filtergraph.Label("0:v")
		if mask&1 != 0 {
			opts.Subscribe = full.Subscribe
			want = labels[0]
		}
		if mask&2 != 0 {
			opts.TitleVideo = full.TitleVideo
			want = labels[1]
		}
		if mask&4 != 0 {
			opts.Effect = full.Effect
			want = labels[2]
		}
		if mask&8 != 0 {
			opts.Title = full.Title
			want = labels[3]
		}
		if mask&16 != 0 {
			opts.Subtitles = full.Subtitles
			want = labels[4]
		}

		composer := NewOverlayComposer(opts)
		inv, err := composer.Compose("/scratch/muxed.mp4", "/out/final.mp4")
		require.NoError(t, err, "mask %d", mask)

		maps := inv.Program.Maps()
		require.Len(t, maps, 2, "mask %d", mask)
		assert.Equal(t, want, maps[0], "mask %d", mask)

		wantAudio := filtergraph.Label("0:a")
		if opts.Subscribe != nil {
			wantAudio = LabelAudio
		}
		assert.Equal(t, wantAudio, maps[1], "mask %d", mask)
		assert.Equal(t, "/scratch/muxed.mp4", inv.Program.Inputs()[0].Path)
		assert.Len(t, composer.Stages(), popcount(mask))
	}
}

func popcount(n int) int {
	c := 0
	for ; n > 0; n >>= 1 {
		c += n & 1
	}
	return c
}

func TestOverlayAllDisabledMapsInputs(t *testing.T) {
	inv, err := NewOverlayComposer(OverlayOptions{Width: 1080, Height: 1920}).Compose("in.mp4", "out.mp4")
	require.NoError(t, err)
	assert.Empty(t, inv.Program.FilterComplex())
	assert.Equal(t, []string{"-map", "0:v", "-map", "0:a"}, inv.Program.MapArgs())
	assert.Contains(t, inv.OutputArgs, "aac")
	assert.Contains(t, inv.OutputArgs, "192k")
}

func TestOverlaySubscribeClauses(t *testing.T) {
	inv, err := NewOverlayComposer(OverlayOptions{Width: 1080, Height: 1920, Subscribe: subscribeOverlay(true)}).
		Compose("in.mp4", "out.mp4")
	require.NoError(t, err)
	graph := inv.Program.FilterComplex()

	assert.Contains(t, graph, "[0:v]setpts=PTS-STARTPTS[v_main]")
	assert.Contains(t, graph, "[1:v]setpts=PTS-STARTPTS+21/TB,chromakey=color=0x65db41:similarity=0.18:blend=0.0[sub_keyed]")
	assert.Contains(t, graph, "[v_main][sub_keyed]overlay=enable='between(t,21,44)'[v_sub]")
	assert.Contains(t, graph, "[1:a]adelay=21000|21000,volume=0.5[a_sub]")
	assert.Contains(t, graph, "[0:a]volume=1.0[a_main]")
	assert.Contains(t, graph, "[a_main][a_sub]amix=inputs=2:normalize=0[aout]")
}

func TestOverlaySilentSubscribeKeepsMainAudio(t *testing.T) {
	inv, err := NewOverlayComposer(OverlayOptions{Subscribe: subscribeOverlay(false)}).Compose("in.mp4", "out.mp4")
	require.NoError(t, err)
	assert.NotContains(t, inv.Program.FilterComplex(), "amix")
	assert.Equal(t, []string{"-map", "[v_sub]", "-map", "0:a"}, inv.Program.MapArgs())
}

func TestOverlayInputIndicesFollowEnabledStages(t *testing.T) {
	opts := allStages()
	opts.Subscribe = nil
	inv, err := NewOverlayComposer(opts).Compose("in.mp4", "out.mp4")
	require.NoError(t, err)
	graph := inv.Program.FilterComplex()

	inputs := inv.Program.Inputs()
	require.Len(t, inputs, 3)
	assert.Equal(t, "/tpl/title.mp4", inputs[1].Path)
	assert.Equal(t, "/fx/dust.mp4", inputs[2].Path)
	assert.Contains(t, graph, "[1:v]setpts=PTS-STARTPTS+1/TB,chromakey=")
	assert.Contains(t, graph, "[0:v][title_video_keyed]overlay=enable='between(t,1,5)'[v_title_video]")
	assert.Contains(t, graph, "[2:v]format=rgba,colorchannelmixer=aa=0.2,setpts=PTS-STARTPTS,scale=1080:1920,setsar=1[fx]")
	assert.Contains(t, graph, "[v_title_video][fx]overlay=shortest=1[v_fx]")
}

func TestOverlayBlendMode(t *testing.T) {
	opts := OverlayOptions{Width: 1920, Height: 1080, Effect: &EffectOverlay{Path: "fx.mp4", Opacity: 0.3, Mode: "Screen", MainDuration: 36}}
	inv, err := NewOverlayComposer(opts).Compose("in.mp4", "out.mp4")
	require.NoError(t, err)
	graph := inv.Program.FilterComplex()

	assert.Contains(t, graph, "[0:v]format=rgba,scale=1920:1080,setsar=1,format=rgb24[main_rgb]")
	assert.Contains(t, graph, "[1:v]format=rgba,trim=duration=36,setpts=PTS-STARTPTS,scale=1920:1080,setsar=1,format=rgb24[fx]")
	assert.Contains(t, graph, "[main_rgb][fx]blend=all_mode=screen:all_opacity=0.3,format=yuv420p[v_fx]")
}

func TestOverlayTitleText(t *testing.T) {
	opts := allStages()
	opts.Subscribe, opts.TitleVideo, opts.Effect, opts.Subtitles = nil, nil, nil, nil
	opts.Title.Background = true
	opts.Title.BackgroundColor = "000000"
	opts.Title.BackgroundOpacity = 0.5
	opts.Title.BackgroundBorder = 20

	inv, err := NewOverlayComposer(opts).Compose("in.mp4", "out.mp4")
	require.NoError(t, err)
	graph := inv.Program.FilterComplex()

	assert.True(t, strings.HasPrefix(graph, "[0:v]drawtext=textfile='/scratch/title.txt':fontfile='/fonts/M.otf':fontsize=90:fontcolor=0xFFFFFF"))
	assert.Contains(t, graph, "x=((w-tw)/2+110):y=((h/2)+(-35)):enable='between(t,22,27)'")
	assert.Contains(t, graph, "shadowcolor=black:shadowx=4:shadowy=2:alpha=0.8")
	assert.Contains(t, graph, "box=1:boxcolor=000000@0.5:boxborderw=20[v_title]")
}

func TestOverlaySubtitles(t *testing.T) {
	opts := OverlayOptions{Subtitles: &SubtitleBurn{Path: "/s/subs.ass", FontsDir: "/fonts", ForceStyle: "FontName=Arial,FontSize=24"}}
	inv, err := NewOverlayComposer(opts).Compose("in.mp4", "out.mp4")
	require.NoError(t, err)
	assert.Equal(t, "[0:v]subtitles='/s/subs.ass':fontsdir='/fonts':force_style='FontName=Arial,FontSize=24'[v_subs]", inv.Program.FilterComplex())
}

func TestResolveTitleColor(t *testing.T) {
	src := random.New(5)
	assert.Equal(t, "ABCDEF", ResolveTitleColor("ABCDEF", src))
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[ResolveTitleColor("random", src)] = true
	}
	assert.Len(t, seen, len(TitlePalette))
}
