// Package audio builds the layered soundtrack of a slideshow: a faded music
// bed ducked under the voiceovers, with a stab on every transition, muxed
// onto the base video.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/media"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/timeline"
)

// Renderer stage names, in run order.
const (
	StageSoundtrack     = "audio_soundtrack"
	StageVoiceoverDelay = "audio_voiceover_delay"
	StageVoiceoverPad   = "audio_voiceover_pad"
	StageDuckMain       = "audio_duck_main"
	StageEndDelay       = "audio_voiceover_end_delay"
	StageDuckEnd        = "audio_duck_end"
	StageStabs          = "audio_stabs"
	StageMux            = "audio_mux"
)

// Layer names.
const (
	LayerSoundtrack    = "soundtrack"
	LayerVoiceoverMain = "voiceover_main"
	LayerVoiceoverEnd  = "voiceover_end"
	LayerStab          = "transition_stab"
)

// ErrNoSoundtrack is returned when a mix has no music bed.
var ErrNoSoundtrack = errors.New("soundtrack is required")

// Layer is one track of the mix placed on the output timeline.
type Layer struct {
	Name   string
	Path   string
	Start  float64 // seconds from program start
	Trim   float64 // length kept, zero keeps the whole track
	Volume float64
	Ducks  bool // the music bed is sidechain compressed under this layer
}

// MixInput is everything one mix needs.
type MixInput struct {
	Video         string
	Layers        Layers
	Timeline      timeline.Timeline
	OutroDuration float64
}

// Options configures the mixer.
type Options struct {
	ScratchDir         string
	FadeDuration       float64
	SoundtrackVolume   float64
	VoiceoverDelay     float64
	StabVolume         float64
	TransitionDuration float64
	SampleRate         int
	Sidechain          filtergraph.Sidechain
	Program            render.ProgramOptions
}

// Mixer runs the audio stages through a render.Runner.
type Mixer struct {
	runner render.Runner
	prober media.DurationProber
	opts   Options
	logger *slog.Logger
}

// NewMixer returns a mixer. prober measures the delayed voiceover.
func NewMixer(runner render.Runner, prober media.DurationProber, opts Options, logger *slog.Logger) *Mixer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	return &Mixer{runner: runner, prober: prober, opts: opts, logger: logger}
}

// Plan places every layer on the timeline without touching the filesystem.
func (m *Mixer) Plan(in MixInput) []Layer {
	total := in.Timeline.Total()
	layers := []Layer{{
		Name:   LayerSoundtrack,
		Path:   in.Layers.Soundtrack,
		Trim:   total,
		Volume: m.opts.SoundtrackVolume,
	}}
	if in.Layers.Voiceover != "" {
		layers = append(layers, Layer{
			Name:   LayerVoiceoverMain,
			Path:   in.Layers.Voiceover,
			Start:  m.opts.VoiceoverDelay,
			Volume: 1,
			Ducks:  true,
		})
		if in.Layers.VoiceoverEnd != "" {
			layers = append(layers, Layer{
				Name:   LayerVoiceoverEnd,
				Path:   in.Layers.VoiceoverEnd,
				Start:  math.Max(0, total-in.OutroDuration),
				Volume: 1,
				Ducks:  true,
			})
		}
	}
	if len(in.Layers.Stabs) > 0 {
		for i, offset := range in.Timeline.Offsets() {
			layers = append(layers, Layer{
				Name:   LayerStab,
				Path:   in.Layers.Stabs[i%len(in.Layers.Stabs)],
				Start:  offset,
				Trim:   m.opts.TransitionDuration,
				Volume: m.opts.StabVolume,
			})
		}
	}
	return layers
}

// Mix renders the audio for in and muxes it onto in.Video, writing output.
// Scratch files are removed whether the mix succeeds or fails.
func (m *Mixer) Mix(ctx context.Context, in MixInput, output string) error {
	if in.Layers.Soundtrack == "" {
		return ErrNoSoundtrack
	}
	if err := os.MkdirAll(m.opts.ScratchDir, 0755); err != nil {
		return fmt.Errorf("failed to create audio scratch directory: %w", err)
	}

	s := &session{Mixer: m, ctx: ctx}
	defer s.cleanup()
	final, err := s.layers(in)
	if err != nil {
		return err
	}
	return s.mux(in.Video, final, output)
}

// session tracks the scratch files of one mix.
type session struct {
	*Mixer
	ctx     context.Context
	scratch []string
}

func (s *session) path(name string) string {
	p := filepath.Join(s.opts.ScratchDir, name)
	s.scratch = append(s.scratch, p)
	return p
}

func (s *session) cleanup() {
	for _, p := range s.scratch {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove audio scratch file", logging.String("path", p), logging.Error(err))
		}
	}
	s.scratch = nil
}

func (s *session) layers(in MixInput) (string, error) {
	total := in.Timeline.Total()

	bed, err := s.soundtrack(in.Layers.Soundtrack, total)
	if err != nil {
		return "", err
	}

	ducked := bed
	if in.Layers.Voiceover != "" {
		voice, err := s.delay(StageVoiceoverDelay, in.Layers.Voiceover, s.opts.VoiceoverDelay, "voiceover_delayed.mp3")
		if err != nil {
			return "", err
		}
		if voice, err = s.pad(voice, total); err != nil {
			return "", err
		}
		if ducked, err = s.duck(StageDuckMain, ducked, voice, "soundtrack_ducked.mp3"); err != nil {
			return "", err
		}

		if in.Layers.VoiceoverEnd != "" {
			endDelay := math.Max(0, total-in.OutroDuration)
			end, err := s.delay(StageEndDelay, in.Layers.VoiceoverEnd, endDelay, "voiceover_end_delayed.mp3")
			if err != nil {
				return "", err
			}
			if ducked, err = s.duck(StageDuckEnd, ducked, end, "soundtrack_ducked_end.mp3"); err != nil {
				return "", err
			}
		} else {
			s.logger.Info("no end voiceover, skipping end ducking")
		}
	} else {
		s.logger.Info("no voiceover, soundtrack is used without ducking")
	}

	return s.stabs(ducked, in.Layers.Stabs, in.Timeline.Offsets())
}

// soundtrack trims the music bed to the program length with fades at both ends.
func (s *session) soundtrack(path string, total float64) (string, error) {
	out := s.path("soundtrack_cut.mp3")
	fade := s.opts.FadeDuration
	af := filtergraph.Join(
		filtergraph.AFade{Type: "in", Start: 0, Duration: fade},
		filtergraph.AFade{Type: "out", Start: math.Max(0, total-fade), Duration: fade},
		filtergraph.Volume{Level: s.opts.SoundtrackVolume},
	)
	stream := ffmpeg.Input(path, ffmpeg.KwArgs{"ss": "0", "t": filtergraph.Num(total)}).
		Output(out, ffmpeg.KwArgs{"af": af, "q:a": "0", "ac": "2"})
	if err := s.runner.Run(s.ctx, StageSoundtrack, overwrite(stream)); err != nil {
		return "", err
	}
	return out, nil
}

func (s *session) silence(b *filtergraph.Builder, seconds float64) filtergraph.InputHandle {
	source := fmt.Sprintf("anullsrc=r=%d:cl=stereo", s.opts.SampleRate)
	return b.Input(source, filtergraph.Lavfi(), filtergraph.WithArgs("-t", filtergraph.Num(seconds)))
}

// delay prepends seconds of silence to path.
func (s *session) delay(stage, path string, seconds float64, name string) (string, error) {
	if seconds <= 0 {
		return path, nil
	}
	out := s.path(name)
	b := filtergraph.NewBuilder()
	silence := s.silence(b, seconds)
	voice := b.Input(path)
	b.Add(filtergraph.Clause{
		Inputs:  []filtergraph.Label{silence.Stream(), voice.Stream()},
		Filters: []filtergraph.Filter{filtergraph.Concat{Segments: 2, Audio: 1}},
		Outputs: []filtergraph.Label{"a"},
	})
	return out, s.run(stage, b, "a", out)
}

// pad appends silence so the voiceover lasts the whole program.
func (s *session) pad(path string, total float64) (string, error) {
	length := media.DurationOr(s.ctx, s.prober, path, total, s.logger)
	missing := math.Max(0, total-length)
	if missing == 0 {
		return path, nil
	}
	out := s.path("voiceover_padded.mp3")
	b := filtergraph.NewBuilder()
	silence := s.silence(b, missing)
	voice := b.Input(path)
	b.Add(filtergraph.Clause{
		Inputs:  []filtergraph.Label{voice.Stream(), silence.Stream()},
		Filters: []filtergraph.Filter{filtergraph.Concat{Segments: 2, Audio: 1}},
		Outputs: []filtergraph.Label{"a"},
	})
	return out, s.run(StageVoiceoverPad, b, "a", out)
}

// duck compresses music under voice and mixes the voice back in.
func (s *session) duck(stage, music, voice, name string) (string, error) {
	out := s.path(name)
	b := filtergraph.NewBuilder()
	m := b.Input(music)
	v := b.Input(voice)
	b.Add(filtergraph.Clause{
		Inputs:  []filtergraph.Label{v.Audio()},
		Filters: []filtergraph.Filter{filtergraph.Asplit{Outputs: 2}},
		Outputs: []filtergraph.Label{"sc", "mix"},
	})
	b.Add(filtergraph.Clause{
		Inputs:  []filtergraph.Label{m.Audio(), "sc"},
		Filters: []filtergraph.Filter{s.opts.Sidechain},
		Outputs: []filtergraph.Label{"compr"},
	})
	b.Add(filtergraph.Clause{
		Inputs:  []filtergraph.Label{"compr", "mix"},
		Filters: []filtergraph.Filter{filtergraph.Amix{}},
		Outputs: []filtergraph.Label{"aout"},
	})
	return out, s.run(stage, b, "aout", out)
}

// stabs lays one trimmed stab on every transition offset, folding each into
// the running mix.
func (s *session) stabs(bed string, stabs []string, offsets []float64) (string, error) {
	out := s.path("audio_final.mp3")
	b := filtergraph.NewBuilder()
	cur := b.Input(bed).Audio()

	if len(stabs) > 0 {
		for i, offset := range offsets {
			stab := b.Input(stabs[i%len(stabs)])
			proc := filtergraph.Labelf("trans_proc", i)
			mixed := filtergraph.Labelf("mixed_audio", i)
			b.Chain(stab.Audio(), proc,
				filtergraph.Atrim{Duration: s.opts.TransitionDuration},
				filtergraph.Volume{Level: s.opts.StabVolume},
				filtergraph.Adelay{Millis: int64(math.Round(offset * 1000))},
			)
			b.Add(filtergraph.Clause{
				Inputs:  []filtergraph.Label{cur, proc},
				Filters: []filtergraph.Filter{filtergraph.Amix{Inputs: 2}},
				Outputs: []filtergraph.Label{mixed},
			})
			cur = mixed
		}
	} else {
		s.logger.Info("no transition stabs configured")
	}
	return out, s.run(StageStabs, b, cur, out)
}

func (s *session) run(stage string, b *filtergraph.Builder, mapped filtergraph.Label, out string) error {
	prog, err := b.Build(mapped)
	if err != nil {
		return fmt.Errorf("build %s graph: %w", stage, err)
	}
	return render.RunProgram(s.ctx, s.runner, stage, prog, nil, out, s.opts.Program)
}

// mux copies the video stream and encodes the mixed audio next to it.
func (s *session) mux(video, audio, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	v := ffmpeg.Input(video)
	a := ffmpeg.Input(audio)
	stream := ffmpeg.Output([]*ffmpeg.Stream{v.Video(), a.Audio()}, output, ffmpeg.KwArgs{
		"c:v":      "copy",
		"c:a":      "aac",
		"shortest": "",
	})
	return s.runner.Run(s.ctx, StageMux, overwrite(stream))
}

// overwrite renders an ffmpeg-go stream with -y leading, keeping the output
// path as the last argument.
func overwrite(stream *ffmpeg.Stream) []string {
	return append([]string{"-y"}, stream.GetArgs()...)
}
