package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/samber/lo"

	"github.com/AndrewDonelson/slideshow-compositor/config"
	"github.com/AndrewDonelson/slideshow-compositor/internal/database"
	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
	"github.com/AndrewDonelson/slideshow-compositor/internal/services"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/audio"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/fonts"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/logger"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/media"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/parallax"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/subtitles"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/timeline"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/video"
)

// Pipeline phases, in run order.
const (
	PhasePrepare   = "prepare"
	PhaseParallax  = "parallax"
	PhaseSlideshow = "slideshow"
	PhaseSubtitles = "subtitles"
	PhaseAudio     = "audio"
	PhaseOverlays  = "overlays"
)

// Prober measures media for the pipeline.
type Prober interface {
	media.DurationProber
	HasAudio(ctx context.Context, path string) bool
}

// Toolchain holds the external tools a run drives. Nil members fall back to
// the command line tools named in the configuration.
type Toolchain struct {
	// Runner returns a runner for binary that records into log.
	Runner      func(binary string, log render.CommandLog) render.Runner
	Prober      Prober
	Engine      parallax.Engine
	Transcriber subtitles.Transcriber
}

// Processor runs the compose pipeline for one job at a time
type Processor struct {
	config      *config.Config
	tools       Toolchain
	jobRepo     *database.JobRepository
	stageRepo   *database.StageLogRepository
	broadcaster *services.ProgressBroadcaster
	logger      *slog.Logger
	now         func() time.Time
}

// NewProcessor creates a new processor. The repositories and the
// broadcaster are optional; the CLI composes without them.
func NewProcessor(
	cfg *config.Config,
	tools Toolchain,
	jobRepo *database.JobRepository,
	stageRepo *database.StageLogRepository,
	broadcaster *services.ProgressBroadcaster,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if tools.Prober == nil {
		tools.Prober = media.NewProber(nil)
	}
	if tools.Runner == nil {
		tools.Runner = func(binary string, log render.CommandLog) render.Runner {
			return render.NewExecRunner(binary, logger, log)
		}
	}
	return &Processor{
		config:      cfg,
		tools:       tools,
		jobRepo:     jobRepo,
		stageRepo:   stageRepo,
		broadcaster: broadcaster,
		logger:      logging.NewComponentLogger(logger, "processor"),
		now:         time.Now,
	}
}

// ParseManifest decodes a job manifest.
func ParseManifest(raw string) (models.Manifest, error) {
	var manifest models.Manifest
	if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
		return models.Manifest{}, services.Wrap(services.ErrValidation, PhasePrepare, "manifest", "invalid manifest JSON", err)
	}
	if strings.TrimSpace(manifest.MediaDir) == "" {
		return models.Manifest{}, services.Wrap(services.ErrValidation, PhasePrepare, "manifest", "media_dir is required", nil)
	}
	return manifest, nil
}

// run is the state of one pipeline execution.
type run struct {
	*Processor
	ctx      context.Context
	job      *models.Job
	manifest models.Manifest
	runLog   *logger.RunLogger
	ffmpeg   render.Runner
	program  render.ProgramOptions
	src      random.Source
	seed     uint64

	scratch string
	lock    *flock.Flock

	width, height int
	title         string
	items         []media.Item
	outro         media.Item
	layers        audio.Layers
	timeline      timeline.Timeline
	slideshow     string
	subtitles     string
	mixed         string
	output        string
}

// Process runs every phase for job and fills in its output path and size.
// Scratch files are kept when a phase fails.
func (p *Processor) Process(ctx context.Context, job *models.Job, manifest models.Manifest) (err error) {
	if job.RunID == "" {
		return services.Wrap(services.ErrValidation, PhasePrepare, "", "job has no run id", nil)
	}
	r := &run{
		Processor: p,
		ctx:       ctx,
		job:       job,
		manifest:  manifest,
		seed:      random.Seed(manifest.Seed),
		title:     runTitle(manifest),
	}
	r.src = random.New(r.seed)

	runLog, logErr := logger.NewRunLogger(p.config.Paths.LogDir, job.RunID, r.title)
	if logErr != nil {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "run log", "", logErr)
	}
	r.runLog = runLog
	runLog.Property("Run ID", job.RunID)
	runLog.Property("Media", manifest.MediaDir)
	runLog.Property("Seed", r.seed)
	defer func() {
		if rec := recover(); rec != nil {
			runLog.Error("Pipeline panicked: %v", rec)
			runLog.Close(false, fmt.Sprintf("Panic: %v", rec))
			panic(rec)
		}
		if err != nil {
			runLog.Error("%v", err)
			runLog.Close(false, err.Error())
			return
		}
		runLog.Close(true, "All phases completed without errors")
	}()

	r.ffmpeg = p.tools.Runner(p.config.Video.FFmpegBinary, runLog)

	phases := []struct {
		name     string
		from, to int
		fn       func() (string, string, error)
	}{
		{PhasePrepare, 0, 5, r.prepare},
		{PhaseParallax, 5, 35, r.parallax},
		{PhaseSlideshow, 35, 55, r.renderSlideshow},
		{PhaseSubtitles, 55, 60, r.transcribe},
		{PhaseAudio, 60, 80, r.mixAudio},
		{PhaseOverlays, 80, 100, r.overlay},
	}
	defer r.unlock()
	for _, ph := range phases {
		if err := r.phase(ph.name, ph.from, ph.to, ph.fn); err != nil {
			return err
		}
	}
	return r.finish()
}

// phase runs fn and records its outcome in the run log and the stage log.
func (r *run) phase(name string, from, to int, fn func() (string, string, error)) error {
	r.runLog.Phase(name, "")
	r.updateProgress(name, from, "Starting "+name)

	start := time.Now()
	status, message, err := fn()
	elapsed := time.Since(start)
	if err != nil {
		status, message = models.StageFailed, err.Error()
	}
	r.recordStage(name, status, message, elapsed)
	if err != nil {
		return err
	}

	r.runLog.Success("%s %s in %s", name, status, elapsed.Round(time.Millisecond))
	r.updateProgress(name, to, message)
	return nil
}

func (r *run) recordStage(name, status, message string, elapsed time.Duration) {
	if r.stageRepo == nil || r.job.ID == 0 {
		return
	}
	entry := &models.StageLog{
		JobID:           r.job.ID,
		Stage:           name,
		Status:          status,
		Message:         message,
		DurationSeconds: elapsed.Seconds(),
	}
	if err := r.stageRepo.Create(entry); err != nil {
		r.logger.Warn("failed to record stage", logging.String(logging.FieldStage, name), logging.Error(err))
	}
}

// updateProgress updates the job progress, persists it and broadcasts it
func (r *run) updateProgress(step string, progress int, message string) {
	r.job.CurrentStep = step
	r.job.Progress = progress

	if r.jobRepo != nil && r.job.ID != 0 {
		if err := r.jobRepo.Update(r.job); err != nil {
			r.logger.Warn("failed to persist progress", logging.Int(logging.FieldJobID, r.job.ID), logging.Error(err))
		}
	}
	if r.broadcaster != nil {
		r.broadcaster.BroadcastFromJob(r.job, message)
	}
	r.logger.Info("job progress",
		logging.Int(logging.FieldJobID, r.job.ID),
		logging.String(logging.FieldStage, step),
		logging.Int("progress", progress),
		logging.String("message", message),
	)
}

func (r *run) prepare() (string, string, error) {
	cfg := r.config
	mediaDir := r.manifest.MediaDir
	if info, err := os.Stat(mediaDir); err != nil || !info.IsDir() {
		return "", "", services.Wrap(services.ErrNotFound, PhasePrepare, "media", "media directory "+mediaDir+" not found", err)
	}

	orientation := r.manifest.Orientation
	if orientation == "" {
		orientation = cfg.Video.Orientation
	}
	r.width, r.height = cfg.Resolution(orientation)

	outroPath := r.manifest.Outro
	if outroPath == "" {
		outroPath = cfg.OutroPath(orientation)
	} else if !filepath.IsAbs(outroPath) {
		outroPath = resolveAsset(outroPath, mediaDir, cfg.Paths.TemplateDir)
	}
	if !fileExists(outroPath) {
		return "", "", services.Wrap(services.ErrNotFound, PhasePrepare, "outro", "outro "+outroPath+" not found", nil)
	}
	outro, err := media.NewItem(outroPath)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, PhasePrepare, "outro", "", err)
	}
	outro.ProbedDuration = media.DurationOr(r.ctx, r.tools.Prober, outroPath, cfg.Probe.OutroFallback, r.logger)
	r.outro = outro

	items, err := media.Discover(mediaDir)
	if err != nil {
		return "", "", services.Wrap(services.ErrNotFound, PhasePrepare, "media", "", err)
	}
	items = lo.Reject(items, func(item media.Item, _ int) bool { return sameFile(item.Path, outroPath) })
	available := cfg.Video.TimeLimit - outro.ProbedDuration
	r.items = media.LimitByDuration(items, available, cfg.Video.SegmentDuration)
	if len(r.items) == 0 {
		return "", "", services.Wrap(services.ErrValidation, PhasePrepare, "media", "no usable media in "+mediaDir, nil)
	}
	if dropped := len(items) - len(r.items); dropped > 0 {
		r.runLog.Warn("Time limit %.0fs keeps %d of %d media items", cfg.Video.TimeLimit, len(r.items), len(items))
	}

	stabs := lo.Map(r.manifest.Stabs, func(s string, _ int) string {
		return resolveAsset(s, mediaDir, cfg.Paths.TemplateDir)
	})
	if len(stabs) == 0 {
		stabs = r.defaultStabs()
	}
	layers, err := audio.DiscoverLayers(mediaDir, audio.Layers{
		Soundtrack:   resolveAsset(r.manifest.Soundtrack, mediaDir, cfg.Paths.TemplateDir),
		Voiceover:    resolveAsset(r.manifest.Voiceover, mediaDir, cfg.Paths.TemplateDir),
		VoiceoverEnd: resolveAsset(r.manifest.VoiceoverEnd, mediaDir, cfg.Paths.TemplateDir),
		Stabs:        stabs,
	})
	if err != nil {
		return "", "", services.Wrap(services.ErrNotFound, PhasePrepare, "audio", "", err)
	}
	r.layers = layers

	if err := r.lockScratch(); err != nil {
		return "", "", err
	}

	r.runLog.Property("Resolution", fmt.Sprintf("%dx%d", r.width, r.height))
	r.runLog.Property("Outro", fmt.Sprintf("%s (%.2fs)", filepath.Base(outroPath), outro.ProbedDuration))
	r.runLog.Property("Media items", len(r.items))
	r.runLog.Info("%s", layers.Summary())
	return models.StageOK, fmt.Sprintf("%d media items, outro %.1fs", len(r.items), outro.ProbedDuration), nil
}

// defaultStabs returns the configured template stab, or nothing with a
// warning when the file is missing.
func (r *run) defaultStabs() []string {
	path := r.config.TemplatePath(r.config.Audio.StabFile)
	if fileExists(path) {
		return []string{path}
	}
	r.runLog.Warn("Transition stab %s not found, transitions stay silent", path)
	logging.WarnWithContext(r.logger, "transition stab missing", "stab_missing",
		logging.String("path", path),
		logging.String(logging.FieldImpact, "transitions have no stab"),
		logging.String(logging.FieldErrorHint, "copy the stab into the template directory or set audio.stab_file"),
	)
	return nil
}

// lockScratch creates the run scratch directory and takes its lock so no
// other process renders into it.
func (r *run) lockScratch() error {
	r.scratch = filepath.Join(r.config.Paths.ScratchDir, r.job.RunID)
	if err := os.MkdirAll(r.scratch, 0755); err != nil {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "scratch", "", err)
	}
	lock := flock.New(filepath.Join(r.scratch, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "scratch", "lock failed", err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, PhasePrepare, "scratch", "run directory "+r.scratch+" is in use", nil)
	}
	r.lock = lock
	r.program = render.ProgramOptions{ScriptThreshold: r.config.Video.ScriptThreshold, ScriptDir: r.scratch}
	return nil
}

func (r *run) unlock() {
	if r.lock != nil {
		r.lock.Unlock()
		r.lock = nil
	}
}

func (r *run) parallax() (string, string, error) {
	cfg := r.config.Parallax
	images := media.Images(r.items)
	if !cfg.Enabled {
		return models.StageSkipped, "parallax disabled", nil
	}
	if len(images) == 0 {
		return models.StageSkipped, "no images", nil
	}

	engine := r.tools.Engine
	if engine == nil {
		engine = parallax.NewCommandEngine(r.tools.Runner(cfg.Binary, r.runLog))
	}
	presets := lo.Map(cfg.Presets, func(p config.ParallaxPreset, _ int) parallax.Preset {
		return parallax.Preset{Name: p.Name, MinIntensity: p.MinIntensity, MaxIntensity: p.MaxIntensity}
	})
	selector := parallax.NewSelector(parallax.SelectorOptions{
		Presets:         presets,
		MinEffects:      cfg.MinEffects,
		MaxEffects:      cfg.MaxEffects,
		ZoomProbability: cfg.ZoomProbability,
		IsometricMin:    cfg.IsometricMin,
		IsometricMax:    cfg.IsometricMax,
		HeightMin:       cfg.HeightMin,
		HeightMax:       cfg.HeightMax,
		Vignette:        cfg.Vignette,
		DepthOfField:    cfg.DepthOfField,
	})
	pool := parallax.NewPool(engine, selector, parallax.PoolOptions{
		Workers: cfg.Workers,
		Seed:    r.seed,
		Variants: []parallax.Variant{{
			Height: cfg.RenderHeight,
			Time:   r.config.Video.SegmentDuration,
			Loop:   1,
			FPS:    r.config.Video.FPS,
		}},
		OutputDir:     filepath.Join(r.scratch, "parallax"),
		DiagnosticDir: r.scratch,
		Log:           r.runLog,
	}, r.logger)

	r.runLog.Info("Rendering %d depth clips on %d workers", len(images), cfg.Workers)
	for _, img := range images {
		if err := pool.Submit(r.ctx, img.Path); err != nil {
			pool.JoinAll()
			return "", "", services.Wrap(services.ErrExternalTool, PhaseParallax, "submit", "", err)
		}
	}
	clips := pool.JoinAll()
	if err := r.ctx.Err(); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, PhaseParallax, "", "cancelled", err)
	}

	r.items = lo.Map(r.items, func(item media.Item, _ int) media.Item {
		if item.Kind != media.Image {
			return item
		}
		if clip, ok := pool.ClipFor(item.Path); ok {
			return media.Item{Path: clip, Kind: media.GeneratedClip}
		}
		return item
	})
	r.runLog.Info("%s", pool.TimingStats())
	msg := fmt.Sprintf("%d of %d clips rendered, peak %d workers", len(clips), len(images), pool.Peak())
	if pool.Failures() > 0 {
		r.runLog.Warn("%d images keep their still frame", pool.Failures())
	}
	return models.StageOK, msg, nil
}

func (r *run) renderSlideshow() (string, string, error) {
	cfg := r.config
	segments := timeline.Build(r.items, r.outro, cfg.Video.SegmentDuration)
	tl, err := timeline.Compute(segments, cfg.Transitions.Duration, r.outro.ProbedDuration)
	if err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, PhaseSlideshow, "timeline", "", err)
	}
	r.timeline = tl

	var wm *video.Watermark
	if cfg.Watermark.Enabled && strings.TrimSpace(cfg.Watermark.Text) != "" {
		wm = &video.Watermark{
			Text:      cfg.Watermark.Text,
			FontFile:  cfg.FontPath(cfg.Watermark.FontFile),
			FontSize:  cfg.Watermark.FontSize,
			FontColor: cfg.Watermark.FontColor,
			Opacity:   cfg.Watermark.Opacity,
			Speed:     cfg.Watermark.Speed,
			Style:     cfg.Watermark.Style,
		}
		r.runLog.Info("%s", wm.Description())
	}

	emitter := video.NewSlideshowEmitter(video.SlideshowOptions{
		Width:              r.width,
		Height:             r.height,
		FPS:                cfg.Video.FPS,
		SegmentDuration:    cfg.Video.SegmentDuration,
		TransitionDuration: cfg.Transitions.Duration,
		Transitions:        cfg.Transitions.Types,
		CRF:                cfg.Video.CRF,
		Preset:             cfg.Video.Preset,
		Watermark:          wm,
	}, r.src)

	r.slideshow = filepath.Join(r.scratch, "slideshow.mp4")
	inv, err := emitter.Emit(segments, tl, r.slideshow)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, PhaseSlideshow, "emit", "", err)
	}
	if err := video.NewRenderer(r.ffmpeg, r.program, r.logger).Render(r.ctx, inv); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, PhaseSlideshow, "render", "", err)
	}
	r.runLog.Property("Total duration", fmt.Sprintf("%.2fs", tl.Total()))
	return models.StageOK, fmt.Sprintf("%d segments, %d transitions, %.1fs", len(segments), tl.Len(), tl.Total()), nil
}

// transcribe writes the voiceover subtitles. A failed transcription drops
// the subtitles and the run continues.
func (r *run) transcribe() (string, string, error) {
	cfg := r.config.Subtitles
	if !cfg.Enabled {
		return models.StageSkipped, "subtitles disabled", nil
	}
	if r.layers.Voiceover == "" {
		r.runLog.Info("No voiceover, skipping subtitles")
		return models.StageSkipped, "no voiceover", nil
	}

	transcriber := r.tools.Transcriber
	if transcriber == nil {
		transcriber = subtitles.NewWhisperCLI(r.tools.Runner(cfg.WhisperBinary, r.runLog), cfg.Model, cfg.Language,
			filepath.Join(r.scratch, "transcript"))
	}
	words, err := transcriber.Transcribe(r.ctx, r.layers.Voiceover)
	if err != nil {
		logging.WarnWithContext(r.logger, "transcription failed, continuing without subtitles", "subtitles_skipped",
			logging.Error(err),
			logging.String(logging.FieldImpact, "video has no subtitles"),
		)
		r.runLog.Warn("Transcription failed: %v", err)
		return models.StageFailed, err.Error(), nil
	}

	path := filepath.Join(r.scratch, "voiceover.ass")
	opts := subtitles.Options{
		Style:        r.subtitleStyle(),
		MaxLineWidth: cfg.MaxLineWidth,
		TimeOffset:   cfg.TimeOffset + r.config.Audio.VoiceoverDelay,
	}
	if err := subtitles.WriteASS(words, path, opts); err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, PhaseSubtitles, "write", "", err)
	}
	r.subtitles = path
	return models.StageOK, fmt.Sprintf("%d words", len(words)), nil
}

func (r *run) subtitleStyle() subtitles.Style {
	cfg := r.config.Subtitles
	return subtitles.Style{
		PlayResX:      r.width,
		PlayResY:      r.height,
		FontName:      cfg.FontName,
		FontSize:      cfg.FontSize,
		FontColor:     cfg.FontColor,
		OutlineColor:  cfg.OutlineColor,
		ShadowColor:   cfg.ShadowColor,
		Outline:       cfg.OutlineThickness,
		Alignment:     cfg.Alignment,
		ShadowEnabled: cfg.ShadowEnabled,
		ShadowOpacity: cfg.ShadowOpacity,
		MarginL:       cfg.MarginL,
		MarginR:       cfg.MarginR,
		MarginV:       cfg.MarginV,
	}
}

func (r *run) mixAudio() (string, string, error) {
	cfg := r.config.Audio
	mixer := audio.NewMixer(r.ffmpeg, r.tools.Prober, audio.Options{
		ScratchDir:         filepath.Join(r.scratch, "audio"),
		FadeDuration:       cfg.FadeDuration,
		SoundtrackVolume:   cfg.SoundtrackVolume,
		VoiceoverDelay:     cfg.VoiceoverDelay,
		StabVolume:         cfg.StabVolume,
		TransitionDuration: r.config.Transitions.Duration,
		SampleRate:         cfg.SampleRate,
		Sidechain: filtergraph.Sidechain{
			Ratio:     cfg.SidechainRatio,
			Threshold: cfg.SidechainThresh,
			Attack:    cfg.SidechainAttack,
			Release:   cfg.SidechainRelease,
		},
		Program: r.program,
	}, r.logger)

	in := audio.MixInput{
		Video:         r.slideshow,
		Layers:        r.layers,
		Timeline:      r.timeline,
		OutroDuration: r.outro.ProbedDuration,
	}
	for _, layer := range mixer.Plan(in) {
		r.runLog.Debug("Layer %s: %s at %.2fs", layer.Name, filepath.Base(layer.Path), layer.Start)
	}

	r.mixed = filepath.Join(r.scratch, "slideshow_audio.mp4")
	if err := mixer.Mix(r.ctx, in, r.mixed); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, PhaseAudio, "mix", "", err)
	}
	return models.StageOK, r.layers.Summary(), nil
}

func (r *run) overlay() (string, string, error) {
	opts, err := r.overlayOptions()
	if err != nil {
		return "", "", err
	}
	composer := video.NewOverlayComposer(opts)

	outputDir := r.manifest.OutputDir
	if outputDir == "" {
		outputDir = r.config.Paths.OutputDir
	}
	r.output = filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", safeName(r.title), r.now().Format("20060102_150405")))

	inv, err := composer.Compose(r.mixed, r.output)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, PhaseOverlays, "compose", "", err)
	}
	if err := video.NewRenderer(r.ffmpeg, r.program, r.logger).Render(r.ctx, inv); err != nil {
		return "", "", services.Wrap(services.ErrExternalTool, PhaseOverlays, "render", "", err)
	}

	stages := composer.Stages()
	if len(stages) == 0 {
		return models.StageOK, "no overlays enabled", nil
	}
	return models.StageOK, strings.Join(stages, ", "), nil
}

// overlayOptions enables every configured overlay whose asset exists.
func (r *run) overlayOptions() (video.OverlayOptions, error) {
	cfg := r.config
	opts := video.OverlayOptions{
		Width:        r.width,
		Height:       r.height,
		CRF:          cfg.Video.CRF,
		Preset:       cfg.Video.Preset,
		AudioBitrate: cfg.Audio.Bitrate,
	}

	if cfg.SubscribeOverlay.Enabled {
		path := cfg.SubscribeOverlayPath(r.manifest.Orientation)
		if fileExists(path) {
			key := cfg.SubscribeOverlay.Chromakey
			opts.Subscribe = &video.ChromakeyOverlay{
				Path:       path,
				Delay:      cfg.SubscribeOverlay.Delay,
				Duration:   media.DurationOr(r.ctx, r.tools.Prober, path, cfg.Probe.OverlayFallback, r.logger),
				Color:      key.Color,
				Similarity: key.Similarity,
				Blend:      key.Blend,
				HasAudio:   r.tools.Prober.HasAudio(r.ctx, path),
				Volume:     cfg.SubscribeOverlay.Volume,
			}
		} else {
			r.skipOverlay("subscribe", path)
		}
	}

	if cfg.TitleVideoOverlay.Enabled {
		path := cfg.TemplatePath(cfg.TitleVideoOverlay.File)
		if fileExists(path) {
			key := cfg.TitleVideoOverlay.Chromakey
			opts.TitleVideo = &video.ChromakeyOverlay{
				Path:       path,
				Delay:      cfg.TitleVideoOverlay.AppearanceDelay,
				Duration:   media.DurationOr(r.ctx, r.tools.Prober, path, cfg.Probe.OverlayFallback, r.logger),
				Color:      key.Color,
				Similarity: key.Similarity,
				Blend:      key.Blend,
			}
		} else {
			r.skipOverlay("title video", path)
		}
	}

	if cfg.Effects.Enabled {
		path := cfg.EffectOverlayPath()
		if fileExists(path) {
			opts.Effect = &video.EffectOverlay{
				Path:         path,
				Opacity:      cfg.Effects.Opacity,
				Mode:         cfg.Effects.BlendMode,
				MainDuration: r.timeline.Total(),
			}
		} else {
			r.skipOverlay("effect", path)
		}
	}

	text := strings.TrimSpace(r.manifest.TitleText)
	if text == "" {
		text = strings.TrimSpace(r.manifest.Title)
	}
	if cfg.Title.Enabled && text != "" {
		textFile := filepath.Join(r.scratch, "title.txt")
		if err := os.WriteFile(textFile, []byte(text), 0644); err != nil {
			return opts, services.Wrap(services.ErrConfiguration, PhaseOverlays, "title", "", err)
		}
		fontFile := cfg.FontPath(cfg.Title.FontFile)
		if !fileExists(fontFile) {
			r.runLog.Warn("Title font %s not found, using the renderer default", fontFile)
			fontFile = ""
		}
		opts.Title = &video.TitleText{
			TextFile:          textFile,
			FontFile:          fontFile,
			FontSize:          cfg.Title.FontSize,
			FontColor:         video.ResolveTitleColor(cfg.Title.FontColor, r.src),
			Start:             cfg.SubscribeOverlay.Delay + cfg.Title.AppearanceDelay,
			Visible:           cfg.Title.VisibleDuration,
			XOffset:           cfg.Title.XOffset,
			YOffset:           cfg.Title.YOffset,
			Alpha:             cfg.Title.Opacity,
			Background:        cfg.Title.BackgroundEnabled,
			BackgroundColor:   cfg.Title.BackgroundColor,
			BackgroundOpacity: cfg.Title.BackgroundOpacity,
			BackgroundBorder:  cfg.Title.BackgroundBorder,
		}
	}

	if r.subtitles != "" {
		fontName := fonts.NewResolver(cfg.Paths.FontsDir).Resolve(cfg.Subtitles.FontName)
		opts.Subtitles = &video.SubtitleBurn{
			Path:       r.subtitles,
			FontsDir:   cfg.Paths.FontsDir,
			ForceStyle: subtitles.ForceStyle(r.subtitleStyle(), fontName),
		}
	}
	return opts, nil
}

func (r *run) skipOverlay(name, path string) {
	r.runLog.Info("%s overlay %s not found, skipping", name, path)
	r.logger.Info("overlay skipped", logging.String("overlay", name), logging.String("path", path))
}

// finish records the output and removes the scratch directory.
func (r *run) finish() error {
	info, err := os.Stat(r.output)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, PhaseOverlays, "output", "final video missing", err)
	}
	r.job.OutputPath = r.output
	r.job.OutputSize = info.Size()
	r.runLog.Property("Output", r.output)
	r.runLog.Size("Output size", info.Size())

	r.unlock()
	if err := os.RemoveAll(r.scratch); err != nil {
		r.logger.Warn("failed to remove scratch directory", logging.String("path", r.scratch), logging.Error(err))
	}
	return nil
}

func runTitle(m models.Manifest) string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	return filepath.Base(filepath.Clean(m.MediaDir))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// safeName turns a title into a file name stem.
func safeName(title string) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(title, "_"), "_")
	if name == "" {
		return "slideshow"
	}
	return name
}

// resolveAsset finds a relative asset in the media directory, then the
// template directory. Empty names stay empty.
func resolveAsset(name, mediaDir, templateDir string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	for _, dir := range []string{mediaDir, templateDir} {
		if candidate := filepath.Join(dir, name); fileExists(candidate) {
			return candidate
		}
	}
	return filepath.Join(mediaDir, name)
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
