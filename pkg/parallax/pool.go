package parallax

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/media"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/render"
)

// DiagnosticFile is the per run file collecting one entry per image.
const DiagnosticFile = "_depth_log.txt"

// DiagnosticLog receives the per image diagnostic entries.
type DiagnosticLog interface {
	Info(format string, args ...interface{})
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	Workers  int
	Seed     uint64
	Variants []Variant
	// OutputDir receives the clips; empty writes next to each image.
	OutputDir string
	// DiagnosticDir receives DiagnosticFile; empty disables the file.
	DiagnosticDir string
	Log           DiagnosticLog
	// MinTimeout bounds each engine call once timings exist; zero never times out.
	MinTimeout time.Duration
}

// Pool renders clips on at most Workers concurrent goroutines. Submit
// blocks for a free slot and JoinAll is the only barrier.
type Pool struct {
	engine   Engine
	selector *Selector
	opts     PoolOptions
	logger   *slog.Logger
	sem      *semaphore.Weighted
	wg       sync.WaitGroup

	mu        sync.Mutex
	clips     []string
	byImage   map[string]string
	failures  int
	submitted int

	live atomic.Int32
	peak atomic.Int32

	diagMu  sync.Mutex
	Timings *render.Timings
}

// NewPool returns a pool rendering through engine.
func NewPool(engine Engine, selector *Selector, opts PoolOptions, logger *slog.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		engine:   engine,
		selector: selector,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "parallax"),
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		byImage:  make(map[string]string),
		Timings:  render.NewTimings(10),
	}
}

// Submit waits until fewer than Workers renders are live, then starts one
// for image. It fails only when ctx ends while waiting.
func (p *Pool) Submit(ctx context.Context, image string) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("parallax submit %s: %w", filepath.Base(image), err)
	}

	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	n := p.live.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.live.Add(-1)
		p.work(ctx, index, image)
	}()
	return nil
}

// JoinAll waits for every submitted render and returns the clips produced,
// in completion order.
func (p *Pool) JoinAll() []string {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clips...)
}

// ClipFor returns the first clip rendered for image. Call it after JoinAll.
func (p *Pool) ClipFor(image string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	clip, ok := p.byImage[image]
	return clip, ok
}

// Peak returns the highest number of renders that were live at once.
func (p *Pool) Peak() int { return int(p.peak.Load()) }

// Failures returns the number of images that produced no clip.
func (p *Pool) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *Pool) work(ctx context.Context, index int, image string) {
	// Each image draws from its own stream so results do not depend on scheduling.
	src := random.Derive(p.opts.Seed, index)
	params := p.selector.Select(src)
	p.diagnose(image, params)

	produced := 0
	for i, variant := range p.variants() {
		job := Job{Image: image, Output: p.outputPath(image, i), Params: params, Variant: variant}
		start := time.Now()
		clip, err := p.render(ctx, job)
		if err != nil {
			logging.WarnWithContext(p.logger, "parallax render failed, keeping still image", "parallax_failed",
				logging.String("image", image),
				logging.Error(err),
			)
			continue
		}
		p.Timings.Add(time.Since(start))
		produced++
		p.mu.Lock()
		p.clips = append(p.clips, clip)
		if _, ok := p.byImage[image]; !ok {
			p.byImage[image] = clip
		}
		p.mu.Unlock()
		p.logger.Info("parallax clip rendered",
			logging.String("image", filepath.Base(image)),
			logging.String("clip", clip),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	if produced == 0 {
		p.mu.Lock()
		p.failures++
		p.mu.Unlock()
	}
}

// render runs one engine job. A panicking engine fails the job instead of
// the process.
func (p *Pool) render(ctx context.Context, job Job) (clip string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parallax engine panicked on %s: %v", filepath.Base(job.Image), rec)
		}
	}()
	if timeout := p.timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.engine.Render(ctx, job)
}

// timeout is the mean render time plus four deviations with a 20% margin,
// never below MinTimeout.
func (p *Pool) timeout() time.Duration {
	if p.opts.MinTimeout <= 0 {
		return 0
	}
	if p.Timings.Len() == 0 {
		return 0
	}
	adaptive := time.Duration(float64(p.Timings.Mean()+4*p.Timings.StdDev()) * 1.2)
	return max(adaptive, p.opts.MinTimeout)
}

func (p *Pool) variants() []Variant {
	if len(p.opts.Variants) == 0 {
		return []Variant{{Height: 1920, Time: 6, Loop: 1, FPS: 25}}
	}
	return p.opts.Variants
}

func (p *Pool) outputPath(image string, variant int) string {
	dir := p.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(image)
	}
	stem := strings.TrimSuffix(filepath.Base(image), filepath.Ext(image))
	if variant > 0 {
		stem = fmt.Sprintf("%s_v%d", stem, variant)
	}
	return filepath.Join(dir, stem+media.GeneratedSuffix)
}

// DiagnosticEntry formats the record written for each image.
func DiagnosticEntry(image string, params Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Image: %s\n", strings.TrimSuffix(filepath.Base(image), filepath.Ext(image)))
	fmt.Fprintf(&b, "Isometric: %.2f\n", params.Isometric)
	fmt.Fprintf(&b, "Height: %.2f\n", params.Height)
	fmt.Fprintf(&b, "Applied %d animations:\n", len(params.Animations))
	for _, a := range params.Animations {
		fmt.Fprintf(&b, "  Animation: %s\n", a)
	}
	return b.String()
}

func (p *Pool) diagnose(image string, params Params) {
	entry := DiagnosticEntry(image, params)

	p.diagMu.Lock()
	defer p.diagMu.Unlock()
	if p.opts.Log != nil {
		p.opts.Log.Info("parallax %s", strings.TrimSpace(strings.ReplaceAll(entry, "\n", "; ")))
	}
	if p.opts.DiagnosticDir == "" {
		return
	}
	f, err := os.OpenFile(filepath.Join(p.opts.DiagnosticDir, DiagnosticFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		p.logger.Warn("failed to open parallax diagnostics", logging.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(entry + "\n"); err != nil {
		p.logger.Warn("failed to write parallax diagnostics", logging.Error(err))
	}
}

// EstimateRemaining projects the time left for n more images from the
// recorded render times.
func (p *Pool) EstimateRemaining(n int) time.Duration {
	per := p.Timings.Mean()
	if per == 0 {
		per = 60 * time.Second
	}
	workers := p.opts.Workers
	batches := (n + workers - 1) / workers
	return per * time.Duration(batches)
}

// TimingStats summarises the recorded render times.
func (p *Pool) TimingStats() string {
	if p.Timings.Len() == 0 {
		return "No timing data yet"
	}
	return fmt.Sprintf("Avg render: %.1fs, stddev %.1fs (samples: %d)",
		p.Timings.Mean().Seconds(), p.Timings.StdDev().Seconds(), p.Timings.Len())
}
