package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndrewDonelson/slideshow-compositor/internal/database"
	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
	"github.com/AndrewDonelson/slideshow-compositor/internal/services"
)

// Worker processes queued jobs one at a time
type Worker struct {
	jobRepo      *database.JobRepository
	broadcaster  *services.ProgressBroadcaster
	processor    *Processor
	pollInterval time.Duration
	logger       *slog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	started      atomic.Bool
	stopOnce     sync.Once
}

// NewWorker creates a new job worker
func NewWorker(
	jobRepo *database.JobRepository,
	broadcaster *services.ProgressBroadcaster,
	processor *Processor,
	pollInterval time.Duration,
	logger *slog.Logger,
) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		jobRepo:      jobRepo,
		broadcaster:  broadcaster,
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logging.NewComponentLogger(logger, "worker"),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start processes jobs until Stop is called. Jobs left in processing by a
// previous process are queued again first.
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	defer close(w.done)
	w.logger.Info("job worker started", logging.Duration("poll_interval", w.pollInterval))

	if n, err := w.jobRepo.ResetProcessing(); err != nil {
		w.logger.Error("failed to reset interrupted jobs", logging.Error(err))
	} else if n > 0 {
		w.logger.Info("requeued interrupted jobs", logging.Int("count", n))
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Process immediately on start
	for w.ProcessNext() {
	}

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("job worker stopped")
			return
		case <-ticker.C:
			for w.ProcessNext() {
			}
		}
	}
}

// Stop cancels the running job and waits for Start to return
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("stopping job worker")
		w.cancel()
	})
	if w.started.Load() {
		<-w.done
	}
}

// ProcessNext runs the next queued job and reports whether one was found.
func (w *Worker) ProcessNext() bool {
	if w.ctx.Err() != nil {
		return false
	}
	job, err := w.jobRepo.GetNextQueued()
	if err != nil {
		w.logger.Error("failed to fetch next job", logging.Error(err))
		return false
	}
	if job == nil {
		return false
	}

	jobLogger := w.logger.With(logging.Int(logging.FieldJobID, job.ID), logging.String("run_id", job.RunID))
	jobLogger.Info("processing job")

	manifest, err := ParseManifest(job.Manifest)
	if err != nil {
		return w.failJob(job, err)
	}

	now := time.Now()
	job.Status = models.StatusProcessing
	job.StartedAt = &now
	job.Progress = 0
	job.CurrentStep = "starting"
	job.ErrorMessage = ""
	if err := w.jobRepo.Update(job); err != nil {
		jobLogger.Error("failed to mark job processing", logging.Error(err))
		return false
	}
	w.broadcast(job, "Processing started")

	if err := w.processor.Process(w.ctx, job, manifest); err != nil {
		if w.ctx.Err() != nil {
			// left in processing; the next Start queues it again
			jobLogger.Warn("job interrupted by shutdown", logging.Error(err))
			return false
		}
		return w.failJob(job, err)
	}

	completed := time.Now()
	job.Status = models.StatusCompleted
	job.CompletedAt = &completed
	job.Progress = 100
	job.CurrentStep = "completed"
	if err := w.jobRepo.Update(job); err != nil {
		jobLogger.Error("failed to mark job completed", logging.Error(err))
		return true
	}

	w.broadcast(job, "Processing completed successfully")
	jobLogger.Info("job completed",
		logging.String("output", job.OutputPath),
		logging.Duration("elapsed", completed.Sub(now)),
	)
	return true
}

// failJob marks a job failed, or rejected when retrying it unchanged cannot
// help. It reports whether the job left the queue.
func (w *Worker) failJob(job *models.Job, err error) bool {
	job.Status = services.FailureStatus(err)
	job.ErrorMessage = err.Error()
	completed := time.Now()
	job.CompletedAt = &completed

	if updateErr := w.jobRepo.Update(job); updateErr != nil {
		w.logger.Error("failed to mark job failed", logging.Int(logging.FieldJobID, job.ID), logging.Error(updateErr))
		return false
	}

	w.broadcast(job, "Processing failed")
	logging.ErrorWithContext(w.logger, "job failed", "job_failed",
		logging.Int(logging.FieldJobID, job.ID),
		logging.String("status", job.Status),
		logging.Error(err),
	)
	return true
}

func (w *Worker) broadcast(job *models.Job, message string) {
	if w.broadcaster != nil {
		w.broadcaster.BroadcastFromJob(job, message)
	}
}
