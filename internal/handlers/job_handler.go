package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AndrewDonelson/slideshow-compositor/internal/database"
	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
	"github.com/AndrewDonelson/slideshow-compositor/internal/services"
)

// JobHandler handles job-related requests
type JobHandler struct {
	repo        *database.JobRepository
	stageRepo   *database.StageLogRepository
	broadcaster *services.ProgressBroadcaster
}

// NewJobHandler creates a new job handler
func NewJobHandler(repo *database.JobRepository, stageRepo *database.StageLogRepository, broadcaster *services.ProgressBroadcaster) *JobHandler {
	return &JobHandler{
		repo:        repo,
		stageRepo:   stageRepo,
		broadcaster: broadcaster,
	}
}

// CreateJobRequest queues a compose run
type CreateJobRequest struct {
	Manifest models.Manifest `json:"manifest"`
	Priority int             `json:"priority"`
}

// GetAll returns all jobs
func (h *JobHandler) GetAll(c *gin.Context) {
	jobs, err := h.repo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetByID returns a job by ID
func (h *JobHandler) GetByID(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// Create queues a new job
func (h *JobHandler) Create(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	manifest, err := json.Marshal(req.Manifest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job := &models.Job{
		RunID:    uuid.NewString(),
		Manifest: string(manifest),
		Status:   models.StatusQueued,
		Priority: req.Priority,
	}
	if err := h.repo.Create(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcaster.BroadcastFromJob(job, "Job queued")
	c.JSON(http.StatusCreated, job)
}

// Delete removes a job. Running jobs cannot be deleted.
func (h *JobHandler) Delete(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	if job.Status == models.StatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "Job is processing"})
		return
	}

	if err := h.repo.Delete(job.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.broadcaster.BroadcastFromJob(job, "Job deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Job deleted"})
}

// GetNext returns the job the worker will run next
func (h *JobHandler) GetNext(c *gin.Context) {
	job, err := h.repo.GetNextQueued()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if job == nil {
		c.JSON(http.StatusOK, gin.H{"job": nil, "message": "No queued jobs"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetStats returns job counts by status
func (h *JobHandler) GetStats(c *gin.Context) {
	counts, err := h.repo.CountByStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// GetStages returns the stage log of a job
func (h *JobHandler) GetStages(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	stages, err := h.stageRepo.GetByJob(job.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if stages == nil {
		stages = []models.StageLog{}
	}
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "stages": stages})
}

// lookup loads the job named by the id parameter, writing the error
// response itself when there is none.
func (h *JobHandler) lookup(c *gin.Context) (*models.Job, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return nil, false
	}

	job, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return nil, false
	}
	return job, true
}
