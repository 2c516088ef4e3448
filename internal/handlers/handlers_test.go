package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/slideshow-compositor/internal/database"
	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
	"github.com/AndrewDonelson/slideshow-compositor/internal/services"
)

type api struct {
	router      *gin.Engine
	jobs        *database.JobRepository
	stages      *database.StageLogRepository
	broadcaster *services.ProgressBroadcaster
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := &api{
		jobs:        database.NewJobRepository(db),
		stages:      database.NewStageLogRepository(db),
		broadcaster: services.NewProgressBroadcaster(nil),
	}
	a.router = NewRouter(a.jobs, a.stages, a.broadcaster, nil)
	return a
}

func (a *api) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"slideshow-compositor"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodOptions, "/api/v1/jobs", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateAndFetchJob(t *testing.T) {
	a := newAPI(t)
	updates := a.broadcaster.Subscribe()
	defer a.broadcaster.Unsubscribe(updates)

	w := a.do(http.MethodPost, "/api/v1/jobs", `{"manifest":{"title":"Trip","media_dir":"/media/trip"},"priority":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Job
	decode(t, w, &created)
	assert.NotZero(t, created.ID)
	assert.Len(t, created.RunID, 36)
	assert.Equal(t, models.StatusQueued, created.Status)
	assert.Equal(t, 3, created.Priority)

	var manifest models.Manifest
	require.NoError(t, json.Unmarshal([]byte(created.Manifest), &manifest))
	assert.Equal(t, "/media/trip", manifest.MediaDir)

	select {
	case u := <-updates:
		assert.Equal(t, created.ID, u.JobID)
		assert.Equal(t, "Job queued", u.Message)
	case <-time.After(time.Second):
		t.Fatal("no broadcast for created job")
	}

	w = a.do(http.MethodGet, "/api/v1/jobs/"+strconv.Itoa(created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched models.Job
	decode(t, w, &fetched)
	assert.Equal(t, created.RunID, fetched.RunID)

	w = a.do(http.MethodGet, "/api/v1/jobs", "")
	var list struct {
		Jobs []models.Job `json:"jobs"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Jobs, 1)

	w = a.do(http.MethodGet, "/api/v1/jobs/next", "")
	var next models.Job
	decode(t, w, &next)
	assert.Equal(t, created.ID, next.ID)

	w = a.do(http.MethodGet, "/api/v1/jobs/stats", "")
	var stats struct {
		Counts map[string]int `json:"counts"`
	}
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.Counts[models.StatusQueued])
}

func TestCreateRejectsBadRequests(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/jobs", `{"manifest":{"title":"no media"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/jobs", `not json`).Code)

	count, err := a.jobs.CountByStatus()
	require.NoError(t, err)
	assert.Empty(t, count)
}

func TestEmptyQueue(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/api/v1/jobs", "")
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())

	w = a.do(http.MethodGet, "/api/v1/jobs/next", "")
	assert.JSONEq(t, `{"job":null,"message":"No queued jobs"}`, w.Body.String())
}

func TestGetByIDErrors(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/jobs/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/jobs/42", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/v1/jobs/42", "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/jobs/42/stages", "").Code)
}

func TestDeleteJob(t *testing.T) {
	a := newAPI(t)
	queued := &models.Job{RunID: "q", Manifest: "{}"}
	running := &models.Job{RunID: "r", Manifest: "{}", Status: models.StatusProcessing}
	require.NoError(t, a.jobs.Create(queued))
	require.NoError(t, a.jobs.Create(running))

	assert.Equal(t, http.StatusConflict, a.do(http.MethodDelete, "/api/v1/jobs/"+strconv.Itoa(running.ID), "").Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/api/v1/jobs/"+strconv.Itoa(queued.ID), "").Code)

	gone, err := a.jobs.GetByID(queued.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestGetStages(t *testing.T) {
	a := newAPI(t)
	job := &models.Job{RunID: "s", Manifest: "{}"}
	require.NoError(t, a.jobs.Create(job))

	w := a.do(http.MethodGet, "/api/v1/jobs/"+strconv.Itoa(job.ID)+"/stages", "")
	assert.JSONEq(t, `{"job_id":`+strconv.Itoa(job.ID)+`,"stages":[]}`, w.Body.String())

	require.NoError(t, a.stages.Create(&models.StageLog{JobID: job.ID, Stage: "prepare", Status: "ok", DurationSeconds: 0.5}))
	w = a.do(http.MethodGet, "/api/v1/jobs/"+strconv.Itoa(job.ID)+"/stages", "")
	var resp struct {
		Stages []models.StageLog `json:"stages"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Stages, 1)
	assert.Equal(t, "prepare", resp.Stages[0].Stage)
}

func TestStreamJobProgressFilters(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/progress/stream/7")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	first := readEvent(t, lines)
	assert.Contains(t, first, `"message":"connected"`)

	// subscribed before the connected event was written
	a.broadcaster.Broadcast(services.ProgressUpdate{JobID: 3, Message: "other"})
	a.broadcaster.Broadcast(services.ProgressUpdate{JobID: 7, Message: "mine"})

	event := readEvent(t, lines)
	assert.Contains(t, event, `"job_id":7`)
	assert.Contains(t, event, `"message":"mine"`)
}

func TestStreamJobProgressInvalidID(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/progress/stream/x", "").Code)
}

func TestProgressStats(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/api/v1/progress/stats", "")
	var stats map[string]any
	decode(t, w, &stats)
	assert.Equal(t, float64(0), stats["connected_clients"])
}

// readEvent returns the next data line of an SSE stream.
func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			return line
		}
	}
}
