package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
)

func TestBroadcastReachesSubscribers(t *testing.T) {
	pb := NewProgressBroadcaster(logging.NewNop())
	a := pb.Subscribe()
	b := pb.Subscribe()
	require.Equal(t, 2, pb.ClientCount())

	job := &models.Job{ID: 7, RunID: "run-1", Status: models.StatusProcessing, CurrentStep: "audio", Progress: 60}
	pb.BroadcastFromJob(job, "mixing")

	for _, ch := range []chan ProgressUpdate{a, b} {
		got := <-ch
		assert.Equal(t, 7, got.JobID)
		assert.Equal(t, "audio", got.CurrentStep)
		assert.Equal(t, 60, got.Progress)
		assert.Equal(t, "mixing", got.Message)
		assert.False(t, got.Timestamp.IsZero())
	}

	pb.Unsubscribe(a)
	pb.Unsubscribe(a)
	assert.Equal(t, 1, pb.ClientCount())
	_, open := <-a
	assert.False(t, open)
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	pb := NewProgressBroadcaster(logging.NewNop())
	ch := pb.Subscribe()
	for i := 0; i < 15; i++ {
		pb.Broadcast(ProgressUpdate{JobID: i})
	}
	assert.Len(t, ch, 10)
}

func TestFormatSSE(t *testing.T) {
	out := FormatSSE(ProgressUpdate{JobID: 3, Status: models.StatusQueued})
	require.True(t, strings.HasPrefix(out, "data: "))
	require.True(t, strings.HasSuffix(out, "\n\n"))

	var decoded ProgressUpdate
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(out, "data: "))), &decoded))
	assert.Equal(t, 3, decoded.JobID)
}
