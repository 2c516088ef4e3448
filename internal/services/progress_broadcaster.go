package services

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
)

// ProgressUpdate represents a progress update event
type ProgressUpdate struct {
	JobID        int       `json:"job_id"`
	RunID        string    `json:"run_id,omitempty"`
	Status       string    `json:"status"`
	CurrentStep  string    `json:"current_step"`
	Progress     int       `json:"progress"`
	Message      string    `json:"message"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProgressBroadcaster fans job progress out to SSE subscribers
type ProgressBroadcaster struct {
	clients map[chan ProgressUpdate]bool
	mutex   sync.RWMutex
	logger  *slog.Logger
}

// NewProgressBroadcaster creates a new progress broadcaster
func NewProgressBroadcaster(logger *slog.Logger) *ProgressBroadcaster {
	return &ProgressBroadcaster{
		clients: make(map[chan ProgressUpdate]bool),
		logger:  logging.NewComponentLogger(logger, "progress"),
	}
}

// Subscribe adds a new client to receive progress updates
func (pb *ProgressBroadcaster) Subscribe() chan ProgressUpdate {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	client := make(chan ProgressUpdate, 10)
	pb.clients[client] = true
	pb.logger.Debug("client subscribed", logging.Int("clients", len(pb.clients)))
	return client
}

// Unsubscribe removes a client from receiving updates
func (pb *ProgressBroadcaster) Unsubscribe(client chan ProgressUpdate) {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	if _, ok := pb.clients[client]; ok {
		delete(pb.clients, client)
		close(client)
		pb.logger.Debug("client unsubscribed", logging.Int("clients", len(pb.clients)))
	}
}

// Broadcast sends a progress update to all connected clients.
// Slow clients with a full buffer miss the update.
func (pb *ProgressBroadcaster) Broadcast(update ProgressUpdate) {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()

	update.Timestamp = time.Now()
	for client := range pb.clients {
		select {
		case client <- update:
		default:
			pb.logger.Warn("client buffer full, dropping update", logging.Int(logging.FieldJobID, update.JobID))
		}
	}
}

// BroadcastFromJob converts a job to a progress update and broadcasts it
func (pb *ProgressBroadcaster) BroadcastFromJob(job *models.Job, message string) {
	pb.Broadcast(ProgressUpdate{
		JobID:        job.ID,
		RunID:        job.RunID,
		Status:       job.Status,
		CurrentStep:  job.CurrentStep,
		Progress:     job.Progress,
		Message:      message,
		ErrorMessage: job.ErrorMessage,
	})
}

// ClientCount returns the number of connected clients
func (pb *ProgressBroadcaster) ClientCount() int {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()
	return len(pb.clients)
}

// FormatSSE formats a progress update as a Server-Sent Event
func FormatSSE(update ProgressUpdate) string {
	data, err := json.Marshal(update)
	if err != nil {
		return ""
	}
	return "data: " + string(data) + "\n\n"
}
