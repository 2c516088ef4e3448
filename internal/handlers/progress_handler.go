package handlers

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/internal/services"
)

// KeepAliveInterval is how often an idle progress stream is pinged
var KeepAliveInterval = 30 * time.Second

// ProgressHandler handles progress streaming
type ProgressHandler struct {
	broadcaster *services.ProgressBroadcaster
	logger      *slog.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(broadcaster *services.ProgressBroadcaster, logger *slog.Logger) *ProgressHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProgressHandler{
		broadcaster: broadcaster,
		logger:      logging.NewComponentLogger(logger, "progress_stream"),
	}
}

// StreamProgress streams every progress update via Server-Sent Events
func (h *ProgressHandler) StreamProgress(c *gin.Context) {
	h.stream(c, 0)
}

// StreamJobProgress streams the progress of one job
func (h *ProgressHandler) StreamJobProgress(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"error": "Invalid ID"})
		return
	}
	h.stream(c, id)
}

// stream writes updates until the client goes away. jobID zero streams all jobs.
func (h *ProgressHandler) stream(c *gin.Context, jobID int) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	clientChan := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(clientChan)

	clientGone := c.Request.Context().Done()

	connected := services.ProgressUpdate{JobID: jobID, Message: "connected", Timestamp: time.Now()}
	c.Writer.WriteString(services.FormatSSE(connected))
	c.Writer.Flush()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-clientGone:
			h.logger.Debug("client disconnected", logging.Int(logging.FieldJobID, jobID))
			return
		case update, ok := <-clientChan:
			if !ok {
				return
			}
			if jobID != 0 && update.JobID != jobID {
				continue
			}
			data := services.FormatSSE(update)
			if data == "" {
				continue
			}
			if _, err := c.Writer.WriteString(data); err != nil {
				h.logger.Debug("progress stream write failed", logging.Error(err))
				return
			}
			c.Writer.Flush()
		case <-keepAlive.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}

// GetStats returns broadcaster statistics
func (h *ProgressHandler) GetStats(c *gin.Context) {
	c.JSON(200, gin.H{
		"connected_clients": h.broadcaster.ClientCount(),
		"timestamp":         time.Now(),
	})
}
