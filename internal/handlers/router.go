package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/slideshow-compositor/internal/database"
	"github.com/AndrewDonelson/slideshow-compositor/internal/logging"
	"github.com/AndrewDonelson/slideshow-compositor/internal/services"
)

// NewRouter wires the HTTP API.
func NewRouter(jobRepo *database.JobRepository, stageRepo *database.StageLogRepository, broadcaster *services.ProgressBroadcaster, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	jobHandler := NewJobHandler(jobRepo, stageRepo, broadcaster)
	progressHandler := NewProgressHandler(broadcaster, logger)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// CORS middleware - MUST be first among the route handlers
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Add("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Add("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Add("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Add("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "slideshow-compositor",
		})
	})

	v1 := router.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.GetAll)
			jobs.POST("", jobHandler.Create)
			jobs.GET("/next", jobHandler.GetNext)
			jobs.GET("/stats", jobHandler.GetStats)
			jobs.GET("/:id", jobHandler.GetByID)
			jobs.DELETE("/:id", jobHandler.Delete)
			jobs.GET("/:id/stages", jobHandler.GetStages)
		}

		// Progress streaming endpoints (SSE)
		progress := v1.Group("/progress")
		{
			progress.GET("/stream", progressHandler.StreamProgress)
			progress.GET("/stream/:id", progressHandler.StreamJobProgress)
			progress.GET("/stats", progressHandler.GetStats)
		}
	}
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logging.NewComponentLogger(logger, "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
}
