package models

import "time"

// Manifest describes the assets and presentation settings of one compose run
type Manifest struct {
	Title        string   `json:"title" toml:"title"`
	MediaDir     string   `json:"media_dir" toml:"media_dir" binding:"required"`
	Outro        string   `json:"outro" toml:"outro"`
	Soundtrack   string   `json:"soundtrack" toml:"soundtrack"`
	Voiceover    string   `json:"voiceover" toml:"voiceover"`
	VoiceoverEnd string   `json:"voiceover_end" toml:"voiceover_end"`
	Stabs        []string `json:"stabs" toml:"stabs"`
	TitleText    string   `json:"title_text" toml:"title_text"`
	Orientation  string   `json:"orientation" toml:"orientation"` // vertical or horizontal
	OutputDir    string   `json:"output_dir" toml:"output_dir"`
	Seed         uint64   `json:"seed" toml:"seed"` // 0 picks a time based seed
}

// Job represents a compose run in the processing queue
type Job struct {
	ID       int    `json:"id" db:"id"`
	RunID    string `json:"run_id" db:"run_id"`
	Manifest string `json:"manifest" db:"manifest"` // JSON encoded Manifest
	Status   string `json:"status" db:"status"`
	Priority int    `json:"priority" db:"priority"`

	CurrentStep  string `json:"current_step" db:"current_step"`
	Progress     int    `json:"progress" db:"progress"`
	ErrorMessage string `json:"error_message" db:"error_message"`

	OutputPath string `json:"output_path" db:"output_path"`
	OutputSize int64  `json:"output_size" db:"output_size"`

	QueuedAt    time.Time  `json:"queued_at" db:"queued_at"`
	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// StageLog records the outcome and timing of one pipeline stage for a job
type StageLog struct {
	ID              int       `json:"id" db:"id"`
	JobID           int       `json:"job_id" db:"job_id"`
	Stage           string    `json:"stage" db:"stage"`
	Status          string    `json:"status" db:"status"`
	Message         string    `json:"message" db:"message"`
	DurationSeconds float64   `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Job status constants
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRejected   = "rejected" // bad manifest or configuration, no point retrying as-is
)

// Stage status constants
const (
	StageOK      = "ok"
	StageSkipped = "skipped"
	StageFailed  = "failed"
)
