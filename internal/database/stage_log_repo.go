package database

import (
	"database/sql"

	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
)

// StageLogRepository stores per stage outcomes of jobs
type StageLogRepository struct {
	db *sql.DB
}

// NewStageLogRepository creates a new stage log repository
func NewStageLogRepository(db *sql.DB) *StageLogRepository {
	return &StageLogRepository{db: db}
}

// Create records a stage outcome
func (r *StageLogRepository) Create(entry *models.StageLog) error {
	result, err := r.db.Exec(`INSERT INTO stage_logs (job_id, stage, status, message, duration_seconds)
		VALUES (?, ?, ?, ?, ?)`,
		entry.JobID, entry.Stage, entry.Status, entry.Message, entry.DurationSeconds)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = int(id)
	return nil
}

// GetByJob returns the stage logs of a job in the order they were written
func (r *StageLogRepository) GetByJob(jobID int) ([]models.StageLog, error) {
	rows, err := r.db.Query(`SELECT id, job_id, stage, status,
		COALESCE(message, '') as message,
		COALESCE(duration_seconds, 0) as duration_seconds,
		created_at
		FROM stage_logs WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.StageLog
	for rows.Next() {
		var entry models.StageLog
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Stage, &entry.Status,
			&entry.Message, &entry.DurationSeconds, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
