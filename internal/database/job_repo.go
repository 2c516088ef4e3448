package database

import (
	"database/sql"

	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
)

const jobColumns = `id, run_id, manifest, status, priority,
		COALESCE(current_step, '') as current_step,
		COALESCE(progress, 0) as progress,
		COALESCE(error_message, '') as error_message,
		COALESCE(output_path, '') as output_path,
		COALESCE(output_size, 0) as output_size,
		queued_at, started_at, completed_at`

// JobRepository handles job database operations
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*models.Job, error) {
	var job models.Job
	err := row.Scan(
		&job.ID, &job.RunID, &job.Manifest, &job.Status, &job.Priority,
		&job.CurrentStep, &job.Progress, &job.ErrorMessage,
		&job.OutputPath, &job.OutputSize,
		&job.QueuedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetAll returns all jobs, next to run first
func (r *JobRepository) GetAll() ([]models.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs ORDER BY priority DESC, queued_at ASC, id ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// GetByID returns a job by ID, nil if there is none
func (r *JobRepository) GetByID(id int) (*models.Job, error) {
	job, err := scanJob(r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// Create queues a new job
func (r *JobRepository) Create(job *models.Job) error {
	if job.Status == "" {
		job.Status = models.StatusQueued
	}
	query := `INSERT INTO jobs (run_id, manifest, status, priority)
		VALUES (?, ?, ?, ?)`

	result, err := r.db.Exec(query, job.RunID, job.Manifest, job.Status, job.Priority)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	job.ID = int(id)
	return nil
}

// Update updates an existing job
func (r *JobRepository) Update(job *models.Job) error {
	query := `UPDATE jobs SET run_id=?, status=?, priority=?,
		current_step=?, progress=?, error_message=?,
		output_path=?, output_size=?,
		started_at=?, completed_at=?
		WHERE id=?`

	_, err := r.db.Exec(query,
		job.RunID, job.Status, job.Priority,
		job.CurrentStep, job.Progress, job.ErrorMessage,
		job.OutputPath, job.OutputSize,
		job.StartedAt, job.CompletedAt,
		job.ID,
	)
	return err
}

// Delete removes a job and its stage logs
func (r *JobRepository) Delete(id int) error {
	_, err := r.db.Exec("DELETE FROM jobs WHERE id=?", id)
	return err
}

// GetNextQueued returns the next job to run, nil when the queue is empty
func (r *JobRepository) GetNextQueued() (*models.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = ?
		ORDER BY priority DESC, queued_at ASC, id ASC
		LIMIT 1`

	job, err := scanJob(r.db.QueryRow(query, models.StatusQueued))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// CountByStatus returns the number of jobs per status
func (r *JobRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ResetProcessing puts jobs left in processing by a crashed worker back in
// the queue and returns how many were reset.
func (r *JobRepository) ResetProcessing() (int, error) {
	result, err := r.db.Exec(`UPDATE jobs SET status=?, current_step='', progress=0, started_at=NULL
		WHERE status=?`, models.StatusQueued, models.StatusProcessing)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
