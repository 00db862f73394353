package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

const jobColumns = `id, media_file_id, status, progress, error_message, temp_file_path,
	created_at, started_at, completed_at`

// JobRepository executes operations on the processing_jobs table. On
// top of plain CRUD it carries the queue lifecycle: claim the oldest
// queued job, advance its progress, then complete or fail it.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

var _ models.Repository[*models.ProcessingJob] = (*JobRepository)(nil)

// Create inserts a job row and assigns the generated ID. Most callers
// want [JobRepository.QueueFile], which also guards against double
// queueing and flags the owning file.
func (r *JobRepository) Create(job *models.ProcessingJob) error {
	if job.Status == "" {
		job.Status = models.JobQueued
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid processing job: %w", err)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO processing_jobs (media_file_id, status, progress, error_message,
		temp_file_path, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		job.MediaFileID, string(job.Status), job.Progress,
		strOrNil(job.ErrorMessage), strOrNil(job.TempFilePath),
		job.CreatedAt, timeOrNil(job.StartedAt), timeOrNil(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create processing job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read processing job id: %w", err)
	}
	job.ID = id

	return nil
}

// Get fetches a job by ID.
func (r *JobRepository) Get(id int64) (*models.ProcessingJob, error) {
	query := fmt.Sprintf("SELECT %s FROM processing_jobs WHERE id = ?", jobColumns)
	return r.scanJob(r.db.QueryRow(query, id))
}

// Update rewrites the mutable state of a job.
func (r *JobRepository) Update(job *models.ProcessingJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid processing job: %w", err)
	}

	query := `UPDATE processing_jobs
		SET status = ?, progress = ?, error_message = ?, temp_file_path = ?,
			started_at = ?, completed_at = ?
		WHERE id = ?`

	result, err := r.db.Exec(query,
		string(job.Status), job.Progress, strOrNil(job.ErrorMessage),
		strOrNil(job.TempFilePath), timeOrNil(job.StartedAt), timeOrNil(job.CompletedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update processing job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check processing job update: %w", err)
	}
	if rows == 0 {
		return shared.ErrJobNotFound
	}

	return nil
}

// Delete removes a job row.
func (r *JobRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM processing_jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete processing job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check processing job deletion: %w", err)
	}
	if rows == 0 {
		return shared.ErrJobNotFound
	}

	return nil
}

// List fetches jobs matching criteria. Supported keys: "status" and
// "media_file_id". Results are newest first.
func (r *JobRepository) List(criteria map[string]any) ([]*models.ProcessingJob, error) {
	query := fmt.Sprintf("SELECT %s FROM processing_jobs WHERE 1=1", jobColumns)
	args := []any{}

	if status, ok := criteria["status"]; ok {
		query += " AND status = ?"
		args = append(args, fmt.Sprintf("%v", status))
	}
	if fileID, ok := criteria["media_file_id"]; ok {
		query += " AND media_file_id = ?"
		args = append(args, fileID)
	}

	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ProcessingJob
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// QueueFile creates a queued job for a media file and flags the file,
// in one transaction. A file with a queued or processing job returns
// [shared.ErrAlreadyQueued]; an unknown file returns
// [shared.ErrMediaNotFound].
func (r *JobRepository) QueueFile(fileID int64) (*models.ProcessingJob, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin queueing: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT COUNT(*) FROM media_files WHERE id = ?", fileID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check media file: %w", err)
	}
	if exists == 0 {
		return nil, shared.ErrMediaNotFound
	}

	var active int
	err = tx.QueryRow(`SELECT COUNT(*) FROM processing_jobs
		WHERE media_file_id = ? AND status IN ('queued', 'processing')`, fileID).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("failed to check active jobs: %w", err)
	}
	if active > 0 {
		return nil, shared.ErrAlreadyQueued
	}

	now := time.Now().UTC()
	result, err := tx.Exec(`INSERT INTO processing_jobs (media_file_id, status, progress, created_at)
		VALUES (?, ?, 0, ?)`, fileID, string(models.JobQueued), now)
	if err != nil {
		return nil, fmt.Errorf("failed to queue processing job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read processing job id: %w", err)
	}

	_, err = tx.Exec("UPDATE media_files SET process_status = ?, updated_at = ? WHERE id = ?",
		string(models.ProcessQueued), now, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to flag file as queued: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit queueing: %w", err)
	}

	return &models.ProcessingJob{
		ID:          id,
		MediaFileID: fileID,
		Status:      models.JobQueued,
		CreatedAt:   now,
	}, nil
}

// NextQueued fetches the oldest queued job, or [shared.ErrJobNotFound]
// when the queue is empty.
func (r *JobRepository) NextQueued() (*models.ProcessingJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM processing_jobs
		WHERE status = 'queued' ORDER BY created_at, id LIMIT 1`, jobColumns)
	return r.scanJob(r.db.QueryRow(query))
}

// ActiveJobs returns status payload rows for every queued or
// processing job, joined with the owning filename, oldest first.
func (r *JobRepository) ActiveJobs() ([]models.JobStatus, error) {
	query := `SELECT j.id, m.filename, j.media_file_id, j.status, j.progress
		FROM processing_jobs j
		JOIN media_files m ON m.id = j.media_file_id
		WHERE j.status IN ('queued', 'processing')
		ORDER BY j.created_at, j.id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.JobStatus
	for rows.Next() {
		var job models.JobStatus
		if err := rows.Scan(&job.ID, &job.MediaFile, &job.MediaFileID, &job.Status, &job.Progress); err != nil {
			return nil, fmt.Errorf("failed to scan job status: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// CountActive returns the number of queued or processing jobs.
func (r *JobRepository) CountActive() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM processing_jobs
		WHERE status IN ('queued', 'processing')`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active jobs: %w", err)
	}
	return count, nil
}

// CountRunning returns the number of jobs currently in processing. The
// queue loop checks this against max_concurrent_jobs before claiming
// more work.
func (r *JobRepository) CountRunning() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM processing_jobs
		WHERE status = 'processing'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count running jobs: %w", err)
	}
	return count, nil
}

// HasActive reports whether a media file has a queued or processing
// job. Scans consult this before replacing track rows so pending edits
// survive until their job runs.
func (r *JobRepository) HasActive(fileID int64) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM processing_jobs
		WHERE media_file_id = ? AND status IN ('queued', 'processing')`, fileID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active jobs: %w", err)
	}
	return count > 0, nil
}

// MarkStarted transitions a job to processing and records its
// temporary output path. The owning file moves to processing as well.
func (r *JobRepository) MarkStarted(id int64, tempPath string) error {
	now := time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin job start: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE processing_jobs
		SET status = ?, progress = 0, temp_file_path = ?, started_at = ?, error_message = NULL
		WHERE id = ?`, string(models.JobProcessing), strOrNil(tempPath), now, id)
	if err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check job start: %w", err)
	} else if rows == 0 {
		return shared.ErrJobNotFound
	}

	_, err = tx.Exec(`UPDATE media_files SET process_status = ?, updated_at = ?
		WHERE id = (SELECT media_file_id FROM processing_jobs WHERE id = ?)`,
		string(models.ProcessProcessing), now, id)
	if err != nil {
		return fmt.Errorf("failed to flag file as processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job start: %w", err)
	}

	return nil
}

// SetProgress records remux progress for a running job.
func (r *JobRepository) SetProgress(id int64, progress float64) error {
	result, err := r.db.Exec("UPDATE processing_jobs SET progress = ? WHERE id = ?", progress, id)
	if err != nil {
		return fmt.Errorf("failed to set job progress: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job progress update: %w", err)
	}
	if rows == 0 {
		return shared.ErrJobNotFound
	}

	return nil
}

// MarkCompleted finishes a job successfully and moves the owning file
// to completed.
func (r *JobRepository) MarkCompleted(id int64) error {
	return r.finish(id, models.JobCompleted, models.ProcessCompleted, 100, "")
}

// MarkFailed finishes a job with an error message and moves the owning
// file to the error state.
func (r *JobRepository) MarkFailed(id int64, errMsg string) error {
	return r.finish(id, models.JobFailed, models.ProcessError, 0, errMsg)
}

func (r *JobRepository) finish(id int64, state models.JobState, fileState models.ProcessState, progress float64, errMsg string) error {
	now := time.Now().UTC()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin job finish: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE processing_jobs
		SET status = ?, progress = ?, error_message = ?, completed_at = ?
		WHERE id = ?`, string(state), progress, strOrNil(errMsg), now, id)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check job finish: %w", err)
	} else if rows == 0 {
		return shared.ErrJobNotFound
	}

	_, err = tx.Exec(`UPDATE media_files SET process_status = ?, error_message = ?, updated_at = ?
		WHERE id = (SELECT media_file_id FROM processing_jobs WHERE id = ?)`,
		string(fileState), strOrNil(errMsg), now, id)
	if err != nil {
		return fmt.Errorf("failed to flag file state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job finish: %w", err)
	}

	return nil
}

// RequeueStuck moves jobs left in processing by an interrupted run
// back to queued and returns how many were reset. Called once at
// engine startup before the claim loop begins.
func (r *JobRepository) RequeueStuck() (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin stuck job reset: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(`UPDATE media_files SET process_status = ?, updated_at = ?
		WHERE id IN (SELECT media_file_id FROM processing_jobs WHERE status = 'processing')`,
		string(models.ProcessQueued), now)
	if err != nil {
		return 0, fmt.Errorf("failed to flag stuck files: %w", err)
	}

	result, err := tx.Exec(`UPDATE processing_jobs
		SET status = ?, progress = 0, started_at = NULL, temp_file_path = NULL
		WHERE status = 'processing'`, string(models.JobQueued))
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stuck jobs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count requeued jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stuck job reset: %w", err)
	}

	return count, nil
}

func (r *JobRepository) scanJob(rs rowScanner) (*models.ProcessingJob, error) {
	job := &models.ProcessingJob{}
	var (
		errMsg    sql.NullString
		tempPath  sql.NullString
		started   sql.NullTime
		completed sql.NullTime
	)

	err := rs.Scan(
		&job.ID, &job.MediaFileID, &job.Status, &job.Progress,
		&errMsg, &tempPath, &job.CreatedAt, &started, &completed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan processing job: %w", err)
	}

	job.ErrorMessage = str(errMsg)
	job.TempFilePath = str(tempPath)
	job.StartedAt = timePtr(started)
	job.CompletedAt = timePtr(completed)

	return job, nil
}
