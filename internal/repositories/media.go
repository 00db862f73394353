package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

const mediaColumns = `id, folder_id, file_path, filename, file_size, file_modified,
	media_type, title, series_name, season_number, episode_number, duration,
	video_codec, resolution, scan_status, process_status, error_message,
	created_at, updated_at`

// MediaRepository executes operations on the media_files table. Track
// rows live in [TrackRepository]; detail handlers compose the two.
type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

var _ models.Repository[*models.MediaFile] = (*MediaRepository)(nil)

// Create inserts a media file row and assigns the generated ID. The
// file path is unique; re-inserting a known path is an error and the
// caller should Update instead.
func (r *MediaRepository) Create(file *models.MediaFile) error {
	if err := file.Validate(); err != nil {
		return fmt.Errorf("invalid media file: %w", err)
	}

	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = now
	if file.ScanStatus == "" {
		file.ScanStatus = models.ScanPending
	}
	if file.ProcessStatus == "" {
		file.ProcessStatus = models.ProcessNone
	}

	query := `INSERT INTO media_files (folder_id, file_path, filename, file_size,
		file_modified, media_type, title, series_name, season_number, episode_number,
		duration, video_codec, resolution, scan_status, process_status, error_message,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		file.FolderID, file.FilePath, file.Filename, file.FileSize,
		timeOrNil(file.FileModified), strOrNil(string(file.MediaType)),
		strOrNil(file.Title), strOrNil(file.SeriesName),
		intOrNil(file.SeasonNumber), intOrNil(file.EpisodeNumber),
		floatOrNil(file.Duration), strOrNil(file.VideoCodec), strOrNil(file.Resolution),
		string(file.ScanStatus), string(file.ProcessStatus), strOrNil(file.ErrorMessage),
		file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read media file id: %w", err)
	}
	file.ID = id

	return nil
}

// Get fetches a media file by ID. Track slices are not populated.
func (r *MediaRepository) Get(id int64) (*models.MediaFile, error) {
	query := fmt.Sprintf("SELECT %s FROM media_files WHERE id = ?", mediaColumns)
	return r.scanFile(r.db.QueryRow(query, id))
}

// GetByPath fetches a media file by its absolute path.
func (r *MediaRepository) GetByPath(path string) (*models.MediaFile, error) {
	query := fmt.Sprintf("SELECT %s FROM media_files WHERE file_path = ?", mediaColumns)
	return r.scanFile(r.db.QueryRow(query, path))
}

// Update rewrites the mutable metadata of a media file (classification
// and probe results). Identity columns (folder, path) are fixed at
// creation.
func (r *MediaRepository) Update(file *models.MediaFile) error {
	if err := file.Validate(); err != nil {
		return fmt.Errorf("invalid media file: %w", err)
	}

	file.UpdatedAt = time.Now().UTC()

	query := `UPDATE media_files
		SET filename = ?, file_size = ?, file_modified = ?, media_type = ?,
			title = ?, series_name = ?, season_number = ?, episode_number = ?,
			duration = ?, video_codec = ?, resolution = ?, scan_status = ?,
			process_status = ?, error_message = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.Exec(query,
		file.Filename, file.FileSize, timeOrNil(file.FileModified),
		strOrNil(string(file.MediaType)), strOrNil(file.Title), strOrNil(file.SeriesName),
		intOrNil(file.SeasonNumber), intOrNil(file.EpisodeNumber),
		floatOrNil(file.Duration), strOrNil(file.VideoCodec), strOrNil(file.Resolution),
		string(file.ScanStatus), string(file.ProcessStatus), strOrNil(file.ErrorMessage),
		file.UpdatedAt, file.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update media file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check media file update: %w", err)
	}
	if rows == 0 {
		return shared.ErrMediaNotFound
	}

	return nil
}

// SetScanStatus transitions the scan state of a file. The error message
// is stored for the error state and cleared otherwise.
func (r *MediaRepository) SetScanStatus(id int64, state models.ScanState, errMsg string) error {
	query := `UPDATE media_files
		SET scan_status = ?, error_message = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.Exec(query, string(state), strOrNil(errMsg), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set scan status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check scan status update: %w", err)
	}
	if rows == 0 {
		return shared.ErrMediaNotFound
	}

	return nil
}

// SetProcessStatus transitions the processing state of a file.
func (r *MediaRepository) SetProcessStatus(id int64, state models.ProcessState) error {
	query := `UPDATE media_files SET process_status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(query, string(state), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set process status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check process status update: %w", err)
	}
	if rows == 0 {
		return shared.ErrMediaNotFound
	}

	return nil
}

// Delete removes a media file. Tracks and jobs cascade.
func (r *MediaRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM media_files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete media file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check media file deletion: %w", err)
	}
	if rows == 0 {
		return shared.ErrMediaNotFound
	}

	return nil
}

// DeleteByPath removes the file stored under path. Returns
// [shared.ErrMediaNotFound] when the path was never scanned, which
// filesystem watchers ignore.
func (r *MediaRepository) DeleteByPath(path string) error {
	result, err := r.db.Exec("DELETE FROM media_files WHERE file_path = ?", path)
	if err != nil {
		return fmt.Errorf("failed to delete media file by path: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check media file deletion: %w", err)
	}
	if rows == 0 {
		return shared.ErrMediaNotFound
	}

	return nil
}

// List fetches media files matching criteria. Supported keys:
// "media_type" (movie or tv), "search" (matches title, series name and
// filename), "folder_id", "scan_status" and "process_status". Results
// order movies before series, series by season and episode.
func (r *MediaRepository) List(criteria map[string]any) ([]*models.MediaFile, error) {
	query := fmt.Sprintf("SELECT %s FROM media_files WHERE 1=1", mediaColumns)
	args := []any{}

	if mediaType, ok := criteria["media_type"]; ok {
		query += " AND media_type = ?"
		args = append(args, fmt.Sprintf("%v", mediaType))
	}
	if search, ok := criteria["search"].(string); ok && search != "" {
		query += " AND (title LIKE ? OR series_name LIKE ? OR filename LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if folderID, ok := criteria["folder_id"]; ok {
		query += " AND folder_id = ?"
		args = append(args, folderID)
	}
	if scanStatus, ok := criteria["scan_status"]; ok {
		query += " AND scan_status = ?"
		args = append(args, fmt.Sprintf("%v", scanStatus))
	}
	if processStatus, ok := criteria["process_status"]; ok {
		query += " AND process_status = ?"
		args = append(args, fmt.Sprintf("%v", processStatus))
	}

	query += ` ORDER BY media_type, COALESCE(series_name, title, filename),
		season_number, episode_number, filename`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media files: %w", err)
	}
	defer rows.Close()

	var files []*models.MediaFile
	for rows.Next() {
		file, err := r.scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// ListByFolder fetches every file recorded under a folder, including
// files whose scans are pending or failed. Scan reconciliation walks
// this list to drop rows whose paths vanished from disk.
func (r *MediaRepository) ListByFolder(folderID int64) ([]*models.MediaFile, error) {
	return r.List(map[string]any{"folder_id": folderID})
}

// ScanProgress aggregates library counters into the scan_progress
// payload. An empty library reports 100 percent.
func (r *MediaRepository) ScanProgress() (*models.ScanProgress, error) {
	query := `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN scan_status = 'completed' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN scan_status = 'scanning' THEN 1 ELSE 0 END), 0)
		FROM media_files`

	progress := &models.ScanProgress{}
	err := r.db.QueryRow(query).Scan(&progress.Total, &progress.Scanned, &progress.Scanning)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate scan progress: %w", err)
	}

	if progress.Total > 0 {
		progress.Progress = float64(progress.Scanned) / float64(progress.Total) * 100
	} else {
		progress.Progress = 100
	}

	return progress, nil
}

func (r *MediaRepository) scanFile(rs rowScanner) (*models.MediaFile, error) {
	file := &models.MediaFile{}
	var (
		fileModified sql.NullTime
		mediaType    sql.NullString
		title        sql.NullString
		series       sql.NullString
		season       sql.NullInt64
		episode      sql.NullInt64
		duration     sql.NullFloat64
		codec        sql.NullString
		resolution   sql.NullString
		errMsg       sql.NullString
	)

	err := rs.Scan(
		&file.ID, &file.FolderID, &file.FilePath, &file.Filename, &file.FileSize,
		&fileModified, &mediaType, &title, &series, &season, &episode,
		&duration, &codec, &resolution, &file.ScanStatus, &file.ProcessStatus,
		&errMsg, &file.CreatedAt, &file.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media file: %w", err)
	}

	file.FileModified = timePtr(fileModified)
	file.MediaType = models.MediaType(str(mediaType))
	file.Title = str(title)
	file.SeriesName = str(series)
	file.SeasonNumber = int(i64(season))
	file.EpisodeNumber = int(i64(episode))
	file.Duration = f64(duration)
	file.VideoCodec = str(codec)
	file.Resolution = str(resolution)
	file.ErrorMessage = str(errMsg)

	return file, nil
}
