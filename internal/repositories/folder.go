package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// FolderRepository implements models.Repository[*models.MediaFolder].
//
// Folders are the scan roots; deleting a folder removes every media file
// discovered under it.
type FolderRepository struct {
	db *sql.DB
}

// NewFolderRepository creates a new FolderRepository with the given database connection
func NewFolderRepository(db *sql.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

var _ models.Repository[*models.MediaFolder] = (*FolderRepository)(nil)

// Create inserts a new [models.MediaFolder] and assigns its key.
// Duplicate paths are rejected with [shared.ErrFolderExists].
func (r *FolderRepository) Create(folder *models.MediaFolder) error {
	if err := folder.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if existing, err := r.GetByPath(folder.Path); err == nil && existing != nil {
		return shared.ErrFolderExists
	}

	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO media_folders (path, name, is_active, created_at, last_scanned)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		folder.Path,
		folder.Name,
		folder.IsActive,
		folder.CreatedAt,
		timeOrNil(folder.LastScanned),
	)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get folder id: %w", err)
	}
	folder.ID = id

	return nil
}

// Get retrieves a folder by id.
func (r *FolderRepository) Get(id int64) (*models.MediaFolder, error) {
	query := `
		SELECT id, path, name, is_active, created_at, last_scanned
		FROM media_folders
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByPath retrieves a folder by its filesystem path.
func (r *FolderRepository) GetByPath(path string) (*models.MediaFolder, error) {
	query := `
		SELECT id, path, name, is_active, created_at, last_scanned
		FROM media_folders
		WHERE path = ?
	`

	return r.scanOne(r.db.QueryRow(query, path))
}

// Update modifies an existing folder's name, active flag, and scan stamp.
func (r *FolderRepository) Update(folder *models.MediaFolder) error {
	if err := folder.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE media_folders
		SET name = ?, is_active = ?, last_scanned = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, folder.Name, folder.IsActive, timeOrNil(folder.LastScanned), folder.ID)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return shared.ErrFolderNotFound
	}

	return nil
}

// MarkScanned stamps the folder's last_scanned time.
func (r *FolderRepository) MarkScanned(id int64, at time.Time) error {
	_, err := r.db.Exec("UPDATE media_folders SET last_scanned = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("failed to stamp folder scan time: %w", err)
	}
	return nil
}

// Delete removes a folder and, through cascade, its media files.
func (r *FolderRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM media_folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return shared.ErrFolderNotFound
	}

	return nil
}

// List retrieves folders matching the given criteria, ordered by name.
//
// Supported criteria: "active" (bool).
func (r *FolderRepository) List(criteria map[string]any) ([]*models.MediaFolder, error) {
	query := `
		SELECT id, path, name, is_active, created_at, last_scanned
		FROM media_folders
		WHERE 1 = 1
	`

	args := []any{}

	if active, ok := criteria["active"].(bool); ok {
		query += " AND is_active = ?"
		args = append(args, active)
	}

	query += " ORDER BY name ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []*models.MediaFolder
	for rows.Next() {
		folder, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return folders, nil
}

// Active returns every folder eligible for scanning.
func (r *FolderRepository) Active() ([]*models.MediaFolder, error) {
	return r.List(map[string]any{"active": true})
}

func (r *FolderRepository) scanOne(row *sql.Row) (*models.MediaFolder, error) {
	var (
		folder      models.MediaFolder
		lastScanned sql.NullTime
	)

	err := row.Scan(&folder.ID, &folder.Path, &folder.Name, &folder.IsActive, &folder.CreatedAt, &lastScanned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder: %w", err)
	}

	folder.LastScanned = timePtr(lastScanned)
	return &folder, nil
}

func (r *FolderRepository) scanRow(rows *sql.Rows) (*models.MediaFolder, error) {
	var (
		folder      models.MediaFolder
		lastScanned sql.NullTime
	)

	err := rows.Scan(&folder.ID, &folder.Path, &folder.Name, &folder.IsActive, &folder.CreatedAt, &lastScanned)
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder: %w", err)
	}

	folder.LastScanned = timePtr(lastScanned)
	return &folder, nil
}
