package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// Well-known app_settings keys. Migrations seed each with a default.
const (
	SettingMaxConcurrentJobs  = "max_concurrent_jobs"
	SettingScanInterval       = "scan_interval"
	SettingTempDirectory      = "temp_directory"
	SettingBackupOriginals    = "backup_original_files"
	SettingAutoDetectLanguage = "auto_detect_language"
	SettingDefaultAudioLang   = "default_audio_language"
	SettingDefaultSubLang     = "default_subtitle_language"
)

// SettingsRepository executes operations on the app_settings table.
// Values are stored as strings; typed getters parse with a fallback so
// engine loops never fail on a malformed row.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get fetches a setting value, or [shared.ErrSettingNotFound].
func (r *SettingsRepository) Get(key string) (string, error) {
	var value sql.NullString
	err := r.db.QueryRow("SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", shared.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return str(value), nil
}

// GetOr fetches a setting value, falling back when the key is missing
// or unreadable.
func (r *SettingsRepository) GetOr(key, fallback string) string {
	value, err := r.Get(key)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

// GetInt fetches a setting as an integer, falling back when missing or
// unparseable.
func (r *SettingsRepository) GetInt(key string, fallback int) int {
	value, err := r.Get(key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// GetBool fetches a setting as a boolean, falling back when missing or
// unparseable. Accepts the strconv forms ("true", "1", "false", "0").
func (r *SettingsRepository) GetBool(key string, fallback bool) bool {
	value, err := r.Get(key)
	if err != nil {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

// Set stores a setting value, creating the key when it does not exist.
func (r *SettingsRepository) Set(key, value string) error {
	now := time.Now().UTC()
	query := `INSERT INTO app_settings (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := r.db.Exec(query, key, value, now, now); err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}
	return nil
}

// Update stores a setting value for an existing key only, returning
// [shared.ErrSettingNotFound] otherwise. The settings API uses this so
// clients cannot invent keys.
func (r *SettingsRepository) Update(key, value string) error {
	result, err := r.db.Exec("UPDATE app_settings SET value = ?, updated_at = ? WHERE key = ?",
		value, time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("failed to update setting %q: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check setting update: %w", err)
	}
	if rows == 0 {
		return shared.ErrSettingNotFound
	}

	return nil
}

// All fetches every setting ordered by key.
func (r *SettingsRepository) All() ([]*models.AppSetting, error) {
	rows, err := r.db.Query(`SELECT id, key, value, description, created_at, updated_at
		FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.AppSetting
	for rows.Next() {
		setting := &models.AppSetting{}
		var value, description sql.NullString
		err := rows.Scan(&setting.ID, &setting.Key, &value, &description,
			&setting.CreatedAt, &setting.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		setting.Value = str(value)
		setting.Description = str(description)
		settings = append(settings, setting)
	}

	return settings, rows.Err()
}
