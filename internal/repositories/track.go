package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

const audioColumns = `id, media_file_id, track_index, original_title, original_language,
	codec, channels, sample_rate, new_title, new_language, is_modified,
	created_at, updated_at`

const subtitleColumns = `id, media_file_id, track_index, original_title, original_language,
	codec, is_forced, is_default, new_title, new_language, is_modified,
	created_at, updated_at`

// TrackRepository executes operations on the audio_tracks and
// subtitle_tracks tables together, mirroring how the update API
// addresses both through one track_type discriminator.
type TrackRepository struct {
	db *sql.DB
}

func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// ReplaceTracks swaps the stored track rows of a file for freshly
// probed ones inside one transaction. Rescanning a file discards
// pending edits along with the stale rows.
func (r *TrackRepository) ReplaceTracks(fileID int64, audio []models.AudioTrack, subtitles []models.SubtitleTrack) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin track replacement: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM audio_tracks WHERE media_file_id = ?", fileID); err != nil {
		return fmt.Errorf("failed to clear audio tracks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM subtitle_tracks WHERE media_file_id = ?", fileID); err != nil {
		return fmt.Errorf("failed to clear subtitle tracks: %w", err)
	}

	now := time.Now().UTC()

	for i := range audio {
		t := &audio[i]
		t.MediaFileID = fileID
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid audio track: %w", err)
		}

		result, err := tx.Exec(`INSERT INTO audio_tracks (media_file_id, track_index,
			original_title, original_language, codec, channels, sample_rate,
			new_title, new_language, is_modified, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL, 0, ?, ?)`,
			fileID, t.TrackIndex, strOrNil(t.OriginalTitle), strOrNil(t.OriginalLanguage),
			strOrNil(t.Codec), intOrNil(t.Channels), intOrNil(t.SampleRate), now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert audio track: %w", err)
		}
		if t.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read audio track id: %w", err)
		}
		t.CreatedAt, t.UpdatedAt = now, now
	}

	for i := range subtitles {
		t := &subtitles[i]
		t.MediaFileID = fileID
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid subtitle track: %w", err)
		}

		result, err := tx.Exec(`INSERT INTO subtitle_tracks (media_file_id, track_index,
			original_title, original_language, codec, is_forced, is_default,
			new_title, new_language, is_modified, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL, 0, ?, ?)`,
			fileID, t.TrackIndex, strOrNil(t.OriginalTitle), strOrNil(t.OriginalLanguage),
			strOrNil(t.Codec), t.IsForced, t.IsDefault, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert subtitle track: %w", err)
		}
		if t.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read subtitle track id: %w", err)
		}
		t.CreatedAt, t.UpdatedAt = now, now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track replacement: %w", err)
	}

	return nil
}

// ForFile fetches the track rows of a file ordered by stream index.
func (r *TrackRepository) ForFile(fileID int64) ([]models.AudioTrack, []models.SubtitleTrack, error) {
	audio, err := r.listAudio("WHERE media_file_id = ?", fileID)
	if err != nil {
		return nil, nil, err
	}

	subtitles, err := r.listSubtitles("WHERE media_file_id = ?", fileID)
	if err != nil {
		return nil, nil, err
	}

	return audio, subtitles, nil
}

// GetAudio fetches a single audio track by ID.
func (r *TrackRepository) GetAudio(id int64) (*models.AudioTrack, error) {
	query := fmt.Sprintf("SELECT %s FROM audio_tracks WHERE id = ?", audioColumns)
	return scanAudioTrack(r.db.QueryRow(query, id))
}

// GetSubtitle fetches a single subtitle track by ID.
func (r *TrackRepository) GetSubtitle(id int64) (*models.SubtitleTrack, error) {
	query := fmt.Sprintf("SELECT %s FROM subtitle_tracks WHERE id = ?", subtitleColumns)
	return scanSubtitleTrack(r.db.QueryRow(query, id))
}

// ApplyUpdate stores a pending title/language edit on the named track
// and flags the owning file for processing, in one transaction. It
// returns the owning media file ID so callers can report which file
// changed.
func (r *TrackRepository) ApplyUpdate(u models.TrackUpdate) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, fmt.Errorf("invalid track update: %w", err)
	}

	table := "audio_tracks"
	if u.TrackType == models.TrackSubtitle {
		table = "subtitle_tracks"
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin track update: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	query := fmt.Sprintf("SELECT media_file_id FROM %s WHERE id = ?", table)
	err = tx.QueryRow(query, u.TrackID).Scan(&fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, shared.ErrTrackNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to locate track: %w", err)
	}

	query = fmt.Sprintf(`UPDATE %s
		SET new_title = ?, new_language = ?, is_modified = 1, updated_at = ?
		WHERE id = ?`, table)
	if _, err := tx.Exec(query, strOrNil(u.Title), strOrNil(u.Language), time.Now().UTC(), u.TrackID); err != nil {
		return 0, fmt.Errorf("failed to update track: %w", err)
	}

	_, err = tx.Exec("UPDATE media_files SET process_status = ?, updated_at = ? WHERE id = ?",
		string(models.ProcessPending), time.Now().UTC(), fileID)
	if err != nil {
		return 0, fmt.Errorf("failed to flag file for processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit track update: %w", err)
	}

	return fileID, nil
}

// Modified fetches the tracks of a file carrying pending edits. The
// remux planner turns these into per-stream metadata arguments.
func (r *TrackRepository) Modified(fileID int64) ([]models.AudioTrack, []models.SubtitleTrack, error) {
	audio, err := r.listAudio("WHERE media_file_id = ? AND is_modified = 1", fileID)
	if err != nil {
		return nil, nil, err
	}

	subtitles, err := r.listSubtitles("WHERE media_file_id = ? AND is_modified = 1", fileID)
	if err != nil {
		return nil, nil, err
	}

	return audio, subtitles, nil
}

// ClearModifications promotes pending edits to the stored originals
// after a successful remux and resets the modified flags.
func (r *TrackRepository) ClearModifications(fileID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin modification reset: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, table := range []string{"audio_tracks", "subtitle_tracks"} {
		query := fmt.Sprintf(`UPDATE %s
			SET original_title = COALESCE(new_title, original_title),
				original_language = COALESCE(new_language, original_language),
				new_title = NULL, new_language = NULL, is_modified = 0, updated_at = ?
			WHERE media_file_id = ? AND is_modified = 1`, table)
		if _, err := tx.Exec(query, now, fileID); err != nil {
			return fmt.Errorf("failed to promote %s edits: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit modification reset: %w", err)
	}

	return nil
}

func (r *TrackRepository) listAudio(where string, args ...any) ([]models.AudioTrack, error) {
	query := fmt.Sprintf("SELECT %s FROM audio_tracks %s ORDER BY track_index", audioColumns, where)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.AudioTrack
	for rows.Next() {
		track, err := scanAudioTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}

	return tracks, rows.Err()
}

func (r *TrackRepository) listSubtitles(where string, args ...any) ([]models.SubtitleTrack, error) {
	query := fmt.Sprintf("SELECT %s FROM subtitle_tracks %s ORDER BY track_index", subtitleColumns, where)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtitle tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.SubtitleTrack
	for rows.Next() {
		track, err := scanSubtitleTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}

	return tracks, rows.Err()
}

func scanAudioTrack(rs rowScanner) (*models.AudioTrack, error) {
	track := &models.AudioTrack{}
	var (
		origTitle sql.NullString
		origLang  sql.NullString
		codec     sql.NullString
		channels  sql.NullInt64
		rate      sql.NullInt64
		newTitle  sql.NullString
		newLang   sql.NullString
	)

	err := rs.Scan(
		&track.ID, &track.MediaFileID, &track.TrackIndex, &origTitle, &origLang,
		&codec, &channels, &rate, &newTitle, &newLang, &track.IsModified,
		&track.CreatedAt, &track.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan audio track: %w", err)
	}

	track.OriginalTitle = str(origTitle)
	track.OriginalLanguage = str(origLang)
	track.Codec = str(codec)
	track.Channels = int(i64(channels))
	track.SampleRate = int(i64(rate))
	track.NewTitle = str(newTitle)
	track.NewLanguage = str(newLang)

	return track, nil
}

func scanSubtitleTrack(rs rowScanner) (*models.SubtitleTrack, error) {
	track := &models.SubtitleTrack{}
	var (
		origTitle sql.NullString
		origLang  sql.NullString
		codec     sql.NullString
		newTitle  sql.NullString
		newLang   sql.NullString
	)

	err := rs.Scan(
		&track.ID, &track.MediaFileID, &track.TrackIndex, &origTitle, &origLang,
		&codec, &track.IsForced, &track.IsDefault, &newTitle, &newLang,
		&track.IsModified, &track.CreatedAt, &track.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subtitle track: %w", err)
	}

	track.OriginalTitle = str(origTitle)
	track.OriginalLanguage = str(origLang)
	track.Codec = str(codec)
	track.NewTitle = str(newTitle)
	track.NewLanguage = str(newLang)

	return track, nil
}
