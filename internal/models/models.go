// package models defines the data model for the medley media library service
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the media library.
// Implementations include MediaFolder, MediaFile, ProcessingJob, etc.
type Model interface {
	PrimaryKey() int64 // PrimaryKey returns the integer key for this model (0 until created)
	Validate() error   // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model and assigns its key
	Get(id int64) (T, error)                   // Get retrieves a model by its key
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id int64) error                     // Delete removes a model from the database by its key
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// MediaType classifies a media file.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// ScanState tracks a media file through the scan pipeline.
type ScanState string

const (
	ScanPending   ScanState = "pending"
	ScanScanning  ScanState = "scanning"
	ScanCompleted ScanState = "completed"
	ScanError     ScanState = "error"
)

// ProcessState tracks a media file through the processing pipeline.
type ProcessState string

const (
	ProcessNone       ProcessState = "none"
	ProcessPending    ProcessState = "pending"
	ProcessQueued     ProcessState = "queued"
	ProcessProcessing ProcessState = "processing"
	ProcessCompleted  ProcessState = "completed"
	ProcessError      ProcessState = "error"
)

// JobState is the lifecycle state of a processing job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// TrackType discriminates audio from subtitle tracks in the update_track API.
type TrackType string

const (
	TrackAudio    TrackType = "audio"
	TrackSubtitle TrackType = "subtitle"
)

// MediaFolder is a watched directory containing media files.
type MediaFolder struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

func (f *MediaFolder) PrimaryKey() int64 { return f.ID }

func (f *MediaFolder) Validate() error {
	if f.Path == "" {
		return fmt.Errorf("folder path is required")
	}
	if f.Name == "" {
		return fmt.Errorf("folder name is required")
	}
	return nil
}

// MediaFile is a scanned video file. AudioTracks and SubtitleTracks are
// populated for detail views, empty in listings.
type MediaFile struct {
	ID             int64           `json:"id"`
	FolderID       int64           `json:"folder_id"`
	FilePath       string          `json:"file_path"`
	Filename       string          `json:"filename"`
	FileSize       int64           `json:"file_size"`
	FileModified   *time.Time      `json:"file_modified,omitempty"`
	MediaType      MediaType       `json:"media_type,omitempty"`
	Title          string          `json:"title,omitempty"`
	SeriesName     string          `json:"series_name,omitempty"`
	SeasonNumber   int             `json:"season_number,omitempty"`
	EpisodeNumber  int             `json:"episode_number,omitempty"`
	Duration       float64         `json:"duration,omitempty"`
	VideoCodec     string          `json:"video_codec,omitempty"`
	Resolution     string          `json:"resolution,omitempty"`
	ScanStatus     ScanState       `json:"scan_status"`
	ProcessStatus  ProcessState    `json:"process_status"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	AudioTracks    []AudioTrack    `json:"audio_tracks,omitempty"`
	SubtitleTracks []SubtitleTrack `json:"subtitle_tracks,omitempty"`
}

func (m *MediaFile) PrimaryKey() int64 { return m.ID }

func (m *MediaFile) Validate() error {
	if m.FolderID == 0 {
		return fmt.Errorf("media file folder is required")
	}
	if m.FilePath == "" {
		return fmt.Errorf("media file path is required")
	}
	if m.Filename == "" {
		return fmt.Errorf("media file name is required")
	}
	return nil
}

// DisplayTitle returns a human readable name: "Series S01E02" for
// episodes, the parsed title for movies, the filename otherwise.
func (m *MediaFile) DisplayTitle() string {
	switch {
	case m.MediaType == MediaTV && m.SeriesName != "":
		return fmt.Sprintf("%s S%02dE%02d", m.SeriesName, m.SeasonNumber, m.EpisodeNumber)
	case m.Title != "":
		return m.Title
	default:
		return m.Filename
	}
}

// AudioTrack is an embedded audio stream. The original_* fields hold what
// the file currently carries; new_* hold pending edits until a remux
// applies them.
type AudioTrack struct {
	ID               int64     `json:"id"`
	MediaFileID      int64     `json:"media_file_id"`
	TrackIndex       int       `json:"track_index"`
	OriginalTitle    string    `json:"original_title,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	Codec            string    `json:"codec,omitempty"`
	Channels         int       `json:"channels,omitempty"`
	SampleRate       int       `json:"sample_rate,omitempty"`
	NewTitle         string    `json:"new_title,omitempty"`
	NewLanguage      string    `json:"new_language,omitempty"`
	IsModified       bool      `json:"is_modified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (t *AudioTrack) PrimaryKey() int64 { return t.ID }

func (t *AudioTrack) Validate() error {
	if t.MediaFileID == 0 {
		return fmt.Errorf("audio track media file is required")
	}
	if t.TrackIndex < 0 {
		return fmt.Errorf("audio track index must not be negative")
	}
	return nil
}

// EffectiveTitle returns the pending title if one is set, else the original.
func (t *AudioTrack) EffectiveTitle() string {
	if t.NewTitle != "" {
		return t.NewTitle
	}
	return t.OriginalTitle
}

// EffectiveLanguage returns the pending language if one is set, else the original.
func (t *AudioTrack) EffectiveLanguage() string {
	if t.NewLanguage != "" {
		return t.NewLanguage
	}
	return t.OriginalLanguage
}

// SubtitleTrack is an embedded subtitle stream, with the same
// original/new edit split as [AudioTrack].
type SubtitleTrack struct {
	ID               int64     `json:"id"`
	MediaFileID      int64     `json:"media_file_id"`
	TrackIndex       int       `json:"track_index"`
	OriginalTitle    string    `json:"original_title,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	Codec            string    `json:"codec,omitempty"`
	IsForced         bool      `json:"is_forced"`
	IsDefault        bool      `json:"is_default"`
	NewTitle         string    `json:"new_title,omitempty"`
	NewLanguage      string    `json:"new_language,omitempty"`
	IsModified       bool      `json:"is_modified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (t *SubtitleTrack) PrimaryKey() int64 { return t.ID }

func (t *SubtitleTrack) Validate() error {
	if t.MediaFileID == 0 {
		return fmt.Errorf("subtitle track media file is required")
	}
	if t.TrackIndex < 0 {
		return fmt.Errorf("subtitle track index must not be negative")
	}
	return nil
}

// EffectiveTitle returns the pending title if one is set, else the original.
func (t *SubtitleTrack) EffectiveTitle() string {
	if t.NewTitle != "" {
		return t.NewTitle
	}
	return t.OriginalTitle
}

// EffectiveLanguage returns the pending language if one is set, else the original.
func (t *SubtitleTrack) EffectiveLanguage() string {
	if t.NewLanguage != "" {
		return t.NewLanguage
	}
	return t.OriginalLanguage
}

// ProcessingJob is one remux operation against a media file.
type ProcessingJob struct {
	ID           int64      `json:"id"`
	MediaFileID  int64      `json:"media_file_id"`
	Status       JobState   `json:"status"`
	Progress     float64    `json:"progress"`
	ErrorMessage string     `json:"error_message,omitempty"`
	TempFilePath string     `json:"temp_file_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (j *ProcessingJob) PrimaryKey() int64 { return j.ID }

func (j *ProcessingJob) Validate() error {
	if j.MediaFileID == 0 {
		return fmt.Errorf("processing job media file is required")
	}
	switch j.Status {
	case JobQueued, JobProcessing, JobCompleted, JobFailed:
		return nil
	default:
		return fmt.Errorf("invalid job status: %s", j.Status)
	}
}

// IsActive reports whether the job still occupies the queue.
func (j *ProcessingJob) IsActive() bool {
	return j.Status == JobQueued || j.Status == JobProcessing
}

// AppSetting is a key/value application setting.
type AppSetting struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *AppSetting) PrimaryKey() int64 { return s.ID }

func (s *AppSetting) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("setting key is required")
	}
	return nil
}

// ScanProgress is the scan_progress endpoint payload: library counters
// and the derived percentage (100 when the library is empty).
type ScanProgress struct {
	Total    int     `json:"total"`
	Scanned  int     `json:"scanned"`
	Scanning int     `json:"scanning"`
	Progress float64 `json:"progress"`
}

// JobStatus is one element of the processing_status endpoint payload.
// MediaFile carries the filename for display and substring matching;
// MediaFileID enables exact matching.
type JobStatus struct {
	ID          int64   `json:"id"`
	MediaFile   string  `json:"media_file"`
	MediaFileID int64   `json:"media_file_id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
}

// SettingValue is one entry of the settings endpoint payload.
type SettingValue struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// TrackUpdate is the update_track request body.
type TrackUpdate struct {
	TrackType TrackType `json:"track_type"`
	TrackID   int64     `json:"track_id"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
}

// Validate checks the update names a track and a known track type.
func (u TrackUpdate) Validate() error {
	if u.TrackID == 0 {
		return fmt.Errorf("track_id is required")
	}
	if u.TrackType != TrackAudio && u.TrackType != TrackSubtitle {
		return fmt.Errorf("invalid track type: %s", u.TrackType)
	}
	return nil
}
