// Typed client for the medley HTTP API, built on [APIService]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// APIError is a failed API call: the HTTP status plus the message the
// server attached to it (the body's "error" field when present, a
// generic status line otherwise).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Notifier receives one message per failed call that warrants user
// attention. The dashboard installs its notification banner here;
// headless callers leave it nil.
type Notifier func(message string)

// LibraryService is the typed medley API client. Every method decodes
// the server payload or surfaces an [*APIError]; failures on mutating
// and listing calls notify once, while the polling reads
// ([LibraryService.ScanProgress], [LibraryService.ProcessingStatus],
// [LibraryService.Health]) stay quiet and leave reporting to the
// poller's log.
type LibraryService struct {
	api    *APIService
	logger *log.Logger
	notify Notifier
}

// NewLibraryService creates a client around api. A nil logger falls
// back to the shared stderr logger, a nil notifier is a no-op.
func NewLibraryService(api *APIService, logger *log.Logger, notify Notifier) *LibraryService {
	if api == nil {
		api = NewAPIService("", nil)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if notify == nil {
		notify = func(string) {}
	}

	return &LibraryService{api: api, logger: logger, notify: notify}
}

// Health checks the server is reachable and responding.
func (s *LibraryService) Health(ctx context.Context) error {
	if err := s.call(ctx, http.MethodGet, "/health", nil, nil, true); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}

// ScanProgress reads the library scan counters.
func (s *LibraryService) ScanProgress(ctx context.Context) (*models.ScanProgress, error) {
	progress := &models.ScanProgress{}
	if err := s.call(ctx, http.MethodGet, "/api/scan_progress", nil, progress, true); err != nil {
		return nil, err
	}
	return progress, nil
}

// ProcessingStatus reads the queued and running jobs.
func (s *LibraryService) ProcessingStatus(ctx context.Context) ([]models.JobStatus, error) {
	var jobs []models.JobStatus
	if err := s.call(ctx, http.MethodGet, "/api/processing_status", nil, &jobs, true); err != nil {
		return nil, err
	}
	return jobs, nil
}

// StartScan asks the server to begin a library scan.
func (s *LibraryService) StartScan(ctx context.Context) error {
	return s.call(ctx, http.MethodPost, "/api/scan", nil, nil, false)
}

// MediaFiles lists scanned files, optionally filtered by media type
// ("movie" or "tv") and search text.
func (s *LibraryService) MediaFiles(ctx context.Context, mediaType, search string) ([]*models.MediaFile, error) {
	query := url.Values{}
	if mediaType != "" {
		query.Set("type", mediaType)
	}
	if search != "" {
		query.Set("search", search)
	}

	path := "/api/media"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var files []*models.MediaFile
	if err := s.call(ctx, http.MethodGet, path, nil, &files, false); err != nil {
		return nil, err
	}
	return files, nil
}

// MediaFile fetches one file with its audio and subtitle tracks.
func (s *LibraryService) MediaFile(ctx context.Context, id int64) (*models.MediaFile, error) {
	file := &models.MediaFile{}
	path := "/api/media/" + strconv.FormatInt(id, 10)
	if err := s.call(ctx, http.MethodGet, path, nil, file, false); err != nil {
		return nil, err
	}
	return file, nil
}

// UpdateTrack stores a pending title/language edit on a track.
func (s *LibraryService) UpdateTrack(ctx context.Context, update models.TrackUpdate) error {
	return s.call(ctx, http.MethodPost, "/api/update_track", update, nil, false)
}

// QueueProcessing queues a file for remuxing.
func (s *LibraryService) QueueProcessing(ctx context.Context, id int64) error {
	path := "/api/queue_processing/" + strconv.FormatInt(id, 10)
	return s.call(ctx, http.MethodPost, path, nil, nil, false)
}

// Folders lists the registered media folders.
func (s *LibraryService) Folders(ctx context.Context) ([]*models.MediaFolder, error) {
	var folders []*models.MediaFolder
	if err := s.call(ctx, http.MethodGet, "/api/folders", nil, &folders, false); err != nil {
		return nil, err
	}
	return folders, nil
}

// AddFolder registers a directory as a media folder and returns the
// created record.
func (s *LibraryService) AddFolder(ctx context.Context, path, name string) (*models.MediaFolder, error) {
	payload := map[string]string{"path": path, "name": name}
	folder := &models.MediaFolder{}
	if err := s.call(ctx, http.MethodPost, "/api/folders", payload, folder, false); err != nil {
		return nil, err
	}
	return folder, nil
}

// RemoveFolder deletes a folder together with its files.
func (s *LibraryService) RemoveFolder(ctx context.Context, id int64) error {
	path := "/api/folders/" + strconv.FormatInt(id, 10)
	return s.call(ctx, http.MethodDelete, path, nil, nil, false)
}

// Settings fetches every app setting keyed by name.
func (s *LibraryService) Settings(ctx context.Context) (map[string]models.SettingValue, error) {
	settings := map[string]models.SettingValue{}
	if err := s.call(ctx, http.MethodGet, "/api/settings", nil, &settings, false); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings upserts the provided setting values.
func (s *LibraryService) UpdateSettings(ctx context.Context, values map[string]string) error {
	return s.call(ctx, http.MethodPost, "/api/settings", values, nil, false)
}

// call runs one request and decodes the body into out when out is
// non-nil. Failures are logged; unless quiet is set they notify once.
func (s *LibraryService) call(ctx context.Context, method, path string, payload, out any, quiet bool) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var resp *APIResponse
	var err error
	switch method {
	case http.MethodPost:
		resp, err = s.api.Post(ctx, path, body)
	case http.MethodDelete:
		resp, err = s.api.Delete(ctx, path)
	default:
		resp, err = s.api.Get(ctx, path)
	}

	if err == nil {
		err = decodeResponse(resp, out)
	}
	if err != nil {
		s.logger.Error("api call failed", "method", method, "path", path, "error", err)
		if !quiet {
			s.notify(err.Error())
		}
		return err
	}

	return nil
}

// decodeResponse turns a non-2xx response into an [*APIError] carrying
// the server's "error" message, and otherwise unmarshals the body.
func decodeResponse(resp *APIResponse, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("request failed with status %d", resp.StatusCode),
		}

		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error != "" {
			apiErr.Message = body.Error
		}

		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
