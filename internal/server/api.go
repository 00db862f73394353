package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/tasks"
)

// Scanner starts library scans on behalf of the API. The scan engine
// satisfies it.
type Scanner interface {
	Scanning() bool
	Scan(ctx context.Context, progress chan<- tasks.ProgressUpdate) error
	ScanFolder(ctx context.Context, folderID int64, progress chan<- tasks.ProgressUpdate) error
}

// Previewer extracts short track samples for the preview endpoints.
// The ffmpeg service satisfies it.
type Previewer interface {
	ExtractAudioClip(ctx context.Context, path string, trackIndex, startSec int) ([]byte, error)
	ExtractSubtitle(ctx context.Context, path string, trackIndex int) (string, error)
}

// WatchList is notified when the folder set changes so filesystem
// watches can be re-armed. Optional; nil means no watcher is running.
type WatchList interface {
	Refresh() error
}

// APIDeps carries the collaborators an [APIHandler] needs.
type APIDeps struct {
	DB        *sql.DB
	Scanner   Scanner
	Previewer Previewer
	Watcher   WatchList
	Logger    *log.Logger
}

// APIHandler serves the medley JSON API. Implements [Handler] for
// registration with a [Router]; all error responses use the
// {"error": message} body the API client decodes.
type APIHandler struct {
	mux      *http.ServeMux
	media    *repositories.MediaRepository
	tracks   *repositories.TrackRepository
	jobs     *repositories.JobRepository
	folders  *repositories.FolderRepository
	settings *repositories.SettingsRepository
	scanner  Scanner
	previews Previewer
	watcher  WatchList
	logger   *log.Logger
}

// NewAPIHandler creates the API handler and wires its route table.
func NewAPIHandler(deps APIDeps) *APIHandler {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}

	h := &APIHandler{
		media:    repositories.NewMediaRepository(deps.DB),
		tracks:   repositories.NewTrackRepository(deps.DB),
		jobs:     repositories.NewJobRepository(deps.DB),
		folders:  repositories.NewFolderRepository(deps.DB),
		settings: repositories.NewSettingsRepository(deps.DB),
		scanner:  deps.Scanner,
		previews: deps.Previewer,
		watcher:  deps.Watcher,
		logger:   deps.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/scan_progress", h.scanProgress)
	mux.HandleFunc("GET /api/processing_status", h.processingStatus)
	mux.HandleFunc("POST /api/scan", h.startScan)
	mux.HandleFunc("GET /api/media", h.listMedia)
	mux.HandleFunc("GET /api/media/{id}", h.getMedia)
	mux.HandleFunc("POST /api/update_track", h.updateTrack)
	mux.HandleFunc("POST /api/queue_processing/{id}", h.queueProcessing)
	mux.HandleFunc("GET /api/folders", h.listFolders)
	mux.HandleFunc("POST /api/folders", h.addFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.removeFolder)
	mux.HandleFunc("GET /api/settings", h.getSettings)
	mux.HandleFunc("POST /api/settings", h.updateSettings)
	mux.HandleFunc("GET /api/preview_audio/{id}/{track}", h.previewAudio)
	mux.HandleFunc("GET /api/preview_subtitle/{id}/{track}", h.previewSubtitle)
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	h.mux = mux

	return h
}

var _ Handler = (*APIHandler)(nil)

// Routes returns the route prefixes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/api/", "GET /health"}
}

// ServeHTTP dispatches to the handler's route table.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) scanProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.media.ScanProgress()
	if err != nil {
		h.serverError(w, "failed to aggregate scan progress", err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *APIHandler) processingStatus(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ActiveJobs()
	if err != nil {
		h.serverError(w, "failed to list active jobs", err)
		return
	}
	if jobs == nil {
		jobs = []models.JobStatus{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *APIHandler) startScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not available")
		return
	}
	if h.scanner.Scanning() {
		writeError(w, http.StatusConflict, shared.ErrScanActive.Error())
		return
	}

	// The scan outlives the request; only an explicit shutdown of the
	// engine should cancel it.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.scanner.Scan(ctx, nil); err != nil && !errors.Is(err, shared.ErrScanActive) {
			h.logger.Error("background scan failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Scan started"})
}

func (h *APIHandler) listMedia(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{"scan_status": models.ScanCompleted}
	if mediaType := r.URL.Query().Get("type"); mediaType != "" {
		criteria["media_type"] = mediaType
	}
	if search := r.URL.Query().Get("search"); search != "" {
		criteria["search"] = search
	}

	files, err := h.media.List(criteria)
	if err != nil {
		h.serverError(w, "failed to list media files", err)
		return
	}
	if files == nil {
		files = []*models.MediaFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *APIHandler) getMedia(w http.ResponseWriter, r *http.Request) {
	file, ok := h.mediaFromPath(w, r)
	if !ok {
		return
	}

	audio, subtitles, err := h.tracks.ForFile(file.ID)
	if err != nil {
		h.serverError(w, "failed to load tracks", err)
		return
	}
	file.AudioTracks = audio
	file.SubtitleTracks = subtitles

	writeJSON(w, http.StatusOK, file)
}

func (h *APIHandler) updateTrack(w http.ResponseWriter, r *http.Request) {
	var update models.TrackUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	if err := update.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileID, err := h.tracks.ApplyUpdate(update)
	if errors.Is(err, shared.ErrTrackNotFound) {
		writeError(w, http.StatusNotFound, shared.ErrTrackNotFound.Error())
		return
	}
	if err != nil {
		h.serverError(w, "failed to update track", err)
		return
	}

	h.logger.Info("track updated",
		"type", update.TrackType, "track", update.TrackID, "file", fileID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Track updated successfully",
	})
}

func (h *APIHandler) queueProcessing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.QueueFile(id)
	switch {
	case errors.Is(err, shared.ErrAlreadyQueued):
		writeError(w, http.StatusBadRequest, "File is already queued or processing")
		return
	case errors.Is(err, shared.ErrMediaNotFound):
		writeError(w, http.StatusNotFound, shared.ErrMediaNotFound.Error())
		return
	case err != nil:
		h.serverError(w, "failed to queue processing", err)
		return
	}

	h.logger.Info("file queued for processing", "file", id, "job", job.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "File queued for processing",
		"job_id":  job.ID,
	})
}

func (h *APIHandler) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.folders.List(nil)
	if err != nil {
		h.serverError(w, "failed to list folders", err)
		return
	}
	if folders == nil {
		folders = []*models.MediaFolder{}
	}
	writeJSON(w, http.StatusOK, folders)
}

func (h *APIHandler) addFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Path == "" {
		writeError(w, http.StatusBadRequest, "folder path is required")
		return
	}

	info, err := os.Stat(body.Path)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("not a directory: %s", body.Path))
		return
	}
	if body.Name == "" {
		body.Name = info.Name()
	}

	folder := &models.MediaFolder{Path: body.Path, Name: body.Name, IsActive: true}
	if err := h.folders.Create(folder); err != nil {
		if errors.Is(err, shared.ErrFolderExists) {
			writeError(w, http.StatusBadRequest, shared.ErrFolderExists.Error())
			return
		}
		h.serverError(w, "failed to create folder", err)
		return
	}

	h.refreshWatches()
	if h.scanner != nil {
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := h.scanner.ScanFolder(ctx, folder.ID, nil); err != nil && !errors.Is(err, shared.ErrScanActive) {
				h.logger.Error("scan of new folder failed", "folder", folder.Path, "error", err)
			}
		}()
	}

	writeJSON(w, http.StatusCreated, folder)
}

func (h *APIHandler) removeFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.folders.Delete(id)
	if errors.Is(err, shared.ErrFolderNotFound) {
		writeError(w, http.StatusNotFound, shared.ErrFolderNotFound.Error())
		return
	}
	if err != nil {
		h.serverError(w, "failed to delete folder", err)
		return
	}

	h.refreshWatches()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Folder removed"})
}

func (h *APIHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All()
	if err != nil {
		h.serverError(w, "failed to list settings", err)
		return
	}

	payload := make(map[string]models.SettingValue, len(settings))
	for _, setting := range settings {
		payload[setting.Key] = models.SettingValue{
			Value:       setting.Value,
			Description: setting.Description,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *APIHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if !decodeBody(w, r, &values) {
		return
	}

	for key, value := range values {
		if err := h.settings.Set(key, fmt.Sprintf("%v", value)); err != nil {
			h.serverError(w, "failed to store setting", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Settings updated"})
}

func (h *APIHandler) previewAudio(w http.ResponseWriter, r *http.Request) {
	file, track, ok := h.previewTarget(w, r)
	if !ok {
		return
	}

	start := 30
	if s := r.URL.Query().Get("start"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			start = parsed
		}
	}

	clip, err := h.previews.ExtractAudioClip(r.Context(), file.FilePath, track, start)
	if err != nil {
		h.serverError(w, "failed to extract audio preview", err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(clip)
}

func (h *APIHandler) previewSubtitle(w http.ResponseWriter, r *http.Request) {
	file, track, ok := h.previewTarget(w, r)
	if !ok {
		return
	}

	content, err := h.previews.ExtractSubtitle(r.Context(), file.FilePath, track)
	if err != nil {
		h.serverError(w, "failed to extract subtitle preview", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

// previewTarget resolves the {id}/{track} path of a preview endpoint
// into the stored file and a per-type track index.
func (h *APIHandler) previewTarget(w http.ResponseWriter, r *http.Request) (*models.MediaFile, int, bool) {
	if h.previews == nil {
		writeError(w, http.StatusServiceUnavailable, "previews not available")
		return nil, 0, false
	}

	file, ok := h.mediaFromPath(w, r)
	if !ok {
		return nil, 0, false
	}

	track, err := strconv.Atoi(r.PathValue("track"))
	if err != nil || track < 0 {
		writeError(w, http.StatusBadRequest, "invalid track index")
		return nil, 0, false
	}

	return file, track, true
}

// mediaFromPath loads the media file named by the {id} path value.
func (h *APIHandler) mediaFromPath(w http.ResponseWriter, r *http.Request) (*models.MediaFile, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	file, err := h.media.Get(id)
	if errors.Is(err, shared.ErrMediaNotFound) {
		writeError(w, http.StatusNotFound, shared.ErrMediaNotFound.Error())
		return nil, false
	}
	if err != nil {
		h.serverError(w, "failed to load media file", err)
		return nil, false
	}

	return file, true
}

// refreshWatches re-arms filesystem watches after a folder change.
func (h *APIHandler) refreshWatches() {
	if h.watcher == nil {
		return
	}
	if err := h.watcher.Refresh(); err != nil {
		h.logger.Error("failed to refresh watches", "error", err)
	}
}

func (h *APIHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

// pathID parses the {id} path value, writing a 400 on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// decodeBody parses a JSON request body, writing a 400 on a missing or
// malformed one.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "request body required")
		return false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
