// package tasks implements the background engines that keep the library in sync with disk.
//
// ScanEngine walks the active media folders and extracts stream metadata with
// ffprobe; ProcessEngine drains the remux queue and applies pending track
// edits with ffmpeg. Long-running operations emit progress updates via
// channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/services"
	"github.com/desertthunder/medley/internal/shared"
	"golang.org/x/time/rate"
)

// Episode naming conventions, tried in order. The first capture is the
// series name, the next two are season and episode numbers.
var tvPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(.+?)\s?-\s?S(\d+)E(\d+)`),
	regexp.MustCompile(`(?i)(.+?)\s?-\s?(\d+)x(\d+)`),
	regexp.MustCompile(`(?i)(.+?)\s?-\s?Season[\s.](\d+)[\s.]Episode[\s.](\d+)`),
}

var (
	separatorPattern = regexp.MustCompile(`[._]`)
	yearPattern      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	qualityPattern   = regexp.MustCompile(`(?i)\b(720p|1080p|4K|BluRay|DVDRip|WEBRip|x264|x265|HEVC)\b`)
	emptyParens      = regexp.MustCompile(`\(\s*\)`)
	spaceRuns        = regexp.MustCompile(`\s+`)
)

// ScanEngine discovers media files under the active folders and keeps
// their rows in sync with what ffprobe reports. At most one scan runs
// at a time; concurrent callers receive [shared.ErrScanActive].
type ScanEngine struct {
	folders *repositories.FolderRepository
	media   *repositories.MediaRepository
	tracks  *repositories.TrackRepository
	jobs    *repositories.JobRepository
	prober  services.Prober
	logger  *log.Logger

	extensions map[string]struct{}
	limiter    *rate.Limiter

	mu       sync.Mutex
	scanning bool
}

// NewScanEngine creates a ScanEngine over the given database handle. A
// nil logger falls back to the shared stderr logger; an empty extension
// list falls back to the defaults from the embedded config.
func NewScanEngine(db *sql.DB, prober services.Prober, cfg shared.ScannerConfig, logger *log.Logger) *ScanEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = shared.DefaultConfig().Scanner.Extensions
	}
	extensions := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	limit := rate.Inf
	if interval := cfg.ProbeInterval(); interval > 0 {
		limit = rate.Every(interval)
	}

	return &ScanEngine{
		folders:    repositories.NewFolderRepository(db),
		media:      repositories.NewMediaRepository(db),
		tracks:     repositories.NewTrackRepository(db),
		jobs:       repositories.NewJobRepository(db),
		prober:     prober,
		logger:     logger,
		extensions: extensions,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Scanning reports whether a scan is currently running.
func (e *ScanEngine) Scanning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanning
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *ScanEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Scan walks every active folder, probing new and changed files and
// removing rows whose files vanished. Per-file failures are recorded on
// the row and the scan keeps going.
func (e *ScanEngine) Scan(ctx context.Context, progress chan<- ProgressUpdate) error {
	if !e.begin() {
		return shared.ErrScanActive
	}
	defer e.end()

	folders, err := e.folders.Active()
	if err != nil {
		return fmt.Errorf("failed to load folders: %w", err)
	}

	e.logger.Info("starting media scan", "folders", len(folders))
	for i, folder := range folders {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.sendProgress(progress, walkFolderUpdate(i+1, len(folders), folder))
		if err := e.scanFolder(ctx, folder, progress); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("folder scan failed", "path", folder.Path, "error", err)
			continue
		}
		if err := e.folders.MarkScanned(folder.ID, time.Now().UTC()); err != nil {
			e.logger.Error("failed to stamp folder", "path", folder.Path, "error", err)
		}
	}
	e.logger.Info("media scan completed")

	return nil
}

// ScanFolder scans a single folder by ID under the same single-flight
// guard as [ScanEngine.Scan].
func (e *ScanEngine) ScanFolder(ctx context.Context, folderID int64, progress chan<- ProgressUpdate) error {
	folder, err := e.folders.Get(folderID)
	if err != nil {
		return err
	}

	if !e.begin() {
		return shared.ErrScanActive
	}
	defer e.end()

	e.sendProgress(progress, walkFolderUpdate(1, 1, folder))
	if err := e.scanFolder(ctx, folder, progress); err != nil {
		return err
	}

	return e.folders.MarkScanned(folder.ID, time.Now().UTC())
}

// RescanFile refreshes a single file's row, resolving its owning folder
// by path prefix. Paths outside every active folder return
// [shared.ErrFolderNotFound].
func (e *ScanEngine) RescanFile(ctx context.Context, path string) error {
	folders, err := e.folders.Active()
	if err != nil {
		return fmt.Errorf("failed to load folders: %w", err)
	}

	for _, folder := range folders {
		if strings.HasPrefix(path, folder.Path) {
			return e.scanFile(ctx, folder.ID, path)
		}
	}

	return fmt.Errorf("%w: no active folder contains %s", shared.ErrFolderNotFound, path)
}

// RemoveFile drops the row for a path that no longer exists on disk.
// Unknown paths are a no-op so that event storms stay quiet.
func (e *ScanEngine) RemoveFile(path string) error {
	err := e.media.DeleteByPath(path)
	if errors.Is(err, shared.ErrMediaNotFound) {
		return nil
	}
	return err
}

func (e *ScanEngine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scanning {
		return false
	}
	e.scanning = true
	return true
}

func (e *ScanEngine) end() {
	e.mu.Lock()
	e.scanning = false
	e.mu.Unlock()
}

// scanFolder walks one folder tree, scans every supported file, then
// drops rows for files that were not seen on disk.
func (e *ScanEngine) scanFolder(ctx context.Context, folder *models.MediaFolder, progress chan<- ProgressUpdate) error {
	if _, err := os.Stat(folder.Path); err != nil {
		return fmt.Errorf("folder unavailable: %w", err)
	}

	var candidates []string
	err := filepath.WalkDir(folder.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !e.supported(path) {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk folder: %w", err)
	}

	seen := make(map[string]struct{}, len(candidates))
	for i, path := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		seen[path] = struct{}{}
		e.sendProgress(progress, probeFileUpdate(i+1, len(candidates), path))
		if err := e.scanFile(ctx, folder.ID, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("file scan failed", "path", path, "error", err)
			e.sendProgress(progress, probeFailedUpdate(i+1, len(candidates), path, err))
		}
	}

	return e.cleanupMissing(folder.ID, seen, progress)
}

// scanFile upserts one file's row and refreshes its metadata and tracks.
// Unchanged files (completed scan, same size, not newer on disk) are
// skipped. Track rows are left alone while the file has an active job so
// pending edits survive a rescan.
func (e *ScanEngine) scanFile(ctx context.Context, folderID int64, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	modified := info.ModTime().UTC()

	file, err := e.media.GetByPath(path)
	switch {
	case errors.Is(err, shared.ErrMediaNotFound):
		file = &models.MediaFile{
			FolderID:     folderID,
			FilePath:     path,
			Filename:     filepath.Base(path),
			FileSize:     info.Size(),
			FileModified: &modified,
		}
		if err := e.media.Create(file); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if unchanged(file, info.Size(), modified) {
			return nil
		}
		file.FileSize = info.Size()
		file.FileModified = &modified
	}

	if err := e.media.SetScanStatus(file.ID, models.ScanScanning, ""); err != nil {
		return err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	result, err := e.prober.Probe(ctx, path)
	if err != nil {
		if statusErr := e.media.SetScanStatus(file.ID, models.ScanError, err.Error()); statusErr != nil {
			return statusErr
		}
		return fmt.Errorf("failed to probe file: %w", err)
	}

	file.Duration = result.Duration
	file.VideoCodec = result.VideoCodec
	file.Resolution = result.Resolution
	file.MediaType, file.Title, file.SeriesName, file.SeasonNumber, file.EpisodeNumber = classify(file.Filename)
	file.ErrorMessage = ""

	if err := e.media.Update(file); err != nil {
		return err
	}

	active, err := e.jobs.HasActive(file.ID)
	if err != nil {
		return err
	}
	if active {
		e.logger.Info("keeping tracks, file has an active job", "path", path)
	} else if err := e.tracks.ReplaceTracks(file.ID, result.Audio, result.Subtitles); err != nil {
		return err
	}

	return e.media.SetScanStatus(file.ID, models.ScanCompleted, "")
}

// cleanupMissing removes rows under a folder whose paths were not seen
// during the walk. Files with an active job are kept for the processor.
func (e *ScanEngine) cleanupMissing(folderID int64, seen map[string]struct{}, progress chan<- ProgressUpdate) error {
	known, err := e.media.ListByFolder(folderID)
	if err != nil {
		return err
	}

	missing := 0
	for _, file := range known {
		if _, ok := seen[file.FilePath]; ok {
			continue
		}
		missing++
		active, err := e.jobs.HasActive(file.ID)
		if err != nil {
			return err
		}
		if active {
			e.logger.Info("keeping missing file, job still active", "path", file.FilePath)
			continue
		}
		e.sendProgress(progress, cleanupUpdate(missing, missing, file.FilePath))
		e.logger.Info("removing missing file", "path", file.FilePath)
		if err := e.media.Delete(file.ID); err != nil {
			return err
		}
	}

	return nil
}

func (e *ScanEngine) supported(path string) bool {
	_, ok := e.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// unchanged reports whether a row's last scan still describes the file
// on disk, so the probe can be skipped.
func unchanged(file *models.MediaFile, size int64, modified time.Time) bool {
	return file.ScanStatus == models.ScanCompleted &&
		file.FileSize == size &&
		file.FileModified != nil &&
		!file.FileModified.Before(modified)
}

// classify derives media type and display metadata from a filename.
// Episode naming wins when a series pattern matches; everything else is
// a movie with release year and quality tags stripped from the title.
func classify(filename string) (models.MediaType, string, string, int, int) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	for _, pattern := range tvPatterns {
		m := pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		series := strings.TrimSpace(separatorPattern.ReplaceAllString(m[1], " "))
		season, _ := strconv.Atoi(m[2])
		episode, _ := strconv.Atoi(m[3])
		title := fmt.Sprintf("%s S%02dE%02d", series, season, episode)
		return models.MediaTV, title, series, season, episode
	}

	title := separatorPattern.ReplaceAllString(base, " ")
	title = yearPattern.ReplaceAllString(title, "")
	title = qualityPattern.ReplaceAllString(title, "")
	title = emptyParens.ReplaceAllString(title, "")
	title = strings.TrimSpace(spaceRuns.ReplaceAllString(title, " "))

	return models.MediaMovie, title, "", 0, 0
}
