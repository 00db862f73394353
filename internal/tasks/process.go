package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/services"
	"github.com/desertthunder/medley/internal/shared"
)

// ProcessEngine drains the processing queue: it claims queued jobs,
// remuxes each file with its pending track edits applied, and swaps the
// result over the original.
type ProcessEngine struct {
	media    *repositories.MediaRepository
	tracks   *repositories.TrackRepository
	jobs     *repositories.JobRepository
	settings *repositories.SettingsRepository
	remuxer  services.Remuxer
	logger   *log.Logger
	interval time.Duration

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewProcessEngine creates a ProcessEngine over the given database
// handle. A nil logger falls back to the shared stderr logger; a zero
// poll interval falls back to five seconds.
func NewProcessEngine(db *sql.DB, remuxer services.Remuxer, cfg shared.ProcessorConfig, logger *log.Logger) *ProcessEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	interval := cfg.PollInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &ProcessEngine{
		media:    repositories.NewMediaRepository(db),
		tracks:   repositories.NewTrackRepository(db),
		jobs:     repositories.NewJobRepository(db),
		settings: repositories.NewSettingsRepository(db),
		remuxer:  remuxer,
		logger:   logger,
		interval: interval,
	}
}

// Running reports whether the queue loop is active.
func (e *ProcessEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start launches the queue loop in the background. Jobs left in
// processing by an interrupted run are requeued first.
func (e *ProcessEngine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	if count, err := e.jobs.RequeueStuck(); err != nil {
		e.logger.Error("failed to requeue stuck jobs", "error", err)
	} else if count > 0 {
		e.logger.Info("requeued stuck jobs", "count", count)
	}

	e.logger.Info("processing loop started", "interval", e.interval)

	e.wg.Add(1)
	go e.run(ctx)
}

// Stop shuts the loop down and waits for jobs in flight. An interrupted
// remux fails its job; the next Start requeues anything left behind.
func (e *ProcessEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopChan)
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("processing loop stopped")
}

func (e *ProcessEngine) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.checkQueue(ctx)
	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.checkQueue(ctx)
		}
	}
}

// checkQueue claims queued jobs up to the configured concurrency and
// spawns a worker per claim. Claims are written before the worker
// starts so a job is never handed out twice.
func (e *ProcessEngine) checkQueue(ctx context.Context) {
	maxJobs := e.settings.GetInt(repositories.SettingMaxConcurrentJobs, 1)
	if maxJobs < 1 {
		maxJobs = 1
	}

	for {
		if ctx.Err() != nil {
			return
		}

		running, err := e.jobs.CountRunning()
		if err != nil {
			e.logger.Error("failed to count running jobs", "error", err)
			return
		}
		if running >= maxJobs {
			return
		}

		job, err := e.jobs.NextQueued()
		if errors.Is(err, shared.ErrJobNotFound) {
			return
		}
		if err != nil {
			e.logger.Error("failed to claim next job", "error", err)
			return
		}

		file, err := e.media.Get(job.MediaFileID)
		if err != nil {
			e.logger.Error("dropping job for missing file", "job", job.ID, "error", err)
			if err := e.jobs.MarkFailed(job.ID, "media file no longer exists"); err != nil {
				e.logger.Error("failed to fail orphaned job", "job", job.ID, "error", err)
				return
			}
			continue
		}

		tempPath := e.tempPath(file)
		if err := e.jobs.MarkStarted(job.ID, tempPath); err != nil {
			e.logger.Error("failed to claim job", "job", job.ID, "error", err)
			return
		}

		e.logger.Info("processing started", "job", job.ID, "file", file.Filename)

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.runJob(ctx, job.ID, file, tempPath)
		}()
	}
}

// runJob performs one remux: builds the plan from pending edits, runs
// ffmpeg against the temp path, swaps the output over the original, and
// promotes the edits. A job with no pending edits completes as a no-op.
func (e *ProcessEngine) runJob(ctx context.Context, jobID int64, file *models.MediaFile, tempPath string) {
	defer os.Remove(tempPath)

	audio, subtitles, err := e.tracks.Modified(file.ID)
	if err != nil {
		e.fail(jobID, file.Filename, fmt.Errorf("failed to load pending edits: %w", err))
		return
	}

	if len(audio) == 0 && len(subtitles) == 0 {
		e.logger.Info("no pending edits, completing job", "job", jobID, "file", file.Filename)
		if err := e.jobs.MarkCompleted(jobID); err != nil {
			e.logger.Error("failed to complete job", "job", jobID, "error", err)
		}
		return
	}

	plan := services.RemuxPlan{
		Source:   file.FilePath,
		Dest:     tempPath,
		Duration: file.Duration,
	}
	for _, t := range audio {
		plan.Audio = append(plan.Audio, services.TrackMeta{
			Index:    t.TrackIndex,
			Title:    t.EffectiveTitle(),
			Language: t.EffectiveLanguage(),
		})
	}
	for _, t := range subtitles {
		plan.Subtitles = append(plan.Subtitles, services.TrackMeta{
			Index:    t.TrackIndex,
			Title:    t.EffectiveTitle(),
			Language: t.EffectiveLanguage(),
		})
	}

	onProgress := func(pct float64) {
		if err := e.jobs.SetProgress(jobID, pct); err != nil {
			e.logger.Debug("failed to record progress", "job", jobID, "error", err)
		}
	}

	if err := e.remuxer.Remux(ctx, plan, onProgress); err != nil {
		e.fail(jobID, file.Filename, err)
		return
	}

	if err := e.replaceOriginal(file.FilePath, tempPath); err != nil {
		e.fail(jobID, file.Filename, err)
		return
	}

	if err := e.tracks.ClearModifications(file.ID); err != nil {
		e.fail(jobID, file.Filename, fmt.Errorf("failed to promote edits: %w", err))
		return
	}

	if err := e.jobs.MarkCompleted(jobID); err != nil {
		e.logger.Error("failed to complete job", "job", jobID, "error", err)
		return
	}

	e.logger.Info("processing completed", "job", jobID, "file", file.Filename)
}

func (e *ProcessEngine) fail(jobID int64, filename string, err error) {
	e.logger.Error("processing failed", "job", jobID, "file", filename, "error", err)
	if markErr := e.jobs.MarkFailed(jobID, err.Error()); markErr != nil {
		e.logger.Error("failed to record job failure", "job", jobID, "error", markErr)
	}
}

// tempPath builds the remux output path under the configured temp
// directory, keeping the original name recognizable for debugging.
func (e *ProcessEngine) tempPath(file *models.MediaFile) string {
	dir := e.settings.GetOr(repositories.SettingTempDirectory, os.TempDir())
	name := fmt.Sprintf("medley-%s-%s", shared.GenerateID(), sanitizeFilename(file.Filename))
	return filepath.Join(dir, name)
}

// replaceOriginal swaps the remux output over the source file. When
// backups are enabled the original survives as a .bak next to it until
// the swap succeeds.
func (e *ProcessEngine) replaceOriginal(original, temp string) error {
	if _, err := os.Stat(temp); err != nil {
		return fmt.Errorf("remux output missing: %w", err)
	}

	backup := ""
	if e.settings.GetBool(repositories.SettingBackupOriginals, false) {
		backup = original + ".bak"
		if err := copyFile(original, backup); err != nil {
			return fmt.Errorf("failed to back up original: %w", err)
		}
	}

	if err := moveFile(temp, original); err != nil {
		if backup != "" {
			if restoreErr := os.Rename(backup, original); restoreErr != nil {
				e.logger.Error("failed to restore backup", "path", original, "error", restoreErr)
			}
		}
		return fmt.Errorf("failed to replace original: %w", err)
	}

	if backup != "" {
		if err := os.Remove(backup); err != nil {
			e.logger.Warn("failed to remove backup", "path", backup, "error", err)
		}
	}

	return nil
}

// moveFile renames src over dst, falling back to copy and remove when
// the rename crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst, carrying over the source's permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// sanitizeFilename keeps letters, digits, and "-_.() ", mapping
// everything else to underscores so temp names stay filesystem safe.
func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("-_.() ", r):
			return r
		default:
			return '_'
		}
	}, name)
}
