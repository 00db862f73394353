// Package watcher mirrors filesystem changes into the library without
// waiting for the next scheduled scan.
package watcher

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/debounce"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/fsnotify/fsnotify"
)

// Library receives the filesystem changes the watcher observes. The
// scan engine satisfies it.
type Library interface {
	RescanFile(ctx context.Context, path string) error
	RemoveFile(path string) error
}

// Watcher follows every active folder tree with fsnotify and keeps the
// library in step: created and modified files are rescanned after a
// quiet window, deleted files lose their rows immediately.
type Watcher struct {
	folders *repositories.FolderRepository
	library Library
	logger  *log.Logger

	window     time.Duration
	extensions map[string]struct{}
	pending    *debounce.Keyed[string]

	mu      sync.Mutex
	running bool
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a Watcher over the given database handle. The
// debounce window and extension filter come from the config, with the
// embedded defaults as fallback.
func NewWatcher(db *sql.DB, library Library, cfg shared.Config, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	window := cfg.Watcher.Debounce()
	if window <= 0 {
		window = 2 * time.Second
	}

	exts := cfg.Scanner.Extensions
	if len(exts) == 0 {
		exts = shared.DefaultConfig().Scanner.Extensions
	}
	extensions := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	return &Watcher{
		folders:    repositories.NewFolderRepository(db),
		library:    library,
		logger:     logger,
		window:     window,
		extensions: extensions,
		pending:    debounce.NewKeyed[string](window),
	}
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start registers every active folder tree and begins dispatching
// events. Folders that cannot be watched are logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	folders, err := w.folders.Active()
	if err != nil {
		fsw.Close()
		return fmt.Errorf("failed to load folders: %w", err)
	}

	count := 0
	for _, folder := range folders {
		n, err := addTree(fsw, folder.Path)
		if err != nil {
			w.logger.Warn("failed to watch folder", "path", folder.Path, "error", err)
			continue
		}
		count += n
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.fsw = fsw
	w.running = true

	w.logger.Info("filesystem watcher started", "directories", count, "debounce", w.window)

	w.wg.Add(1)
	go w.run(ctx, fsw)

	return nil
}

// Stop shuts down event dispatch and drops pending rescans.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	fsw.Close()
	w.wg.Wait()
	w.pending.CancelAll()
	w.logger.Info("filesystem watcher stopped")
}

// Refresh rebuilds the watch list from the active folders. Called after
// folders are added or removed at runtime.
func (w *Watcher) Refresh() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running || w.fsw == nil {
		return nil
	}

	for _, path := range w.fsw.WatchList() {
		if err := w.fsw.Remove(path); err != nil {
			w.logger.Debug("failed to unwatch", "path", path, "error", err)
		}
	}

	folders, err := w.folders.Active()
	if err != nil {
		return fmt.Errorf("failed to load folders: %w", err)
	}

	count := 0
	for _, folder := range folders {
		n, err := addTree(w.fsw, folder.Path)
		if err != nil {
			w.logger.Warn("failed to watch folder", "path", folder.Path, "error", err)
			continue
		}
		count += n
	}

	w.logger.Info("watch list refreshed", "directories", count)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name

	// New directories join the watch immediately so a dropped-in season
	// folder keeps reporting events for its files.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if _, err := addTree(fsw, path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if !w.supported(path) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		// The old name is gone either way; a move inside the tree
		// surfaces its new name as a separate create event.
		w.pending.Cancel(path)
		w.logger.Info("file removed", "path", path)
		if err := w.library.RemoveFile(path); err != nil {
			w.logger.Error("failed to remove file row", "path", path, "error", err)
		}
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.logger.Debug("file changed", "path", path, "op", event.Op)
		w.pending.Call(path, func() {
			w.rescan(ctx, path)
		})
	}
}

func (w *Watcher) rescan(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	w.logger.Info("rescanning changed file", "path", path)
	if err := w.library.RescanFile(ctx, path); err != nil {
		w.logger.Error("failed to rescan file", "path", path, "error", err)
	}
}

func (w *Watcher) supported(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// addTree registers dir and every subdirectory under it, returning how
// many directories joined the watch.
func addTree(fsw *fsnotify.Watcher, root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		count++
		return nil
	})
	return count, err
}
