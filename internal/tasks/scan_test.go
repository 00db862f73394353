package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/services"
	"github.com/desertthunder/medley/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func seedActiveFolder(t *testing.T, db *sql.DB, path string) *models.MediaFolder {
	t.Helper()

	folder := &models.MediaFolder{Path: path, Name: filepath.Base(path), IsActive: true}
	if err := repositories.NewFolderRepository(db).Create(folder); err != nil {
		t.Fatalf("failed to seed folder: %v", err)
	}
	return folder
}

func writeMediaFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write media file: %v", err)
	}
	return path
}

// fakeProber serves canned results keyed by filename and records every
// probed path.
type fakeProber struct {
	results map[string]*services.ProbeResult
	failOn  map[string]bool
	calls   []string
}

func (p *fakeProber) Probe(_ context.Context, path string) (*services.ProbeResult, error) {
	p.calls = append(p.calls, path)
	name := filepath.Base(path)
	if p.failOn[name] {
		return nil, fmt.Errorf("moov atom not found")
	}
	if result, ok := p.results[name]; ok {
		return result, nil
	}
	return &services.ProbeResult{
		Duration:   1200,
		VideoCodec: "h264",
		Resolution: "1920x1080",
		Audio: []models.AudioTrack{
			{TrackIndex: 0, OriginalLanguage: "eng", Codec: "aac", Channels: 2},
		},
		Subtitles: []models.SubtitleTrack{
			{TrackIndex: 0, OriginalLanguage: "eng", Codec: "subrip"},
		},
	}, nil
}

func newTestScanEngine(db *sql.DB, prober services.Prober) *ScanEngine {
	cfg := shared.ScannerConfig{Extensions: []string{".mkv", ".mp4"}}
	return NewScanEngine(db, prober, cfg, shared.NewLogger(io.Discard))
}

func TestScanEngine(t *testing.T) {
	t.Run("Discovers New Files", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		writeMediaFile(t, dir, "Breaking.Bad - S01E02.mkv", "episode")
		writeMediaFile(t, dir, "Inception.2010.1080p.mkv", "movie")
		writeMediaFile(t, dir, "notes.txt", "not media")
		folder := seedActiveFolder(t, db, dir)

		prober := &fakeProber{}
		engine := newTestScanEngine(db, prober)

		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("scan failed: %v", err)
		}

		if len(prober.calls) != 2 {
			t.Errorf("expected 2 probes, got %d", len(prober.calls))
		}

		media := repositories.NewMediaRepository(db)
		episode, err := media.GetByPath(filepath.Join(dir, "Breaking.Bad - S01E02.mkv"))
		if err != nil {
			t.Fatalf("failed to get episode row: %v", err)
		}

		if episode.MediaType != models.MediaTV {
			t.Errorf("expected tv, got %s", episode.MediaType)
		}
		if episode.SeriesName != "Breaking Bad" || episode.SeasonNumber != 1 || episode.EpisodeNumber != 2 {
			t.Errorf("unexpected episode fields: %s S%dE%d", episode.SeriesName, episode.SeasonNumber, episode.EpisodeNumber)
		}
		if episode.ScanStatus != models.ScanCompleted {
			t.Errorf("expected completed scan, got %s", episode.ScanStatus)
		}
		if episode.VideoCodec != "h264" || episode.Duration != 1200 {
			t.Errorf("probe metadata not recorded: %s %f", episode.VideoCodec, episode.Duration)
		}

		movie, err := media.GetByPath(filepath.Join(dir, "Inception.2010.1080p.mkv"))
		if err != nil {
			t.Fatalf("failed to get movie row: %v", err)
		}
		if movie.MediaType != models.MediaMovie || movie.Title != "Inception" {
			t.Errorf("expected movie 'Inception', got %s %q", movie.MediaType, movie.Title)
		}

		audio, subtitles, err := repositories.NewTrackRepository(db).ForFile(episode.ID)
		if err != nil {
			t.Fatalf("failed to load tracks: %v", err)
		}
		if len(audio) != 1 || len(subtitles) != 1 {
			t.Errorf("expected 1 audio and 1 subtitle track, got %d and %d", len(audio), len(subtitles))
		}

		stamped, err := repositories.NewFolderRepository(db).Get(folder.ID)
		if err != nil {
			t.Fatalf("failed to get folder: %v", err)
		}
		if stamped.LastScanned == nil {
			t.Error("folder should carry a last_scanned stamp")
		}
	})

	t.Run("Skips Unchanged Files", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		writeMediaFile(t, dir, "Movie.mkv", "content")
		seedActiveFolder(t, db, dir)

		prober := &fakeProber{}
		engine := newTestScanEngine(db, prober)

		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("first scan failed: %v", err)
		}
		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("second scan failed: %v", err)
		}

		if len(prober.calls) != 1 {
			t.Errorf("unchanged file should be probed once, got %d probes", len(prober.calls))
		}
	})

	t.Run("Rescans Modified Files", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		path := writeMediaFile(t, dir, "Movie.mkv", "content")
		seedActiveFolder(t, db, dir)

		prober := &fakeProber{}
		engine := newTestScanEngine(db, prober)

		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("first scan failed: %v", err)
		}

		writeMediaFile(t, dir, "Movie.mkv", "longer replacement content")
		future := time.Now().Add(time.Hour)
		if err := os.Chtimes(path, future, future); err != nil {
			t.Fatalf("failed to bump mtime: %v", err)
		}

		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("second scan failed: %v", err)
		}

		if len(prober.calls) != 2 {
			t.Errorf("modified file should be probed again, got %d probes", len(prober.calls))
		}

		file, err := repositories.NewMediaRepository(db).GetByPath(path)
		if err != nil {
			t.Fatalf("failed to get file: %v", err)
		}
		if file.FileSize != int64(len("longer replacement content")) {
			t.Errorf("file size not refreshed, got %d", file.FileSize)
		}
	})

	t.Run("Records Probe Failures And Continues", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		broken := writeMediaFile(t, dir, "Broken.mkv", "bad")
		good := writeMediaFile(t, dir, "Good.mkv", "fine")
		seedActiveFolder(t, db, dir)

		prober := &fakeProber{failOn: map[string]bool{"Broken.mkv": true}}
		engine := newTestScanEngine(db, prober)

		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("scan should survive probe failures: %v", err)
		}

		media := repositories.NewMediaRepository(db)
		failed, err := media.GetByPath(broken)
		if err != nil {
			t.Fatalf("failed row should still exist: %v", err)
		}
		if failed.ScanStatus != models.ScanError {
			t.Errorf("expected error status, got %s", failed.ScanStatus)
		}
		if failed.ErrorMessage == "" {
			t.Error("probe error should be recorded on the row")
		}

		ok, err := media.GetByPath(good)
		if err != nil {
			t.Fatalf("failed to get good row: %v", err)
		}
		if ok.ScanStatus != models.ScanCompleted {
			t.Errorf("expected completed status, got %s", ok.ScanStatus)
		}
	})

	t.Run("Removes Missing Files", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		gone := writeMediaFile(t, dir, "Gone.mkv", "a")
		kept := writeMediaFile(t, dir, "Kept.mkv", "b")
		seedActiveFolder(t, db, dir)

		engine := newTestScanEngine(db, &fakeProber{})
		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("first scan failed: %v", err)
		}

		if err := os.Remove(gone); err != nil {
			t.Fatalf("failed to remove file: %v", err)
		}
		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("second scan failed: %v", err)
		}

		media := repositories.NewMediaRepository(db)
		if _, err := media.GetByPath(gone); !errors.Is(err, shared.ErrMediaNotFound) {
			t.Errorf("expected missing file row to be removed, got %v", err)
		}
		if _, err := media.GetByPath(kept); err != nil {
			t.Errorf("surviving file row should remain: %v", err)
		}
	})

	t.Run("Keeps Missing Files With Active Jobs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		path := writeMediaFile(t, dir, "Queued.mkv", "a")
		seedActiveFolder(t, db, dir)

		engine := newTestScanEngine(db, &fakeProber{})
		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("first scan failed: %v", err)
		}

		media := repositories.NewMediaRepository(db)
		file, err := media.GetByPath(path)
		if err != nil {
			t.Fatalf("failed to get file: %v", err)
		}
		if _, err := repositories.NewJobRepository(db).QueueFile(file.ID); err != nil {
			t.Fatalf("failed to queue job: %v", err)
		}

		if err := os.Remove(path); err != nil {
			t.Fatalf("failed to remove file: %v", err)
		}
		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("second scan failed: %v", err)
		}

		if _, err := media.GetByPath(path); err != nil {
			t.Errorf("row with an active job should survive cleanup: %v", err)
		}
	})

	t.Run("Keeps Pending Edits During Rescan", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		path := writeMediaFile(t, dir, "Edited.mkv", "content")
		seedActiveFolder(t, db, dir)

		engine := newTestScanEngine(db, &fakeProber{})
		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("first scan failed: %v", err)
		}

		media := repositories.NewMediaRepository(db)
		tracks := repositories.NewTrackRepository(db)
		file, err := media.GetByPath(path)
		if err != nil {
			t.Fatalf("failed to get file: %v", err)
		}
		audio, _, err := tracks.ForFile(file.ID)
		if err != nil {
			t.Fatalf("failed to load tracks: %v", err)
		}

		update := models.TrackUpdate{TrackType: models.TrackAudio, TrackID: audio[0].ID, Title: "Director Commentary"}
		if _, err := tracks.ApplyUpdate(update); err != nil {
			t.Fatalf("failed to apply track update: %v", err)
		}
		if _, err := repositories.NewJobRepository(db).QueueFile(file.ID); err != nil {
			t.Fatalf("failed to queue job: %v", err)
		}

		writeMediaFile(t, dir, "Edited.mkv", "changed on disk meanwhile")
		future := time.Now().Add(time.Hour)
		if err := os.Chtimes(path, future, future); err != nil {
			t.Fatalf("failed to bump mtime: %v", err)
		}

		if err := engine.Scan(context.Background(), nil); err != nil {
			t.Fatalf("second scan failed: %v", err)
		}

		refreshed, _, err := tracks.ForFile(file.ID)
		if err != nil {
			t.Fatalf("failed to reload tracks: %v", err)
		}
		if len(refreshed) != 1 || refreshed[0].NewTitle != "Director Commentary" {
			t.Errorf("pending edit should survive the rescan, got %+v", refreshed)
		}
	})

	t.Run("Rejects Concurrent Scans", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		engine := newTestScanEngine(db, &fakeProber{})
		if !engine.begin() {
			t.Fatal("failed to take the scan guard")
		}
		defer engine.end()

		if err := engine.Scan(context.Background(), nil); !errors.Is(err, shared.ErrScanActive) {
			t.Errorf("expected ErrScanActive, got %v", err)
		}
		if !engine.Scanning() {
			t.Error("Scanning should report true while the guard is held")
		}
	})

	t.Run("Reports Progress", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		writeMediaFile(t, dir, "One.mkv", "a")
		writeMediaFile(t, dir, "Two.mkv", "b")
		seedActiveFolder(t, db, dir)

		engine := newTestScanEngine(db, &fakeProber{})
		progress := make(chan ProgressUpdate, 16)

		if err := engine.Scan(context.Background(), progress); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		close(progress)

		var walks, probes int
		for update := range progress {
			switch update.Phase {
			case WalkFolder:
				walks++
			case ProbeFiles:
				probes++
				if update.Total != 2 {
					t.Errorf("expected probe total 2, got %d", update.Total)
				}
			}
		}
		if walks != 1 || probes != 2 {
			t.Errorf("expected 1 walk and 2 probe updates, got %d and %d", walks, probes)
		}
	})

	t.Run("ScanFolder Scans Only That Folder", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		first := t.TempDir()
		second := t.TempDir()
		writeMediaFile(t, first, "First.mkv", "a")
		writeMediaFile(t, second, "Second.mkv", "b")
		target := seedActiveFolder(t, db, first)
		seedActiveFolder(t, db, second)

		prober := &fakeProber{}
		engine := newTestScanEngine(db, prober)

		if err := engine.ScanFolder(context.Background(), target.ID, nil); err != nil {
			t.Fatalf("folder scan failed: %v", err)
		}

		if len(prober.calls) != 1 || filepath.Base(prober.calls[0]) != "First.mkv" {
			t.Errorf("expected only First.mkv probed, got %v", prober.calls)
		}

		media := repositories.NewMediaRepository(db)
		if _, err := media.GetByPath(filepath.Join(second, "Second.mkv")); !errors.Is(err, shared.ErrMediaNotFound) {
			t.Errorf("other folder should be untouched, got %v", err)
		}
	})

	t.Run("RescanFile", func(t *testing.T) {
		t.Run("Adds Files Inside Active Folders", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			dir := t.TempDir()
			seedActiveFolder(t, db, dir)
			path := writeMediaFile(t, dir, "Dropped.In.mkv", "fresh")

			engine := newTestScanEngine(db, &fakeProber{})
			if err := engine.RescanFile(context.Background(), path); err != nil {
				t.Fatalf("rescan failed: %v", err)
			}

			file, err := repositories.NewMediaRepository(db).GetByPath(path)
			if err != nil {
				t.Fatalf("rescanned file should have a row: %v", err)
			}
			if file.ScanStatus != models.ScanCompleted {
				t.Errorf("expected completed scan, got %s", file.ScanStatus)
			}
		})

		t.Run("Rejects Paths Outside Active Folders", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			engine := newTestScanEngine(db, &fakeProber{})
			err := engine.RescanFile(context.Background(), "/nowhere/Orphan.mkv")
			if !errors.Is(err, shared.ErrFolderNotFound) {
				t.Errorf("expected ErrFolderNotFound, got %v", err)
			}
		})
	})

	t.Run("RemoveFile", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		dir := t.TempDir()
		seedActiveFolder(t, db, dir)
		path := writeMediaFile(t, dir, "Doomed.mkv", "bytes")

		engine := newTestScanEngine(db, &fakeProber{})
		if err := engine.RescanFile(context.Background(), path); err != nil {
			t.Fatalf("rescan failed: %v", err)
		}

		if err := engine.RemoveFile(path); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := repositories.NewMediaRepository(db).GetByPath(path); !errors.Is(err, shared.ErrMediaNotFound) {
			t.Errorf("row should be gone, got %v", err)
		}

		if err := engine.RemoveFile(path); err != nil {
			t.Errorf("removing an unknown path should be a no-op, got %v", err)
		}
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		filename  string
		mediaType models.MediaType
		title     string
		series    string
		season    int
		episode   int
	}{
		{"Standard Episode", "Breaking.Bad - S01E02.mkv", models.MediaTV, "Breaking Bad S01E02", "Breaking Bad", 1, 2},
		{"Lowercase Episode", "the office - s03e12.avi", models.MediaTV, "the office S03E12", "the office", 3, 12},
		{"NxN Episode", "Firefly - 1x11.mp4", models.MediaTV, "Firefly S01E11", "Firefly", 1, 11},
		{"Verbose Episode", "Fringe - Season 2 Episode 14.mkv", models.MediaTV, "Fringe S02E14", "Fringe", 2, 14},
		{"Movie With Year And Quality", "Inception.2010.1080p.BluRay.x264.mkv", models.MediaMovie, "Inception", "", 0, 0},
		{"Movie With Parenthesized Year", "Arrival (2016).mkv", models.MediaMovie, "Arrival", "", 0, 0},
		{"Plain Movie", "random_home_video.mp4", models.MediaMovie, "random home video", "", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mediaType, title, series, season, episode := classify(tc.filename)

			if mediaType != tc.mediaType {
				t.Errorf("expected %s, got %s", tc.mediaType, mediaType)
			}
			if title != tc.title {
				t.Errorf("expected title %q, got %q", tc.title, title)
			}
			if series != tc.series {
				t.Errorf("expected series %q, got %q", tc.series, series)
			}
			if season != tc.season || episode != tc.episode {
				t.Errorf("expected S%02dE%02d, got S%02dE%02d", tc.season, tc.episode, season, episode)
			}
		})
	}
}
