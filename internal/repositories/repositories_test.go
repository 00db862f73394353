package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/medley/internal/models"
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

func seedFolder(t *testing.T, db *sql.DB) *models.MediaFolder {
	t.Helper()

	folder := &models.MediaFolder{Path: "/media/library", Name: "Library", IsActive: true}
	if err := NewFolderRepository(db).Create(folder); err != nil {
		t.Fatalf("failed to seed folder: %v", err)
	}
	return folder
}

func seedFile(t *testing.T, db *sql.DB, folderID int64, path string) *models.MediaFile {
	t.Helper()

	modified := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	file := &models.MediaFile{
		FolderID:     folderID,
		FilePath:     path,
		Filename:     path[len("/media/library/"):],
		FileSize:     1536,
		FileModified: &modified,
	}
	if err := NewMediaRepository(db).Create(file); err != nil {
		t.Fatalf("failed to seed media file: %v", err)
	}
	return file
}

func TestFolderRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFolderRepository(db)
		folder := &models.MediaFolder{Path: "/media/movies", Name: "Movies", IsActive: true}

		if err := repo.Create(folder); err != nil {
			t.Fatalf("failed to create folder: %v", err)
		}

		if folder.ID == 0 {
			t.Error("folder ID should be set after creation")
		}
	})

	t.Run("GetByPath", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFolderRepository(db)
		folder := seedFolder(t, db)

		retrieved, err := repo.GetByPath(folder.Path)
		if err != nil {
			t.Fatalf("failed to get folder by path: %v", err)
		}

		if retrieved.ID != folder.ID {
			t.Errorf("expected ID %d, got %d", folder.ID, retrieved.ID)
		}

		if retrieved.Name != "Library" {
			t.Errorf("expected name 'Library', got %s", retrieved.Name)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFolderRepository(db)
		folder := seedFolder(t, db)

		folder.Name = "Renamed"
		folder.IsActive = false

		if err := repo.Update(folder); err != nil {
			t.Fatalf("failed to update folder: %v", err)
		}

		retrieved, err := repo.Get(folder.ID)
		if err != nil {
			t.Fatalf("failed to get folder: %v", err)
		}

		if retrieved.Name != "Renamed" {
			t.Errorf("expected name 'Renamed', got %s", retrieved.Name)
		}

		if retrieved.IsActive {
			t.Error("expected folder to be inactive after update")
		}
	})

	t.Run("MarkScanned", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFolderRepository(db)
		folder := seedFolder(t, db)

		at := time.Date(2025, 7, 4, 9, 30, 0, 0, time.UTC)
		if err := repo.MarkScanned(folder.ID, at); err != nil {
			t.Fatalf("failed to mark folder scanned: %v", err)
		}

		retrieved, err := repo.Get(folder.ID)
		if err != nil {
			t.Fatalf("failed to get folder: %v", err)
		}

		if retrieved.LastScanned == nil {
			t.Fatal("expected last_scanned to be set")
		}

		if !retrieved.LastScanned.Equal(at) {
			t.Errorf("expected last_scanned %v, got %v", at, retrieved.LastScanned)
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFolderRepository(db)
		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		if err := repo.Delete(folder.ID); err != nil {
			t.Fatalf("failed to delete folder: %v", err)
		}

		_, err := NewMediaRepository(db).Get(file.ID)
		if err == nil {
			t.Error("expected media file to be deleted with its folder")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewFolderRepository(db)
		folders := []*models.MediaFolder{
			{Path: "/media/movies", Name: "Movies", IsActive: true},
			{Path: "/media/tv", Name: "TV", IsActive: true},
			{Path: "/media/archive", Name: "Archive", IsActive: false},
		}
		for _, folder := range folders {
			if err := repo.Create(folder); err != nil {
				t.Fatalf("failed to create folder: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list folders: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 folders, got %d", len(all))
		}

		active, err := repo.Active()
		if err != nil {
			t.Fatalf("failed to list active folders: %v", err)
		}
		if len(active) != 2 {
			t.Errorf("expected 2 active folders, got %d", len(active))
		}
	})
}

func TestMediaRepository(t *testing.T) {
	t.Run("CreateDefaults", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/show.mkv")

		if file.ID == 0 {
			t.Error("media file ID should be set after creation")
		}

		retrieved, err := NewMediaRepository(db).Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get media file: %v", err)
		}

		if retrieved.ScanStatus != models.ScanPending {
			t.Errorf("expected scan status %q, got %q", models.ScanPending, retrieved.ScanStatus)
		}

		if retrieved.ProcessStatus != models.ProcessNone {
			t.Errorf("expected process status %q, got %q", models.ProcessNone, retrieved.ProcessStatus)
		}

		if retrieved.FileModified == nil {
			t.Error("expected file_modified to round-trip")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/Show S01E02.mkv")

		repo := NewMediaRepository(db)
		file.MediaType = models.MediaTV
		file.SeriesName = "Show"
		file.SeasonNumber = 1
		file.EpisodeNumber = 2
		file.Duration = 2520.5
		file.VideoCodec = "h264"
		file.Resolution = "1920x1080"
		file.ScanStatus = models.ScanCompleted

		if err := repo.Update(file); err != nil {
			t.Fatalf("failed to update media file: %v", err)
		}

		retrieved, err := repo.Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get media file: %v", err)
		}

		if retrieved.SeriesName != "Show" || retrieved.SeasonNumber != 1 || retrieved.EpisodeNumber != 2 {
			t.Errorf("expected Show S01E02, got %s S%02dE%02d",
				retrieved.SeriesName, retrieved.SeasonNumber, retrieved.EpisodeNumber)
		}

		if retrieved.Duration != 2520.5 {
			t.Errorf("expected duration 2520.5, got %v", retrieved.Duration)
		}
	})

	t.Run("SetScanStatus", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/broken.mkv")

		repo := NewMediaRepository(db)
		if err := repo.SetScanStatus(file.ID, models.ScanError, "probe failed"); err != nil {
			t.Fatalf("failed to set scan status: %v", err)
		}

		retrieved, err := repo.Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get media file: %v", err)
		}

		if retrieved.ScanStatus != models.ScanError {
			t.Errorf("expected scan status %q, got %q", models.ScanError, retrieved.ScanStatus)
		}

		if retrieved.ErrorMessage != "probe failed" {
			t.Errorf("expected error message 'probe failed', got %q", retrieved.ErrorMessage)
		}

		if err := repo.SetScanStatus(file.ID, models.ScanCompleted, ""); err != nil {
			t.Fatalf("failed to clear scan status: %v", err)
		}

		retrieved, err = repo.Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get media file: %v", err)
		}

		if retrieved.ErrorMessage != "" {
			t.Errorf("expected error message cleared, got %q", retrieved.ErrorMessage)
		}
	})

	t.Run("DeleteByPath", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		seedFile(t, db, folder.ID, "/media/library/gone.mkv")

		repo := NewMediaRepository(db)
		if err := repo.DeleteByPath("/media/library/gone.mkv"); err != nil {
			t.Fatalf("failed to delete by path: %v", err)
		}

		if _, err := repo.GetByPath("/media/library/gone.mkv"); err == nil {
			t.Error("expected media file to be gone after delete")
		}
	})

	t.Run("ListFilters", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		repo := NewMediaRepository(db)

		movie := seedFile(t, db, folder.ID, "/media/library/Alpha.mkv")
		movie.MediaType = models.MediaMovie
		movie.Title = "Alpha"
		movie.ScanStatus = models.ScanCompleted
		if err := repo.Update(movie); err != nil {
			t.Fatalf("failed to update movie: %v", err)
		}

		episode := seedFile(t, db, folder.ID, "/media/library/Zeta S01E01.mkv")
		episode.MediaType = models.MediaTV
		episode.SeriesName = "Zeta"
		episode.SeasonNumber = 1
		episode.EpisodeNumber = 1
		episode.ScanStatus = models.ScanCompleted
		if err := repo.Update(episode); err != nil {
			t.Fatalf("failed to update episode: %v", err)
		}

		seedFile(t, db, folder.ID, "/media/library/pending.mkv")

		completed, err := repo.List(map[string]any{"scan_status": models.ScanCompleted})
		if err != nil {
			t.Fatalf("failed to list completed files: %v", err)
		}
		if len(completed) != 2 {
			t.Fatalf("expected 2 completed files, got %d", len(completed))
		}

		// Movies sort ahead of series.
		if completed[0].ID != movie.ID || completed[1].ID != episode.ID {
			t.Errorf("expected [%d %d], got [%d %d]",
				movie.ID, episode.ID, completed[0].ID, completed[1].ID)
		}

		matched, err := repo.List(map[string]any{"search": "Zeta"})
		if err != nil {
			t.Fatalf("failed to search files: %v", err)
		}
		if len(matched) != 1 || matched[0].ID != episode.ID {
			t.Errorf("expected search to match the episode, got %d results", len(matched))
		}

		movies, err := repo.List(map[string]any{"media_type": models.MediaMovie})
		if err != nil {
			t.Fatalf("failed to filter by type: %v", err)
		}
		if len(movies) != 1 || movies[0].ID != movie.ID {
			t.Errorf("expected type filter to match the movie, got %d results", len(movies))
		}
	})

	t.Run("ScanProgress", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewMediaRepository(db)

		progress, err := repo.ScanProgress()
		if err != nil {
			t.Fatalf("failed to read scan progress: %v", err)
		}
		if progress.Progress != 100 {
			t.Errorf("expected empty library to report 100, got %v", progress.Progress)
		}

		folder := seedFolder(t, db)
		first := seedFile(t, db, folder.ID, "/media/library/a.mkv")
		second := seedFile(t, db, folder.ID, "/media/library/b.mkv")
		seedFile(t, db, folder.ID, "/media/library/c.mkv")
		seedFile(t, db, folder.ID, "/media/library/d.mkv")

		if err := repo.SetScanStatus(first.ID, models.ScanCompleted, ""); err != nil {
			t.Fatalf("failed to complete file: %v", err)
		}
		if err := repo.SetScanStatus(second.ID, models.ScanScanning, ""); err != nil {
			t.Fatalf("failed to mark file scanning: %v", err)
		}

		progress, err = repo.ScanProgress()
		if err != nil {
			t.Fatalf("failed to read scan progress: %v", err)
		}

		if progress.Total != 4 || progress.Scanned != 1 || progress.Scanning != 1 {
			t.Errorf("expected totals 4/1/1, got %d/%d/%d",
				progress.Total, progress.Scanned, progress.Scanning)
		}

		if progress.Progress != 25 {
			t.Errorf("expected progress 25, got %v", progress.Progress)
		}
	})
}

func TestTrackRepository(t *testing.T) {
	t.Run("ReplaceAndFetch", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		repo := NewTrackRepository(db)
		audio := []models.AudioTrack{
			{TrackIndex: 1, OriginalTitle: "Commentary", OriginalLanguage: "eng", Codec: "aac", Channels: 2, SampleRate: 48000},
			{TrackIndex: 0, OriginalTitle: "Main", OriginalLanguage: "eng", Codec: "dts", Channels: 6, SampleRate: 48000},
		}
		subtitles := []models.SubtitleTrack{
			{TrackIndex: 0, OriginalLanguage: "eng", Codec: "subrip", IsDefault: true},
		}

		if err := repo.ReplaceTracks(file.ID, audio, subtitles); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		gotAudio, gotSubs, err := repo.ForFile(file.ID)
		if err != nil {
			t.Fatalf("failed to fetch tracks: %v", err)
		}

		if len(gotAudio) != 2 || len(gotSubs) != 1 {
			t.Fatalf("expected 2 audio and 1 subtitle track, got %d and %d", len(gotAudio), len(gotSubs))
		}

		// Ordered by stream index regardless of insert order.
		if gotAudio[0].TrackIndex != 0 || gotAudio[0].OriginalTitle != "Main" {
			t.Errorf("expected first track 'Main' at index 0, got %q at %d",
				gotAudio[0].OriginalTitle, gotAudio[0].TrackIndex)
		}

		if !gotSubs[0].IsDefault {
			t.Error("expected subtitle default flag to round-trip")
		}

		// A rescan replaces rows wholesale.
		if err := repo.ReplaceTracks(file.ID, audio[:1], nil); err != nil {
			t.Fatalf("failed to replace tracks again: %v", err)
		}

		gotAudio, gotSubs, err = repo.ForFile(file.ID)
		if err != nil {
			t.Fatalf("failed to fetch tracks: %v", err)
		}
		if len(gotAudio) != 1 || len(gotSubs) != 0 {
			t.Errorf("expected 1 audio and 0 subtitle tracks after rescan, got %d and %d",
				len(gotAudio), len(gotSubs))
		}
	})

	t.Run("ApplyUpdate", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		repo := NewTrackRepository(db)
		audio := []models.AudioTrack{{TrackIndex: 0, OriginalTitle: "Main", OriginalLanguage: "und"}}
		if err := repo.ReplaceTracks(file.ID, audio, nil); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		fileID, err := repo.ApplyUpdate(models.TrackUpdate{
			TrackType: models.TrackAudio,
			TrackID:   audio[0].ID,
			Title:     "Director Commentary",
			Language:  "eng",
		})
		if err != nil {
			t.Fatalf("failed to apply update: %v", err)
		}

		if fileID != file.ID {
			t.Errorf("expected owning file %d, got %d", file.ID, fileID)
		}

		track, err := repo.GetAudio(audio[0].ID)
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}

		if !track.IsModified {
			t.Error("expected track to be flagged modified")
		}

		if track.EffectiveTitle() != "Director Commentary" {
			t.Errorf("expected effective title 'Director Commentary', got %q", track.EffectiveTitle())
		}

		if track.EffectiveLanguage() != "eng" {
			t.Errorf("expected effective language 'eng', got %q", track.EffectiveLanguage())
		}

		owner, err := NewMediaRepository(db).Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get owning file: %v", err)
		}

		if owner.ProcessStatus != models.ProcessPending {
			t.Errorf("expected owning file pending, got %q", owner.ProcessStatus)
		}
	})

	t.Run("ClearModifications", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		repo := NewTrackRepository(db)
		audio := []models.AudioTrack{{TrackIndex: 0, OriginalTitle: "Main", OriginalLanguage: "und"}}
		subtitles := []models.SubtitleTrack{{TrackIndex: 0, OriginalLanguage: "und"}}
		if err := repo.ReplaceTracks(file.ID, audio, subtitles); err != nil {
			t.Fatalf("failed to replace tracks: %v", err)
		}

		if _, err := repo.ApplyUpdate(models.TrackUpdate{
			TrackType: models.TrackAudio, TrackID: audio[0].ID, Language: "jpn",
		}); err != nil {
			t.Fatalf("failed to apply audio update: %v", err)
		}
		if _, err := repo.ApplyUpdate(models.TrackUpdate{
			TrackType: models.TrackSubtitle, TrackID: subtitles[0].ID, Title: "Signs & Songs",
		}); err != nil {
			t.Fatalf("failed to apply subtitle update: %v", err)
		}

		modAudio, modSubs, err := repo.Modified(file.ID)
		if err != nil {
			t.Fatalf("failed to list modified tracks: %v", err)
		}
		if len(modAudio) != 1 || len(modSubs) != 1 {
			t.Fatalf("expected 1 modified track of each kind, got %d and %d", len(modAudio), len(modSubs))
		}

		if err := repo.ClearModifications(file.ID); err != nil {
			t.Fatalf("failed to clear modifications: %v", err)
		}

		track, err := repo.GetAudio(audio[0].ID)
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}

		if track.IsModified {
			t.Error("expected modified flag cleared")
		}

		if track.OriginalLanguage != "jpn" {
			t.Errorf("expected promoted language 'jpn', got %q", track.OriginalLanguage)
		}

		if track.OriginalTitle != "Main" {
			t.Errorf("expected untouched title 'Main', got %q", track.OriginalTitle)
		}

		if track.NewLanguage != "" {
			t.Errorf("expected pending language cleared, got %q", track.NewLanguage)
		}

		sub, err := repo.GetSubtitle(subtitles[0].ID)
		if err != nil {
			t.Fatalf("failed to get subtitle track: %v", err)
		}

		if sub.OriginalTitle != "Signs & Songs" {
			t.Errorf("expected promoted subtitle title, got %q", sub.OriginalTitle)
		}
	})
}

func TestJobRepository(t *testing.T) {
	t.Run("QueueFile", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		repo := NewJobRepository(db)
		job, err := repo.QueueFile(file.ID)
		if err != nil {
			t.Fatalf("failed to queue file: %v", err)
		}

		if job.ID == 0 {
			t.Error("job ID should be set after queueing")
		}

		if job.Status != models.JobQueued {
			t.Errorf("expected status %q, got %q", models.JobQueued, job.Status)
		}

		owner, err := NewMediaRepository(db).Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get owning file: %v", err)
		}

		if owner.ProcessStatus != models.ProcessQueued {
			t.Errorf("expected owning file queued, got %q", owner.ProcessStatus)
		}
	})

	t.Run("NextQueued", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		first := seedFile(t, db, folder.ID, "/media/library/a.mkv")
		second := seedFile(t, db, folder.ID, "/media/library/b.mkv")

		repo := NewJobRepository(db)
		firstJob, err := repo.QueueFile(first.ID)
		if err != nil {
			t.Fatalf("failed to queue first file: %v", err)
		}
		if _, err := repo.QueueFile(second.ID); err != nil {
			t.Fatalf("failed to queue second file: %v", err)
		}

		next, err := repo.NextQueued()
		if err != nil {
			t.Fatalf("failed to claim next job: %v", err)
		}

		if next.ID != firstJob.ID {
			t.Errorf("expected oldest job %d, got %d", firstJob.ID, next.ID)
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		repo := NewJobRepository(db)
		job, err := repo.QueueFile(file.ID)
		if err != nil {
			t.Fatalf("failed to queue file: %v", err)
		}

		if err := repo.MarkStarted(job.ID, "/tmp/medley-tmp.mkv"); err != nil {
			t.Fatalf("failed to start job: %v", err)
		}

		if err := repo.SetProgress(job.ID, 42.5); err != nil {
			t.Fatalf("failed to set progress: %v", err)
		}

		running, err := repo.Get(job.ID)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}

		if running.Status != models.JobProcessing {
			t.Errorf("expected status %q, got %q", models.JobProcessing, running.Status)
		}

		if running.Progress != 42.5 {
			t.Errorf("expected progress 42.5, got %v", running.Progress)
		}

		if running.StartedAt == nil {
			t.Error("expected started_at to be set")
		}

		if running.TempFilePath != "/tmp/medley-tmp.mkv" {
			t.Errorf("expected temp path recorded, got %q", running.TempFilePath)
		}

		if err := repo.MarkCompleted(job.ID); err != nil {
			t.Fatalf("failed to complete job: %v", err)
		}

		done, err := repo.Get(job.ID)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}

		if done.Status != models.JobCompleted || done.Progress != 100 {
			t.Errorf("expected completed at 100, got %q at %v", done.Status, done.Progress)
		}

		if done.CompletedAt == nil {
			t.Error("expected completed_at to be set")
		}

		owner, err := NewMediaRepository(db).Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get owning file: %v", err)
		}

		if owner.ProcessStatus != models.ProcessCompleted {
			t.Errorf("expected owning file completed, got %q", owner.ProcessStatus)
		}
	})

	t.Run("MarkFailed", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		repo := NewJobRepository(db)
		job, err := repo.QueueFile(file.ID)
		if err != nil {
			t.Fatalf("failed to queue file: %v", err)
		}

		if err := repo.MarkFailed(job.ID, "ffmpeg exited with code 1"); err != nil {
			t.Fatalf("failed to fail job: %v", err)
		}

		failed, err := repo.Get(job.ID)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}

		if failed.Status != models.JobFailed {
			t.Errorf("expected status %q, got %q", models.JobFailed, failed.Status)
		}

		if failed.ErrorMessage != "ffmpeg exited with code 1" {
			t.Errorf("expected error message recorded, got %q", failed.ErrorMessage)
		}

		owner, err := NewMediaRepository(db).Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get owning file: %v", err)
		}

		if owner.ProcessStatus != models.ProcessError {
			t.Errorf("expected owning file in error state, got %q", owner.ProcessStatus)
		}
	})

	t.Run("ActiveJobs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		first := seedFile(t, db, folder.ID, "/media/library/a.mkv")
		second := seedFile(t, db, folder.ID, "/media/library/b.mkv")
		third := seedFile(t, db, folder.ID, "/media/library/c.mkv")

		repo := NewJobRepository(db)
		firstJob, err := repo.QueueFile(first.ID)
		if err != nil {
			t.Fatalf("failed to queue first file: %v", err)
		}
		if _, err := repo.QueueFile(second.ID); err != nil {
			t.Fatalf("failed to queue second file: %v", err)
		}
		doneJob, err := repo.QueueFile(third.ID)
		if err != nil {
			t.Fatalf("failed to queue third file: %v", err)
		}
		if err := repo.MarkCompleted(doneJob.ID); err != nil {
			t.Fatalf("failed to complete third job: %v", err)
		}

		if err := repo.MarkStarted(firstJob.ID, ""); err != nil {
			t.Fatalf("failed to start first job: %v", err)
		}
		if err := repo.SetProgress(firstJob.ID, 61.8); err != nil {
			t.Fatalf("failed to set progress: %v", err)
		}

		jobs, err := repo.ActiveJobs()
		if err != nil {
			t.Fatalf("failed to list active jobs: %v", err)
		}

		if len(jobs) != 2 {
			t.Fatalf("expected 2 active jobs, got %d", len(jobs))
		}

		if jobs[0].MediaFile != "a.mkv" {
			t.Errorf("expected filename 'a.mkv', got %q", jobs[0].MediaFile)
		}

		if jobs[0].MediaFileID != first.ID {
			t.Errorf("expected media file id %d, got %d", first.ID, jobs[0].MediaFileID)
		}

		if jobs[0].Status != string(models.JobProcessing) || jobs[0].Progress != 61.8 {
			t.Errorf("expected processing at 61.8, got %s at %v", jobs[0].Status, jobs[0].Progress)
		}

		count, err := repo.CountActive()
		if err != nil {
			t.Fatalf("failed to count active jobs: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 active jobs, got %d", count)
		}
	})

	t.Run("RequeueStuck", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		folder := seedFolder(t, db)
		file := seedFile(t, db, folder.ID, "/media/library/movie.mkv")

		repo := NewJobRepository(db)
		job, err := repo.QueueFile(file.ID)
		if err != nil {
			t.Fatalf("failed to queue file: %v", err)
		}
		if err := repo.MarkStarted(job.ID, "/tmp/medley-tmp.mkv"); err != nil {
			t.Fatalf("failed to start job: %v", err)
		}

		count, err := repo.RequeueStuck()
		if err != nil {
			t.Fatalf("failed to requeue stuck jobs: %v", err)
		}

		if count != 1 {
			t.Errorf("expected 1 requeued job, got %d", count)
		}

		reset, err := repo.Get(job.ID)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}

		if reset.Status != models.JobQueued || reset.Progress != 0 {
			t.Errorf("expected queued at 0, got %q at %v", reset.Status, reset.Progress)
		}

		if reset.StartedAt != nil || reset.TempFilePath != "" {
			t.Error("expected started_at and temp path cleared")
		}

		owner, err := NewMediaRepository(db).Get(file.ID)
		if err != nil {
			t.Fatalf("failed to get owning file: %v", err)
		}

		if owner.ProcessStatus != models.ProcessQueued {
			t.Errorf("expected owning file requeued, got %q", owner.ProcessStatus)
		}
	})
}

func TestSettingsRepository(t *testing.T) {
	t.Run("SeededDefaults", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSettingsRepository(db)

		if got := repo.GetInt(SettingMaxConcurrentJobs, 0); got != 1 {
			t.Errorf("expected seeded max_concurrent_jobs 1, got %d", got)
		}

		if got := repo.GetInt(SettingScanInterval, 0); got != 3600 {
			t.Errorf("expected seeded scan_interval 3600, got %d", got)
		}

		if !repo.GetBool(SettingBackupOriginals, false) {
			t.Error("expected seeded backup_original_files true")
		}

		if got := repo.GetOr(SettingTempDirectory, ""); got != "/tmp" {
			t.Errorf("expected seeded temp_directory /tmp, got %q", got)
		}
	})

	t.Run("TypedFallbacks", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSettingsRepository(db)

		if got := repo.GetInt("no_such_key", 7); got != 7 {
			t.Errorf("expected fallback 7, got %d", got)
		}

		if err := repo.Set("numeric", "not a number"); err != nil {
			t.Fatalf("failed to set setting: %v", err)
		}

		if got := repo.GetInt("numeric", 7); got != 7 {
			t.Errorf("expected fallback for malformed value, got %d", got)
		}

		if got := repo.GetBool("numeric", true); !got {
			t.Error("expected fallback for malformed boolean")
		}
	})

	t.Run("SetAndUpdate", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSettingsRepository(db)

		if err := repo.Update(SettingScanInterval, "600"); err != nil {
			t.Fatalf("failed to update existing setting: %v", err)
		}

		if got := repo.GetInt(SettingScanInterval, 0); got != 600 {
			t.Errorf("expected updated scan_interval 600, got %d", got)
		}

		if err := repo.Set("custom_key", "value"); err != nil {
			t.Fatalf("failed to upsert new setting: %v", err)
		}

		if got := repo.GetOr("custom_key", ""); got != "value" {
			t.Errorf("expected upserted value, got %q", got)
		}

		if err := repo.Set("custom_key", "replaced"); err != nil {
			t.Fatalf("failed to upsert existing setting: %v", err)
		}

		if got := repo.GetOr("custom_key", ""); got != "replaced" {
			t.Errorf("expected replaced value, got %q", got)
		}
	})

	t.Run("All", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSettingsRepository(db)

		settings, err := repo.All()
		if err != nil {
			t.Fatalf("failed to list settings: %v", err)
		}

		if len(settings) != 7 {
			t.Errorf("expected 7 seeded settings, got %d", len(settings))
		}

		for i := 1; i < len(settings); i++ {
			if settings[i-1].Key > settings[i].Key {
				t.Errorf("expected settings ordered by key, got %q before %q",
					settings[i-1].Key, settings[i].Key)
			}
		}
	})
}
