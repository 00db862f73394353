package ui

import (
	"context"
	"testing"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/poll"
	"github.com/desertthunder/medley/internal/shared"
)

func testModel(t *testing.T) *Model {
	t.Helper()

	cfg := shared.ClientConfig{SaveDebounceMS: 10, NoticeDurationMS: 50}
	return NewModel(context.Background(), nil, nil, nil, cfg, shared.NewLogger(nil))
}

func sampleFile() *models.MediaFile {
	return &models.MediaFile{
		ID:       1,
		Filename: "movie.mkv",
		FileSize: 1536,
		AudioTracks: []models.AudioTrack{
			{ID: 10, TrackIndex: 0, OriginalTitle: "Stereo", OriginalLanguage: "eng"},
			{ID: 11, TrackIndex: 1, OriginalTitle: "Commentary", OriginalLanguage: "eng", NewLanguage: "deu", IsModified: true},
		},
		SubtitleTracks: []models.SubtitleTrack{
			{ID: 20, TrackIndex: 0, OriginalTitle: "English", OriginalLanguage: "eng"},
		},
	}
}

func TestMediaItem(t *testing.T) {
	item := mediaItem{file: &models.MediaFile{
		Filename:   "movie.mkv",
		Title:      "The Movie",
		FileSize:   1536,
		Resolution: "1080p",
	}}

	if item.FilterValue() != "movie.mkv" {
		t.Errorf("FilterValue() = %q, want filename", item.FilterValue())
	}
	if item.Title() != "The Movie" {
		t.Errorf("Title() = %q, want parsed title", item.Title())
	}
	if item.Description() != "1.5 KB • 1080p" {
		t.Errorf("Description() = %q, want size and resolution", item.Description())
	}
}

func TestTrackRows(t *testing.T) {
	m := testModel(t)

	if rows := m.trackRows(); rows != nil {
		t.Errorf("trackRows() without a file = %v, want nil", rows)
	}

	m.file = sampleFile()
	rows := m.trackRows()
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want audio then subtitle tracks", len(rows))
	}
	if rows[0].trackType != models.TrackAudio || rows[2].trackType != models.TrackSubtitle {
		t.Errorf("rows out of order: %+v", rows)
	}
	if rows[1].language != "deu" || !rows[1].modified {
		t.Errorf("row = %+v, want pending language shown and modified flagged", rows[1])
	}
}

func TestPendingUpdate(t *testing.T) {
	t.Run("title edit keeps pending language", func(t *testing.T) {
		m := testModel(t)
		m.file = sampleFile()
		m.cursor = 1

		if _, cmd := m.beginEdit(fieldTitle); cmd == nil {
			t.Fatal("beginEdit returned no blink command")
		}
		m.input.SetValue("Director Commentary")

		update := m.pendingUpdate()
		if update.TrackID != 11 || update.TrackType != models.TrackAudio {
			t.Errorf("update targets %+v, want audio track 11", update)
		}
		if update.Title != "Director Commentary" {
			t.Errorf("update title = %q, want the typed value", update.Title)
		}
		if update.Language != "deu" {
			t.Errorf("update language = %q, want the stored pending edit carried", update.Language)
		}
	})

	t.Run("language edit keeps pending title", func(t *testing.T) {
		m := testModel(t)
		m.file = sampleFile()
		m.file.AudioTracks[0].NewTitle = "Surround"
		m.cursor = 0

		m.beginEdit(fieldLanguage)
		m.input.SetValue("jpn")

		update := m.pendingUpdate()
		if update.Language != "jpn" || update.Title != "Surround" {
			t.Errorf("update = %+v, want language jpn with pending title kept", update)
		}
	})
}

func TestDebouncedSaveFires(t *testing.T) {
	m := testModel(t)
	m.file = sampleFile()
	m.cursor = 0

	m.beginEdit(fieldTitle)
	m.input.SetValue("A")
	update := m.pendingUpdate()
	m.saver.Call(m.editKey, func() {
		select {
		case m.saveChan <- update:
		default:
		}
	})

	select {
	case got := <-m.saveChan:
		if got.Title != "A" {
			t.Errorf("saved title = %q, want A", got.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced save never fired")
	}
}

func TestNoticeBoard(t *testing.T) {
	board := newNoticeBoard(50 * time.Millisecond)

	if board.render() != "" {
		t.Error("empty board rendered text")
	}

	cmd := board.push("Changes saved", NoticeSuccess)
	if cmd == nil {
		t.Fatal("push returned no expiry command")
	}
	board.push("request failed with status 500", NoticeError)

	out := board.render()
	if out == "" {
		t.Fatal("board with notices rendered nothing")
	}
	if len(board.notices) != 2 {
		t.Fatalf("got %d notices, want 2", len(board.notices))
	}

	board.expire(board.notices[0].ID)
	if len(board.notices) != 1 {
		t.Errorf("got %d notices after expiry, want 1", len(board.notices))
	}
	board.expire(999) // unknown id is a no-op
	if len(board.notices) != 1 {
		t.Errorf("expiring an unknown id changed the board")
	}
}

func TestHandlePollUpdate(t *testing.T) {
	m := testModel(t)
	m.poller = poll.NewPoller(nil, time.Hour, poll.MatchSubstring, shared.NewLogger(nil))

	scan := poll.NewScanStatus(42.5)
	if _, cmd := m.handleMsg(pollUpdateMsg(poll.Update{Scan: &scan})); cmd == nil {
		t.Error("poll update did not re-arm the wait command")
	}
	if !m.scan.Active || m.scan.Text() != "Scanning... 42.5%" {
		t.Errorf("scan status = %+v, want active at 42.5", m.scan)
	}

	queue := poll.NewQueueStatus(nil)
	detail := poll.DetailStatus{Visible: true, Progress: 80}
	m.handleMsg(pollUpdateMsg(poll.Update{Queue: &queue, Detail: &detail}))
	if m.queue.Text() != "Ready" {
		t.Errorf("queue text = %q, want Ready", m.queue.Text())
	}
	if !m.detail.Visible || m.detail.Progress != 80 {
		t.Errorf("detail = %+v, want visible at 80", m.detail)
	}
}

func TestNoticeExpiryMessage(t *testing.T) {
	m := testModel(t)

	m.handleMsg(noticeMsg("saved", NoticeSuccess))
	if len(m.notices.notices) != 1 {
		t.Fatalf("got %d notices, want 1", len(m.notices.notices))
	}

	id := m.notices.notices[0].ID
	m.handleMsg(noticeExpiredMsg(id))
	if len(m.notices.notices) != 0 {
		t.Error("notice survived its expiry message")
	}
}
