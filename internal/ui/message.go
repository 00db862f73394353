package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/poll"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgFilesFetched MsgKind = iota
	MsgFileFetched
	MsgPollUpdate
	MsgSaveDue
	MsgTrackSaved
	MsgScanStarted
	MsgQueued
	MsgNotice
	MsgNoticeExpired
)

// filesFetchedMsg is the constructor for [MsgFilesFetched]
func filesFetchedMsg(files []*models.MediaFile, err error) Msg {
	return Msg{
		kind: MsgFilesFetched,
		data: struct {
			files []*models.MediaFile
			err   error
		}{files, err},
	}
}

// fileFetchedMsg is the constructor for [MsgFileFetched]
func fileFetchedMsg(file *models.MediaFile, err error) Msg {
	return Msg{
		kind: MsgFileFetched,
		data: struct {
			file *models.MediaFile
			err  error
		}{file, err},
	}
}

// pollUpdateMsg is the constructor for [MsgPollUpdate]
func pollUpdateMsg(update poll.Update) Msg {
	return Msg{kind: MsgPollUpdate, data: update}
}

// saveDueMsg is the constructor for [MsgSaveDue]
func saveDueMsg(update models.TrackUpdate) Msg {
	return Msg{kind: MsgSaveDue, data: update}
}

// trackSavedMsg is the constructor for [MsgTrackSaved]
func trackSavedMsg(update models.TrackUpdate, err error) Msg {
	return Msg{
		kind: MsgTrackSaved,
		data: struct {
			update models.TrackUpdate
			err    error
		}{update, err},
	}
}

// scanStartedMsg is the constructor for [MsgScanStarted]
func scanStartedMsg(err error) Msg {
	return Msg{kind: MsgScanStarted, data: err}
}

// queuedMsg is the constructor for [MsgQueued]
func queuedMsg(id int64, err error) Msg {
	return Msg{
		kind: MsgQueued,
		data: struct {
			id  int64
			err error
		}{id, err},
	}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(text string, severity Severity) Msg {
	return Msg{
		kind: MsgNotice,
		data: struct {
			text     string
			severity Severity
		}{text, severity},
	}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]
func noticeExpiredMsg(id int) Msg {
	return Msg{kind: MsgNoticeExpired, data: id}
}
