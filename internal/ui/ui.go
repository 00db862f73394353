package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/debounce"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/poll"
	"github.com/desertthunder/medley/internal/services"
	"github.com/desertthunder/medley/internal/shared"
)

// ViewState represents the current view in the dashboard.
type ViewState int

const (
	LibraryView ViewState = iota
	DetailView
	EditView
)

// editField selects which track attribute an edit session targets.
type editField int

const (
	fieldTitle editField = iota
	fieldLanguage
)

// saveKey identifies one debounced save slot: edits to the same track
// field coalesce, edits to different fields save independently.
type saveKey struct {
	trackType models.TrackType
	trackID   int64
	field     editField
}

// trackRow is one line of the detail view's track table.
type trackRow struct {
	trackType       models.TrackType
	id              int64
	index           int
	title           string
	language        string
	pendingTitle    string
	pendingLanguage string
	modified        bool
}

// Model represents the dashboard application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	library *services.LibraryService
	poller  *poll.Poller
	logger  *log.Logger

	width  int
	height int

	mediaList list.Model
	listReady bool
	file      *models.MediaFile
	cursor    int

	input   textinput.Model
	editRow trackRow
	editKey saveKey

	saver         *debounce.Keyed[saveKey]
	saveChan      chan models.TrackUpdate
	notifications <-chan string

	scan   poll.ScanStatus
	queue  poll.QueueStatus
	detail poll.DetailStatus
	gauge  progress.Model

	notices *noticeBoard
	help    help.Model
	keys    keyMap
}

// NewModel creates a dashboard model. notifications carries banner
// text pushed from outside the Elm loop (the API client's notifier);
// cfg supplies the save debounce and notice durations.
func NewModel(ctx context.Context, library *services.LibraryService, poller *poll.Poller, notifications <-chan string, cfg shared.ClientConfig, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Model{
		ctx:           ctx,
		view:          LibraryView,
		library:       library,
		poller:        poller,
		logger:        logger,
		saver:         debounce.NewKeyed[saveKey](cfg.SaveDebounce()),
		saveChan:      make(chan models.TrackUpdate, 16),
		notifications: notifications,
		gauge:         progress.New(progress.WithDefaultGradient()),
		notices:       newNoticeBoard(cfg.NoticeDuration()),
		help:          help.New(),
		keys:          newKeyMap(),
	}
}

// Init starts the status poller and kicks off the initial library fetch.
func (m *Model) Init() tea.Cmd {
	go m.poller.Run(m.ctx)
	return tea.Batch(m.fetchFiles(), m.waitForPoll(), m.waitForSave(), m.waitForNotify())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.listReady {
			m.mediaList.SetSize(msg.Width-4, msg.Height-10)
		}
		m.gauge.Width = min(msg.Width-8, 50)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LibraryView:
			return m.handleLibraryKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case EditView:
			return m.handleEditKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgFilesFetched:
		data := msg.data.(struct {
			files []*models.MediaFile
			err   error
		})
		if data.err != nil {
			return m, m.reportError(data.err)
		}
		items := make([]list.Item, len(data.files))
		for i, file := range data.files {
			items[i] = mediaItem{file: file}
		}
		m.mediaList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-10)
		m.mediaList.Title = "Media Library"
		m.listReady = true
		return m, nil

	case MsgFileFetched:
		data := msg.data.(struct {
			file *models.MediaFile
			err  error
		})
		if data.err != nil {
			return m, m.reportError(data.err)
		}
		m.file = data.file
		if rows := m.trackRows(); m.cursor >= len(rows) {
			m.cursor = 0
		}
		if m.view == LibraryView {
			m.view = DetailView
		}
		return m, nil

	case MsgPollUpdate:
		update := msg.data.(poll.Update)
		if update.Scan != nil {
			m.scan = *update.Scan
		}
		if update.Queue != nil {
			m.queue = *update.Queue
		}
		if update.Detail != nil {
			m.detail = *update.Detail
		}
		return m, m.waitForPoll()

	case MsgSaveDue:
		update := msg.data.(models.TrackUpdate)
		return m, tea.Batch(m.saveTrack(update), m.waitForSave())

	case MsgTrackSaved:
		data := msg.data.(struct {
			update models.TrackUpdate
			err    error
		})
		if data.err != nil {
			return m, m.reportError(data.err)
		}
		cmds := []tea.Cmd{m.notices.push("Changes saved", NoticeSuccess)}
		if m.file != nil {
			cmds = append(cmds, m.fetchFile(m.file.ID))
		}
		return m, tea.Batch(cmds...)

	case MsgScanStarted:
		if err, ok := msg.data.(error); ok && err != nil {
			return m, m.reportError(err)
		}
		return m, m.notices.push("Scan started", NoticeSuccess)

	case MsgQueued:
		data := msg.data.(struct {
			id  int64
			err error
		})
		if data.err != nil {
			return m, m.reportError(data.err)
		}
		return m, m.notices.push("File queued for processing", NoticeSuccess)

	case MsgNotice:
		data := msg.data.(struct {
			text     string
			severity Severity
		})
		return m, tea.Batch(m.notices.push(data.text, data.severity), m.waitForNotify())

	case MsgNoticeExpired:
		m.notices.expire(msg.data.(int))
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Medley"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	if banner := m.notices.render(); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.view {
	case LibraryView:
		b.WriteString(m.renderLibrary())
	case DetailView:
		b.WriteString(m.renderDetail())
	case EditView:
		b.WriteString(m.renderDetail())
		b.WriteString("\n\n")
		b.WriteString(m.renderEditor())
	}

	return b.String()
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.listReady && m.mediaList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.mediaList, cmd = m.mediaList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if !m.listReady {
			return m, nil
		}
		if item, ok := m.mediaList.SelectedItem().(mediaItem); ok {
			m.poller.Focus(item.file.ID)
			m.detail = poll.DetailStatus{}
			return m, m.fetchFile(item.file.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.scan):
		return m, m.startScan()
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchFiles()
	}

	if !m.listReady {
		return m, nil
	}
	var cmd tea.Cmd
	m.mediaList, cmd = m.mediaList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.trackRows()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = LibraryView
		m.file = nil
		m.cursor = 0
		m.poller.Focus(0)
		m.detail = poll.DetailStatus{}
		return m, nil
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.edit):
		return m.beginEdit(fieldTitle)
	case key.Matches(msg, m.keys.language):
		return m.beginEdit(fieldLanguage)
	case key.Matches(msg, m.keys.queue):
		if m.file == nil {
			return m, nil
		}
		return m, m.queueFile(m.file.ID)
	case key.Matches(msg, m.keys.refresh):
		if m.file == nil {
			return m, nil
		}
		return m, m.fetchFile(m.file.ID)
	}

	return m, nil
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.saver.Cancel(m.editKey)
		m.view = DetailView
		return m, nil
	case "enter":
		// enter bypasses the debounce and saves right away
		m.saver.Cancel(m.editKey)
		update := m.pendingUpdate()
		m.view = DetailView
		return m, m.saveTrack(update)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	update := m.pendingUpdate()
	m.saver.Call(m.editKey, func() {
		select {
		case m.saveChan <- update:
		default:
		}
	})

	return m, cmd
}

// beginEdit opens an inline editor on the selected track row.
func (m *Model) beginEdit(field editField) (tea.Model, tea.Cmd) {
	rows := m.trackRows()
	if len(rows) == 0 {
		return m, nil
	}

	row := rows[m.cursor]
	m.editRow = row
	m.editKey = saveKey{trackType: row.trackType, trackID: row.id, field: field}

	m.input = textinput.New()
	if field == fieldTitle {
		m.input.SetValue(row.title)
	} else {
		m.input.SetValue(row.language)
	}
	m.input.CursorEnd()
	m.input.Focus()
	m.view = EditView

	return m, textinput.Blink
}

// pendingUpdate builds the save payload for the current edit session.
// The untouched field keeps its stored pending value so the save does
// not clear it.
func (m *Model) pendingUpdate() models.TrackUpdate {
	update := models.TrackUpdate{
		TrackType: m.editKey.trackType,
		TrackID:   m.editKey.trackID,
		Title:     m.editRow.pendingTitle,
		Language:  m.editRow.pendingLanguage,
	}
	if m.editKey.field == fieldTitle {
		update.Title = m.input.Value()
	} else {
		update.Language = m.input.Value()
	}
	return update
}

// trackRows flattens the focused file's audio and subtitle tracks into
// the detail table's row order.
func (m *Model) trackRows() []trackRow {
	if m.file == nil {
		return nil
	}

	rows := make([]trackRow, 0, len(m.file.AudioTracks)+len(m.file.SubtitleTracks))
	for i := range m.file.AudioTracks {
		t := &m.file.AudioTracks[i]
		rows = append(rows, trackRow{
			trackType:       models.TrackAudio,
			id:              t.ID,
			index:           t.TrackIndex,
			title:           t.EffectiveTitle(),
			language:        t.EffectiveLanguage(),
			pendingTitle:    t.NewTitle,
			pendingLanguage: t.NewLanguage,
			modified:        t.IsModified,
		})
	}
	for i := range m.file.SubtitleTracks {
		t := &m.file.SubtitleTracks[i]
		rows = append(rows, trackRow{
			trackType:       models.TrackSubtitle,
			id:              t.ID,
			index:           t.TrackIndex,
			title:           t.EffectiveTitle(),
			language:        t.EffectiveLanguage(),
			pendingTitle:    t.NewTitle,
			pendingLanguage: t.NewLanguage,
			modified:        t.IsModified,
		})
	}
	return rows
}

func (m *Model) fetchFiles() tea.Cmd {
	return func() tea.Msg {
		files, err := m.library.MediaFiles(m.ctx, "", "")
		return filesFetchedMsg(files, err)
	}
}

func (m *Model) fetchFile(id int64) tea.Cmd {
	return func() tea.Msg {
		file, err := m.library.MediaFile(m.ctx, id)
		return fileFetchedMsg(file, err)
	}
}

func (m *Model) saveTrack(update models.TrackUpdate) tea.Cmd {
	return func() tea.Msg {
		return trackSavedMsg(update, m.library.UpdateTrack(m.ctx, update))
	}
}

func (m *Model) startScan() tea.Cmd {
	return func() tea.Msg {
		return scanStartedMsg(m.library.StartScan(m.ctx))
	}
}

func (m *Model) queueFile(id int64) tea.Cmd {
	return func() tea.Msg {
		return queuedMsg(id, m.library.QueueProcessing(m.ctx, id))
	}
}

func (m *Model) waitForPoll() tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-m.poller.Updates():
			return pollUpdateMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForSave() tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-m.saveChan:
			return saveDueMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForNotify() tea.Cmd {
	return func() tea.Msg {
		select {
		case text := <-m.notifications:
			return noticeMsg(text, NoticeError)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// reportError logs a failed command. The API client's notifier already
// raises the user-facing banner for request failures; anything else
// gets the generic banner so no failure is silent.
func (m *Model) reportError(err error) tea.Cmd {
	m.logger.Error("command failed", "error", err)
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		return nil
	}
	return m.notices.push("An unexpected error occurred", NoticeError)
}

// renderStatus is the two-line scan and queue header shown on every view.
func (m *Model) renderStatus() string {
	scan := styles.ok.Render(m.scan.Text())
	if m.scan.Active {
		scan = fmt.Sprintf("%s %s", styles.warn.Render(m.scan.Text()), m.gauge.ViewAs(m.scan.Progress/100))
	}

	queue := styles.ok.Render(m.queue.Text())
	if m.queue.Active {
		queue = styles.warn.Render(m.queue.Text())
	}

	return fmt.Sprintf("%s\n%s", scan, queue)
}

func (m *Model) renderLibrary() string {
	if !m.listReady {
		return styles.help.Render("Loading library...")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.scan, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.mediaList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderDetail() string {
	if m.file == nil {
		return styles.help.Render("Loading file...")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(m.file.DisplayTitle()))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Path: %s\n", m.file.FilePath))
	b.WriteString(fmt.Sprintf("Size: %s", shared.FormatFileSize(m.file.FileSize)))
	if m.file.Duration > 0 {
		b.WriteString(fmt.Sprintf(" • %s", shared.FormatDuration(m.file.Duration)))
	}
	if m.file.VideoCodec != "" {
		b.WriteString(fmt.Sprintf(" • %s", m.file.VideoCodec))
	}
	b.WriteString("\n\n")

	rows := m.trackRows()
	if len(rows) == 0 {
		b.WriteString(styles.help.Render("No tracks"))
	}
	for i, row := range rows {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		mod := ""
		if row.modified {
			mod = styles.warn.Render(" *")
		}
		title := row.title
		if title == "" {
			title = "(untitled)"
		}
		b.WriteString(fmt.Sprintf("%s%s %d: %s [%s]%s\n", marker, row.trackType, row.index, title, row.language, mod))
	}

	if m.detail.Visible {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Processing: %s %.1f%%", m.gauge.ViewAs(m.detail.Progress/100), m.detail.Progress))
		b.WriteString("\n")
	}

	if m.view == DetailView {
		helpKeys := []key.Binding{m.keys.edit, m.keys.language, m.keys.queue, m.keys.back, m.keys.quit}
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(helpKeys))
	}

	return b.String()
}

func (m *Model) renderEditor() string {
	label := "Title"
	if m.editKey.field == fieldLanguage {
		label = "Language"
	}
	hint := styles.help.Render("enter save • esc cancel")
	return fmt.Sprintf("%s: %s\n%s", label, m.input.View(), hint)
}
