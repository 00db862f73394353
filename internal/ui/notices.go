package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Severity selects the style a notice is rendered with.
type Severity int

const (
	NoticeInfo Severity = iota
	NoticeSuccess
	NoticeWarn
	NoticeError
)

// Notice is one transient banner entry.
type Notice struct {
	ID       int
	Text     string
	Severity Severity
}

// noticeBoard holds the visible notices in arrival order. Each push
// schedules its own expiry, so overlapping notices stack and clear
// independently.
type noticeBoard struct {
	notices []Notice
	ttl     time.Duration
	nextID  int
}

func newNoticeBoard(ttl time.Duration) *noticeBoard {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &noticeBoard{ttl: ttl}
}

// push adds a notice and returns the command that expires it.
func (b *noticeBoard) push(text string, severity Severity) tea.Cmd {
	b.nextID++
	id := b.nextID
	b.notices = append(b.notices, Notice{ID: id, Text: text, Severity: severity})

	return tea.Tick(b.ttl, func(time.Time) tea.Msg {
		return noticeExpiredMsg(id)
	})
}

// expire drops the notice with the given id, if still visible.
func (b *noticeBoard) expire(id int) {
	for i, n := range b.notices {
		if n.ID == id {
			b.notices = append(b.notices[:i], b.notices[i+1:]...)
			return
		}
	}
}

// render returns the banner block, one styled line per notice, or an
// empty string when nothing is visible.
func (b *noticeBoard) render() string {
	if len(b.notices) == 0 {
		return ""
	}

	lines := make([]string, len(b.notices))
	for i, n := range b.notices {
		switch n.Severity {
		case NoticeSuccess:
			lines[i] = styles.ok.Render(n.Text)
		case NoticeWarn:
			lines[i] = styles.warn.Render(n.Text)
		case NoticeError:
			lines[i] = styles.err.Render(n.Text)
		default:
			lines[i] = styles.help.Render(n.Text)
		}
	}
	return strings.Join(lines, "\n")
}
