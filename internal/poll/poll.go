// Package poll keeps dashboard status indicators consistent with the
// server's scan and processing state.
//
// [Poller] fetches the two status endpoints on a fixed cadence, both
// immediately at startup and then every interval. The fetches are
// independent and overlapping cycles are permitted; every request is
// tagged with a per-endpoint sequence number at issue time and a
// response is applied only when its tag is newer than the last applied
// one, so a slow response can never overwrite a fresher snapshot.
//
// The reconciliation itself is pure: [ScanStatus], [QueueStatus],
// [MatchJob], and [MediaIDFromPath] carry no UI or transport state and
// are exercised directly by the dashboard views.
package poll

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// Client reads the two status endpoints. [services.LibraryService]
// satisfies it; tests substitute canned snapshots.
type Client interface {
	ScanProgress(ctx context.Context) (*models.ScanProgress, error)
	ProcessingStatus(ctx context.Context) ([]models.JobStatus, error)
}

// ScanStatus is the reconciled scan indicator state.
type ScanStatus struct {
	Progress float64
	Active   bool
}

// NewScanStatus derives the indicator state from a progress snapshot.
// The indicator stays active until progress reaches 100.
func NewScanStatus(progress float64) ScanStatus {
	return ScanStatus{Progress: progress, Active: progress < 100}
}

// Text returns the scan indicator line.
func (s ScanStatus) Text() string {
	if s.Active {
		return fmt.Sprintf("Scanning... %.1f%%", s.Progress)
	}
	return "Scan Complete"
}

// Label returns the gauge label for the current percentage.
func (s ScanStatus) Label() string {
	return fmt.Sprintf("%.1f%%", s.Progress)
}

// QueueStatus is the reconciled processing indicator state.
type QueueStatus struct {
	Jobs   []models.JobStatus
	Active bool
}

// NewQueueStatus derives the indicator state from a job snapshot.
func NewQueueStatus(jobs []models.JobStatus) QueueStatus {
	return QueueStatus{Jobs: jobs, Active: len(jobs) > 0}
}

// Text returns the processing indicator line.
func (s QueueStatus) Text() string {
	if len(s.Jobs) == 0 {
		return "Ready"
	}
	return fmt.Sprintf("Processing %d file(s)", len(s.Jobs))
}

// DetailStatus is the per-file progress gauge state, visible only
// while the focused file's job is running.
type DetailStatus struct {
	Visible  bool
	Progress float64
}

// MatchMode selects how jobs are matched to the focused media file.
type MatchMode int

const (
	// MatchSubstring takes the first job whose filename contains the
	// focused id's decimal form, case-insensitively. Two files whose
	// names share the digits collide and the first in server order
	// wins; kept as the default because it needs nothing beyond the
	// filename.
	MatchSubstring MatchMode = iota
	// MatchExact takes the first job whose media_file_id equals the
	// focused id.
	MatchExact
)

// MatchJob finds the focused file's job in a status snapshot. The
// second return is false when no job matches.
func MatchJob(jobs []models.JobStatus, mediaID int64, mode MatchMode) (models.JobStatus, bool) {
	if mediaID <= 0 {
		return models.JobStatus{}, false
	}

	needle := strconv.FormatInt(mediaID, 10)
	for _, job := range jobs {
		switch mode {
		case MatchExact:
			if job.MediaFileID == mediaID {
				return job, true
			}
		default:
			if strings.Contains(strings.ToLower(job.MediaFile), needle) {
				return job, true
			}
		}
	}

	return models.JobStatus{}, false
}

// reconcileDetail turns a matched job into gauge state. Only a running
// job shows the gauge; queued and finishing jobs keep it hidden.
func reconcileDetail(jobs []models.JobStatus, mediaID int64, mode MatchMode) DetailStatus {
	job, ok := MatchJob(jobs, mediaID, mode)
	if !ok || job.Status != string(models.JobProcessing) {
		return DetailStatus{}
	}
	return DetailStatus{Visible: true, Progress: job.Progress}
}

var mediaPathPattern = regexp.MustCompile(`^/media/(\d+)(?:/|$)`)

// MediaIDFromPath extracts the media file id from a detail page path
// of the form /media/<digits>. Trailing segments are allowed; paths
// without a numeric id report false.
func MediaIDFromPath(path string) (int64, bool) {
	m := mediaPathPattern.FindStringSubmatch(path)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Update is one reconciled snapshot delivered to the UI. Exactly one
// of Scan or Queue is set, depending on which endpoint answered;
// Detail accompanies Queue while a media file is focused.
type Update struct {
	Scan   *ScanStatus
	Queue  *QueueStatus
	Detail *DetailStatus
}

// Poller drives the two status fetches. Construct with [NewPoller],
// consume [Poller.Updates], and call [Poller.Run] from a goroutine.
type Poller struct {
	client   Client
	logger   *log.Logger
	interval time.Duration
	mode     MatchMode
	updates  chan Update

	focus atomic.Int64

	scanSeq     atomic.Uint64
	scanApplied atomic.Uint64
	jobSeq      atomic.Uint64
	jobApplied  atomic.Uint64
}

// NewPoller creates a poller over client. A zero interval falls back
// to five seconds; a nil logger falls back to the shared stderr logger.
func NewPoller(client Client, interval time.Duration, mode MatchMode, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Poller{
		client:   client,
		logger:   logger,
		interval: interval,
		mode:     mode,
		updates:  make(chan Update, 16),
	}
}

// Updates returns the channel reconciled snapshots arrive on. Sends
// never block; a consumer that falls behind loses intermediate
// snapshots, not the latest one.
func (p *Poller) Updates() <-chan Update {
	return p.updates
}

// Focus sets the media file whose job progress the detail gauge
// tracks. Zero clears the focus and hides the gauge on the next cycle.
func (p *Poller) Focus(mediaID int64) {
	p.focus.Store(mediaID)
}

// Run fetches both endpoints immediately, then on every tick until ctx
// ends. Each fetch runs in its own goroutine so a slow endpoint never
// delays the other.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll starts one fetch cycle without waiting for it to finish. The
// dashboard's refresh key calls this between ticks.
func (p *Poller) Poll(ctx context.Context) {
	go p.pollScan(ctx)
	go p.pollJobs(ctx)
}

// pollScan reconciles the scan endpoint. Failures are logged and the
// previously displayed state is left untouched until the next cycle.
func (p *Poller) pollScan(ctx context.Context) {
	seq := p.scanSeq.Add(1)

	progress, err := p.client.ScanProgress(ctx)
	if err != nil {
		p.logger.Error("scan progress poll failed", "error", err)
		return
	}
	if !applyNewer(&p.scanApplied, seq) {
		p.logger.Debug("discarding stale scan response", "seq", seq)
		return
	}

	status := NewScanStatus(progress.Progress)
	p.send(Update{Scan: &status})
}

// pollJobs reconciles the processing endpoint and, while a file is
// focused, the detail gauge derived from the same snapshot.
func (p *Poller) pollJobs(ctx context.Context) {
	seq := p.jobSeq.Add(1)

	jobs, err := p.client.ProcessingStatus(ctx)
	if err != nil {
		p.logger.Error("processing status poll failed", "error", err)
		return
	}
	if !applyNewer(&p.jobApplied, seq) {
		p.logger.Debug("discarding stale job response", "seq", seq)
		return
	}

	status := NewQueueStatus(jobs)
	update := Update{Queue: &status}
	if id := p.focus.Load(); id > 0 {
		detail := reconcileDetail(jobs, id, p.mode)
		update.Detail = &detail
	}
	p.send(update)
}

// applyNewer records seq as applied when it is newer than the last
// applied tag, reporting whether the caller's response should be used.
func applyNewer(applied *atomic.Uint64, seq uint64) bool {
	for {
		last := applied.Load()
		if seq <= last {
			return false
		}
		if applied.CompareAndSwap(last, seq) {
			return true
		}
	}
}

func (p *Poller) send(update Update) {
	select {
	case p.updates <- update:
	default:
	}
}
