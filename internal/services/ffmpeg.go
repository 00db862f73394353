// ffmpeg wrapper for metadata remuxing and preview extraction
package services

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/shared"
	"golang.org/x/text/language"
)

// TrackMeta carries the pending metadata for one stream: the per-type
// stream index ffmpeg addresses with -metadata:s:a:<n> or
// -metadata:s:s:<n>, plus the values to write. Empty fields are left
// untouched.
type TrackMeta struct {
	Index    int
	Title    string
	Language string
}

// RemuxPlan describes a single metadata rewrite: copy every stream of
// Source into Dest and retag the listed tracks. Duration is the source
// runtime in seconds, used to turn ffmpeg's elapsed-time output into a
// percentage.
type RemuxPlan struct {
	Source    string
	Dest      string
	Duration  float64
	Audio     []TrackMeta
	Subtitles []TrackMeta
}

// Remuxer rewrites container metadata without re-encoding. onProgress,
// when non-nil, receives percentages in [0, 95] as the run advances.
type Remuxer interface {
	Remux(ctx context.Context, plan RemuxPlan, onProgress func(float64)) error
}

// FFMpeg shells out to the ffmpeg binary.
type FFMpeg struct {
	binary string
	logger *log.Logger
}

var _ Remuxer = (*FFMpeg)(nil)

// NewFFMpeg builds a runner for the given binary, defaulting to the
// ffmpeg on PATH.
func NewFFMpeg(binary string, logger *log.Logger) *FFMpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FFMpeg{binary: binary, logger: logger}
}

// Check verifies the binary is reachable.
func (f *FFMpeg) Check() error {
	if _, err := exec.LookPath(f.binary); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrToolMissing, f.binary)
	}
	return nil
}

// remuxArgs builds the argument list for a plan: map every stream,
// copy every codec, and rewrite only the planned tags.
func remuxArgs(plan RemuxPlan) []string {
	args := []string{"-i", plan.Source, "-map", "0", "-c", "copy"}
	args = appendTrackMeta(args, "a", plan.Audio)
	args = appendTrackMeta(args, "s", plan.Subtitles)
	return append(args, "-y", plan.Dest)
}

func appendTrackMeta(args []string, streamType string, tracks []TrackMeta) []string {
	for _, t := range tracks {
		spec := fmt.Sprintf("-metadata:s:%s:%d", streamType, t.Index)
		if t.Title != "" {
			args = append(args, spec, "title="+t.Title)
		}
		if t.Language != "" {
			args = append(args, spec, "language="+NormalizeLanguage(t.Language))
		}
	}
	return args
}

// Remux runs the plan, streaming progress from ffmpeg's stderr. The
// reported percentage is capped at 95 so the caller keeps the last few
// points for its own finalization steps.
func (f *FFMpeg) Remux(ctx context.Context, plan RemuxPlan, onProgress func(float64)) error {
	cmd := exec.CommandContext(ctx, f.binary, remuxArgs(plan)...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitStatusLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f.logger.Debug("ffmpeg", "line", line)
		tail = append(tail, line)
		if len(tail) > 20 {
			tail = tail[1:]
		}
		if progress, ok := parseProgress(line, plan.Duration); ok && onProgress != nil {
			onProgress(progress)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.Join(tail, "; "))
	}
	return nil
}

// ExtractAudioClip renders a ten second mp3 snippet of one audio track
// for in-browser preview. startSec picks the offset into the file;
// negative values clamp to the start.
func (f *FFMpeg) ExtractAudioClip(ctx context.Context, path string, trackIndex, startSec int) ([]byte, error) {
	if startSec < 0 {
		startSec = 0
	}

	tmp, err := os.CreateTemp("", "medley-preview-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview file: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	args := []string{
		"-v", "error",
		"-ss", strconv.Itoa(startSec),
		"-i", path,
		"-map", fmt.Sprintf("0:a:%d", trackIndex),
		"-t", "10",
		"-acodec", "mp3",
		"-ab", "128k",
		"-y", tmp.Name(),
	}
	if err := f.run(ctx, args); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read preview file: %w", err)
	}
	return data, nil
}

// ExtractSubtitle pulls up to ten minutes of one subtitle track as SRT
// text, starting past the opening credits.
func (f *FFMpeg) ExtractSubtitle(ctx context.Context, path string, trackIndex int) (string, error) {
	tmp, err := os.CreateTemp("", "medley-preview-*.srt")
	if err != nil {
		return "", fmt.Errorf("failed to create preview file: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	args := []string{
		"-v", "error",
		"-ss", "60",
		"-i", path,
		"-map", fmt.Sprintf("0:s:%d", trackIndex),
		"-t", "600",
		"-f", "srt",
		"-y", tmp.Name(),
	}
	if err := f.run(ctx, args); err != nil {
		return "", err
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read preview file: %w", err)
	}
	return string(data), nil
}

// run executes a short ffmpeg command, surfacing stderr on failure.
func (f *FFMpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// splitStatusLines tokenizes on newlines or carriage returns so that
// ffmpeg's in-place status updates, which end with \r instead of \n,
// still surface as individual lines.
func splitStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var progressPattern = regexp.MustCompile(`time=(\d+):(\d+):(\d+)(?:\.(\d+))?`)

// parseProgress reads the elapsed timestamp from an ffmpeg status line
// and converts it to a percentage of the total duration.
func parseProgress(line string, duration float64) (float64, bool) {
	if duration <= 0 {
		return 0, false
	}
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	elapsed := float64(hours*3600 + minutes*60 + seconds)
	if m[4] != "" {
		if frac, err := strconv.ParseFloat("0."+m[4], 64); err == nil {
			elapsed += frac
		}
	}
	return math.Min(95, elapsed/duration*100), true
}

// NormalizeLanguage maps a language code or BCP 47 tag to its
// three-letter ISO 639 form for container metadata. Anything it cannot
// resolve becomes "und", the tag players treat as undetermined.
func NormalizeLanguage(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "und"
	}
	if tag, err := language.Parse(key); err == nil {
		if base, conf := tag.Base(); conf >= language.High {
			return base.ISO3()
		}
	}
	if base, err := language.ParseBase(key); err == nil {
		return base.ISO3()
	}
	return "und"
}
