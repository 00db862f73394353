// ffprobe wrapper for stream and container inspection
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// ProbeResult is the stream inventory of one media file. Track indexes
// count per stream type (the second audio stream is audio index 1),
// matching how ffmpeg addresses streams with -map 0:a:<n>.
type ProbeResult struct {
	Duration   float64
	VideoCodec string
	Resolution string
	Audio      []models.AudioTrack
	Subtitles  []models.SubtitleTrack
}

// Prober inspects a media file. The scan engine depends on this
// interface so tests can substitute canned results for ffprobe.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// FFProbe runs the ffprobe binary and parses its JSON output.
type FFProbe struct {
	binary string
	logger *log.Logger
}

// NewFFProbe creates a prober for the given binary path. Empty binary
// falls back to "ffprobe" on PATH.
func NewFFProbe(binary string, logger *log.Logger) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &FFProbe{binary: binary, logger: logger}
}

var _ Prober = (*FFProbe)(nil)

// Check verifies the binary is resolvable, wrapping
// [shared.ErrToolMissing] when it is not.
func (p *FFProbe) Check() error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrToolMissing, p.binary)
	}
	return nil
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType   string            `json:"codec_type"`
	CodecName   string            `json:"codec_name"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Channels    int               `json:"channels"`
	SampleRate  string            `json:"sample_rate"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// Probe inspects path with `ffprobe -print_format json -show_format
// -show_streams` and maps the streams into track rows.
func (p *FFProbe) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("ffprobe failed: %s", exitErr.Stderr)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	result := parseProbe(&probe)
	p.logger.Debug("probed file", "path", path,
		"audio", len(result.Audio), "subtitles", len(result.Subtitles))

	return result, nil
}

// parseProbe maps raw ffprobe JSON onto a [ProbeResult]. Duration,
// codec and resolution come from the first video stream; files with no
// video stream keep zero values, matching how image-only or corrupt
// containers are stored.
func parseProbe(probe *probeOutput) *ProbeResult {
	result := &ProbeResult{}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if result.VideoCodec != "" {
				continue
			}
			result.VideoCodec = stream.CodecName
			result.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
			if stream.Width > 0 && stream.Height > 0 {
				result.Resolution = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
			}
		case "audio":
			rate, _ := strconv.Atoi(stream.SampleRate)
			result.Audio = append(result.Audio, models.AudioTrack{
				TrackIndex:       len(result.Audio),
				OriginalTitle:    stream.Tags["title"],
				OriginalLanguage: stream.Tags["language"],
				Codec:            stream.CodecName,
				Channels:         stream.Channels,
				SampleRate:       rate,
			})
		case "subtitle":
			result.Subtitles = append(result.Subtitles, models.SubtitleTrack{
				TrackIndex:       len(result.Subtitles),
				OriginalTitle:    stream.Tags["title"],
				OriginalLanguage: stream.Tags["language"],
				Codec:            stream.CodecName,
				IsForced:         stream.Disposition["forced"] == 1,
				IsDefault:        stream.Disposition["default"] == 1,
			})
		}
	}

	return result
}
