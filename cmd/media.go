package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/urfave/cli/v3"
)

// MediaList lists scanned media files through the API.
func (r *Runner) MediaList(ctx context.Context, cmd *cli.Command) error {
	mediaType := cmd.String("type")
	search := cmd.String("search")
	useJSON := cmd.Bool("json")

	files, err := r.library.MediaFiles(ctx, mediaType, search)
	if err != nil {
		return fmt.Errorf("failed to list media files: %w", err)
	}

	if useJSON {
		return r.writeJSON(files, true)
	}

	if len(files) == 0 {
		r.writePlain("No media files found. Run 'medley scan' first.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Media Files (%d)", len(files)))
	for _, file := range files {
		r.writePlain("%d. %s (%s)\n", file.ID, file.DisplayTitle(), shared.FormatFileSize(file.FileSize))
	}

	return nil
}

// MediaShow prints one file with its audio and subtitle tracks.
func (r *Runner) MediaShow(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd, "id")
	if err != nil {
		return err
	}
	useJSON := cmd.Bool("json")

	file, err := r.library.MediaFile(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch media file: %w", err)
	}

	if useJSON {
		return r.writeJSON(file, true)
	}

	r.writePlainHeader(file.DisplayTitle())
	r.writePlain("Path: %s\n", file.FilePath)
	r.writePlain("Size: %s\n", shared.FormatFileSize(file.FileSize))
	if file.Duration > 0 {
		r.writePlain("Duration: %s\n", shared.FormatDuration(file.Duration))
	}
	if file.VideoCodec != "" {
		r.writePlain("Video: %s (%s)\n", file.VideoCodec, file.Resolution)
	}

	if len(file.AudioTracks) > 0 {
		r.writePlainln("Audio tracks:")
		for _, t := range file.AudioTracks {
			r.writeTrack(string(models.TrackAudio), t.ID, t.TrackIndex, t.EffectiveTitle(), t.EffectiveLanguage(), t.IsModified)
		}
	}
	if len(file.SubtitleTracks) > 0 {
		r.writePlainln("Subtitle tracks:")
		for _, t := range file.SubtitleTracks {
			r.writeTrack(string(models.TrackSubtitle), t.ID, t.TrackIndex, t.EffectiveTitle(), t.EffectiveLanguage(), t.IsModified)
		}
	}

	return nil
}

func (r *Runner) writeTrack(kind string, id int64, index int, title, language string, modified bool) {
	marker := ""
	if modified {
		marker = " (edit pending)"
	}
	if title == "" {
		title = "(untitled)"
	}
	r.writePlain("  [%d] %s %d: %s [%s]%s\n", id, kind, index, title, language, marker)
}

// MediaSetTrack stores a pending title/language edit on a track.
func (r *Runner) MediaSetTrack(ctx context.Context, cmd *cli.Command) error {
	title := cmd.String("title")
	language := cmd.String("language")

	if title == "" && language == "" {
		return fmt.Errorf("%w: at least one of --title or --language is required", shared.ErrMissingArgument)
	}

	update := models.TrackUpdate{
		TrackType: models.TrackType(cmd.String("type")),
		TrackID:   int64(cmd.Int("track")),
		Title:     title,
		Language:  language,
	}
	if err := update.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	if err := r.library.UpdateTrack(ctx, update); err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	r.writePlain("✓ Track updated. Run 'medley media queue <file id>' to remux the change in.\n")
	return nil
}

// MediaQueue queues a file for processing so pending edits are applied.
func (r *Runner) MediaQueue(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd, "id")
	if err != nil {
		return err
	}

	if err := r.library.QueueProcessing(ctx, id); err != nil {
		return fmt.Errorf("failed to queue file: %w", err)
	}

	r.writePlain("✓ File %d queued for processing\n", id)
	return nil
}

// argID parses a positional integer argument.
func argID(cmd *cli.Command, name string) (int64, error) {
	raw := cmd.StringArg(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", shared.ErrInvalidArgument, name)
	}
	return id, nil
}
