package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/medley/internal/formatter"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/urfave/cli/v3"
)

// Export writes the library inventory to a file. Reads the database
// directly so it works without a running server.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	out := cmd.String("out")

	switch format {
	case formatter.FormatCSV, formatter.FormatMarkdown, formatter.FormatText:
	default:
		return fmt.Errorf("%w: format must be csv, markdown or text", shared.ErrInvalidFlag)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	media := repositories.NewMediaRepository(db)
	tracks := repositories.NewTrackRepository(db)

	files, err := media.List(map[string]any{"scan_status": models.ScanCompleted})
	if err != nil {
		return fmt.Errorf("failed to load media files: %w", err)
	}

	for _, file := range files {
		audio, subtitles, err := tracks.ForFile(file.ID)
		if err != nil {
			return fmt.Errorf("failed to load tracks for %s: %w", file.Filename, err)
		}
		file.AudioTracks = audio
		file.SubtitleTracks = subtitles
	}

	path, err := formatter.WriteExport(files, format, out)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d file(s) to %s\n", len(files), path)
	return nil
}
