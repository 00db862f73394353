// package formatter provides functions to export the library inventory to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// Format names accepted by [WriteExport].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// ExportToCSV converts the library to CSV with one row per track.
// Files without probed tracks still get a row carrying the file columns.
func ExportToCSV(files []*models.MediaFile) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"File ID", "Filename", "Type", "Title", "Size", "Track Type", "Track Index", "Track Title", "Language", "Codec", "Modified"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, file := range files {
		base := []string{
			strconv.FormatInt(file.ID, 10),
			file.Filename,
			string(file.MediaType),
			file.DisplayTitle(),
			shared.FormatFileSize(file.FileSize),
		}

		rows := trackRecords(file)
		if len(rows) == 0 {
			rows = [][]string{{"", "", "", "", "", ""}}
		}
		for _, row := range rows {
			if err := writer.Write(append(base, row...)); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// trackRecords returns the per-track CSV columns for a file.
func trackRecords(file *models.MediaFile) [][]string {
	var rows [][]string
	for _, t := range file.AudioTracks {
		rows = append(rows, []string{
			string(models.TrackAudio),
			strconv.Itoa(t.TrackIndex),
			t.EffectiveTitle(),
			t.EffectiveLanguage(),
			t.Codec,
			strconv.FormatBool(t.IsModified),
		})
	}
	for _, t := range file.SubtitleTracks {
		rows = append(rows, []string{
			string(models.TrackSubtitle),
			strconv.Itoa(t.TrackIndex),
			t.EffectiveTitle(),
			t.EffectiveLanguage(),
			t.Codec,
			strconv.FormatBool(t.IsModified),
		})
	}
	return rows
}

// ExportToMarkdown converts the library to Markdown, grouped by media
// type with a track table per file.
func ExportToMarkdown(files []*models.MediaFile) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Media Library\n\n")
	buf.WriteString(fmt.Sprintf("**Files**: %d\n\n", len(files)))

	for _, section := range groupByType(files) {
		buf.WriteString(fmt.Sprintf("## %s\n\n", section.title))

		for _, file := range section.files {
			buf.WriteString(fmt.Sprintf("### %s\n\n", file.DisplayTitle()))
			buf.WriteString(fmt.Sprintf("**Size**: %s", shared.FormatFileSize(file.FileSize)))
			if file.Duration > 0 {
				buf.WriteString(fmt.Sprintf(" · **Duration**: %s", shared.FormatDuration(file.Duration)))
			}
			if file.VideoCodec != "" {
				buf.WriteString(fmt.Sprintf(" · **Codec**: %s", file.VideoCodec))
			}
			buf.WriteString("\n\n")

			if len(file.AudioTracks) == 0 && len(file.SubtitleTracks) == 0 {
				continue
			}

			buf.WriteString("| Track | Index | Title | Language | Modified |\n")
			buf.WriteString("|-------|-------|-------|----------|----------|\n")
			for _, t := range file.AudioTracks {
				buf.WriteString(fmt.Sprintf("| audio | %d | %s | %s | %s |\n",
					t.TrackIndex, t.EffectiveTitle(), t.EffectiveLanguage(), markdownBool(t.IsModified)))
			}
			for _, t := range file.SubtitleTracks {
				buf.WriteString(fmt.Sprintf("| subtitle | %d | %s | %s | %s |\n",
					t.TrackIndex, t.EffectiveTitle(), t.EffectiveLanguage(), markdownBool(t.IsModified)))
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

func markdownBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ExportToText converts the library to a plain text listing.
func ExportToText(files []*models.MediaFile) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Media Library: %d file(s)\n\n", len(files)))

	for i, file := range files {
		buf.WriteString(fmt.Sprintf("%d. %s (%s)\n", i+1, file.DisplayTitle(), shared.FormatFileSize(file.FileSize)))
		for _, t := range file.AudioTracks {
			buf.WriteString(fmt.Sprintf("   audio %d: %s [%s]\n", t.TrackIndex, t.EffectiveTitle(), t.EffectiveLanguage()))
		}
		for _, t := range file.SubtitleTracks {
			buf.WriteString(fmt.Sprintf("   subtitle %d: %s [%s]\n", t.TrackIndex, t.EffectiveTitle(), t.EffectiveLanguage()))
		}
	}

	return buf.Bytes(), nil
}

// section is one media type group of the Markdown export.
type section struct {
	title string
	files []*models.MediaFile
}

// groupByType splits files into movie, TV, and unclassified sections,
// each sorted by display title. Empty sections are dropped.
func groupByType(files []*models.MediaFile) []section {
	buckets := map[models.MediaType][]*models.MediaFile{}
	for _, file := range files {
		buckets[file.MediaType] = append(buckets[file.MediaType], file)
	}

	sections := []section{
		{title: "Movies", files: buckets[models.MediaMovie]},
		{title: "TV Shows", files: buckets[models.MediaTV]},
		{title: "Unclassified", files: buckets[""]},
	}

	out := sections[:0]
	for _, s := range sections {
		if len(s.files) == 0 {
			continue
		}
		sort.Slice(s.files, func(i, j int) bool {
			return s.files[i].DisplayTitle() < s.files[j].DisplayTitle()
		})
		out = append(out, s)
	}
	return out
}

// WriteExport renders the library in the named format and writes it to
// path, returning the path written.
func WriteExport(files []*models.MediaFile, format, path string) (string, error) {
	var data []byte
	var err error

	switch format {
	case FormatCSV:
		data, err = ExportToCSV(files)
	case FormatMarkdown:
		data, err = ExportToMarkdown(files)
	case FormatText:
		data, err = ExportToText(files)
	default:
		return "", fmt.Errorf("unknown export format: %s", format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	if path == "" {
		path = "library." + extensionFor(format)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func extensionFor(format string) string {
	switch format {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return format
	}
}
