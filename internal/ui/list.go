package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

var _ list.Item = mediaItem{}

// mediaItem wraps [models.MediaFile] to implement [list.Item].
type mediaItem struct {
	file *models.MediaFile
}

func (i mediaItem) FilterValue() string { return i.file.Filename }
func (i mediaItem) Title() string       { return i.file.DisplayTitle() }
func (i mediaItem) Description() string {
	desc := shared.FormatFileSize(i.file.FileSize)
	if i.file.Resolution != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.file.Resolution)
	}
	if i.file.ProcessStatus == models.ProcessPending {
		desc = fmt.Sprintf("%s • edits pending", desc)
	}
	return desc
}
