package tasks

import (
	"fmt"
	"path/filepath"

	"github.com/desertthunder/medley/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	WalkFolder Phase = iota
	ProbeFiles
	CleanupMissing
)

func (p Phase) String() string {
	switch p {
	case WalkFolder:
		return "walk_folder"
	case ProbeFiles:
		return "probe_files"
	case CleanupMissing:
		return "cleanup_missing"
	default:
		return ""
	}
}

func walkFolderUpdate(step, total int, folder *models.MediaFolder) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WalkFolder,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Scanning %s...", step, total, folder.Path),
		Data:    folder,
	}
}

func probeFileUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, filepath.Base(path)),
	}
}

func probeFailedUpdate(step, total int, path string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, filepath.Base(path), err),
	}
}

func cleanupUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CleanupMissing,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Removing missing file: %s", filepath.Base(path)),
	}
}
