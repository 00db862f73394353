package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/medley/internal/shared"
	"github.com/urfave/cli/v3"
)

// FoldersList lists the registered media folders.
func (r *Runner) FoldersList(ctx context.Context, cmd *cli.Command) error {
	folders, err := r.library.Folders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	if len(folders) == 0 {
		r.writePlain("No folders registered. Run 'medley folders add <path>'.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Media Folders (%d)", len(folders)))
	for _, folder := range folders {
		state := "active"
		if !folder.IsActive {
			state = "inactive"
		}
		r.writePlain("%d. %s (%s, %s)\n", folder.ID, folder.Name, folder.Path, state)
		if folder.LastScanned != nil {
			r.writePlain("   last scanned %s\n", folder.LastScanned.Format("2006-01-02 15:04"))
		}
	}

	return nil
}

// FoldersAdd registers a directory as a media folder. The server
// validates the path and starts scanning it in the background.
func (r *Runner) FoldersAdd(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	folder, err := r.library.AddFolder(ctx, abs, cmd.String("name"))
	if err != nil {
		return fmt.Errorf("failed to add folder: %w", err)
	}

	r.writePlain("✓ Folder %d registered: %s\n", folder.ID, folder.Path)
	r.writePlain("A scan of the new folder has been started.\n")
	return nil
}

// FoldersRemove deletes a folder together with its files.
func (r *Runner) FoldersRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd, "id")
	if err != nil {
		return err
	}

	if err := r.library.RemoveFolder(ctx, id); err != nil {
		return fmt.Errorf("failed to remove folder: %w", err)
	}

	r.writePlain("✓ Folder %d removed\n", id)
	return nil
}
