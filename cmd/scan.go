package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/medley/internal/services"
	"github.com/desertthunder/medley/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Scan runs a one-shot library scan against the local database,
// printing progress as folders are walked and files are probed.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	folderID := int64(cmd.Int("folder"))

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	prober := services.NewFFProbe(r.config.Scanner.FFProbePath, r.logger)
	engine := tasks.NewScanEngine(db, prober, r.config.Scanner, r.logger)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ProbeFiles:
				r.writePlain("📂 [%d/%d] %s\n", update.Step, update.Total, update.Message)
			default:
				r.writePlain("📂 %s\n", update.Message)
			}
		}
	}()

	if folderID > 0 {
		err = engine.ScanFolder(ctx, folderID, progressCh)
	} else {
		err = engine.Scan(ctx, progressCh)
	}
	close(progressCh)
	<-done

	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	r.writePlainln("✓ Scan complete")
	return nil
}
