package main

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/medley/internal/poll"
	"github.com/desertthunder/medley/internal/services"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/ui"
	"github.com/urfave/cli/v3"
)

// Dashboard launches the interactive library dashboard against a
// running API server.
func (r *Runner) Dashboard(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("server")
	if baseURL == "" {
		baseURL = r.config.Client.BaseURL
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/medley-dashboard.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	notifyCh := make(chan string, 8)
	api := services.NewAPIService(baseURL, r.httpClient)
	library := services.NewLibraryService(api, fileLogger, func(message string) {
		select {
		case notifyCh <- message:
		default:
		}
	})

	if err := library.Health(ctx); err != nil {
		return fmt.Errorf("cannot reach server at %s: %w", baseURL, err)
	}

	poller := poll.NewPoller(library, r.config.Client.PollInterval(), poll.MatchSubstring, fileLogger)
	model := ui.NewModel(ctx, library, poller, notifyCh, r.config.Client, fileLogger)

	if target := cmd.String("media"); target != "" {
		id, ok := poll.MediaIDFromPath(target)
		if !ok {
			id, err = strconv.ParseInt(target, 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("%w: --media accepts an ID or a /media/<id> path", shared.ErrInvalidFlag)
			}
		}
		poller.Focus(id)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running dashboard: %w", err)
	}

	return nil
}
