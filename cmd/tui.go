package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pictune/internal/auth"
	"github.com/desertthunder/pictune/internal/formatter"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/desertthunder/pictune/internal/tasks"
	"github.com/desertthunder/pictune/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing and exporting runs.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.database(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger("./tmp/pictune-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.runs, r.tuiExporter(cmd.Bool("public")), cmd.Bool("public"))
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiExporter authorizes once on the first export and reuses the session afterwards.
// Each attempt is recorded in the export history.
func (r *Runner) tuiExporter(public bool) ui.ExportFunc {
	var (
		mu      sync.Mutex
		session *auth.Session
	)

	return func(ctx context.Context, run *models.Run, events chan<- tasks.Event) (*tasks.ExportResult, error) {
		mu.Lock()
		defer mu.Unlock()

		if session == nil {
			s, _, err := r.connect(ctx, io.Discard)
			if err != nil {
				return &tasks.ExportResult{}, fmt.Errorf("no playlist was created: %w", err)
			}
			session = s
		}

		req := tasks.ExportRequest{Name: formatter.Title(run), Description: playlistDescription(run), Public: public}
		result, err := r.engine().Export(ctx, session.Client(), run.SourceTracks(), req, events)

		export := models.ExportFrom(run.ID, result.Assembly, err)
		if saveErr := r.exports.Create(&export); saveErr != nil {
			r.logger.Warn("failed to record export", "run", run.ID, "error", saveErr)
		}
		return result, err
	}
}
