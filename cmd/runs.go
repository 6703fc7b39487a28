package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/pictune/internal/formatter"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/urfave/cli/v3"
)

// RunsList prints stored runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.database(); err != nil {
		return err
	}

	runs, err := r.runs.List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlain("No runs yet. Create one with: pictune analyze <image>\n")
		return nil
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		r.writePlain("%s  %s  %-28s %2d tracks  %s\n",
			formatter.ShortID(run.ID),
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			formatter.Title(&run),
			len(run.Tracks),
			r.exportState(run.ID),
		)
	}
	return nil
}

// exportState summarizes the newest playlist created from a run.
func (r *Runner) exportState(runID string) string {
	latest, err := r.exports.Latest(runID)
	if err != nil {
		r.logger.Debug("failed to read exports", "run", runID, "error", err)
		return ""
	}
	if latest == nil {
		return "not exported"
	}
	return fmt.Sprintf("%s %d/%d", latest.Status, latest.Confirmed, latest.Total)
}

// RunsShow renders one run in the requested format, to stdout or a file.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	run, err := r.findRun(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	exports, err := r.exports.ListByRun(run.ID)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(run, format, path, exports)
		if err != nil {
			return err
		}
		r.writePlain("✓ Run %s written to %s\n", formatter.ShortID(run.ID), written)
		return nil
	}

	data, err := formatter.Format(run, format, exports)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// RunsDelete removes a run and, through the foreign key, its export history.
func (r *Runner) RunsDelete(ctx context.Context, cmd *cli.Command) error {
	run, err := r.findRun(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if err := r.runs.Delete(run.ID); err != nil {
		return err
	}
	r.writePlain("✓ Deleted run %s (%s)\n", formatter.ShortID(run.ID), formatter.Title(run))
	return nil
}

// findRun resolves a full run id or a unique prefix of one.
func (r *Runner) findRun(ref string) (*models.Run, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: run id is required", shared.ErrMissingArgument)
	}
	if err := r.database(); err != nil {
		return nil, err
	}
	return r.runs.Find(ref)
}
