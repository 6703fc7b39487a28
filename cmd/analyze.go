package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/pictune/internal/formatter"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Analyze describes a photo, converts the description into music parameters, builds a
// track list from the catalog and stores the result as a run.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	imagePath := cmd.StringArg("image")
	if imagePath == "" {
		return fmt.Errorf("%w: image path is required", shared.ErrMissingArgument)
	}
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	describer, converter, err := r.modelClients()
	if err != nil {
		return err
	}
	if err := r.database(); err != nil {
		return err
	}

	r.writePlain("🖼  Describing %s with %s...\n", imagePath, describer.Model())
	scene, err := describer.Describe(ctx, imagePath)
	if err != nil {
		return err
	}
	if summary := scene.Summary(); summary != "" {
		r.writePlain("   %s\n", summary)
	}

	r.writePlain("🎚  Deriving music parameters with %s...\n", converter.Model())
	params, err := converter.Convert(ctx, scene)
	if err != nil {
		return err
	}
	if limit := cmd.Int("limit"); limit > 0 {
		params.Limit = limit
	}
	params = params.WithDefaults()
	r.writePlain("   query=%q tempo=%.0f energy=%.2f valence=%.2f limit=%d\n",
		params.Query(), params.TargetTempo, params.TargetEnergy, params.TargetValence, params.Limit)

	events, stop := r.progress()
	result, err := r.engine().Generate(ctx, params, events)
	stop()
	if err != nil {
		return err
	}

	run := &models.Run{
		ImagePath:   imagePath,
		Description: scene,
		Params:      params,
		Tracks:      result.Tracks,
		VisionModel: describer.Model(),
		ParamsModel: converter.Model(),
	}
	if err := r.runs.Create(run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	r.logger.Info("run saved", "id", run.ID, "tracks", len(run.Tracks), "considered", result.Considered, "filtered", result.Filtered)

	if cmd.Bool("json") {
		return r.writeJSON(run, true)
	}

	r.writePlainln("")
	r.writePlainHeader(fmt.Sprintf("Run %s: %d tracks", formatter.ShortID(run.ID), len(run.Tracks)))
	for i, t := range run.Tracks {
		r.writePlain("%2d. %s - %s [%s] score %.2f\n", i+1, t.Artist, t.Title, shared.FormatDuration(t.Duration), t.Score)
	}
	r.writePlain("\nExport with: pictune spotify export %s\n", formatter.ShortID(run.ID))
	return nil
}
