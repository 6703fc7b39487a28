package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/desertthunder/pictune/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Card renders a share card for a run. The QR code links the newest exported playlist, or the
// first track's catalog page when the run was never exported.
func (r *Runner) Card(ctx context.Context, cmd *cli.Command) error {
	run, err := r.findRun(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	var photo image.Image
	if img, err := formatter.LoadImage(run.ImagePath); err != nil {
		r.logger.Warn("photo unavailable, drawing placeholder", "path", run.ImagePath, "error", err)
	} else {
		photo = img
	}

	playlistURL := ""
	if latest, err := r.exports.Latest(run.ID); err != nil {
		return err
	} else if latest != nil {
		playlistURL = latest.PlaylistURL
	}

	path := cmd.String("output")
	if path == "" {
		path = filepath.Join(r.config.Output.CardsDir, formatter.ShortID(run.ID)+".png")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cards directory: %w", err)
		}
	}

	in := formatter.CardFromRun(run, photo, playlistURL)
	if err := formatter.WriteCard(path, in); err != nil {
		return err
	}

	r.writePlain("✓ Card written to %s\n", path)
	if in.URL != "" {
		r.writePlain("  QR: %s\n", in.URL)
	}
	return nil
}
