package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/pictune/internal/formatter"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/desertthunder/pictune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// maxDescriptionLen is Spotify's playlist description limit.
const maxDescriptionLen = 300

// SpotifyConnect runs the authorization flow and prints the connected profile.
func (r *Runner) SpotifyConnect(ctx context.Context, cmd *cli.Command) error {
	session, svc, err := r.connect(ctx, r.output)
	if err != nil {
		return err
	}

	library := services.NewLibraryService(session.HTTPClient(ctx), svc.APIURL())
	user, err := library.Profile(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("  User: %s (%s)\n", user.DisplayName, user.ID)
	if user.Country != "" {
		r.writePlain("  Country: %s\n", user.Country)
	}
	if user.Product != "" {
		r.writePlain("  Plan: %s\n", user.Product)
	}
	r.writePlain("  Token expires: %s\n", session.Pair().ExpiresAt.Local().Format(time.Kitchen))
	r.writePlain("  Scopes: %s\n", strings.Join(svc.Scopes(), " "))
	return nil
}

// SpotifyExport matches a run's tracks on Spotify and creates a playlist from the matches.
//
// Every outcome is recorded in the export history, and failures always say whether a playlist was created.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	run, err := r.findRun(cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if len(run.Tracks) == 0 {
		return fmt.Errorf("%w: run %s has no tracks, no playlist was created", shared.ErrValidation, formatter.ShortID(run.ID))
	}

	req := tasks.ExportRequest{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Public:      cmd.Bool("public"),
	}
	if req.Name == "" {
		req.Name = formatter.Title(run)
	}
	if req.Description == "" {
		req.Description = playlistDescription(run)
	}

	session, _, err := r.connect(ctx, r.output)
	if err != nil {
		return fmt.Errorf("no playlist was created: %w", err)
	}

	r.logger.Info("exporting run", "run", run.ID, "tracks", len(run.Tracks), "name", req.Name)
	events, stop := r.progress()
	result, err := r.engine().Export(ctx, session.Client(), run.SourceTracks(), req, events)
	stop()

	export := models.ExportFrom(run.ID, result.Assembly, err)
	if saveErr := r.exports.Create(&export); saveErr != nil {
		r.logger.Warn("failed to record export", "run", run.ID, "error", saveErr)
	}

	r.printExport(result)
	if err != nil {
		return fmt.Errorf("%s: %w", result.Assembly.Summary(), err)
	}
	return nil
}

func (r *Runner) printExport(result *tasks.ExportResult) {
	a := result.Assembly

	r.writePlainln("")
	switch {
	case a.Complete():
		r.writePlainHeader("Export Complete!")
	case a.Created:
		r.writePlainHeader("Export Incomplete")
	default:
		r.writePlainHeader("Export Failed")
	}

	r.writePlain("Matched: %d/%d tracks\n", result.Found(), len(result.Matches))
	r.writePlain("%s\n", a.Summary())
	if a.Created {
		r.writePlain("Playlist: %s (%s)\n", a.Playlist.URL, shared.VisibilityString(a.Playlist.Public))
	}

	if unmatched := result.Unmatched(); len(unmatched) > 0 {
		r.writePlain("\nNo match for %d tracks:\n", len(unmatched))
		for _, m := range unmatched {
			r.writePlain("  - %s - %s (%s)\n", m.Source.Artist, m.Source.Title, m.Message)
		}
	}
}

// playlistDescription credits the photo and, when available, its scene description.
func playlistDescription(run *models.Run) string {
	desc := "Generated by pictune from " + filepath.Base(run.ImagePath)
	if summary := run.Description.Summary(); summary != "" {
		desc += ": " + summary
	}
	if r := []rune(desc); len(r) > maxDescriptionLen {
		desc = string(r[:maxDescriptionLen-1]) + "…"
	}
	return desc
}

// SpotifyLiked lists the user's saved tracks. The library scope is requested for this command only.
func (r *Runner) SpotifyLiked(ctx context.Context, cmd *cli.Command) error {
	scopes := r.config.Spotify.Scopes
	if len(scopes) == 0 {
		scopes = services.DefaultScopes
	}
	scopes = append(append([]string(nil), scopes...), services.LibraryScope)
	session, svc, err := r.connect(ctx, r.output, scopes...)
	if err != nil {
		return err
	}

	library := services.NewLibraryService(session.HTTPClient(ctx), svc.APIURL())
	tracks, err := library.LikedSongs(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlainln("Liked songs: %d", len(tracks))
	for i, t := range tracks {
		r.writePlain("%3d. %s - %s [%s]\n", i+1, t.Artist, t.Title, shared.FormatDuration(t.Duration))
		if t.Album != "" {
			r.writePlain("     Album: %s\n", t.Album)
		}
	}
	return nil
}
