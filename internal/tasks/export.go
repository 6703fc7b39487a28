package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
)

// ExportRequest names the playlist an export creates.
type ExportRequest struct {
	Name        string
	Description string
	Public      bool
}

// ExportResult is the outcome of matching tracks and assembling the matches into a playlist.
type ExportResult struct {
	Matches  []models.MatchResult
	Assembly models.AssemblyResult
}

// Found counts the matched tracks.
func (r *ExportResult) Found() int {
	n := 0
	for _, m := range r.Matches {
		if m.Found {
			n++
		}
	}
	return n
}

// Unmatched lists the tracks the destination catalog had no result for.
func (r *ExportResult) Unmatched() []models.MatchResult {
	var out []models.MatchResult
	for _, m := range r.Matches {
		if !m.Found {
			out = append(out, m)
		}
	}
	return out
}

// Export matches tracks against catalog and builds a playlist from the matches.
//
// The result is always returned, with whatever was achieved before an error. Nothing is
// created when no track matched.
func (e *Engine) Export(ctx context.Context, catalog services.Destination, tracks []models.SourceTrack, req ExportRequest, events chan<- Event) (*ExportResult, error) {
	result := &ExportResult{}
	result.Matches = e.MatchTracks(ctx, catalog, tracks, events)
	if err := ctx.Err(); err != nil {
		return result, err
	}

	uris := MatchedURIs(result.Matches)
	if len(uris) == 0 {
		err := fmt.Errorf("%w: none of %d tracks matched, no playlist was created", shared.ErrValidation, len(tracks))
		e.sendProgress(events, failedEvent(PhaseAssemble, 0, 0, err))
		return result, err
	}

	assembly, err := e.CreateAndPopulate(ctx, catalog, uris, req.Name, req.Description, req.Public, events)
	result.Assembly = assembly
	return result, err
}
