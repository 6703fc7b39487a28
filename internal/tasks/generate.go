package tasks

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Generator defaults.
const (
	DefaultPlaylistCount = 3
	DefaultMinScore      = 0.3
)

// Scoring weights for [Score].
const (
	tempoWeight    = 3.0
	durationWeight = 1.0
	rankWeight     = 2.0
)

var (
	sadWords        = []string{"sad", "cry", "tears", "hurt", "pain", "alone", "broken", "goodbye", "miss you"}
	happyWords      = []string{"party", "celebrate", "dance", "happy", "joy", "fun"}
	lowEnergyWords  = []string{"sleep", "lullaby", "meditation", "sleeping"}
	highEnergyWords = []string{"party", "workout", "pump", "rage", "hardcore"}
)

// GenerateResult is a scored track list drawn from catalog playlists.
type GenerateResult struct {
	Query     string
	Playlists []services.DeezerPlaylist
	Tracks    []models.GeneratedTrack
	// Considered counts unique tracks before filtering.
	Considered int
	// Filtered counts tracks dropped by the mood filter or the score threshold.
	Filtered int
}

// Generate samples catalog playlists for params' query and keeps the tracks that best fit its targets.
func (e *Engine) Generate(ctx context.Context, params models.MusicParams, events chan<- Event) (*GenerateResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: no catalog source configured", shared.ErrConfiguration)
	}

	params = params.WithDefaults()
	result := &GenerateResult{Query: params.Query()}
	e.sendProgress(events, startedEvent(PhaseGenerate, e.playlists, result.Query))

	playlists, err := e.source.SearchPlaylists(ctx, result.Query, e.playlists)
	if err != nil {
		e.sendProgress(events, failedEvent(PhaseGenerate, 0, e.playlists, err))
		return nil, err
	}
	if len(playlists) == 0 {
		err := fmt.Errorf("%w: no playlists found for %q", shared.ErrValidation, result.Query)
		e.sendProgress(events, failedEvent(PhaseGenerate, 0, e.playlists, err))
		return nil, err
	}
	result.Playlists = playlists[:min(len(playlists), e.playlists)]

	fetched, err := e.fetchPlaylists(ctx, result.Playlists, events)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var unique []services.DeezerTrack
	for _, tracks := range fetched {
		for _, t := range tracks {
			if t.ID == 0 || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			unique = append(unique, t)
		}
	}
	result.Considered = len(unique)

	for _, t := range unique {
		if !MoodFits(t, params) {
			result.Filtered++
			continue
		}
		score := Score(t, params)
		if score < e.minScore {
			result.Filtered++
			continue
		}
		result.Tracks = append(result.Tracks, generated(t, score))
	}

	slices.SortStableFunc(result.Tracks, func(a, b models.GeneratedTrack) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(result.Tracks) > params.Limit {
		result.Tracks = result.Tracks[:params.Limit]
	}

	e.logger.Debug("generated track list", "query", result.Query, "considered", result.Considered, "kept", len(result.Tracks))
	e.sendProgress(events, completedEvent(PhaseGenerate, len(result.Playlists), len(result.Playlists), result))
	return result, nil
}

// fetchPlaylists loads every playlist concurrently. Results keep search order; a failed playlist contributes nothing.
func (e *Engine) fetchPlaylists(ctx context.Context, playlists []services.DeezerPlaylist, events chan<- Event) ([][]services.DeezerTrack, error) {
	out := make([][]services.DeezerTrack, len(playlists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultPlaylistCount)

	for i, pl := range playlists {
		g.Go(func() error {
			tracks, err := e.source.PlaylistTracks(gctx, pl.ID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Warn("skipping playlist", "id", pl.ID, "title", pl.Title, "error", err)
				return nil
			}
			out[i] = tracks
			e.sendProgress(events, fetchedEvent(i+1, len(playlists), pl.Title, len(tracks)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MoodFits drops tracks whose title or artist contradicts the target valence or energy.
func MoodFits(t services.DeezerTrack, p models.MusicParams) bool {
	text := strings.ToLower(t.Title + " " + t.Artist.Name)
	containsAny := func(words []string) bool {
		return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(text, w) })
	}

	switch {
	case p.TargetValence > 0.75 && containsAny(sadWords):
		return false
	case p.TargetValence < 0.3 && containsAny(happyWords):
		return false
	}

	switch {
	case p.TargetEnergy > 0.7 && containsAny(lowEnergyWords):
		return false
	case p.TargetEnergy < 0.3 && containsAny(highEnergyWords):
		return false
	}
	return true
}

// Score rates how well t fits p, from 0 to 1. The raw value is compared against the
// threshold; [models.GeneratedTrack] stores it rounded to three decimals.
//
// Tempo only counts when the catalog reports a bpm.
func Score(t services.DeezerTrack, p models.MusicParams) float64 {
	var score, weight float64

	if t.BPM > 0 {
		target := p.TargetTempo
		if target <= 0 {
			target = models.DefaultTempo
		}
		var s float64
		switch d := math.Abs(t.BPM - target); {
		case d <= 20:
			s = 1
		case d <= 40:
			s = 0.5
		default:
			s = max(0, 1-d/100)
		}
		score += s * tempoWeight
		weight += tempoWeight
	}

	switch {
	case t.Duration >= 120 && t.Duration <= 360:
		score += durationWeight
		weight += durationWeight
	case t.Duration > 0:
		score += 0.3 * durationWeight
		weight += durationWeight
	}

	var r float64
	switch {
	case t.Rank > 700000:
		r = 1
	case t.Rank > 500000:
		r = 0.8
	case t.Rank > 300000:
		r = 0.6
	case t.Rank > 100000:
		r = 0.4
	default:
		r = 0.2
	}
	score += r * rankWeight
	weight += rankWeight

	return score / weight
}

func generated(t services.DeezerTrack, score float64) models.GeneratedTrack {
	return models.GeneratedTrack{
		ID:         t.ID,
		Title:      t.Title,
		Artist:     t.Artist.Name,
		ArtistID:   t.Artist.ID,
		Album:      t.Album.Title,
		AlbumID:    t.Album.ID,
		Duration:   t.Duration,
		BPM:        t.BPM,
		Rank:       t.Rank,
		PreviewURL: t.Preview,
		Link:       t.Link,
		Score:      math.Round(score*1000) / 1000,
	}
}
