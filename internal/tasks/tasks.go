package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
	"golang.org/x/time/rate"
)

const (
	// DefaultBatchSize is the add-items batch used by [Engine.CreateAndPopulate].
	DefaultBatchSize = services.MaxItemsPerRequest
	maxRetryAfter    = 30 * time.Second
)

// MatchCache remembers found matches by normalized track key.
type MatchCache interface {
	Lookup(key string) (id, uri string, ok bool, err error)
	Store(key, id, uri string) error
}

// Engine matches tracks against a destination catalog, assembles playlists and generates track lists.
type Engine struct {
	source    services.Source
	cache     MatchCache
	limiter   *rate.Limiter
	batchSize int
	playlists int
	minScore  float64
	logger    *log.Logger
	wait      func(ctx context.Context, d time.Duration) error
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithSource sets the catalog used by [Engine.Generate].
func WithSource(s services.Source) EngineOption {
	return func(e *Engine) { e.source = s }
}

// WithCache enables the match cache.
func WithCache(c MatchCache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithRateLimit paces catalog searches. Zero or less disables pacing.
func WithRateLimit(perSecond float64) EngineOption {
	return func(e *Engine) {
		if perSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithBatchSize caps add-items batches at n, never above [services.MaxItemsPerRequest].
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 && n <= services.MaxItemsPerRequest {
			e.batchSize = n
		}
	}
}

// WithGeneratorLimits sets how many catalog playlists are sampled and the minimum track score kept.
func WithGeneratorLimits(playlists int, minScore float64) EngineOption {
	return func(e *Engine) {
		if playlists > 0 {
			e.playlists = playlists
		}
		if minScore >= 0 {
			e.minScore = minScore
		}
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine. Without options it matches unpaced, uncached, in batches of 100.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		batchSize: DefaultBatchSize,
		playlists: DefaultPlaylistCount,
		minScore:  DefaultMinScore,
		logger:    shared.NewLogger(nil),
		wait:      sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendProgress sends an event without blocking. Events are dropped when the channel is full.
func (e *Engine) sendProgress(events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

// MatchTracks searches catalog once per track, in order, and returns one result per input.
//
// Per-track failures never abort the run: they become not-found results carrying the error.
// After cancellation the remaining tracks are reported as not-found with the context error.
func (e *Engine) MatchTracks(ctx context.Context, catalog services.Destination, tracks []models.SourceTrack, events chan<- Event) []models.MatchResult {
	total := len(tracks)
	results := make([]models.MatchResult, 0, total)
	e.sendProgress(events, startedEvent(PhaseMatch, total, nil))

	found := 0
	for i, src := range tracks {
		var res models.MatchResult
		if err := ctx.Err(); err != nil {
			res = models.Unmatched(src, err.Error())
		} else {
			res = e.matchOne(ctx, catalog, src)
		}
		results = append(results, res)

		if res.Found {
			found++
		}
		e.sendProgress(events, matchEvent(i+1, total, res))
	}

	e.logger.Debug("matched tracks", "found", found, "total", total)
	e.sendProgress(events, completedEvent(PhaseMatch, total, total, results))
	return results
}

func (e *Engine) matchOne(ctx context.Context, catalog services.Destination, src models.SourceTrack) models.MatchResult {
	if strings.TrimSpace(src.Title) == "" {
		return models.Unmatched(src, "track has no title")
	}

	key := shared.NormalizeTrackKey(src.Title, src.Artist)
	if e.cache != nil {
		id, uri, ok, err := e.cache.Lookup(key)
		if err != nil {
			e.logger.Warn("match cache lookup failed", "key", key, "error", err)
		} else if ok {
			res := models.Matched(src, id, uri)
			res.Cached = true
			return res
		}
	}

	track, err := e.search(ctx, catalog, src)
	if err != nil {
		if errors.Is(err, shared.ErrRateLimited) {
			return models.Unmatched(src, "rate limited")
		}
		return models.Unmatched(src, err.Error())
	}
	if track == nil || track.ID == "" {
		return models.Unmatched(src, "no results")
	}

	if e.cache != nil {
		if err := e.cache.Store(key, track.ID, track.URI); err != nil {
			e.logger.Warn("match cache store failed", "key", key, "error", err)
		}
	}
	return models.Matched(src, track.ID, track.URI)
}

// search runs one catalog search, waiting out a single 429 before retrying once.
func (e *Engine) search(ctx context.Context, catalog services.Destination, src models.SourceTrack) (*services.Track, error) {
	if err := e.pace(ctx); err != nil {
		return nil, err
	}

	track, err := catalog.SearchTrack(ctx, src.Title, src.Artist)
	if err == nil || !errors.Is(err, shared.ErrRateLimited) {
		return track, err
	}

	d := retryAfter(err)
	e.logger.Debug("search rate limited", "title", src.Title, "wait", d)
	if err := e.wait(ctx, d); err != nil {
		return nil, err
	}
	if err := e.pace(ctx); err != nil {
		return nil, err
	}
	return catalog.SearchTrack(ctx, src.Title, src.Artist)
}

func (e *Engine) pace(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// retryAfter reads the provider's wait from err, defaulting to one second and capped at 30.
func retryAfter(err error) time.Duration {
	d := time.Second
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		d = apiErr.RetryAfter
	}
	return min(max(d, 0), maxRetryAfter)
}

// CreateAndPopulate creates a playlist for the current user and adds ids to it in order.
//
// ids may be bare track ids or track URIs. When a batch fails the playlist is left as is and
// the partial result is returned with [shared.ErrPartialAssembly].
func (e *Engine) CreateAndPopulate(ctx context.Context, catalog services.Destination, ids []string, name, description string, public bool, events chan<- Event) (models.AssemblyResult, error) {
	res := models.AssemblyResult{Total: len(ids)}
	if len(ids) == 0 {
		return res, fmt.Errorf("%w: no tracks to add", shared.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return res, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}

	uris := make([]string, len(ids))
	for i, id := range ids {
		if id == "" {
			return res, fmt.Errorf("%w: empty track id at position %d", shared.ErrValidation, i)
		}
		uris[i] = trackURI(id)
	}

	batches := (len(uris) + e.batchSize - 1) / e.batchSize
	e.sendProgress(events, startedEvent(PhaseAssemble, batches, name))

	user, err := catalog.CurrentUser(ctx)
	if err != nil {
		e.sendProgress(events, failedEvent(PhaseAssemble, 0, batches, err))
		return res, err
	}

	pl, err := catalog.CreatePlaylist(ctx, user.ID, name, description, public)
	if err != nil {
		e.sendProgress(events, failedEvent(PhaseAssemble, 0, batches, err))
		return res, err
	}
	res.Playlist = *pl
	res.Created = true
	e.logger.Info("playlist created", "id", pl.ID, "name", pl.Name)

	for b := range batches {
		start := b * e.batchSize
		end := min(start+e.batchSize, len(uris))

		if err := ctx.Err(); err != nil {
			return res, e.partial(events, res, b, batches, err)
		}
		if err := catalog.AddItems(ctx, pl.ID, uris[start:end]); err != nil {
			return res, e.partial(events, res, b, batches, err)
		}

		res.Confirmed = end
		e.sendProgress(events, batchEvent(b+1, batches, res.Confirmed, res.Total))
	}

	e.sendProgress(events, completedEvent(PhaseAssemble, batches, batches, res))
	return res, nil
}

func (e *Engine) partial(events chan<- Event, res models.AssemblyResult, batch, batches int, err error) error {
	err = fmt.Errorf("%w: %d of %d tracks added to %s: %w", shared.ErrPartialAssembly, res.Confirmed, res.Total, res.Playlist.ID, err)
	e.logger.Warn("playlist incomplete", "id", res.Playlist.ID, "confirmed", res.Confirmed, "total", res.Total)
	e.sendProgress(events, failedEvent(PhaseAssemble, batch, batches, err))
	return err
}

func trackURI(id string) string {
	if strings.HasPrefix(id, "spotify:") {
		return id
	}
	return "spotify:track:" + id
}

// MatchedURIs returns the destination URIs of found results, in order.
func MatchedURIs(results []models.MatchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Found {
			ids = append(ids, r.URI)
		}
	}
	return ids
}
