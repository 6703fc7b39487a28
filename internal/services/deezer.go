// Deezer public API implementation of [Source]
//
// See https://developers.deezer.com/api
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/hashicorp/go-retryablehttp"
)

const deezerBaseURL = "https://api.deezer.com"

// DeezerArtist is the artist stub embedded in tracks.
type DeezerArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeezerAlbum is the album stub embedded in tracks.
type DeezerAlbum struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// DeezerTrack is a playlist track. BPM is only populated by some endpoints and is zero otherwise.
type DeezerTrack struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	Duration int          `json:"duration"`
	Rank     int          `json:"rank"`
	BPM      float64      `json:"bpm"`
	Preview  string       `json:"preview"`
	Link     string       `json:"link"`
	Artist   DeezerArtist `json:"artist"`
	Album    DeezerAlbum  `json:"album"`
}

// DeezerPlaylist is a playlist search hit.
type DeezerPlaylist struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	NbTracks  int    `json:"nb_tracks"`
	Link      string `json:"link"`
	PictureXL string `json:"picture_xl"`
}

type deezerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// DeezerService reads the public Deezer catalog. No authentication is required.
type DeezerService struct {
	baseURL string
	client  *retryablehttp.Client
	logger  *log.Logger
}

// NewDeezerService creates a catalog client. An empty baseURL uses the public API.
func NewDeezerService(baseURL string, logger *log.Logger) *DeezerService {
	if baseURL == "" {
		baseURL = deezerBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DeezerService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  shared.NewRetryClient(logger, 3),
		logger:  logger,
	}
}

func (d *DeezerService) Name() string {
	return "Deezer"
}

// get fetches endpoint and decodes it into result.
//
// Deezer reports some failures as 200 responses carrying an "error" object, which are surfaced as errors here.
func (d *DeezerService) get(ctx context.Context, endpoint string, result any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: deezer: %w", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: deezer", shared.ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: deezer status %d", shared.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("deezer API error: status %d", resp.StatusCode)
	}

	var envelope struct {
		Error *deezerError `json:"error"`
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		// code 4 is Deezer's quota exceeded
		if envelope.Error.Code == 4 {
			return fmt.Errorf("%w: deezer: %s", shared.ErrRateLimited, envelope.Error.Message)
		}
		return fmt.Errorf("deezer API error: %s: %s", envelope.Error.Type, envelope.Error.Message)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SearchPlaylists returns up to limit playlists matching query.
func (d *DeezerService) SearchPlaylists(ctx context.Context, query string, limit int) ([]DeezerPlaylist, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty playlist query", shared.ErrValidation)
	}
	if limit <= 0 {
		limit = 3
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Data []DeezerPlaylist `json:"data"`
	}
	if err := d.get(ctx, "/search/playlist?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("failed to search playlists: %w", err)
	}
	d.logger.Debug("deezer playlist search", "query", query, "found", len(resp.Data))
	return resp.Data, nil
}

// PlaylistTracks returns the tracks embedded in a playlist.
func (d *DeezerService) PlaylistTracks(ctx context.Context, playlistID int64) ([]DeezerTrack, error) {
	var resp struct {
		Tracks struct {
			Data []DeezerTrack `json:"data"`
		} `json:"tracks"`
	}
	if err := d.get(ctx, "/playlist/"+strconv.FormatInt(playlistID, 10), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %d: %w", playlistID, err)
	}
	return resp.Tracks.Data, nil
}
