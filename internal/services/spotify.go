// Spotify Web API implementation of [Destination] and the OAuth authorization-code flow.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxItemsPerRequest is the add-items cap of the playlist endpoint.
	MaxItemsPerRequest = 100
)

// Scopes needed to create and fill playlists for the current user.
var DefaultScopes = []string{"playlist-modify-public", "playlist-modify-private", "user-read-private"}

// LibraryScope is requested in addition to [DefaultScopes] when reading liked songs.
const LibraryScope = "user-library-read"

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyPlaylist represents a playlist as returned by the create endpoint.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type apiErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx response from the Spotify Web API.
type APIError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("spotify API error: status %d", e.Status)
}

// Unwrap maps the status onto the shared error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return shared.ErrRateLimited
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return shared.ErrInvalidCredentials
	case e.Status >= 500:
		return shared.ErrProviderUnavailable
	default:
		return nil
	}
}

// parseRetryAfter reads a Retry-After header given in seconds, defaulting to one second.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return time.Second
	}
	return time.Duration(secs) * time.Second
}

// Endpoints overrides the Spotify hosts, for tests and proxies.
type Endpoints struct {
	AuthURL  string
	TokenURL string
	APIURL   string
}

// SpotifyService runs the OAuth authorization-code flow and hands out API clients.
type SpotifyService struct {
	config      *oauth2.Config
	endpoints   Endpoints
	tokenClient *http.Client
	logger      *log.Logger
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithEndpoints replaces the default Spotify hosts. Empty fields keep their defaults.
func WithEndpoints(e Endpoints) SpotifyOption {
	return func(s *SpotifyService) {
		if e.AuthURL != "" {
			s.endpoints.AuthURL = e.AuthURL
		}
		if e.TokenURL != "" {
			s.endpoints.TokenURL = e.TokenURL
		}
		if e.APIURL != "" {
			s.endpoints.APIURL = strings.TrimRight(e.APIURL, "/")
		}
	}
}

// WithScopes replaces [DefaultScopes].
func WithScopes(scopes ...string) SpotifyOption {
	return func(s *SpotifyService) {
		if len(scopes) > 0 {
			s.config.Scopes = scopes
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// NewSpotifyService creates a new Spotify service from validated credentials.
func NewSpotifyService(creds models.Credentials, opts ...SpotifyOption) (*SpotifyService, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret is required", shared.ErrConfiguration)
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       append([]string(nil), DefaultScopes...),
		},
		endpoints:   Endpoints{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL, APIURL: spotifyBaseURL},
		tokenClient: &http.Client{Timeout: shared.ReadTimeout},
		logger:      shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.config.Endpoint = oauth2.Endpoint{
		AuthURL:   s.endpoints.AuthURL,
		TokenURL:  s.endpoints.TokenURL,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Scopes returns the scopes requested by [SpotifyService.AuthCodeURL].
func (s *SpotifyService) Scopes() []string {
	return append([]string(nil), s.config.Scopes...)
}

// AuthCodeURL builds the authorization URL carrying client id, redirect URI, response type, scopes and state.
func (s *SpotifyService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades a captured authorization code for a token pair.
//
// Codes are single use, so a rejection is reported as [shared.ErrTokenExchange] and never retried.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (models.TokenPair, error) {
	if code == "" {
		return models.TokenPair{}, fmt.Errorf("%w: empty authorization code", shared.ErrTokenExchange)
	}

	tok, err := s.config.Exchange(s.tokenContext(ctx), code)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", shared.ErrTokenExchange, mapTokenError(err))
	}
	return models.TokenPairFrom(tok), nil
}

// Refresh mints a new access token from p's refresh token.
//
// The returned pair keeps p's refresh token unless the provider issued a new one.
func (s *SpotifyService) Refresh(ctx context.Context, p models.TokenPair) (models.TokenPair, error) {
	if p.RefreshToken == "" {
		return models.TokenPair{}, shared.ErrNoRefreshToken
	}

	// An empty access token forces the source to hit the token endpoint.
	src := s.config.TokenSource(s.tokenContext(ctx), &oauth2.Token{RefreshToken: p.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to refresh token: %w", mapTokenError(err))
	}

	next := models.TokenPairFrom(tok)
	if next.RefreshToken == "" {
		next.RefreshToken = p.RefreshToken
	}
	return next, nil
}

func (s *SpotifyService) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.tokenClient)
}

// mapTokenError classifies token endpoint failures: 4xx is [shared.ErrInvalidCredentials], anything else [shared.ErrProviderUnavailable].
func mapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		code := re.Response.StatusCode
		if code >= 400 && code < 500 {
			detail := re.ErrorCode
			if re.ErrorDescription != "" {
				detail += ": " + re.ErrorDescription
			}
			return fmt.Errorf("%w: status %d %s", shared.ErrInvalidCredentials, code, detail)
		}
		return fmt.Errorf("%w: token endpoint status %d", shared.ErrProviderUnavailable, code)
	}
	return fmt.Errorf("%w: %w", shared.ErrProviderUnavailable, err)
}

// AccessTokenSource yields a currently valid access token, refreshing if needed.
type AccessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client returns an API client authorized through tokens.
//
// Reads go through a retrying client; writes are never retried.
func (s *SpotifyService) Client(tokens AccessTokenSource) *SpotifyClient {
	return &SpotifyClient{
		baseURL: s.endpoints.APIURL,
		tokens:  tokens,
		read:    shared.NewReadClient(s.logger),
		write:   shared.NewWriteClient(),
		logger:  s.logger,
	}
}

// APIURL returns the Web API base URL.
func (s *SpotifyService) APIURL() string {
	return s.endpoints.APIURL
}

// SpotifyClient implements [Destination] against the Spotify Web API.
type SpotifyClient struct {
	baseURL string
	tokens  AccessTokenSource
	read    *http.Client
	write   *http.Client
	logger  *log.Logger
}

// doRequest performs an authenticated JSON request against the Web API.
func (c *SpotifyClient) doRequest(ctx context.Context, client *http.Client, method, endpoint string, body, result any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb apiErrorBody
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		c.logger.Debug("spotify request failed", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// SearchQuery builds the field-qualified search for a title and artist.
func SearchQuery(title, artist string) string {
	q := "track:" + strings.TrimSpace(title)
	if a := strings.TrimSpace(artist); a != "" {
		q += " artist:" + a
	}
	return q
}

// SearchTrack returns the top-ranked match for title and artist, or nil when the search is empty.
func (c *SpotifyClient) SearchTrack(ctx context.Context, title, artist string) (*Track, error) {
	params := url.Values{}
	params.Set("q", SearchQuery(title, artist))
	params.Set("type", "track")
	params.Set("limit", "1")

	var resp searchResponse
	if err := c.doRequest(ctx, c.read, http.MethodGet, "/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Tracks.Items) == 0 {
		return nil, nil
	}

	st := resp.Tracks.Items[0]
	track := &Track{
		ID:       st.ID,
		URI:      st.URI,
		Title:    st.Name,
		Album:    st.Album.Name,
		Duration: st.DurationMS / 1000,
	}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track, nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (c *SpotifyClient) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, c.read, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &user, nil
}

// CreatePlaylist creates an empty playlist owned by userID.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if userID == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist needs an owner and a name", shared.ErrValidation)
	}

	body := map[string]any{"name": name, "description": description, "public": public}
	endpoint := "/users/" + url.PathEscape(userID) + "/playlists"

	var sp SpotifyPlaylist
	if err := c.doRequest(ctx, c.write, http.MethodPost, endpoint, body, &sp); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	link := sp.ExternalURLs.Spotify
	if link == "" {
		link = "https://open.spotify.com/playlist/" + sp.ID
	}
	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Public:      sp.Public,
		URL:         link,
	}, nil
}

// AddItems appends uris to a playlist in a single request.
func (c *SpotifyClient) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 || len(uris) > MaxItemsPerRequest {
		return fmt.Errorf("%w: add items takes 1 to %d uris, got %d", shared.ErrValidation, MaxItemsPerRequest, len(uris))
	}

	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	if err := c.doRequest(ctx, c.write, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil); err != nil {
		return fmt.Errorf("failed to add items: %w", err)
	}
	return nil
}

// StaticToken is an [AccessTokenSource] for a fixed token.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("%w: no access token", shared.ErrInvalidCredentials)
	}
	return string(t), nil
}
