package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/pictune/internal/shared"
)

// StubTrack is a catalog entry served by [SpotifyStub] and [DeezerStub].
type StubTrack struct {
	ID       string
	Title    string
	Artist   string
	Duration int
	Rank     int
	BPM      float64
}

// SpotifyStub is an in-process stand-in for the Spotify accounts service and Web API.
//
// Fields may be changed between calls; all access is guarded by the stub's mutex.
type SpotifyStub struct {
	Server *httptest.Server

	mu sync.Mutex

	// Catalog maps [shared.NormalizeTrackKey] of title and artist to a track id.
	Catalog map[string]string
	// RateLimit holds the number of 429 responses to serve for a track key before answering.
	RateLimit  map[string]int
	RetryAfter string
	// FailSearch makes searches for a track key fail with 500.
	FailSearch map[string]bool

	UserID        string
	Liked         []StubTrack
	ExpiresIn     int
	RotateRefresh bool
	TokenStatus   int
	FailCreate    bool
	// FailBatch is the 1-based add-items call that answers 500; zero never fails.
	FailBatch int

	usedCodes  map[string]bool
	issued     int
	refreshTok string

	Searches    []string
	Creates     int
	Batches     [][]string
	TokenCalls  int
	Refreshes   int
	AuthHeaders []string
}

// NewSpotifyStub starts a stub server that is closed with the test.
func NewSpotifyStub(t *testing.T) *SpotifyStub {
	t.Helper()
	s := &SpotifyStub{
		Catalog:    map[string]string{},
		RateLimit:  map[string]int{},
		FailSearch: map[string]bool{},
		RetryAfter: "0",
		UserID:     "stub-user",
		ExpiresIn:  3600,
		usedCodes:  map[string]bool{},
		refreshTok: "refresh-1",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", s.token)
	mux.HandleFunc("GET /v1/search", s.search)
	mux.HandleFunc("GET /v1/me", s.me)
	mux.HandleFunc("GET /v1/me/tracks", s.liked)
	mux.HandleFunc("POST /v1/users/{id}/playlists", s.createPlaylist)
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", s.addItems)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// AuthURL, TokenURL and APIURL are the stub's endpoints.
func (s *SpotifyStub) AuthURL() string  { return s.Server.URL + "/authorize" }
func (s *SpotifyStub) TokenURL() string { return s.Server.URL + "/api/token" }
func (s *SpotifyStub) APIURL() string   { return s.Server.URL + "/v1" }

// AddTrack registers a catalog entry for title and artist.
func (s *SpotifyStub) AddTrack(title, artist, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Catalog[shared.NormalizeTrackKey(title, artist)] = id
}

// Counts returns the number of searches, playlist creations and add batches served.
func (s *SpotifyStub) Counts() (searches, creates, batches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Searches), s.Creates, len(s.Batches)
}

// BatchSizes returns the length of every add-items call in order.
func (s *SpotifyStub) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, len(s.Batches))
	for i, b := range s.Batches {
		sizes[i] = len(b)
	}
	return sizes
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func apiError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}

func (s *SpotifyStub) token(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TokenCalls++

	if s.TokenStatus != 0 {
		writeJSON(w, s.TokenStatus, map[string]string{"error": "server_error"})
		return
	}
	if _, _, ok := r.BasicAuth(); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		code := r.PostForm.Get("code")
		if code == "" || s.usedCodes[code] || code == "rejected" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid_grant", "error_description": "Invalid authorization code",
			})
			return
		}
		s.usedCodes[code] = true
		s.issued++
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  fmt.Sprintf("access-%d", s.issued),
			"token_type":    "Bearer",
			"refresh_token": s.refreshTok,
			"expires_in":    s.ExpiresIn,
			"scope":         "playlist-modify-public playlist-modify-private user-read-private",
		})
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != s.refreshTok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid_grant", "error_description": "Refresh token revoked",
			})
			return
		}
		s.issued++
		s.Refreshes++
		body := map[string]any{
			"access_token": fmt.Sprintf("access-%d", s.issued),
			"token_type":   "Bearer",
			"expires_in":   s.ExpiresIn,
		}
		if s.RotateRefresh {
			s.refreshTok = fmt.Sprintf("refresh-%d", s.issued)
			body["refresh_token"] = s.refreshTok
		}
		writeJSON(w, http.StatusOK, body)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (s *SpotifyStub) authorized(w http.ResponseWriter, r *http.Request) bool {
	h := r.Header.Get("Authorization")
	s.AuthHeaders = append(s.AuthHeaders, h)
	if !strings.HasPrefix(h, "Bearer ") || strings.TrimPrefix(h, "Bearer ") == "" {
		apiError(w, http.StatusUnauthorized, "No token provided")
		return false
	}
	return true
}

// parseQuery splits "track:T artist:A" into its fields.
func parseQuery(q string) (title, artist string) {
	q = strings.TrimPrefix(q, "track:")
	title, artist, _ = strings.Cut(q, " artist:")
	return title, artist
}

func (s *SpotifyStub) search(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(w, r) {
		return
	}

	q := r.URL.Query().Get("q")
	s.Searches = append(s.Searches, q)
	key := shared.NormalizeTrackKey(parseQuery(q))

	if s.FailSearch[key] {
		apiError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if n := s.RateLimit[key]; n > 0 {
		s.RateLimit[key] = n - 1
		w.Header().Set("Retry-After", s.RetryAfter)
		apiError(w, http.StatusTooManyRequests, "API rate limit exceeded")
		return
	}

	items := []map[string]any{}
	if id, ok := s.Catalog[key]; ok {
		title, artist := parseQuery(q)
		items = append(items, map[string]any{
			"id":          id,
			"name":        title,
			"uri":         "spotify:track:" + id,
			"duration_ms": 180000,
			"artists":     []map[string]string{{"id": "a-" + id, "name": artist}},
			"album":       map[string]string{"id": "al-" + id, "name": "Stub Album"},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": items, "total": len(items)}})
}

func (s *SpotifyStub) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           s.UserID,
		"display_name": "Stub User",
		"country":      "US",
		"product":      "premium",
		"type":         "user",
		"uri":          "spotify:user:" + s.UserID,
	})
}

func (s *SpotifyStub) liked(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(w, r) {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	items := []map[string]any{}
	for i := offset; i < len(s.Liked) && i < offset+limit; i++ {
		t := s.Liked[i]
		items = append(items, map[string]any{
			"added_at": "2024-01-01T00:00:00Z",
			"track": map[string]any{
				"id":          t.ID,
				"name":        t.Title,
				"uri":         "spotify:track:" + t.ID,
				"duration_ms": t.Duration * 1000,
				"artists":     []map[string]string{{"name": t.Artist}},
				"album":       map[string]string{"name": "Liked Album"},
			},
		})
	}

	var next any
	if offset+limit < len(s.Liked) {
		next = fmt.Sprintf("%s/v1/me/tracks?limit=%d&offset=%d", s.Server.URL, limit, offset+limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  len(s.Liked),
		"limit":  limit,
		"offset": offset,
		"next":   next,
	})
}

func (s *SpotifyStub) createPlaylist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(w, r) {
		return
	}
	s.Creates++

	if s.FailCreate {
		apiError(w, http.StatusInternalServerError, "create failed")
		return
	}
	if r.PathValue("id") != s.UserID {
		apiError(w, http.StatusForbidden, "You cannot create a playlist for another user")
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		apiError(w, http.StatusBadRequest, "Missing playlist name")
		return
	}

	id := fmt.Sprintf("pl%d", s.Creates)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            id,
		"name":          body.Name,
		"description":   body.Description,
		"public":        body.Public,
		"uri":           "spotify:playlist:" + id,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/" + id},
	})
}

func (s *SpotifyStub) addItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized(w, r) {
		return
	}

	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apiError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if len(body.URIs) > 100 {
		apiError(w, http.StatusBadRequest, "Too many ids requested")
		return
	}

	s.Batches = append(s.Batches, body.URIs)
	if s.FailBatch == len(s.Batches) {
		apiError(w, http.StatusInternalServerError, "add failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snap-" + strconv.Itoa(len(s.Batches))})
}
