package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// StubPlaylist is a Deezer playlist served by [DeezerStub].
type StubPlaylist struct {
	ID     int64
	Title  string
	Tracks []StubTrack
}

// DeezerStub serves /search/playlist and /playlist/{id} from memory.
type DeezerStub struct {
	Server    *httptest.Server
	Playlists []StubPlaylist
	// Missing playlists answer with Deezer's in-body error object.
	Missing map[int64]bool

	mu      sync.Mutex
	Queries []string
	Fetched []int64
}

// NewDeezerStub starts a stub catalog closed with the test.
func NewDeezerStub(t *testing.T, playlists ...StubPlaylist) *DeezerStub {
	t.Helper()
	d := &DeezerStub{Playlists: playlists, Missing: map[int64]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/playlist", d.search)
	mux.HandleFunc("GET /playlist/{id}", d.playlist)
	d.Server = httptest.NewServer(mux)
	t.Cleanup(d.Server.Close)
	return d
}

// URL is the stub's base URL.
func (d *DeezerStub) URL() string { return d.Server.URL }

func (d *DeezerStub) search(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := r.URL.Query().Get("q")
	d.Queries = append(d.Queries, q)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	data := []map[string]any{}
	for _, p := range d.Playlists {
		if limit > 0 && len(data) >= limit {
			break
		}
		data = append(data, map[string]any{
			"id":        p.ID,
			"title":     p.Title,
			"nb_tracks": len(p.Tracks),
			"link":      "https://www.deezer.com/playlist/" + strconv.FormatInt(p.ID, 10),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data, "total": len(data)})
}

func (d *DeezerStub) playlist(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	d.Fetched = append(d.Fetched, id)

	if d.Missing[id] {
		writeJSON(w, http.StatusOK, map[string]any{
			"error": map[string]any{"type": "DataException", "message": "no data", "code": 800},
		})
		return
	}

	for _, p := range d.Playlists {
		if p.ID != id {
			continue
		}
		tracks := make([]map[string]any, 0, len(p.Tracks))
		for _, t := range p.Tracks {
			tid, _ := strconv.ParseInt(t.ID, 10, 64)
			tracks = append(tracks, map[string]any{
				"id":       tid,
				"title":    t.Title,
				"duration": t.Duration,
				"rank":     t.Rank,
				"bpm":      t.BPM,
				"link":     "https://www.deezer.com/track/" + t.ID,
				"artist":   map[string]any{"id": 1, "name": t.Artist},
				"album":    map[string]any{"id": 2, "title": "Album " + t.Title},
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "title": p.Title, "tracks": map[string]any{"data": tracks}})
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// LLMStub answers OpenAI-compatible chat completion requests with a fixed reply.
type LLMStub struct {
	Server *httptest.Server
	Reply  string
	Status int

	mu       sync.Mutex
	Requests []map[string]any
}

// NewLLMStub starts a stub chat endpoint closed with the test.
func NewLLMStub(t *testing.T, reply string) *LLMStub {
	t.Helper()
	l := &LLMStub{Reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", l.complete)
	l.Server = httptest.NewServer(mux)
	t.Cleanup(l.Server.Close)
	return l
}

// BaseURL is the OpenAI-style base URL including /v1.
func (l *LLMStub) BaseURL() string { return l.Server.URL + "/v1" }

// LastRequest returns the most recent decoded request body.
func (l *LLMStub) LastRequest() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.Requests) == 0 {
		return nil
	}
	return l.Requests[len(l.Requests)-1]
}

func (l *LLMStub) complete(w http.ResponseWriter, r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	l.Requests = append(l.Requests, body)

	if l.Status != 0 {
		writeJSON(w, l.Status, map[string]any{"error": map[string]any{"message": "stub failure", "type": "server_error"}})
		return
	}
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "missing key"}})
		return
	}

	model, _ := body["model"].(string)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-stub",
		"object":  "chat.completion",
		"created": 0,
		"model":   model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": l.Reply},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
}
