package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/pictune/internal/shared"
	tu "github.com/desertthunder/pictune/internal/testing"
)

func TestDeezerService(t *testing.T) {
	stub := tu.NewDeezerStub(t,
		tu.StubPlaylist{ID: 10, Title: "Lake Chill", Tracks: []tu.StubTrack{
			{ID: "101", Title: "Still Water", Artist: "Calm", Duration: 200, Rank: 500000, BPM: 92},
			{ID: "102", Title: "Ripple", Artist: "Calm", Duration: 240, Rank: 300000},
		}},
		tu.StubPlaylist{ID: 11, Title: "Sunset"},
	)
	svc := NewDeezerService(stub.URL(), nil)
	ctx := context.Background()

	t.Run("SearchPlaylists", func(t *testing.T) {
		got, err := svc.SearchPlaylists(ctx, "calm lake", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != 10 || got[0].NbTracks != 2 {
			t.Errorf("unexpected playlists %+v", got)
		}
		if stub.Queries[len(stub.Queries)-1] != "calm lake" {
			t.Errorf("unexpected query %v", stub.Queries)
		}
	})

	t.Run("SearchPlaylists empty query", func(t *testing.T) {
		if _, err := svc.SearchPlaylists(ctx, "  ", 3); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		tracks, err := svc.PlaylistTracks(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		first := tracks[0]
		if first.ID != 101 || first.Artist.Name != "Calm" || first.BPM != 92 || first.Rank != 500000 {
			t.Errorf("unexpected track %+v", first)
		}
		if tracks[1].BPM != 0 {
			t.Errorf("expected missing bpm to decode as zero, got %v", tracks[1].BPM)
		}
	})

	t.Run("PlaylistTracks in-body error", func(t *testing.T) {
		stub.Missing[99] = true
		if _, err := svc.PlaylistTracks(ctx, 99); err == nil {
			t.Error("expected error for in-body error object")
		}
	})

	t.Run("quota exceeded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"error":{"type":"Exception","message":"Quota limit exceeded","code":4}}`))
		}))
		defer srv.Close()

		_, err := NewDeezerService(srv.URL, nil).PlaylistTracks(ctx, 1)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection refused"))
		svc := NewDeezerService("http://deezer.invalid", nil)
		svc.client.HTTPClient.Transport = rt
		svc.client.RetryMax = 1
		svc.client.RetryWaitMin = time.Millisecond
		svc.client.RetryWaitMax = time.Millisecond

		_, err := svc.SearchPlaylists(ctx, "x", 1)
		if !errors.Is(err, shared.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
		if rt.Calls != 2 {
			t.Errorf("expected one retry, got %d calls", rt.Calls)
		}
	})

	t.Run("unreadable body", func(t *testing.T) {
		svc := NewDeezerService("http://deezer.invalid", nil)
		svc.client.HTTPClient.Transport = tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       &tu.FCloser{},
		}, nil)

		if _, err := svc.PlaylistTracks(ctx, 1); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("http 429", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewDeezerService(srv.URL, nil).SearchPlaylists(ctx, "x", 1)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})
}
