package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	tu "github.com/desertthunder/pictune/internal/testing"
	"golang.org/x/oauth2"
)

func TestLibraryService(t *testing.T) {
	stub := tu.NewSpotifyStub(t)
	for i := range 120 {
		stub.Liked = append(stub.Liked, tu.StubTrack{
			ID:       fmt.Sprintf("liked%d", i),
			Title:    fmt.Sprintf("Song %d", i),
			Artist:   "Artist",
			Duration: 200,
		})
	}

	ctx := context.Background()
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access-test"}))
	lib := NewLibraryService(httpClient, stub.APIURL())

	t.Run("Profile", func(t *testing.T) {
		user, err := lib.Profile(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "stub-user" || user.DisplayName != "Stub User" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("LikedSongs all pages", func(t *testing.T) {
		tracks, err := lib.LikedSongs(ctx, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 120 {
			t.Fatalf("expected 120 tracks, got %d", len(tracks))
		}
		last := tracks[119]
		if last.ID != "liked119" || last.URI != "spotify:track:liked119" || last.Duration != 200 {
			t.Errorf("unexpected last track %+v", last)
		}
	})

	t.Run("LikedSongs limit", func(t *testing.T) {
		tracks, err := lib.LikedSongs(ctx, 60)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 60 {
			t.Errorf("expected 60 tracks, got %d", len(tracks))
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		bare := NewLibraryService(&http.Client{}, stub.APIURL())
		if _, err := bare.LikedSongs(ctx, 10); err == nil {
			t.Error("expected error without a token")
		}
	})
}
