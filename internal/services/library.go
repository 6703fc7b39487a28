package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
)

// likedPageSize is the saved-tracks endpoint's page cap.
const likedPageSize = 50

// LibraryService reads the user's own library through the zmb3 Spotify SDK.
type LibraryService struct {
	client *spotify.Client
}

// NewLibraryService wraps an authorized HTTP client, typically from [oauth2.NewClient].
// An empty apiURL uses the public Web API.
func NewLibraryService(httpClient *http.Client, apiURL string) *LibraryService {
	opts := []spotify.ClientOption{spotify.WithRetry(true)}
	if apiURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimRight(apiURL, "/")+"/"))
	}
	return &LibraryService{client: spotify.New(httpClient, opts...)}
}

// Profile returns the authenticated user.
func (l *LibraryService) Profile(ctx context.Context) (*SpotifyUser, error) {
	u, err := l.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &SpotifyUser{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Country:     u.Country,
		Product:     u.Product,
	}, nil
}

// LikedSongs pages through saved tracks until limit tracks are collected or the library ends.
// A limit of zero or less reads everything.
func (l *LibraryService) LikedSongs(ctx context.Context, limit int) ([]Track, error) {
	var tracks []Track
	for offset := 0; ; offset += likedPageSize {
		page, err := l.client.CurrentUsersTracks(ctx, spotify.Limit(likedPageSize), spotify.Offset(offset))
		if err != nil {
			return tracks, fmt.Errorf("failed to get liked songs at offset %d: %w", offset, err)
		}

		for _, st := range page.Tracks {
			t := Track{
				ID:       string(st.ID),
				URI:      string(st.URI),
				Title:    st.Name,
				Album:    st.Album.Name,
				Duration: int(st.Duration) / 1000,
			}
			if len(st.Artists) > 0 {
				t.Artist = st.Artists[0].Name
			}
			tracks = append(tracks, t)
			if limit > 0 && len(tracks) >= limit {
				return tracks, nil
			}
		}

		if len(page.Tracks) < likedPageSize || page.Next == "" {
			return tracks, nil
		}
	}
}
