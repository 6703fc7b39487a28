package services

import (
	"context"

	"github.com/desertthunder/pictune/internal/models"
)

// Destination is the catalog tracks are matched against and exported to.
type Destination interface {
	// SearchTrack returns the top-ranked catalog track for title and artist, or nil when there is none.
	SearchTrack(ctx context.Context, title, artist string) (*Track, error)

	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)

	// AddItems appends up to [MaxItemsPerRequest] track URIs to a playlist.
	AddItems(ctx context.Context, playlistID string, uris []string) error
}

// Source is the catalog generated playlists are drawn from.
type Source interface {
	SearchPlaylists(ctx context.Context, query string, limit int) ([]DeezerPlaylist, error)
	PlaylistTracks(ctx context.Context, playlistID int64) ([]DeezerTrack, error)
}

// Describer turns a photo into a scene description.
type Describer interface {
	Describe(ctx context.Context, imagePath string) (models.SceneDescription, error)
	Model() string
}

// Converter turns a scene description into music parameters.
type Converter interface {
	Convert(ctx context.Context, scene models.SceneDescription) (models.MusicParams, error)
	Model() string
}

// Track represents a destination catalog track
type Track struct {
	ID       string
	URI      string
	Title    string
	Artist   string
	Album    string
	Duration int // Duration in seconds
}
