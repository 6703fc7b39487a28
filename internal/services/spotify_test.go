package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	tu "github.com/desertthunder/pictune/internal/testing"
)

func testCredentials() models.Credentials {
	return models.Credentials{
		ClientID:     "abc",
		ClientSecret: "secret",
		RedirectURI:  "http://127.0.0.1:8888/callback",
	}
}

func newStubService(t *testing.T) (*SpotifyService, *tu.SpotifyStub) {
	t.Helper()
	stub := tu.NewSpotifyStub(t)
	srv, err := NewSpotifyService(testCredentials(), WithEndpoints(Endpoints{
		AuthURL:  stub.AuthURL(),
		TokenURL: stub.TokenURL(),
		APIURL:   stub.APIURL(),
	}))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv, stub
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if strings.Join(srv.Scopes(), " ") != "playlist-modify-public playlist-modify-private user-read-private" {
				t.Errorf("unexpected scopes %v", srv.Scopes())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			creds := testCredentials()
			creds.ClientID = ""
			if _, err := NewSpotifyService(creds); !errors.Is(err, shared.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			creds := testCredentials()
			creds.ClientSecret = ""
			if _, err := NewSpotifyService(creds); !errors.Is(err, shared.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})

		t.Run("Extra Scopes", func(t *testing.T) {
			scopes := append(append([]string(nil), DefaultScopes...), LibraryScope)
			srv, err := NewSpotifyService(testCredentials(), WithScopes(scopes...))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(srv.AuthCodeURL("s"), LibraryScope) {
				t.Error("auth URL should carry the library scope")
			}
		})
	})

	t.Run("AuthCodeURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		u, err := url.Parse(srv.AuthCodeURL("test_state"))
		if err != nil {
			t.Fatalf("invalid auth URL: %v", err)
		}
		if u.Host != "accounts.spotify.com" {
			t.Errorf("unexpected host %s", u.Host)
		}

		q := u.Query()
		want := map[string]string{
			"client_id":     "abc",
			"redirect_uri":  "http://127.0.0.1:8888/callback",
			"response_type": "code",
			"state":         "test_state",
			"scope":         "playlist-modify-public playlist-modify-private user-read-private",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("expected %s=%q, got %q", k, v, q.Get(k))
			}
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		srv, stub := newStubService(t)

		pair, err := srv.Exchange(context.Background(), "XYZ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pair.AccessToken == "" || pair.RefreshToken != "refresh-1" {
			t.Errorf("unexpected pair %+v", pair)
		}
		if pair.ExpiresAt.Before(time.Now().Add(30 * time.Minute)) {
			t.Errorf("expected expiry about an hour out, got %v", pair.ExpiresAt)
		}

		t.Run("code reuse is rejected", func(t *testing.T) {
			_, err := srv.Exchange(context.Background(), "XYZ")
			if !errors.Is(err, shared.ErrTokenExchange) || !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected token exchange + invalid credentials, got %v", err)
			}
		})

		t.Run("empty code", func(t *testing.T) {
			if _, err := srv.Exchange(context.Background(), ""); !errors.Is(err, shared.ErrTokenExchange) {
				t.Errorf("expected ErrTokenExchange, got %v", err)
			}
		})

		t.Run("provider failure", func(t *testing.T) {
			stub.TokenStatus = 503
			defer func() { stub.TokenStatus = 0 }()

			_, err := srv.Exchange(context.Background(), "fresh")
			if !errors.Is(err, shared.ErrProviderUnavailable) {
				t.Errorf("expected ErrProviderUnavailable, got %v", err)
			}
			if errors.Is(err, shared.ErrInvalidCredentials) {
				t.Error("5xx should not be reported as invalid credentials")
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			dead, err := NewSpotifyService(testCredentials(), WithEndpoints(Endpoints{TokenURL: "http://127.0.0.1:1/api/token"}))
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}
			if _, err := dead.Exchange(context.Background(), "XYZ"); !errors.Is(err, shared.ErrProviderUnavailable) {
				t.Errorf("expected ErrProviderUnavailable, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		srv, stub := newStubService(t)
		pair, err := srv.Exchange(context.Background(), "code-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		t.Run("preserves refresh token", func(t *testing.T) {
			next, err := srv.Refresh(context.Background(), pair)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next.AccessToken == pair.AccessToken {
				t.Error("expected a new access token")
			}
			if next.ExpiresAt.Before(pair.ExpiresAt) {
				t.Errorf("expected later expiry: %v vs %v", next.ExpiresAt, pair.ExpiresAt)
			}
			if next.RefreshToken != pair.RefreshToken {
				t.Errorf("expected refresh token %q to be kept, got %q", pair.RefreshToken, next.RefreshToken)
			}
		})

		t.Run("replaces rotated refresh token", func(t *testing.T) {
			stub.RotateRefresh = true
			defer func() { stub.RotateRefresh = false }()

			next, err := srv.Refresh(context.Background(), pair)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next.RefreshToken == pair.RefreshToken || next.RefreshToken == "" {
				t.Errorf("expected a rotated refresh token, got %q", next.RefreshToken)
			}

			if _, err := srv.Refresh(context.Background(), pair); !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("old refresh token should be rejected, got %v", err)
			}
		})

		t.Run("missing refresh token", func(t *testing.T) {
			if _, err := srv.Refresh(context.Background(), models.TokenPair{AccessToken: "a"}); !errors.Is(err, shared.ErrNoRefreshToken) {
				t.Errorf("expected ErrNoRefreshToken, got %v", err)
			}
		})
	})
}

func TestSpotifyClient(t *testing.T) {
	srv, stub := newStubService(t)
	client := srv.Client(StaticToken("access-test"))
	ctx := context.Background()

	t.Run("SearchTrack", func(t *testing.T) {
		stub.AddTrack("Title A", "Artist A", "trk1")

		track, err := client.SearchTrack(ctx, "Title A", "Artist A")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track == nil || track.ID != "trk1" || track.URI != "spotify:track:trk1" {
			t.Fatalf("unexpected track %+v", track)
		}
		if track.Duration != 180 {
			t.Errorf("expected 180s, got %d", track.Duration)
		}

		if q := stub.Searches[len(stub.Searches)-1]; q != "track:Title A artist:Artist A" {
			t.Errorf("unexpected query %q", q)
		}
	})

	t.Run("SearchTrack no results", func(t *testing.T) {
		track, err := client.SearchTrack(ctx, "Nothing", "Nobody")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track != nil {
			t.Errorf("expected nil track, got %+v", track)
		}
	})

	t.Run("SearchTrack rate limited", func(t *testing.T) {
		stub.RetryAfter = "3"
		stub.RateLimit[shared.NormalizeTrackKey("Busy", "Band")] = 1

		_, err := client.SearchTrack(ctx, "Busy", "Band")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.RetryAfter != 3*time.Second {
			t.Errorf("expected 3s retry after, got %v", apiErr.RetryAfter)
		}
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		user, err := client.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "stub-user" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		pl, err := client.CreatePlaylist(ctx, "stub-user", "Lake Day", "made from a photo", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pl.ID == "" || !strings.HasPrefix(pl.URL, "https://open.spotify.com/playlist/") {
			t.Errorf("unexpected playlist %+v", pl)
		}

		if _, err := client.CreatePlaylist(ctx, "stub-user", " ", "", false); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for blank name, got %v", err)
		}
	})

	t.Run("AddItems", func(t *testing.T) {
		if err := client.AddItems(ctx, "pl1", []string{"spotify:track:trk1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tooMany := make([]string, MaxItemsPerRequest+1)
		if err := client.AddItems(ctx, "pl1", tooMany); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := srv.Client(StaticToken("")).CurrentUser(ctx)
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAPIError(t *testing.T) {
	tc := []struct {
		status int
		want   error
	}{
		{429, shared.ErrRateLimited},
		{401, shared.ErrInvalidCredentials},
		{502, shared.ErrProviderUnavailable},
	}
	for _, tt := range tc {
		err := &APIError{Status: tt.status}
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d should map to %v", tt.status, tt.want)
		}
	}

	if errors.Is(&APIError{Status: 404}, shared.ErrProviderUnavailable) {
		t.Error("404 should not map to provider unavailable")
	}

	if d := parseRetryAfter(""); d != time.Second {
		t.Errorf("expected 1s default, got %v", d)
	}
}
