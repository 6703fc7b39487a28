// package models defines the data model for photo-to-playlist generation and export
package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/pictune/internal/shared"
	"golang.org/x/oauth2"
)

// Credentials is the static OAuth app registration.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// NewCredentials validates a credentials map keyed by client_id, client_secret and redirect_uri.
//
// A missing redirect_uri falls back to defaultRedirect when it is non-empty.
func NewCredentials(values map[string]string, defaultRedirect string) (Credentials, error) {
	c := Credentials{
		ClientID:     strings.TrimSpace(values[shared.KeyClientID]),
		ClientSecret: strings.TrimSpace(values[shared.KeyClientSecret]),
		RedirectURI:  strings.TrimSpace(values[shared.KeyRedirectURI]),
	}
	if c.RedirectURI == "" {
		c.RedirectURI = defaultRedirect
	}
	return c, c.Validate()
}

// Validate reports an [shared.ErrConfiguration] for a missing client id or unusable redirect URI.
func (c Credentials) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", shared.ErrConfiguration)
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("%w: redirect_uri is required", shared.ErrConfiguration)
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return fmt.Errorf("%w: redirect_uri must be an http URL with host and port, got %q", shared.ErrConfiguration, c.RedirectURI)
	}
	return nil
}

// ListenAddr returns the host:port the redirect URI points at.
func (c Credentials) ListenAddr() string {
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return ""
	}
	if u.Port() == "" {
		return u.Hostname() + ":80"
	}
	return u.Host
}

// CallbackPath returns the redirect URI path, "/" when empty.
func (c Credentials) CallbackPath() string {
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// AuthorizationRequest is one attempt to obtain user consent.
type AuthorizationRequest struct {
	State     string
	Scopes    []string
	URL       string
	CreatedAt time.Time
}

// CapturedRedirect is what the provider sent back to the redirect endpoint.
type CapturedRedirect struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Denied reports whether the provider redirected with an error.
func (c CapturedRedirect) Denied() bool {
	return c.Error != ""
}

// TokenPair is an access/refresh credential with an absolute expiry.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenPairFrom converts an [oauth2.Token].
func TokenPairFrom(t *oauth2.Token) TokenPair {
	if t == nil {
		return TokenPair{}
	}
	return TokenPair{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, ExpiresAt: t.Expiry}
}

// OAuth2 converts the pair to an [oauth2.Token].
func (p TokenPair) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       p.ExpiresAt,
	}
}

// ExpiresWithin reports whether the access token expires within margin of now.
// A zero expiry never expires.
func (p TokenPair) ExpiresWithin(margin time.Duration, now time.Time) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return p.ExpiresAt.Sub(now) < margin
}

// SourceTrack is a track from the origin catalog to be matched.
type SourceTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// MatchResult is the destination search outcome for one [SourceTrack].
//
// Construct with [Matched] or [Unmatched] so that Found and DestinationID agree.
type MatchResult struct {
	Source        SourceTrack `json:"source"`
	DestinationID string      `json:"destination_id,omitempty"`
	URI           string      `json:"uri,omitempty"`
	Found         bool        `json:"found"`
	Message       string      `json:"message,omitempty"`
	Cached        bool        `json:"cached,omitempty"`
}

// Matched builds a found result. An empty id yields an unmatched result.
func Matched(src SourceTrack, id, uri string) MatchResult {
	if id == "" {
		return Unmatched(src, "empty destination id")
	}
	if uri == "" {
		uri = "spotify:track:" + id
	}
	return MatchResult{Source: src, DestinationID: id, URI: uri, Found: true}
}

// Unmatched builds a not-found result carrying an optional message.
func Unmatched(src SourceTrack, msg string) MatchResult {
	return MatchResult{Source: src, Message: msg}
}

// Playlist is a destination-service playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	URL         string `json:"url"`
}

// AssemblyResult reports how much of a playlist was built.
type AssemblyResult struct {
	Playlist  Playlist `json:"playlist"`
	Created   bool     `json:"created"`
	Confirmed int      `json:"confirmed"`
	Total     int      `json:"total"`
}

// Complete reports whether every requested track was confirmed added.
func (a AssemblyResult) Complete() bool {
	return a.Created && a.Confirmed == a.Total
}

// Summary describes the outcome in a way that distinguishes nothing-happened from partially-happened.
func (a AssemblyResult) Summary() string {
	switch {
	case !a.Created:
		return "no playlist was created"
	case a.Complete():
		return fmt.Sprintf("playlist %q created with all %d tracks", a.Playlist.Name, a.Total)
	default:
		return fmt.Sprintf("playlist %q was created but is incomplete: %d of %d tracks added", a.Playlist.Name, a.Confirmed, a.Total)
	}
}
