package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
	"golang.org/x/oauth2"
)

// Session owns a token pair. The pair is only ever replaced whole, under the session lock.
type Session struct {
	spotify *services.SpotifyService
	margin  time.Duration
	logger  *log.Logger
	now     func() time.Time

	mu   sync.Mutex
	pair models.TokenPair
}

// NewSession wraps pair. A margin of zero uses [DefaultRefreshMargin].
func NewSession(svc *services.SpotifyService, pair models.TokenPair, margin time.Duration, logger *log.Logger) *Session {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{spotify: svc, pair: pair, margin: margin, logger: logger, now: time.Now}
}

// Token returns a pair whose access token is valid for at least the refresh margin, refreshing first if needed.
func (s *Session) Token(ctx context.Context) (models.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pair.ExpiresWithin(s.margin, s.now()) {
		return s.pair, nil
	}

	next, err := s.spotify.Refresh(ctx, s.pair)
	if err != nil {
		return models.TokenPair{}, err
	}
	s.logger.Debug("access token refreshed", "expires", next.ExpiresAt.Format(time.RFC3339),
		"rotated", next.RefreshToken != s.pair.RefreshToken)
	s.pair = next
	return next, nil
}

// AccessToken implements [services.AccessTokenSource].
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	p, err := s.Token(ctx)
	if err != nil {
		return "", err
	}
	return p.AccessToken, nil
}

// Pair returns the current pair without refreshing.
func (s *Session) Pair() models.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// Client returns a Web API client authorized by this session.
func (s *Session) Client() *services.SpotifyClient {
	return s.spotify.Client(s)
}

// TokenSource adapts the session to [oauth2.TokenSource]. Refreshes run under ctx.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, session: s}
}

// HTTPClient returns a client that authorizes every request through [Session.Token], so the
// session's refresh margin applies. The transport is not wrapped in a reusing token source.
func (s *Session) HTTPClient(ctx context.Context) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: s.TokenSource(ctx)},
		Timeout:   shared.ReadTimeout,
	}
}

type tokenSource struct {
	ctx     context.Context
	session *Session
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	p, err := t.session.Token(t.ctx)
	if err != nil {
		return nil, err
	}
	return p.OAuth2(), nil
}
