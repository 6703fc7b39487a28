package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/server"
	"github.com/desertthunder/pictune/internal/services"
	"github.com/desertthunder/pictune/internal/shared"
)

// DefaultRefreshMargin is how close to expiry a token is refreshed.
const DefaultRefreshMargin = 60 * time.Second

type pending struct {
	req     models.AuthorizationRequest
	capture *server.CaptureServer
}

// Authorizer runs the authorization-code flow with at most one pending request.
type Authorizer struct {
	spotify *services.SpotifyService
	creds   models.Credentials
	margin  time.Duration
	logger  *log.Logger

	mu      sync.Mutex
	pending *pending
}

// Option configures an [Authorizer].
type Option func(*Authorizer)

// WithRefreshMargin sets the margin handed to sessions created by Await.
func WithRefreshMargin(d time.Duration) Option {
	return func(a *Authorizer) {
		if d > 0 {
			a.margin = d
		}
	}
}

// WithLogger sets the authorizer logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Authorizer) { a.logger = l }
}

// NewAuthorizer creates an authorizer for creds, whose redirect URI decides where the listener binds.
func NewAuthorizer(svc *services.SpotifyService, creds models.Credentials, opts ...Option) (*Authorizer, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	a := &Authorizer{
		spotify: svc,
		creds:   creds,
		margin:  DefaultRefreshMargin,
		logger:  shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Begin binds the redirect listener and returns the authorization request to open in a browser.
//
// A second Begin before the first is awaited or cancelled fails with [shared.ErrAuthorizationPending].
func (a *Authorizer) Begin(ctx context.Context) (models.AuthorizationRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.AuthorizationRequest{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pending != nil {
		return models.AuthorizationRequest{}, fmt.Errorf("%w: started at %s", shared.ErrAuthorizationPending,
			a.pending.req.CreatedAt.Format(time.Kitchen))
	}

	state, err := shared.GenerateState()
	if err != nil {
		return models.AuthorizationRequest{}, err
	}

	capture, err := server.Listen(a.creds.ListenAddr(), a.creds.CallbackPath(), state, a.logger)
	if err != nil {
		return models.AuthorizationRequest{}, err
	}

	req := models.AuthorizationRequest{
		State:     state,
		Scopes:    a.spotify.Scopes(),
		URL:       a.spotify.AuthCodeURL(state),
		CreatedAt: time.Now(),
	}
	a.pending = &pending{req: req, capture: capture}
	a.logger.Debug("authorization started", "listen", capture.Addr())
	return req, nil
}

// Await blocks for the redirect of the pending request and exchanges its code.
//
// A timeout of zero waits [server.DefaultWait]. The pending request is cleared on
// return, so the caller may Begin again after any failure.
func (a *Authorizer) Await(ctx context.Context, timeout time.Duration) (*Session, error) {
	a.mu.Lock()
	p := a.pending
	a.mu.Unlock()
	if p == nil {
		return nil, fmt.Errorf("%w: no authorization in progress", shared.ErrValidation)
	}
	defer a.clear(p)

	redirect, err := p.capture.Await(ctx, timeout)
	if err != nil {
		return nil, err
	}

	pair, err := a.spotify.Exchange(ctx, redirect.Code)
	if err != nil {
		return nil, err
	}
	a.logger.Info("authorized", "expires", pair.ExpiresAt.Format(time.RFC3339))
	return NewSession(a.spotify, pair, a.margin, a.logger), nil
}

// Cancel abandons the pending request. Its state becomes invalid and the port is released.
func (a *Authorizer) Cancel() {
	a.mu.Lock()
	p := a.pending
	a.pending = nil
	a.mu.Unlock()

	if p != nil {
		p.capture.Cancel()
	}
}

// Pending reports whether a request is waiting for its redirect.
func (a *Authorizer) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

func (a *Authorizer) clear(p *pending) {
	a.mu.Lock()
	if a.pending == p {
		a.pending = nil
	}
	a.mu.Unlock()
	p.capture.Close()
}
