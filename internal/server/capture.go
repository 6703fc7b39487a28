package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
)

// Default bounds for the redirect wait and server teardown.
const (
	DefaultWait     = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

// CaptureServer is a short-lived listener that waits for one OAuth redirect.
type CaptureServer struct {
	handler   *CallbackHandler
	srv       *http.Server
	ln        net.Listener
	serveErr  chan error
	closeOnce sync.Once
	logger    *log.Logger
}

// Listen binds addr and starts serving the callback path for state.
//
// The bind happens before Listen returns, so the caller can hand out the authorization URL knowing the redirect will land.
// Bind failures are reported as [shared.ErrPortUnavailable]; no other port is tried.
func Listen(addr, path, state string, logger *log.Logger) (*CaptureServer, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrPortUnavailable, addr, err)
	}

	handler := NewCallbackHandler(path, state)
	router := NewBasicRouter()
	router.Use(LoggingMiddleware(logger))
	router.Handler(handler)

	c := &CaptureServer{
		handler:  handler,
		srv:      &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		ln:       ln,
		serveErr: make(chan error, 1),
		logger:   logger,
	}

	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.serveErr <- err
		}
	}()

	logger.Debug("redirect capture listening", "addr", ln.Addr().String(), "path", handler.path)
	return c, nil
}

// Addr returns the bound address.
func (c *CaptureServer) Addr() string {
	return c.ln.Addr().String()
}

// Await blocks until a redirect arrives, ctx is done, or timeout elapses (default [DefaultWait]).
//
// The port is released before Await returns, whatever the outcome.
func (c *CaptureServer) Await(ctx context.Context, timeout time.Duration) (models.CapturedRedirect, error) {
	defer c.Close()

	if timeout <= 0 {
		timeout = DefaultWait
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res, ok := <-c.handler.Result():
		if !ok {
			return models.CapturedRedirect{}, fmt.Errorf("%w: capture closed", shared.ErrAuthorizationDenied)
		}
		return res.Redirect, res.Err
	case err := <-c.serveErr:
		return models.CapturedRedirect{}, fmt.Errorf("redirect server failed: %w", err)
	case <-timer.C:
		c.handler.Invalidate()
		return models.CapturedRedirect{}, fmt.Errorf("%w: no redirect within %s", shared.ErrAuthorizationTimeout, timeout)
	case <-ctx.Done():
		c.handler.Invalidate()
		return models.CapturedRedirect{}, ctx.Err()
	}
}

// Cancel invalidates the pending state, wakes a blocked [CaptureServer.Await] and releases the port.
func (c *CaptureServer) Cancel() {
	c.handler.Invalidate()
	c.handler.Send(CaptureResult{Err: fmt.Errorf("%w: authorization cancelled", shared.ErrAuthorizationDenied)})
	c.Close()
}

// Close shuts the server down gracefully, forcing it closed after a bounded wait. Safe to call more than once.
func (c *CaptureServer) Close() {
	c.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := c.srv.Shutdown(ctx); err != nil {
			c.logger.Warn("redirect capture shutdown", "error", err)
			c.srv.Close()
		}
		c.ln.Close()
		c.logger.Debug("redirect capture closed", "addr", c.Addr())
	})
}
