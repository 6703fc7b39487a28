package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
)

// CaptureResult is the outcome of an OAuth redirect.
type CaptureResult struct {
	Redirect models.CapturedRedirect
	Err      error
}

// CallbackHandler accepts exactly one OAuth redirect for a pending state token.
// Implements the Handler interface for registration with a Router.
//
// It does not exchange the code: the result is handed to whoever waits on [CallbackHandler.Result].
type CallbackHandler struct {
	path       string
	state      string
	resultChan chan CaptureResult
	once       sync.Once
	satisfied  bool
	mu         sync.Mutex
}

// NewCallbackHandler creates a handler serving path that only accepts redirects echoing state.
func NewCallbackHandler(path, state string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		path:       path,
		state:      state,
		resultChan: make(chan CaptureResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP records the first redirect and answers every later one with a generic page.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.satisfied {
		h.mu.Unlock()
		writePage(w, http.StatusBadRequest, consumedPage)
		return
	}
	h.satisfied = true
	expected := h.state
	h.mu.Unlock()

	q := r.URL.Query()
	redirect := models.CapturedRedirect{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	switch {
	case expected == "" || subtle.ConstantTimeCompare([]byte(redirect.State), []byte(expected)) != 1:
		h.Send(CaptureResult{Err: fmt.Errorf("%w: state mismatch", shared.ErrAuthorizationDenied)})
		writePage(w, http.StatusBadRequest, errorPage("The request could not be verified."))
	case redirect.Denied():
		h.Send(CaptureResult{Redirect: redirect, Err: fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, describe(redirect))})
		writePage(w, http.StatusBadRequest, errorPage(describe(redirect)))
	case redirect.Code == "":
		h.Send(CaptureResult{Redirect: redirect, Err: fmt.Errorf("%w: redirect carried no code", shared.ErrAuthorizationDenied)})
		writePage(w, http.StatusBadRequest, errorPage("missing authorization code"))
	default:
		h.Send(CaptureResult{Redirect: redirect})
		writePage(w, http.StatusOK, successPage)
	}
}

// Invalidate forgets the pending state and marks the handler satisfied so any late redirect is rejected.
func (h *CallbackHandler) Invalidate() {
	h.mu.Lock()
	h.state = ""
	h.satisfied = true
	h.mu.Unlock()
}

// Send delivers the result through the channel (only once).
func (h *CallbackHandler) Send(result CaptureResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CaptureResult {
	return h.resultChan
}

func describe(r models.CapturedRedirect) string {
	if r.ErrorDescription != "" {
		return r.Error + " - " + r.ErrorDescription
	}
	return r.Error
}
