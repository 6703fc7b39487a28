package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/pictune/internal/shared"
)

func TestCallbackHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewCallbackHandler("", "s")
		if got := h.Routes(); len(got) != 1 || got[0] != "/callback" {
			t.Errorf("unexpected routes %v", got)
		}
	})

	t.Run("success", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "good-state")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=XYZ&state=good-state", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page")
		}

		res := <-h.Result()
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Redirect.Code != "XYZ" {
			t.Errorf("expected code XYZ, got %q", res.Redirect.Code)
		}
	})

	t.Run("state mismatch is rejected even with a code", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "good-state")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=XYZ&state=forged", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		res := <-h.Result()
		if !errors.Is(res.Err, shared.ErrAuthorizationDenied) {
			t.Errorf("expected ErrAuthorizationDenied, got %v", res.Err)
		}
		if res.Redirect.Code != "" {
			t.Errorf("forged redirect must not surface a code, got %q", res.Redirect.Code)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&error_description=user+said+no&state=s", nil))

		if !strings.Contains(rec.Body.String(), "access_denied - user said no") {
			t.Errorf("expected error detail in page, got %s", rec.Body.String())
		}

		res := <-h.Result()
		if !errors.Is(res.Err, shared.ErrAuthorizationDenied) {
			t.Errorf("expected ErrAuthorizationDenied, got %v", res.Err)
		}
		if res.Redirect.Error != "access_denied" {
			t.Errorf("expected access_denied, got %q", res.Redirect.Error)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s", nil))

		res := <-h.Result()
		if !errors.Is(res.Err, shared.ErrAuthorizationDenied) {
			t.Errorf("expected ErrAuthorizationDenied, got %v", res.Err)
		}
	})

	t.Run("only first request is accepted", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=first&state=s", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=second&state=s", nil))
		if !strings.Contains(rec.Body.String(), "already been handled") {
			t.Error("expected generic page for second request")
		}

		res := <-h.Result()
		if res.Redirect.Code != "first" {
			t.Errorf("expected first code, got %q", res.Redirect.Code)
		}
		if _, ok := <-h.Result(); ok {
			t.Error("result channel should be closed after one result")
		}
	})

	t.Run("invalidated handler rejects redirects", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")
		h.Invalidate()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=late&state=s", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		select {
		case <-h.Result():
			t.Error("invalidated handler should not produce a result")
		default:
		}
	})
}
