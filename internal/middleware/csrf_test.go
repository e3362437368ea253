// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// csrfCookie runs a GET through h and returns the issued cookie.
func csrfCookie(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/editor", nil))
	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	t.Fatal("CSRF cookie not set")
	return nil
}

func TestNewCSRFSecureFlag(t *testing.T) {
	for _, secure := range []bool{true, false} {
		c := csrfCookie(t, NewCSRF(secure)(okHandler()))
		if c.Secure != secure {
			t.Errorf("cookie Secure: got %v, want %v", c.Secure, secure)
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie SameSite: got %v, want StrictMode", c.SameSite)
		}
		if c.HttpOnly {
			t.Error("cookie must be readable by the editor script")
		}
		if len(c.Value) != 2*csrfTokenLength {
			t.Errorf("token length: got %d", len(c.Value))
		}
	}
}

func TestCSRFUnsafeMethodsRequireToken(t *testing.T) {
	h := NewCSRF(false)(okHandler())
	cookie := csrfCookie(t, h)

	tests := []struct {
		name   string
		method string
		header string
		want   int
	}{
		{"post without token", http.MethodPost, "", http.StatusForbidden},
		{"put with wrong token", http.MethodPut, "nope", http.StatusForbidden},
		{"delete with token", http.MethodDelete, cookie.Value, http.StatusOK},
		{"patch with token", http.MethodPatch, cookie.Value, http.StatusOK},
		{"get without token", http.MethodGet, "", http.StatusOK},
		{"head without token", http.MethodHead, "", http.StatusOK},
		{"options without token", http.MethodOptions, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/pages", nil)
			req.AddCookie(cookie)
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCSRFFreshClientCannotMutate(t *testing.T) {
	// Without a cookie a new token is issued, which the request cannot know.
	req := httptest.NewRequest(http.MethodPost, "/api/pages", nil)
	req.Header.Set(CSRFHeaderName, "guess")
	rr := httptest.NewRecorder()
	NewCSRF(false)(okHandler()).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("got %d, want 403", rr.Code)
	}
}

func TestCSRFTokenInContext(t *testing.T) {
	var seen string
	h := NewCSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CSRFToken(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := rr.Result().Cookies()[0].Value
	if seen == "" || seen != issued {
		t.Errorf("context token %q, cookie %q", seen, issued)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "existing" {
		t.Errorf("existing cookie token not exposed: %q", seen)
	}
}
