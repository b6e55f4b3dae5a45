package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, 0)
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("k") {
		t.Fatalf("third request should be blocked")
	}
	if !l.Allow("other") {
		t.Fatalf("other keys have their own bucket")
	}
}

func TestIPRateLimiterWindowResets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("k") || l.Allow("k") {
		t.Fatalf("expected one request per window")
	}
	now = now.Add(61 * time.Second)
	if !l.Allow("k") {
		t.Fatalf("window should have reset")
	}
}

func TestIPRateLimiterPrunesClosedWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < maxRateBuckets; i++ {
		l.Allow(fmt.Sprintf("ip-%d", i))
	}
	now = now.Add(2 * time.Minute)
	l.Allow("fresh")

	if len(l.store) != 1 {
		t.Fatalf("expected expired buckets to be pruned, have %d", len(l.store))
	}
}

func csrfProtected(enforced bool) http.Handler {
	return CSRFMiddleware(enforced)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(CSRFToken(r)))
	}))
}

func TestCSRFMiddlewareEnforced(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/next", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc"})
	req.Header.Set(csrfHeaderName, "abc")
	w := httptest.NewRecorder()
	csrfProtected(true).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCSRFMiddlewareAcceptsFormField(t *testing.T) {
	form := url.Values{csrfFormField: {"abc"}, "entry": {"0"}}
	req := httptest.NewRequest(http.MethodPost, "/exam", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc"})
	w := httptest.NewRecorder()
	csrfProtected(true).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCSRFMiddlewareRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/next", nil)
	w := httptest.NewRecorder()
	csrfProtected(true).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCSRFMiddlewareRejectsMismatch(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/next", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc"})
	req.Header.Set(csrfHeaderName, "xyz")
	w := httptest.NewRecorder()
	csrfProtected(true).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestCSRFMiddlewareIssuesTokenOnGet(t *testing.T) {
	w := httptest.NewRecorder()
	csrfProtected(false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var issued *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			issued = c
		}
	}
	if issued == nil || issued.Value == "" {
		t.Fatalf("expected csrf cookie to be issued")
	}
	if w.Body.String() != issued.Value {
		t.Fatalf("handler saw token %q, cookie has %q", w.Body.String(), issued.Value)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued)
	w = httptest.NewRecorder()
	csrfProtected(false).ServeHTTP(w, req)
	if len(w.Result().Cookies()) != 0 {
		t.Fatalf("existing token must not be replaced")
	}
}

func TestCSRFMiddlewareNotEnforcedPassesPosts(t *testing.T) {
	w := httptest.NewRecorder()
	csrfProtected(false).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/next", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
