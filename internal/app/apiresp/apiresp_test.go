package apiresp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestWriteOKCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-1"))
	w := httptest.NewRecorder()

	WriteOK(w, req, http.StatusCreated, map[string]string{"session_id": "s"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	env := decode(t, w)
	if !env.OK || env.Error != nil || env.Meta.RequestID != "req-1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestWriteErrorDerivesCode(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{status: http.StatusBadRequest, code: "invalid_request"},
		{status: http.StatusNotFound, code: "not_found"},
		{status: http.StatusConflict, code: "conflict"},
		{status: http.StatusTooManyRequests, code: "rate_limited"},
		{status: http.StatusInternalServerError, code: "internal_error"},
		{status: http.StatusTeapot, code: "error"},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), tc.status, "")
		env := decode(t, w)
		if env.OK || env.Error == nil {
			t.Fatalf("status %d: expected error envelope", tc.status)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("status %d: expected code %s, got %s", tc.status, tc.code, env.Error.Code)
		}
		if env.Error.Message != http.StatusText(tc.status) {
			t.Fatalf("status %d: expected default message, got %q", tc.status, env.Error.Message)
		}
	}
}

func TestWriteErrorCodeKeepsCustomCode(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorCode(w, httptest.NewRequest(http.MethodPost, "/", nil), http.StatusConflict, "invalid_transition", "not now")
	env := decode(t, w)
	if env.Error.Code != "invalid_transition" || env.Error.Message != "not now" {
		t.Fatalf("unexpected error payload %+v", env.Error)
	}
}
