package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stashbot/internal/request"
)

func TestOwner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedOwner  string
	}{
		{name: "owner header present", header: "owner-1", expectedStatus: http.StatusOK, expectedOwner: "owner-1"},
		{name: "surrounding whitespace trimmed", header: "  owner-1  ", expectedStatus: http.StatusOK, expectedOwner: "owner-1"},
		{name: "missing header rejected", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "oversized id rejected", header: strings.Repeat("x", MaxOwnerIDLength+1), expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotOwner string
			handler := Owner()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOwner = request.OwnerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/items", nil)
			if tt.header != "" {
				req.Header.Set(OwnerIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, expected %d", rec.Code, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusOK && gotOwner != tt.expectedOwner {
				t.Errorf("owner = %q, expected %q", gotOwner, tt.expectedOwner)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.RequestIDFromContext(r.Context())
	}))

	// generated when absent
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if seen == "" {
		t.Error("no request id generated")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Error("request id not echoed on the response")
	}

	// reused when supplied
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "trace-123" {
		t.Errorf("incoming request id not reused: %q", seen)
	}
}
