package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORS([]string{" https://collage.example.com/ ", ""})(next)

	tests := []struct {
		name        string
		method      string
		origin      string
		wantAllowed bool
		wantStatus  int
	}{
		{"configured origin", http.MethodGet, "https://collage.example.com", true, http.StatusTeapot},
		{"localhost with port", http.MethodGet, "http://localhost:5173", true, http.StatusTeapot},
		{"localhost lookalike", http.MethodGet, "http://localhost.evil.com", false, http.StatusTeapot},
		{"unknown origin", http.MethodGet, "https://evil.example.com", false, http.StatusTeapot},
		{"no origin", http.MethodGet, "", false, http.StatusTeapot},
		{"preflight", http.MethodOptions, "https://collage.example.com", true, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/layout", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)

			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
			got := recorder.Header().Get("Access-Control-Allow-Origin")
			if tc.wantAllowed && got != tc.origin {
				t.Errorf("expected allow-origin %q, got %q", tc.origin, got)
			}
			if !tc.wantAllowed && got != "" {
				t.Errorf("expected no allow-origin header, got %q", got)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if recorder.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options DENY")
	}
}
