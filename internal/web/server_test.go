package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/config"
	"github.com/kozaktomas/photo-collage/internal/logging"
	"github.com/kozaktomas/photo-collage/internal/worker"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	w := worker.New(collage.NewEngine(collage.DefaultConfig(), nil), 4, nil)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	cfg := &config.Config{Layout: collage.DefaultConfig()}
	cfg.Web.AllowedOrigins = []string{"https://collage.example.com"}
	s := NewServer(cfg, w, nil, logging.Discard())
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodGet, "/api/v1/layout/jobs", http.StatusOK},
		{http.MethodGet, "/api/v1/layout/jobs/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/layout/jobs/unknown", http.StatusNotFound},
		{http.MethodPost, "/api/v1/detect", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/photos", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.path, nil))
			if recorder.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServer_Layout(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(collage.Request{
		RequestID:    "srv",
		CanvasWidth:  1600,
		CanvasHeight: 800,
		Photos: []collage.Photo{
			{ID: "a", ImageWidth: 1200, ImageHeight: 1000},
			{ID: "b", ImageWidth: 1000, ImageHeight: 1000},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/layout", bytes.NewReader(body))
	req.Header.Set("Origin", "https://collage.example.com")
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://collage.example.com" {
		t.Errorf("expected CORS header for configured origin, got %q", got)
	}

	var resp collage.Response
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || len(resp.Placements) != 2 {
		t.Errorf("expected 2 placements, got ok=%v n=%d err=%q", resp.OK, len(resp.Placements), resp.Error)
	}
}
