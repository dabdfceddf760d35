package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/config"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Layout: collage.DefaultConfig(),
		Detection: config.DetectionConfig{
			Object: "none",
		},
	}
}

// testRequest builds a small valid layout request: square photos on a strip
// of square tiles, which the grid fallback can always satisfy
func testRequest(id string, photoIDs ...string) collage.Request {
	width := 800 * float64(max(1, len(photoIDs)))
	req := collage.Request{RequestID: id, CanvasWidth: width, CanvasHeight: 800}
	for _, pid := range photoIDs {
		req.Photos = append(req.Photos, collage.Photo{ID: pid, ImageWidth: 1200, ImageHeight: 1200})
	}
	return req
}

// unsatisfiableRequest mixes a landscape and a portrait photo on a square
// canvas; no two-tile cut keeps both within the cover overflow cap
func unsatisfiableRequest(id string) collage.Request {
	return collage.Request{
		RequestID:    id,
		CanvasWidth:  1000,
		CanvasHeight: 1000,
		Photos: []collage.Photo{
			{ID: "landscape", ImageWidth: 1200, ImageHeight: 800},
			{ID: "portrait", ImageWidth: 800, ImageHeight: 1200},
		},
	}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// waitForStatus polls a job until it reaches a terminal state or the deadline passes
func waitForStatus(t *testing.T, job *LayoutJob) JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if status := job.GetStatus(); isJobTerminal(status) {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish, status %s", job.ID, job.GetStatus())
	return ""
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
