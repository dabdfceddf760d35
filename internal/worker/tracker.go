package worker

import (
	"sync"

	"github.com/kozaktomas/photo-collage/internal/collage"
)

// Tracker drops responses that arrive after the caller's photo set changed.
// Each request is tagged with the fingerprint of its photo ids when sent; a
// response is accepted only if that fingerprint still matches the current one.
type Tracker struct {
	mu      sync.Mutex
	current string
	pending map[string]string // request id -> fingerprint at submit time
}

// NewTracker creates a tracker for the given initial photo ids.
func NewTracker(photoIDs []string) *Tracker {
	return &Tracker{
		current: collage.Fingerprint(photoIDs),
		pending: make(map[string]string),
	}
}

// SetPhotos records the caller's current photo set.
func (t *Tracker) SetPhotos(photoIDs []string) {
	t.mu.Lock()
	t.current = collage.Fingerprint(photoIDs)
	t.mu.Unlock()
}

// Track remembers the fingerprint of an outgoing request.
func (t *Tracker) Track(req collage.Request) {
	t.mu.Lock()
	t.pending[req.RequestID] = collage.Fingerprint(req.PhotoIDs())
	t.mu.Unlock()
}

// Accept reports whether resp belongs to a tracked request whose photo set
// is still current. The request is forgotten either way.
func (t *Tracker) Accept(resp collage.Response) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	fp, ok := t.pending[resp.RequestID]
	if !ok {
		return false
	}
	delete(t.pending, resp.RequestID)
	return fp == t.current
}

// Pending returns the number of tracked requests without a response.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
