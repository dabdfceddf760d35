// Package mock provides in-memory implementations of database interfaces.
// It backs tests and servers running without DATABASE_URL.
package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/photo-collage/internal/database"
	"github.com/kozaktomas/photo-collage/internal/geometry"
)

type recordKey struct {
	photoID     string
	contentHash string
}

// MockKeepRegionStore is an in-memory implementation of database.KeepRegionWriter
type MockKeepRegionStore struct {
	mu      sync.RWMutex
	records map[recordKey]database.KeepRegionRecord

	// Error injection
	GetError    error
	SaveError   error
	ListError   error
	CountError  error
	DeleteError error

	// Call counters
	GetCalls  int
	SaveCalls int
}

// NewMockKeepRegionStore creates a new empty store
func NewMockKeepRegionStore() *MockKeepRegionStore {
	return &MockKeepRegionStore{
		records: make(map[recordKey]database.KeepRegionRecord),
	}
}

// Get retrieves a record, returns nil if not found
func (m *MockKeepRegionStore) Get(ctx context.Context, photoID, contentHash string) (*database.KeepRegionRecord, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{photoID, contentHash}]
	if !ok {
		return nil, nil
	}
	rec.Regions = slices.Clone(rec.Regions)
	return &rec, nil
}

// ListByPhoto returns all versions of a photo, newest first
func (m *MockKeepRegionStore) ListByPhoto(ctx context.Context, photoID string) ([]database.KeepRegionRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.KeepRegionRecord
	for k, rec := range m.records {
		if k.photoID == photoID {
			rec.Regions = slices.Clone(rec.Regions)
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b database.KeepRegionRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Count returns the number of stored records
func (m *MockKeepRegionStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Save stores a record
func (m *MockKeepRegionStore) Save(ctx context.Context, rec database.KeepRegionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Regions == nil {
		rec.Regions = []geometry.KeepRegion{}
	} else {
		rec.Regions = slices.Clone(rec.Regions)
	}
	m.records[recordKey{rec.PhotoID, rec.ContentHash}] = rec
	return nil
}

// DeleteByPhoto removes all versions of a photo
func (m *MockKeepRegionStore) DeleteByPhoto(ctx context.Context, photoID string) (int64, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.records {
		if k.photoID == photoID {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}
