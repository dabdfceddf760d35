package database

import (
	"context"
)

// KeepRegionReader provides read-only access to cached keep-regions
type KeepRegionReader interface {
	// Get retrieves the record for a photo version, returns nil if not found
	Get(ctx context.Context, photoID, contentHash string) (*KeepRegionRecord, error)
	// ListByPhoto returns all cached versions of a photo, newest first
	ListByPhoto(ctx context.Context, photoID string) ([]KeepRegionRecord, error)
	// Count returns the total number of cached records
	Count(ctx context.Context) (int, error)
}

// KeepRegionWriter provides write access to cached keep-regions
type KeepRegionWriter interface {
	KeepRegionReader

	// Save stores a record (replaces an existing record for the same photo version)
	Save(ctx context.Context, rec KeepRegionRecord) error

	// DeleteByPhoto removes all versions of a photo and returns how many were deleted
	DeleteByPhoto(ctx context.Context, photoID string) (int64, error)
}
