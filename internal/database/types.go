package database

import (
	"time"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// KeepRegionRecord is a cached detection result for one version of a photo.
// The same photo id with different image bytes produces a separate record.
type KeepRegionRecord struct {
	PhotoID     string
	ContentHash string // hex sha256 of the image bytes
	Width       int    // oriented image width in pixels
	Height      int    // oriented image height in pixels
	Regions     []geometry.KeepRegion
	Detectors   string // providers that produced the regions, e.g. "insightface+gpt-4.1-mini"
	CreatedAt   time.Time
}
