// Package detect finds keep-regions (faces and salient objects) in photos.
package detect

import (
	"context"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// Image is an encoded image handed to a detector together with its pixel size.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Detection is a single box reported by a provider. Box is normalized to the
// [0,1] range of the image the provider received.
type Detection struct {
	Box   geometry.Rect
	Score float64
	Label string
}

// Provider defines the interface for detection backends.
type Provider interface {
	Name() string
	Detect(ctx context.Context, img Image) ([]Detection, error)
}
