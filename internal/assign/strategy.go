package assign

import "math"

// Orientation is the visual orientation of a photo or tile.
type Orientation string

// Orientation values.
const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
	Square    Orientation = "square"
)

// SquareEpsilon is the tolerance around aspect 1 treated as square.
const SquareEpsilon = 0.05

// OrientationOf classifies an aspect ratio.
func OrientationOf(aspect float64) Orientation {
	switch {
	case math.Abs(aspect-1) <= SquareEpsilon:
		return Square
	case aspect > 1:
		return Landscape
	default:
		return Portrait
	}
}

// PhotoStrategy is derived per layout call from a photo's crop aspect.
type PhotoStrategy struct {
	SourceAspect    float64     `json:"sourceAspect"`
	Orientation     Orientation `json:"orientation"`
	PreferredAspect float64     `json:"preferredAspect"`
	IsExtreme       bool        `json:"isExtreme"`
}

// NewPhotoStrategy derives the strategy for a photo of the given aspect.
// band is the acceptable aspect envelope, i.e. [1/band, band].
func NewPhotoStrategy(sourceAspect, band float64) PhotoStrategy {
	if !(band > 1) {
		band = 1.5
	}
	s := PhotoStrategy{
		SourceAspect:    sourceAspect,
		Orientation:     OrientationOf(sourceAspect),
		PreferredAspect: sourceAspect,
	}
	if sourceAspect > band || sourceAspect < 1/band {
		s.IsExtreme = true
		s.PreferredAspect = min(max(sourceAspect, 1/band), band)
	}
	return s
}

// flips reports whether putting a photo of orientation p into a tile of
// orientation t reverses its visual orientation. Square cases never flip.
func flips(p, t Orientation) bool {
	return (p == Portrait && t == Landscape) || (p == Landscape && t == Portrait)
}
