package geometry

import (
	"fmt"
	"strings"
)

// RegionKind identifies what a keep-region was detected as.
type RegionKind string

// Supported keep-region kinds.
const (
	KindFace   RegionKind = "face"
	KindObject RegionKind = "object"
)

// ParseRegionKind parses a kind name case-insensitively.
func ParseRegionKind(s string) (RegionKind, error) {
	switch RegionKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindFace:
		return KindFace, nil
	case KindObject:
		return KindObject, nil
	default:
		return "", fmt.Errorf("unknown region kind %q", s)
	}
}

// KeepRegion is a detected rectangle the cropper should try to preserve.
// Box is expressed in image pixel coordinates.
type KeepRegion struct {
	Kind  RegionKind `json:"kind"`
	Box   Rect       `json:"box"`
	Score float64    `json:"score"`
}

// ConvertRelativeBoxToPixels converts a normalized [0,1] box to pixel space.
func ConvertRelativeBoxToPixels(box Rect, width, height int) Rect {
	if width <= 0 || height <= 0 {
		return box
	}
	return box.Scale(float64(width), float64(height))
}

// ConvertPixelBoxToRelative converts a pixel box to normalized [0,1] coordinates.
func ConvertPixelBoxToRelative(box Rect, width, height int) Rect {
	if width <= 0 || height <= 0 {
		return box
	}
	return box.Scale(1/float64(width), 1/float64(height))
}
