package collage

import (
	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// Photo is a caller-owned photo. Crop is the user-chosen base crop in image
// pixels; an all-zero crop means the whole image.
type Photo struct {
	ID          string                `json:"id"`
	Crop        geometry.Rect         `json:"crop"`
	ImageWidth  float64               `json:"imageWidth"`
	ImageHeight float64               `json:"imageHeight"`
	KeepRegions []geometry.KeepRegion `json:"keepRegions,omitempty"`
}

// Options are optional per-request knobs.
type Options struct {
	Seed          *uint32  `json:"seed,omitempty"`
	SplitRatioMin *float64 `json:"splitRatioMin,omitempty"`
	SplitRatioMax *float64 `json:"splitRatioMax,omitempty"`
}

// Request asks for a layout of Photos on a CanvasWidth×CanvasHeight canvas.
type Request struct {
	RequestID    string   `json:"requestId"`
	Photos       []Photo  `json:"photos"`
	CanvasWidth  float64  `json:"canvasWidth"`
	CanvasHeight float64  `json:"canvasHeight"`
	Options      *Options `json:"options,omitempty"`
}

// Placement is a single photo positioned on the canvas.
type Placement = geometry.Placement

// Response carries either placements or an error for a request.
type Response struct {
	RequestID  string      `json:"requestId"`
	OK         bool        `json:"ok"`
	Placements []Placement `json:"placements,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// PhotoIDs returns the ids of the request's photos in order.
func (r Request) PhotoIDs() []string {
	ids := make([]string, len(r.Photos))
	for i, p := range r.Photos {
		ids[i] = p.ID
	}
	return ids
}
