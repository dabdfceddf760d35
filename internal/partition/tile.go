package partition

import (
	"math"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// Tile is one canvas rectangle together with the derived values the
// assignment solver consumes.
type Tile struct {
	Rect           geometry.Rect `json:"rect"`
	Aspect         float64       `json:"aspect"`
	NormalizedDist float64       `json:"normalizedDist"` // center distance / canvas half-diagonal, in [0,1]
}

// Describe derives Tile values for rects laid out on a canvasW×canvasH canvas.
func Describe(rects []geometry.Rect, canvasW, canvasH float64) []Tile {
	cx, cy := canvasW/2, canvasH/2
	halfDiag := math.Hypot(cx, cy)

	tiles := make([]Tile, len(rects))
	for i, r := range rects {
		tx, ty := r.Center()
		dist := 0.0
		if halfDiag > 0 {
			dist = geometry.Clamp(math.Hypot(tx-cx, ty-cy)/halfDiag, 0, 1)
		}
		tiles[i] = Tile{Rect: r, Aspect: r.Aspect(), NormalizedDist: dist}
	}
	return tiles
}

// TotalArea sums the area of all rects.
func TotalArea(rects []geometry.Rect) float64 {
	total := 0.0
	for _, r := range rects {
		total += r.Area()
	}
	return total
}
