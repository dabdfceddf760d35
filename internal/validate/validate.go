// Package validate checks placements against their tiles.
package validate

import (
	"fmt"
	"math"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// Mode selects how strictly a drawn rectangle must match its tile.
type Mode string

const (
	// Strict requires the drawn rectangle to equal the tile.
	Strict Mode = "strict"
	// Cover requires the drawn rectangle to be centered on and cover the tile,
	// with bounded overflow.
	Cover Mode = "cover"
)

// Options are the validation tolerances.
type Options struct {
	EdgeEpsilon float64 `yaml:"edge_epsilon" json:"edgeEpsilon"` // px
	AreaEpsilon float64 `yaml:"area_epsilon" json:"areaEpsilon"` // px²
	MaxOverflow float64 `yaml:"max_overflow" json:"maxOverflow"` // fraction of the tile side
}

// DefaultOptions returns the standard tolerances.
func DefaultOptions() Options {
	return Options{EdgeEpsilon: 0.05, AreaEpsilon: 0.5, MaxOverflow: 0.5}
}

// Result is the outcome for a single placement.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func fail(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks one placement with the default tolerances.
func Validate(tile geometry.Rect, p geometry.Placement, canvasW, canvasH float64, mode Mode) Result {
	return DefaultOptions().Validate(tile, p, canvasW, canvasH, mode)
}

// Validate checks one placement against its tile.
func (o Options) Validate(tile geometry.Rect, p geometry.Placement, canvasW, canvasH float64, mode Mode) Result {
	eps := o.EdgeEpsilon

	if !tile.Finite() || tile.Empty() {
		return fail("tile %+v is degenerate", tile)
	}
	if !(p.Scale > 0) || math.IsInf(p.Scale, 0) {
		return fail("scale %v is not a positive finite number", p.Scale)
	}
	if !p.Crop.Finite() || p.Crop.Empty() {
		return fail("crop %+v is degenerate", p.Crop)
	}
	if p.Rotation != 0 {
		return fail("rotation %v is not supported", p.Rotation)
	}

	drawn := p.Drawn()
	if !drawn.Finite() {
		return fail("drawn rectangle is not finite")
	}

	switch mode {
	case Strict:
		if math.Abs(drawn.X-tile.X) > eps || math.Abs(drawn.Y-tile.Y) > eps ||
			math.Abs(drawn.Right()-tile.Right()) > eps || math.Abs(drawn.Bottom()-tile.Bottom()) > eps {
			return fail("drawn %s does not match tile %s", fmtRect(drawn), fmtRect(tile))
		}
		canvas := geometry.Rect{W: canvasW, H: canvasH}
		if !canvas.Contains(drawn, eps) {
			return fail("drawn %s extends past canvas %.2fx%.2f", fmtRect(drawn), canvasW, canvasH)
		}

	case Cover:
		tcx, tcy := tile.Center()
		if math.Abs(p.CenterX-tcx) > eps || math.Abs(p.CenterY-tcy) > eps {
			return fail("center (%.2f,%.2f) is off tile center (%.2f,%.2f)", p.CenterX, p.CenterY, tcx, tcy)
		}
		if drawn.W < tile.W-eps || drawn.H < tile.H-eps {
			return fail("drawn %.2fx%.2f does not cover tile %.2fx%.2f", drawn.W, drawn.H, tile.W, tile.H)
		}
		limit := 1 + o.MaxOverflow
		if drawn.W > tile.W*limit+eps || drawn.H > tile.H*limit+eps {
			return fail("drawn %.2fx%.2f overflows tile %.2fx%.2f by more than %.0f%%",
				drawn.W, drawn.H, tile.W, tile.H, o.MaxOverflow*100)
		}

	default:
		return fail("unknown validation mode %q", mode)
	}

	return Result{OK: true}
}

// Issue is a failed check within a layout.
type Issue struct {
	Index  int    `json:"index"` // placement index, -1 for layout-wide issues
	Reason string `json:"reason"`
}

// Report collects all issues of a layout.
type Report struct {
	OK     bool    `json:"ok"`
	Issues []Issue `json:"issues,omitempty"`
}

// ValidateLayout checks a layout with the default tolerances.
func ValidateLayout(tiles []geometry.Rect, placements []geometry.Placement, canvasW, canvasH float64, mode Mode) Report {
	return DefaultOptions().ValidateLayout(tiles, placements, canvasW, canvasH, mode)
}

// ValidateLayout checks every placement against its tile (tiles[i] belongs to
// placements[i]), that the tiles cover the canvas area and, in strict mode,
// that no two drawn rectangles overlap.
func (o Options) ValidateLayout(tiles []geometry.Rect, placements []geometry.Placement, canvasW, canvasH float64, mode Mode) Report {
	var issues []Issue

	if len(tiles) != len(placements) {
		issues = append(issues, Issue{Index: -1, Reason: fmt.Sprintf("%d tiles for %d placements", len(tiles), len(placements))})
		return Report{Issues: issues}
	}

	seen := make(map[string]int, len(placements))
	for i, p := range placements {
		if prev, dup := seen[p.ID]; dup {
			issues = append(issues, Issue{Index: i, Reason: fmt.Sprintf("photo %q already placed at index %d", p.ID, prev)})
		}
		seen[p.ID] = i

		if res := o.Validate(tiles[i], p, canvasW, canvasH, mode); !res.OK {
			issues = append(issues, Issue{Index: i, Reason: res.Reason})
		}
	}

	total := 0.0
	for _, t := range tiles {
		total += t.Area()
	}
	if canvas := canvasW * canvasH; math.Abs(total-canvas) > o.AreaEpsilon {
		issues = append(issues, Issue{Index: -1, Reason: fmt.Sprintf("tile area %.2f differs from canvas area %.2f", total, canvas)})
	}

	if mode == Strict {
		eps := o.EdgeEpsilon
		for i := range placements {
			a := placements[i].Drawn()
			for j := i + 1; j < len(placements); j++ {
				if overlap := a.Intersect(placements[j].Drawn()); overlap.W > eps && overlap.H > eps {
					issues = append(issues, Issue{Index: j, Reason: fmt.Sprintf("drawn rectangle overlaps placement %d", i)})
				}
			}
		}
	}

	return Report{OK: len(issues) == 0, Issues: issues}
}

func fmtRect(r geometry.Rect) string {
	return fmt.Sprintf("(%.2f,%.2f %.2fx%.2f)", r.X, r.Y, r.W, r.H)
}
