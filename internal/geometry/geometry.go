package geometry

import "math"

// Rect is an axis-aligned rectangle in pixel space (origin top-left).
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// NewRectFromCorners builds a Rect from [x1, y1, x2, y2] corners.
func NewRectFromCorners(x1, y1, x2, y2 float64) Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Area returns w*h, or 0 for empty rectangles.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Aspect returns w/h. Degenerate rectangles report 0.
func (r Rect) Aspect() float64 {
	if r.H <= 0 {
		return 0
	}
	return r.W / r.H
}

// Center returns the center point.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return !(r.W > 0) || !(r.H > 0)
}

// Finite reports whether all components are finite numbers.
func (r Rect) Finite() bool {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Corners returns the rectangle as [x1, y1, x2, y2].
func (r Rect) Corners() []float64 {
	return []float64{r.X, r.Y, r.Right(), r.Bottom()}
}

// Intersect returns the overlapping part of r and o (empty if disjoint).
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.Right(), o.Right())
	y2 := min(r.Bottom(), o.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Union returns the bounding box of r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return NewRectFromCorners(
		min(r.X, o.X), min(r.Y, o.Y),
		max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom()),
	)
}

// Contains reports whether o lies fully inside r, allowing eps of slack.
func (r Rect) Contains(o Rect, eps float64) bool {
	return o.X >= r.X-eps && o.Y >= r.Y-eps &&
		o.Right() <= r.Right()+eps && o.Bottom() <= r.Bottom()+eps
}

// Expand grows the rectangle by dx on the left and right and dy on the top and bottom.
func (r Rect) Expand(dx, dy float64) Rect {
	return Rect{X: r.X - dx, Y: r.Y - dy, W: r.W + 2*dx, H: r.H + 2*dy}
}

// Scale multiplies every component by (sx, sy).
func (r Rect) Scale(sx, sy float64) Rect {
	return Rect{X: r.X * sx, Y: r.Y * sy, W: r.W * sx, H: r.H * sy}
}

// CenteredAt returns a w×h rectangle centered on (cx, cy).
func CenteredAt(cx, cy, w, h float64) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// ComputeIoU calculates Intersection over Union between two rectangles.
func ComputeIoU(a, b Rect) float64 {
	inter := a.Intersect(b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Clamp limits v to [lo, hi]. If lo > hi the midpoint wins.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
