package partition

import (
	"math"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// Grid returns the deterministic row/column partition used when recursive
// splitting cannot reach the requested tile count. It succeeds for any n > 0.
//
// cols = round(sqrt(n * canvasAspect)), rows = ceil(n / cols). Tiles are
// distributed over rows as evenly as possible with the remainder going to the
// first rows; row heights and column widths are whole pixels where the canvas
// allows it, with the remainder going to the first rows/columns.
func Grid(canvasW, canvasH float64, n int) []geometry.Rect {
	if n <= 0 || canvasW <= 0 || canvasH <= 0 {
		return nil
	}

	cols := int(math.Round(math.Sqrt(float64(n) * canvasW / canvasH)))
	cols = max(1, min(cols, n))
	rows := (n + cols - 1) / cols

	perRow := distributeCount(n, rows)
	heights := splitExtent(canvasH, rows)

	tiles := make([]geometry.Rect, 0, n)
	y := 0.0
	for row := range rows {
		widths := splitExtent(canvasW, perRow[row])
		x := 0.0
		for col := range perRow[row] {
			w := widths[col]
			if col == perRow[row]-1 {
				w = canvasW - x // absorb float drift on the last column
			}
			h := heights[row]
			if row == rows-1 {
				h = canvasH - y
			}
			tiles = append(tiles, geometry.Rect{X: x, Y: y, W: w, H: h})
			x += widths[col]
		}
		y += heights[row]
	}
	return tiles
}

// distributeCount splits n items into k buckets, first buckets get the remainder.
func distributeCount(n, k int) []int {
	out := make([]int, k)
	base, rem := n/k, n%k
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// splitExtent splits total into k parts of whole-pixel size where possible.
// The first parts receive the integer remainder; any fractional remainder goes
// to the last part so the parts always sum to total.
func splitExtent(total float64, k int) []float64 {
	parts := make([]float64, k)
	base := math.Floor(total / float64(k))
	if base < 1 {
		for i := range parts {
			parts[i] = total / float64(k)
		}
		return parts
	}
	rem := total - base*float64(k)
	whole := int(math.Floor(rem))
	for i := range parts {
		parts[i] = base
		if i < whole {
			parts[i]++
		}
	}
	parts[k-1] += rem - float64(whole)
	return parts
}
