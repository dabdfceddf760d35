package partition

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

func assertExactTiling(t *testing.T, rects []geometry.Rect, w, h float64, n int) {
	t.Helper()
	require.Len(t, rects, n)

	canvas := geometry.Rect{W: w, H: h}
	for i, r := range rects {
		require.Truef(t, r.W > 0 && r.H > 0, "tile %d is degenerate: %+v", i, r)
		require.Truef(t, canvas.Contains(r, 1e-6), "tile %d outside canvas: %+v", i, r)
	}
	assert.InDelta(t, w*h, TotalArea(rects), 0.5)

	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			overlap := rects[i].Intersect(rects[j]).Area()
			require.LessOrEqualf(t, overlap, 1e-6, "tiles %d and %d overlap", i, j)
		}
	}
}

func TestPartition_Coverage(t *testing.T) {
	canvases := []struct{ w, h float64 }{
		{1000, 1000},
		{3200, 2400},
		{800, 1200},
		{1920, 1080},
		{333, 217},
	}
	for _, c := range canvases {
		t.Run(fmt.Sprintf("%gx%g", c.w, c.h), func(t *testing.T) {
			for n := 1; n <= 150; n++ {
				rects := Partition(c.w, c.h, n, uint32(n)*7919, 0, 0)
				assertExactTiling(t, rects, c.w, c.h, n)
			}
		})
	}
}

func TestPartition_Deterministic(t *testing.T) {
	a := Partition(3200, 2400, 37, 2026, 0.3, 0.7)
	b := Partition(3200, 2400, 37, 2026, 0.3, 0.7)
	assert.Equal(t, a, b)
}

func TestPartition_SeedChangesLayout(t *testing.T) {
	a := Partition(3200, 2400, 12, 1, 0, 0)
	b := Partition(3200, 2400, 12, 2, 0, 0)
	assert.NotEqual(t, a, b)
}

func TestPartition_SingleTile(t *testing.T) {
	rects := Partition(1000, 1000, 1, 42, 0, 0)
	require.Len(t, rects, 1)
	assert.Equal(t, geometry.Rect{W: 1000, H: 1000}, rects[0])
}

func TestPartition_InvalidInput(t *testing.T) {
	assert.Empty(t, Partition(0, 100, 3, 1, 0, 0))
	assert.Empty(t, Partition(100, 100, 0, 1, 0, 0))
	assert.Empty(t, Partition(math.NaN(), 100, 3, 1, 0, 0))
}

func TestPartitionWithOptions_FallsBackToGrid(t *testing.T) {
	// A 10x10 canvas cannot hold 150 tiles with a side of at least 2px.
	res := PartitionWithOptions(10, 10, 150, NewLCG(7), DefaultOptions())
	assert.True(t, res.UsedGrid)
	assertExactTiling(t, res.Tiles, 10, 10, 150)
}

func TestPartitionWithOptions_SplitsAreWholePixels(t *testing.T) {
	res := PartitionWithOptions(1600, 1200, 9, NewLCG(99), DefaultOptions())
	require.False(t, res.UsedGrid)
	for _, r := range res.Tiles {
		for _, v := range r.Corners() {
			assert.Equal(t, math.Round(v), v)
		}
	}
}

func TestGrid(t *testing.T) {
	tests := []struct {
		name     string
		w, h     float64
		n        int
		wantRows int
	}{
		{"square four", 1000, 1000, 4, 2},
		{"wide seven", 1600, 900, 7, 2},
		{"tall five", 600, 1200, 5, 3},
		{"one", 500, 300, 1, 1},
		{"prime on odd canvas", 1001, 777, 13, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rects := Grid(tt.w, tt.h, tt.n)
			assertExactTiling(t, rects, tt.w, tt.h, tt.n)

			rows := map[float64]bool{}
			for _, r := range rects {
				rows[r.Y] = true
			}
			assert.Len(t, rows, tt.wantRows)
		})
	}
}

func TestSplitExtent(t *testing.T) {
	assert.Equal(t, []float64{334, 333, 333}, splitExtent(1000, 3))
	assert.Equal(t, []float64{3, 3, 2, 2}, splitExtent(10, 4))
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, splitExtent(2, 4))
	parts := splitExtent(10.5, 4)
	assert.Equal(t, []float64{3, 3, 2, 2.5}, parts)
}

func TestLCG(t *testing.T) {
	g := NewLCG(0)
	first := g.Next()
	assert.Equal(t, uint32(1013904223), first)
	want := first*1664525 + 1013904223
	assert.Equal(t, want, g.Next())
	assert.Equal(t, want, g.State())

	h := NewLCG(2026)
	for range 1000 {
		v := h.Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestDescribe(t *testing.T) {
	rects := []geometry.Rect{
		{X: 0, Y: 0, W: 500, H: 1000},
		{X: 500, Y: 0, W: 500, H: 500},
		{X: 500, Y: 500, W: 500, H: 500},
	}
	tiles := Describe(rects, 1000, 1000)
	require.Len(t, tiles, 3)
	assert.InDelta(t, 0.5, tiles[0].Aspect, 1e-9)
	assert.InDelta(t, 250/math.Hypot(500, 500), tiles[0].NormalizedDist, 1e-9)
	assert.InDelta(t, 1.0, tiles[1].Aspect, 1e-9)
	for _, tile := range tiles {
		assert.GreaterOrEqual(t, tile.NormalizedDist, 0.0)
		assert.LessOrEqual(t, tile.NormalizedDist, 1.0)
	}
}
