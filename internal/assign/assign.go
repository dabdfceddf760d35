// Package assign matches photos to tiles by minimum total cost.
//
// The cost of a pair rewards aspect agreement, steers near-square photos to
// central tiles and strongly non-square photos outward, and penalizes
// orientation flips. When a flip-free perfect matching exists (checked with
// Hopcroft-Karp over the allowed edges) flips are blocked outright; otherwise
// only the soft penalty applies. The matching is solved with the Hungarian
// method on a gonum matrix.
package assign

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kozaktomas/photo-collage/internal/partition"
)

// CropAspectFunc predicts the crop aspect produced for photo i in a tile of
// the given aspect. It feeds the cover term of the cost model.
type CropAspectFunc func(photo int, tileAspect float64) float64

// Problem is one assignment instance.
type Problem struct {
	Photos     []PhotoStrategy
	Tiles      []partition.Tile
	CropAspect CropAspectFunc // optional
}

// Stats summarize a solution for ranking across attempts.
type Stats struct {
	OrientationViolations int     `json:"orientationViolations"`
	CoverViolations       int     `json:"coverViolations"`
	CenterCost            float64 `json:"centerCost"`
	NonExtremeDistortion  float64 `json:"nonExtremeDistortion"`
	WeightedDistortion    float64 `json:"weightedDistortion"`
}

// Solution maps every photo to a distinct tile.
type Solution struct {
	PhotoToTile    []int   `json:"photoToTile"`
	TotalCost      float64 `json:"totalCost"`
	NoFlipFeasible bool    `json:"noFlipFeasible"`
	Stats          Stats   `json:"stats"`
}

// Solve computes the minimum-cost bijection between photos and tiles.
func Solve(p Problem, params Params) (Solution, error) {
	n := len(p.Photos)
	if len(p.Tiles) != n {
		return Solution{}, fmt.Errorf("%w: %d photos for %d tiles", ErrNonSquareMatrix, n, len(p.Tiles))
	}
	if n == 0 {
		return Solution{PhotoToTile: []int{}}, nil
	}

	noFlip := NoFlipFeasible(p.Photos, p.Tiles)

	pairs := make([][]Breakdown, n)
	cost := mat.NewDense(n, n, nil)
	for i, photo := range p.Photos {
		pairs[i] = make([]Breakdown, n)
		for j, tile := range p.Tiles {
			cropAspect := 0.0
			if p.CropAspect != nil {
				cropAspect = p.CropAspect(i, tile.Aspect)
			}
			b := PairCost(photo, tile, cropAspect, noFlip, params)
			pairs[i][j] = b
			cost.Set(i, j, b.Total)
		}
	}

	photoToTile, err := Hungarian(cost)
	if err != nil {
		return Solution{}, fmt.Errorf("solving %dx%d assignment: %w", n, n, err)
	}

	sol := Solution{PhotoToTile: photoToTile, NoFlipFeasible: noFlip}
	for i, j := range photoToTile {
		b := pairs[i][j]
		sol.TotalCost += b.Total
		sol.Stats.CenterCost += b.Center
		sol.Stats.WeightedDistortion += b.Weighted
		if !p.Photos[i].IsExtreme {
			sol.Stats.NonExtremeDistortion += b.Distortion
		}
		if b.Flip {
			sol.Stats.OrientationViolations++
		}
		if b.CoverExcess > 0 {
			sol.Stats.CoverViolations++
		}
	}
	return sol, nil
}

// NoFlipFeasible reports whether every photo can be given a distinct tile
// without reversing its orientation.
func NoFlipFeasible(photos []PhotoStrategy, tiles []partition.Tile) bool {
	adj := make([][]int, len(photos))
	for i, photo := range photos {
		for j, tile := range tiles {
			if !flips(photo.Orientation, OrientationOf(tile.Aspect)) {
				adj[i] = append(adj[i], j)
			}
		}
	}
	return HasPerfectMatching(adj, len(tiles))
}
