package assign

import (
	"math"

	"github.com/kozaktomas/photo-collage/internal/partition"
)

// Params are the cost model weights. They are tunable; none of them is
// load-bearing for correctness.
type Params struct {
	AspectBand          float64 `yaml:"aspect_band" json:"aspectBand"`
	ExtremeAspectWeight float64 `yaml:"extreme_aspect_weight" json:"extremeAspectWeight"`
	AspectWeight        float64 `yaml:"aspect_weight" json:"aspectWeight"`
	CenterBias          float64 `yaml:"center_bias" json:"centerBias"`
	EdgeBias            float64 `yaml:"edge_bias" json:"edgeBias"`
	DeviationCap        float64 `yaml:"deviation_cap" json:"deviationCap"`
	OrientationPenalty  float64 `yaml:"orientation_penalty" json:"orientationPenalty"`
	HardBlock           float64 `yaml:"hard_block" json:"hardBlock"`
	CoverPenalty        float64 `yaml:"cover_penalty" json:"coverPenalty"`
	OverflowCap         float64 `yaml:"overflow_cap" json:"overflowCap"`
}

// DefaultParams returns the weights used by the layout engine.
func DefaultParams() Params {
	return Params{
		AspectBand:          1.5,
		ExtremeAspectWeight: 1.0,
		AspectWeight:        1.1,
		CenterBias:          0.55,
		EdgeBias:            0.14,
		DeviationCap:        1.5,
		OrientationPenalty:  40,
		HardBlock:           1e6,
		CoverPenalty:        25,
		OverflowCap:         1.5,
	}
}

// Breakdown is the cost of one (photo, tile) pair split into its terms.
type Breakdown struct {
	Distortion  float64 // |ln preferred - ln tile|
	Weighted    float64 // aspect weight × distortion
	Center      float64 // center bias minus edge bias
	Flip        bool
	CoverExcess float64 // log overflow beyond the cap, 0 when the crop validates
	Total       float64
}

// PairCost evaluates the cost of placing photo into tile. cropAspect is the
// aspect the crop calculator would produce for that tile; pass 0 to skip the
// cover term. hardBlockFlips adds the hard block to orientation flips.
func PairCost(photo PhotoStrategy, tile partition.Tile, cropAspect float64, hardBlockFlips bool, p Params) Breakdown {
	var b Breakdown

	weight := p.AspectWeight
	if photo.IsExtreme {
		weight = p.ExtremeAspectWeight
	}
	b.Distortion = logDistance(photo.PreferredAspect, tile.Aspect)
	b.Weighted = weight * b.Distortion

	dev := deviationFromSquare(photo.SourceAspect, p.DeviationCap)
	b.Center = p.CenterBias*(1-tile.NormalizedDist)*dev - p.EdgeBias*tile.NormalizedDist*dev

	b.Total = b.Weighted + b.Center

	if flips(photo.Orientation, OrientationOf(tile.Aspect)) {
		b.Flip = true
		b.Total += p.OrientationPenalty
		if hardBlockFlips {
			b.Total += p.HardBlock
		}
	}

	if cropAspect > 0 && p.OverflowCap > 1 {
		if excess := logDistance(cropAspect, tile.Aspect) - math.Log(p.OverflowCap); excess > 0 {
			b.CoverExcess = excess
			b.Total += p.CoverPenalty * excess
		}
	}
	return b
}

func logDistance(a, b float64) float64 {
	if !(a > 0) || !(b > 0) {
		return 0
	}
	return math.Abs(math.Log(a) - math.Log(b))
}

func deviationFromSquare(aspect, limit float64) float64 {
	if !(aspect > 0) {
		return 0
	}
	dev := math.Abs(math.Log(aspect))
	if limit > 0 {
		dev = min(dev, limit)
	}
	return dev
}
