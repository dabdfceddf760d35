// Package partition splits a canvas into exactly N non-overlapping tiles.
//
// The primary strategy is recursive binary splitting driven by a seeded LCG:
// every node that needs more than one leaf is cut vertically or horizontally,
// with the leaf counts of the two sides and the cut position chosen so that
// the resulting tiles stay close to an acceptable aspect band. When the
// recursion cannot reach the requested count (minimum side constraints on
// small canvases) the deterministic Grid partition is used instead.
package partition

import (
	"math"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// Options tune the recursive splitter.
type Options struct {
	RatioMin      float64 `yaml:"ratio_min" json:"ratioMin"`            // lower bound of the leaf fraction given to the first child
	RatioMax      float64 `yaml:"ratio_max" json:"ratioMax"`            // upper bound of the leaf fraction given to the first child
	AspectBand    float64 `yaml:"aspect_band" json:"aspectBand"`        // acceptable tile aspect band is [1/AspectBand, AspectBand]
	Jitter        float64 `yaml:"jitter" json:"jitter"`                 // relative jitter applied to the cut position
	MinSideFactor float64 `yaml:"min_side_factor" json:"minSideFactor"` // initial minimum side as a fraction of the mean tile side
	MinSideShrink float64 `yaml:"min_side_shrink" json:"minSideShrink"` // multiplier applied to the minimum side after failures
	MinSideFloor  float64 `yaml:"min_side_floor" json:"minSideFloor"`   // minimum side never drops below this many pixels
	MaxAttempts   int     `yaml:"max_attempts" json:"maxAttempts"`      // recursive attempts before falling back to the grid
	ShrinkEvery   int     `yaml:"shrink_every" json:"shrinkEvery"`      // failed attempts between minimum side relaxations
	BiasStrength  float64 `yaml:"bias_strength" json:"biasStrength"`    // weight of the random bias when ranking split candidates
}

// DefaultOptions returns the tuning used by the layout engine.
func DefaultOptions() Options {
	return Options{
		RatioMin:      0.3,
		RatioMax:      0.7,
		AspectBand:    1.5,
		Jitter:        0.06,
		MinSideFactor: 0.38,
		MinSideShrink: 0.6,
		MinSideFloor:  2,
		MaxAttempts:   24,
		ShrinkEvery:   4,
		BiasStrength:  0.15,
	}
}

// Result describes how a partition was produced.
type Result struct {
	Tiles        []geometry.Rect
	UsedGrid     bool
	Attempts     int
	FinalMinSide float64
}

// Partition returns n rectangles exactly tiling a canvasW×canvasH canvas.
// ratioMin/ratioMax bound the leaf fraction of the first child of each split;
// non-positive values select the defaults.
func Partition(canvasW, canvasH float64, n int, seed uint32, ratioMin, ratioMax float64) []geometry.Rect {
	opts := DefaultOptions()
	if ratioMin > 0 {
		opts.RatioMin = ratioMin
	}
	if ratioMax > 0 {
		opts.RatioMax = ratioMax
	}
	return PartitionWithOptions(canvasW, canvasH, n, NewLCG(seed), opts).Tiles
}

// PartitionWithOptions runs the splitter with explicit options and a caller
// owned generator. The generator state advances with every random draw.
func PartitionWithOptions(canvasW, canvasH float64, n int, rng *LCG, opts Options) Result {
	if n <= 0 || !(canvasW > 0) || !(canvasH > 0) {
		return Result{}
	}
	root := geometry.Rect{W: canvasW, H: canvasH}
	if n == 1 {
		return Result{Tiles: []geometry.Rect{root}, Attempts: 1}
	}
	opts = normalizeOptions(opts)

	meanSide := math.Sqrt(canvasW * canvasH / float64(n))
	minSide := max(meanSide*opts.MinSideFactor, opts.MinSideFloor)

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		s := &splitter{rng: rng, opts: opts, minSide: minSide, out: make([]geometry.Rect, 0, n)}
		if s.split(root, n) && len(s.out) == n {
			return Result{Tiles: s.out, Attempts: attempt, FinalMinSide: minSide}
		}
		if attempt%opts.ShrinkEvery == 0 {
			minSide = max(minSide*opts.MinSideShrink, opts.MinSideFloor)
		}
	}

	return Result{
		Tiles:        Grid(canvasW, canvasH, n),
		UsedGrid:     true,
		Attempts:     opts.MaxAttempts,
		FinalMinSide: minSide,
	}
}

func normalizeOptions(o Options) Options {
	def := DefaultOptions()
	if !(o.RatioMin > 0) || o.RatioMin >= 1 {
		o.RatioMin = def.RatioMin
	}
	if !(o.RatioMax > 0) || o.RatioMax >= 1 {
		o.RatioMax = def.RatioMax
	}
	if o.RatioMin > o.RatioMax {
		o.RatioMin, o.RatioMax = o.RatioMax, o.RatioMin
	}
	if !(o.AspectBand > 1) {
		o.AspectBand = def.AspectBand
	}
	if o.Jitter < 0 || o.Jitter > 0.5 {
		o.Jitter = def.Jitter
	}
	if !(o.MinSideFactor > 0) {
		o.MinSideFactor = def.MinSideFactor
	}
	if !(o.MinSideShrink > 0) || o.MinSideShrink >= 1 {
		o.MinSideShrink = def.MinSideShrink
	}
	if !(o.MinSideFloor > 0) {
		o.MinSideFloor = def.MinSideFloor
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.ShrinkEvery <= 0 {
		o.ShrinkEvery = def.ShrinkEvery
	}
	if o.BiasStrength < 0 {
		o.BiasStrength = def.BiasStrength
	}
	return o
}

type splitter struct {
	rng     *LCG
	opts    Options
	minSide float64
	out     []geometry.Rect
}

// candidate is one way of cutting a node.
type candidate struct {
	vertical  bool
	leftCount int
	score     float64
}

func (s *splitter) split(r geometry.Rect, need int) bool {
	if need == 1 {
		s.out = append(s.out, r)
		return true
	}

	best, ok := s.chooseSplit(r, need)
	if !ok {
		return false
	}

	frac := float64(best.leftCount) / float64(need)
	frac *= 1 + (2*s.rng.Float64()-1)*s.opts.Jitter
	frac = geometry.Clamp(frac, 0.05, 0.95)

	a, b, ok := s.cut(r, best.vertical, frac)
	if !ok {
		// Jitter pushed a side below the minimum; retry without it.
		a, b, ok = s.cut(r, best.vertical, float64(best.leftCount)/float64(need))
		if !ok {
			return false
		}
	}
	return s.split(a, best.leftCount) && s.split(b, need-best.leftCount)
}

// chooseSplit ranks every admissible (axis, leaf count) pair by the expected
// tile aspect quality of both children plus a seeded random bias.
func (s *splitter) chooseSplit(r geometry.Rect, need int) (candidate, bool) {
	lo := max(1, int(math.Ceil(float64(need)*s.opts.RatioMin)))
	hi := min(need-1, int(math.Floor(float64(need)*s.opts.RatioMax)))
	if lo > hi {
		lo = max(1, min(need/2, need-1))
		hi = lo
	}

	band := s.opts.AspectBand
	aspect := r.Aspect()
	axes := []bool{true, false}
	switch {
	case aspect > band:
		axes = []bool{true} // too wide: cut vertically
	case aspect < 1/band:
		axes = []bool{false} // too tall: cut horizontally
	}

	var best candidate
	found := false
	for _, vertical := range axes {
		for left := lo; left <= hi; left++ {
			frac := float64(left) / float64(need)
			a, b, ok := s.cut(r, vertical, frac)
			if !ok {
				continue
			}
			score := float64(left)*gridBadness(a, left, band) +
				float64(need-left)*gridBadness(b, need-left, band)
			score /= float64(need)
			score += s.opts.BiasStrength * s.rng.Float64()
			if !found || score < best.score {
				best = candidate{vertical: vertical, leftCount: left, score: score}
				found = true
			}
		}
	}
	return best, found
}

// cut splits r at frac along the chosen axis. Cut positions are rounded to
// whole pixels so both children share the exact same edge.
func (s *splitter) cut(r geometry.Rect, vertical bool, frac float64) (geometry.Rect, geometry.Rect, bool) {
	if vertical {
		x := math.Round(r.X + r.W*frac)
		a := geometry.Rect{X: r.X, Y: r.Y, W: x - r.X, H: r.H}
		b := geometry.Rect{X: x, Y: r.Y, W: r.Right() - x, H: r.H}
		return a, b, a.W >= s.minSide && b.W >= s.minSide && r.H >= s.minSide
	}
	y := math.Round(r.Y + r.H*frac)
	a := geometry.Rect{X: r.X, Y: r.Y, W: r.W, H: y - r.Y}
	b := geometry.Rect{X: r.X, Y: y, W: r.W, H: r.Bottom() - y}
	return a, b, a.H >= s.minSide && b.H >= s.minSide && r.W >= s.minSide
}

// gridBadness estimates how far the tiles of r would be from square if r were
// later divided into k tiles, using the best rows×cols arrangement near the
// ideal column count. Tiles outside the acceptable band are penalized extra.
func gridBadness(r geometry.Rect, k int, band float64) float64 {
	aspect := r.Aspect()
	if aspect <= 0 {
		return math.Inf(1)
	}
	ideal := math.Sqrt(float64(k) * aspect)
	best := math.Inf(1)
	for c := max(1, int(ideal)-1); c <= min(k, int(ideal)+2); c++ {
		rows := (k + c - 1) / c
		tileAspect := aspect * float64(rows) / float64(c)
		dev := math.Abs(math.Log(tileAspect))
		if excess := dev - math.Log(band); excess > 0 {
			dev += 2 * excess
		}
		best = min(best, dev)
	}
	return best
}
