// Package collage lays out a set of photos on a fixed canvas.
//
// A layout call partitions the canvas into one tile per photo, matches photos
// to tiles, computes a detection-aware crop for every pair and validates the
// result in cover mode. Several seeded attempts are made and the best one is
// kept; if even the best attempt fails validation a deterministic grid
// partition is tried once before the call fails.
package collage

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/kozaktomas/photo-collage/internal/assign"
	"github.com/kozaktomas/photo-collage/internal/geometry"
	"github.com/kozaktomas/photo-collage/internal/partition"
	"github.com/kozaktomas/photo-collage/internal/smartcrop"
	"github.com/kozaktomas/photo-collage/internal/validate"
)

var (
	// ErrInvalidInput marks requests rejected before any work is done.
	ErrInvalidInput = errors.New("invalid layout request")
	// ErrValidationFailed means neither the attempts nor the grid fallback
	// produced a valid layout.
	ErrValidationFailed = errors.New("layout validation failed")
)

// MaxPhotos bounds the number of photos in a single request.
const MaxPhotos = 500

// Config tunes the engine.
type Config struct {
	Attempts   int               `yaml:"attempts" json:"attempts"`
	SeedStride uint32            `yaml:"seed_stride" json:"seedStride"`
	Partition  partition.Options `yaml:"partition" json:"partition"`
	Assign     assign.Params     `yaml:"assign" json:"assign"`
	Crop       smartcrop.Params  `yaml:"crop" json:"crop"`
	Validate   validate.Options  `yaml:"validate" json:"validate"`
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		Attempts:   8,
		SeedStride: 0x9E3779B9,
		Partition:  partition.DefaultOptions(),
		Assign:     assign.DefaultParams(),
		Crop:       smartcrop.DefaultParams(),
		Validate:   validate.DefaultOptions(),
	}
}

// Engine computes layouts. It is stateless between calls and safe for
// concurrent use.
type Engine struct {
	cfg    Config
	crop   *smartcrop.Calculator
	logger *log.Logger
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(cfg Config, logger *log.Logger) *Engine {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	if cfg.SeedStride == 0 {
		cfg.SeedStride = DefaultConfig().SeedStride
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{cfg: cfg, crop: smartcrop.New(cfg.Crop), logger: logger}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// AttemptScore summarizes one partition+match attempt. Attempts are ranked
// lexicographically in field order (lower is better), after Seed/UsedGrid.
type AttemptScore struct {
	Seed                  uint32  `json:"seed"`
	UsedGrid              bool    `json:"usedGrid"`
	ValidationFailures    int     `json:"validationFailures"`
	OrientationViolations int     `json:"orientationViolations"`
	CenterCost            float64 `json:"centerCost"`
	NonExtremeDistortion  float64 `json:"nonExtremeDistortion"`
	WeightedDistortion    float64 `json:"weightedDistortion"`
}

const scoreEpsilon = 1e-9

// Better reports whether a ranks strictly before b.
func (a AttemptScore) Better(b AttemptScore) bool {
	if a.ValidationFailures != b.ValidationFailures {
		return a.ValidationFailures < b.ValidationFailures
	}
	if a.OrientationViolations != b.OrientationViolations {
		return a.OrientationViolations < b.OrientationViolations
	}
	for _, pair := range [][2]float64{
		{a.CenterCost, b.CenterCost},
		{a.NonExtremeDistortion, b.NonExtremeDistortion},
		{a.WeightedDistortion, b.WeightedDistortion},
	} {
		if math.Abs(pair[0]-pair[1]) > scoreEpsilon {
			return pair[0] < pair[1]
		}
	}
	return false
}

// Result is a successful layout with its diagnostics.
type Result struct {
	Placements   []Placement     `json:"placements"`
	Tiles        []geometry.Rect `json:"tiles"` // Tiles[i] holds Placements[i]
	Seed         uint32          `json:"seed"`
	UsedFallback bool            `json:"usedFallback"`
	Chosen       AttemptScore    `json:"chosen"`
	Attempts     []AttemptScore  `json:"attempts"`
}

// attempt is one fully evaluated candidate layout.
type attempt struct {
	score      AttemptScore
	placements []Placement
	tiles      []geometry.Rect
	report     validate.Report
}

// prepared is a validated request ready for layout.
type prepared struct {
	photos     []Photo
	bases      []geometry.Rect
	strategies []assign.PhotoStrategy
	canvasW    float64
	canvasH    float64
	seed       uint32
	partOpts   partition.Options
}

// Handle runs Layout and wraps the outcome in a Response.
func (e *Engine) Handle(req Request) Response {
	res, err := e.Layout(req)
	if err != nil {
		return Response{RequestID: req.RequestID, Error: err.Error()}
	}
	return Response{RequestID: req.RequestID, OK: true, Placements: res.Placements}
}

// Layout computes placements for every photo of the request. Placements are
// returned in the order of req.Photos. On ErrValidationFailed the returned
// Result has no placements but still lists the attempts that were made.
func (e *Engine) Layout(req Request) (*Result, error) {
	p, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	n := len(p.photos)
	logger := e.logger.With("request", req.RequestID, "photos", n)

	result := &Result{}
	var best *attempt
	for i := range e.cfg.Attempts {
		seed := p.seed + uint32(i)*e.cfg.SeedStride
		part := partition.PartitionWithOptions(p.canvasW, p.canvasH, n, partition.NewLCG(seed), p.partOpts)

		a, err := e.evaluate(p, part.Tiles)
		if err != nil {
			return nil, err
		}
		a.score.Seed = seed
		a.score.UsedGrid = part.UsedGrid
		result.Attempts = append(result.Attempts, a.score)
		logger.Debug("layout attempt", "seed", seed, "grid", part.UsedGrid,
			"failures", a.score.ValidationFailures, "flips", a.score.OrientationViolations)

		if best == nil || a.score.Better(best.score) {
			best = a
		}
	}

	if best.score.ValidationFailures > 0 {
		logger.Warn("best attempt failed validation, falling back to grid",
			"seed", best.score.Seed, "failures", best.score.ValidationFailures)

		fb, err := e.evaluate(p, partition.Grid(p.canvasW, p.canvasH, n))
		if err != nil {
			return nil, err
		}
		fb.score.Seed = best.score.Seed
		fb.score.UsedGrid = true
		result.Attempts = append(result.Attempts, fb.score)
		result.UsedFallback = true
		if !fb.report.OK {
			result.Seed = best.score.Seed
			result.Chosen = fb.score
			return result, fmt.Errorf("%w: %s", ErrValidationFailed, summarize(fb.report))
		}
		best = fb
	}

	result.Placements = best.placements
	result.Tiles = best.tiles
	result.Seed = best.score.Seed
	result.Chosen = best.score
	logger.Debug("layout chosen", "seed", result.Seed, "fallback", result.UsedFallback)
	return result, nil
}

// evaluate matches photos to tiles, computes crops and validates the result.
func (e *Engine) evaluate(p *prepared, rects []geometry.Rect) (*attempt, error) {
	n := len(p.photos)
	if len(rects) != n {
		return nil, fmt.Errorf("%w: partition returned %d tiles for %d photos", assign.ErrIncompleteMatching, len(rects), n)
	}
	tiles := partition.Describe(rects, p.canvasW, p.canvasH)

	sol, err := assign.Solve(assign.Problem{
		Photos: p.strategies,
		Tiles:  tiles,
		CropAspect: func(photo int, tileAspect float64) float64 {
			return e.crop.ConvergeAspect(p.strategies[photo].SourceAspect, tileAspect)
		},
	}, e.cfg.Assign)
	if err != nil {
		return nil, err
	}

	a := &attempt{
		placements: make([]Placement, n),
		tiles:      make([]geometry.Rect, n),
	}
	for i, photo := range p.photos {
		tile := rects[sol.PhotoToTile[i]]
		crop := e.crop.ComputeCrop(photo.ImageWidth, photo.ImageHeight, p.bases[i], tile.Aspect(), photo.KeepRegions)
		a.placements[i] = geometry.CoverPlacement(photo.ID, tile, crop)
		a.tiles[i] = tile
	}

	a.report = e.cfg.Validate.ValidateLayout(a.tiles, a.placements, p.canvasW, p.canvasH, validate.Cover)
	a.score = AttemptScore{
		ValidationFailures:    len(a.report.Issues),
		OrientationViolations: sol.Stats.OrientationViolations,
		CenterCost:            sol.Stats.CenterCost,
		NonExtremeDistortion:  sol.Stats.NonExtremeDistortion,
		WeightedDistortion:    sol.Stats.WeightedDistortion,
	}
	return a, nil
}

func (e *Engine) prepare(req Request) (*prepared, error) {
	w, h := req.CanvasWidth, req.CanvasHeight
	if !positiveFinite(w) || !positiveFinite(h) {
		return nil, fmt.Errorf("%w: canvas size %vx%v must be positive and finite", ErrInvalidInput, w, h)
	}
	n := len(req.Photos)
	if n == 0 {
		return nil, fmt.Errorf("%w: no photos", ErrInvalidInput)
	}
	if n > MaxPhotos {
		return nil, fmt.Errorf("%w: %d photos exceeds the limit of %d", ErrInvalidInput, n, MaxPhotos)
	}

	p := &prepared{
		photos:     make([]Photo, n),
		bases:      make([]geometry.Rect, n),
		strategies: make([]assign.PhotoStrategy, n),
		canvasW:    w,
		canvasH:    h,
		partOpts:   e.cfg.Partition,
	}

	seen := make(map[string]bool, n)
	for i, photo := range req.Photos {
		if photo.ID == "" {
			return nil, fmt.Errorf("%w: photo %d has no id", ErrInvalidInput, i)
		}
		if seen[photo.ID] {
			return nil, fmt.Errorf("%w: duplicate photo id %q", ErrInvalidInput, photo.ID)
		}
		seen[photo.ID] = true

		if !positiveFinite(photo.ImageWidth) || !positiveFinite(photo.ImageHeight) {
			return nil, fmt.Errorf("%w: photo %q has invalid image size %vx%v", ErrInvalidInput, photo.ID, photo.ImageWidth, photo.ImageHeight)
		}
		base, err := baseCrop(photo)
		if err != nil {
			return nil, fmt.Errorf("%w: photo %q: %v", ErrInvalidInput, photo.ID, err)
		}
		if photo.KeepRegions, err = normalizeRegions(photo.KeepRegions); err != nil {
			return nil, fmt.Errorf("%w: photo %q: %v", ErrInvalidInput, photo.ID, err)
		}
		p.photos[i] = photo
		p.bases[i] = base
		p.strategies[i] = assign.NewPhotoStrategy(base.Aspect(), e.cfg.Assign.AspectBand)
	}

	opts := req.Options
	if opts == nil {
		opts = &Options{}
	}
	if opts.Seed != nil {
		p.seed = *opts.Seed
	} else {
		p.seed = defaultSeed(req.PhotoIDs())
	}
	if opts.SplitRatioMin != nil {
		p.partOpts.RatioMin = *opts.SplitRatioMin
	}
	if opts.SplitRatioMax != nil {
		p.partOpts.RatioMax = *opts.SplitRatioMax
	}
	if !(p.partOpts.RatioMin > 0) || !(p.partOpts.RatioMax < 1) || p.partOpts.RatioMin > p.partOpts.RatioMax {
		return nil, fmt.Errorf("%w: split ratios [%v, %v] must satisfy 0 < min <= max < 1",
			ErrInvalidInput, p.partOpts.RatioMin, p.partOpts.RatioMax)
	}
	return p, nil
}

// baseCrop resolves the photo's crop: zero means the whole image, otherwise
// the crop must be finite and overlap the image; it is clipped to it.
func baseCrop(photo Photo) (geometry.Rect, error) {
	img := geometry.Rect{W: photo.ImageWidth, H: photo.ImageHeight}
	c := photo.Crop
	if c == (geometry.Rect{}) {
		return img, nil
	}
	if !c.Finite() || c.Empty() {
		return geometry.Rect{}, fmt.Errorf("crop %+v is degenerate", c)
	}
	clipped := c.Intersect(img)
	if clipped.Empty() {
		return geometry.Rect{}, fmt.Errorf("crop %+v lies outside the image", c)
	}
	return clipped, nil
}

// normalizeRegions returns a copy of regions with canonical kinds.
func normalizeRegions(regions []geometry.KeepRegion) ([]geometry.KeepRegion, error) {
	if len(regions) == 0 {
		return nil, nil
	}
	out := make([]geometry.KeepRegion, len(regions))
	for i, r := range regions {
		kind, err := geometry.ParseRegionKind(string(r.Kind))
		if err != nil {
			return nil, fmt.Errorf("keep-region %d: %w", i, err)
		}
		r.Kind = kind
		out[i] = r
	}
	return out, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func summarize(r validate.Report) string {
	const maxShown = 3
	parts := make([]string, 0, maxShown)
	for i, issue := range r.Issues {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("and %d more", len(r.Issues)-maxShown))
			break
		}
		parts = append(parts, fmt.Sprintf("#%d: %s", issue.Index, issue.Reason))
	}
	return strings.Join(parts, "; ")
}
