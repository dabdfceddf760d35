// Package smartcrop derives detection-aware crop windows.
//
// For a photo, a user-chosen base crop and a target aspect ratio the
// calculator returns a crop inside the base crop. The aspect is first pulled
// toward the photo's own aspect, the largest window of that aspect is fitted
// into the base crop, and the window is then positioned around the most
// valuable subset of keep-regions (faces weigh more than objects). Portrait
// photos cropped to landscape get extra headroom above faces, a small local
// search keeps regions off the window edges, and faces are guaranteed a
// minimum visible size. Any numeric failure yields the centered maximal fit.
package smartcrop

import (
	"math"
	"sort"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// Calculator computes crops with a fixed set of parameters. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	params Params
}

// New creates a Calculator. Invalid parameters are replaced by defaults.
func New(p Params) *Calculator {
	return &Calculator{params: p.normalize()}
}

// Params returns the effective parameters.
func (c *Calculator) Params() Params {
	return c.params
}

var defaultCalculator = New(DefaultParams())

// ComputeCrop runs the default calculator.
func ComputeCrop(imageW, imageH float64, baseCrop geometry.Rect, targetAspect float64, regions []geometry.KeepRegion) geometry.Rect {
	return defaultCalculator.ComputeCrop(imageW, imageH, baseCrop, targetAspect, regions)
}

// ComputeCrop returns the crop window for a photo. The result always lies
// within baseCrop (after baseCrop is clipped to the image).
func (c *Calculator) ComputeCrop(imageW, imageH float64, baseCrop geometry.Rect, targetAspect float64, regions []geometry.KeepRegion) (crop geometry.Rect) {
	base := normalizeBase(imageW, imageH, baseCrop)
	aspect := c.ConvergeAspect(base.Aspect(), targetAspect)
	fallback := MaximalFit(base, aspect)

	defer func() {
		if r := recover(); r != nil {
			crop = fallback
		}
	}()

	if base.Empty() || !(aspect > 0) || len(regions) == 0 {
		return fallback
	}

	crop = c.place(base, fallback, targetAspect, regions)
	if crop.Empty() || !crop.Finite() || !base.Contains(crop, 1e-6) {
		return fallback
	}
	return crop
}

// IsExtreme reports whether aspect falls outside the acceptable band.
func (c *Calculator) IsExtreme(aspect float64) bool {
	band := c.params.ExtremeBand
	return aspect > band || aspect < 1/band
}

// ConvergeAspect limits the requested aspect given the photo's intrinsic one.
// Extreme photos are pulled toward 1 but never past it; non-extreme photos
// stay within NonExtremeBand (log scale) of their intrinsic aspect.
func (c *Calculator) ConvergeAspect(intrinsic, target float64) float64 {
	if !(intrinsic > 0) || math.IsInf(intrinsic, 0) {
		if target > 0 && !math.IsInf(target, 0) {
			return target
		}
		return 1
	}
	if !(target > 0) || math.IsInf(target, 0) {
		target = intrinsic
	}

	band := c.params.ExtremeBand
	switch {
	case intrinsic > band:
		return geometry.Clamp(target, 1, band)
	case intrinsic < 1/band:
		return geometry.Clamp(target, 1/band, 1)
	default:
		nb := c.params.NonExtremeBand
		return geometry.Clamp(target, intrinsic/nb, intrinsic*nb)
	}
}

// MaximalFit returns the largest rectangle of the given aspect centered
// inside base.
func MaximalFit(base geometry.Rect, aspect float64) geometry.Rect {
	if base.Empty() || !(aspect > 0) || math.IsInf(aspect, 0) {
		return base
	}
	w, h := base.W, base.H
	if base.Aspect() > aspect {
		w = h * aspect
	} else {
		h = w / aspect
	}
	cx, cy := base.Center()
	return geometry.CenteredAt(cx, cy, w, h)
}

// PadRegion expands box by marginRatio of its own shorter side on every edge.
func PadRegion(box geometry.Rect, marginRatio float64) geometry.Rect {
	m := marginRatio * min(box.W, box.H)
	return box.Expand(m, m)
}

// normalizeBase clips the base crop to the image. An unusable base crop is
// replaced by the whole image.
func normalizeBase(imageW, imageH float64, baseCrop geometry.Rect) geometry.Rect {
	validImage := imageW > 0 && imageH > 0 && !math.IsInf(imageW, 0) && !math.IsInf(imageH, 0)
	if !validImage {
		if baseCrop.Finite() && !baseCrop.Empty() {
			return baseCrop
		}
		return geometry.Rect{}
	}
	img := geometry.Rect{W: imageW, H: imageH}
	if !baseCrop.Finite() || baseCrop.Empty() {
		return img
	}
	if clipped := baseCrop.Intersect(img); !clipped.Empty() {
		return clipped
	}
	return img
}

// candidate is a keep-region prepared for focus selection.
type candidate struct {
	kind   geometry.RegionKind
	raw    geometry.Rect // detected box clipped to the base crop
	padded geometry.Rect // margin-expanded box clipped to the base crop
	weight float64
}

func (c *Calculator) candidates(base geometry.Rect, regions []geometry.KeepRegion, facesOnly bool) []candidate {
	p := c.params
	baseArea := base.Area()
	out := make([]candidate, 0, len(regions))
	for _, r := range regions {
		if facesOnly && r.Kind != geometry.KindFace {
			continue
		}
		if !r.Box.Finite() || r.Box.Empty() {
			continue
		}
		raw := r.Box.Intersect(base)
		padded := PadRegion(r.Box, p.MarginRatio).Intersect(base)
		if raw.Empty() || padded.Empty() {
			continue
		}

		mult := p.ObjectWeight
		if r.Kind == geometry.KindFace {
			mult = p.FaceWeight
		}
		score := r.Score
		if !(score > 0) || math.IsInf(score, 0) {
			score = 1 // score is optional
		}
		score = min(score, 1)

		out = append(out, candidate{
			kind:   r.Kind,
			raw:    raw,
			padded: padded,
			weight: mult * score * math.Sqrt(padded.Area()/baseArea),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].weight > out[j].weight })
	if len(out) > p.TopK {
		out = out[:p.TopK]
	}
	return out
}

// selectFocus picks the single region or pair of regions whose bounding box
// maximizes Σw − AreaPenalty·Σw·bboxArea/baseArea. box selects which box of
// a candidate participates. Pairs that cannot fit inside window are skipped.
func (c *Calculator) selectFocus(base, window geometry.Rect, cands []candidate, box func(candidate) geometry.Rect) (geometry.Rect, bool) {
	if len(cands) == 0 {
		return geometry.Rect{}, false
	}
	baseArea := base.Area()
	value := func(sumW float64, bbox geometry.Rect) float64 {
		return sumW - c.params.AreaPenalty*sumW*bbox.Area()/baseArea
	}

	bestBox := box(cands[0])
	bestVal := value(cands[0].weight, bestBox)
	for i := range cands {
		single := box(cands[i])
		if v := value(cands[i].weight, single); v > bestVal {
			bestVal, bestBox = v, single
		}
		for j := i + 1; j < len(cands); j++ {
			pair := single.Union(box(cands[j]))
			if !fitsSize(pair, window) {
				continue
			}
			if v := value(cands[i].weight+cands[j].weight, pair); v > bestVal {
				bestVal, bestBox = v, pair
			}
		}
	}
	return bestBox, true
}

func (c *Calculator) place(base, fit geometry.Rect, targetAspect float64, regions []geometry.KeepRegion) geometry.Rect {
	p := c.params
	window := fit

	portraitToLandscape := base.Aspect() < 1-p.SquareEpsilon && targetAspect > 1 && hasFace(regions)

	var cands []candidate
	var focus geometry.Rect
	if portraitToLandscape {
		cands = c.candidates(base, regions, true)
		faces, ok := c.selectFocus(base, window, cands, func(cd candidate) geometry.Rect { return cd.raw })
		if !ok {
			return fit
		}
		focus = c.headroomPad(faces, window).Intersect(base)
		for i := range cands {
			cands[i].padded = c.headroomPad(cands[i].raw, window).Intersect(base)
		}
	} else {
		cands = c.candidates(base, regions, false)
		var ok bool
		focus, ok = c.selectFocus(base, window, cands, func(cd candidate) geometry.Rect { return cd.padded })
		if !ok {
			return fit
		}
	}

	window = placeAround(base, window, focus)
	window = c.refine(base, window, cands)
	window = c.faceFloor(base, window, cands)
	return window
}

func hasFace(regions []geometry.KeepRegion) bool {
	for _, r := range regions {
		if r.Kind == geometry.KindFace && r.Box.Finite() && !r.Box.Empty() {
			return true
		}
	}
	return false
}

// headroomPad pads a face box asymmetrically: wider by PortraitFaceWidthPad,
// taller by PortraitFaceHeightPad with most of the extra height above the
// face. Padding shrinks proportionally when the result would not fit window.
func (c *Calculator) headroomPad(face, window geometry.Rect) geometry.Rect {
	p := c.params
	extraW := face.W * (p.PortraitFaceWidthPad - 1)
	extraH := face.H * (p.PortraitFaceHeightPad - 1)

	shrink := 1.0
	if extraW > 0 && face.W+extraW > window.W {
		shrink = min(shrink, max(0, (window.W-face.W)/extraW))
	}
	if extraH > 0 && face.H+extraH > window.H {
		shrink = min(shrink, max(0, (window.H-face.H)/extraH))
	}
	extraW *= shrink
	extraH *= shrink

	above := extraH * p.PortraitFaceAboveShare
	return geometry.Rect{
		X: face.X - extraW/2,
		Y: face.Y - above,
		W: face.W + extraW,
		H: face.H + extraH,
	}
}

// placeAround moves window (keeping its size) so it contains focus when
// possible, otherwise centers it on the focus. Each axis is solved on its own
// and the window never leaves base.
func placeAround(base, window, focus geometry.Rect) geometry.Rect {
	fcx, fcy := focus.Center()
	x := placeAxis(base.X, base.Right(), window.W, focus.X, focus.Right(), fcx)
	y := placeAxis(base.Y, base.Bottom(), window.H, focus.Y, focus.Bottom(), fcy)
	return geometry.Rect{X: x, Y: y, W: window.W, H: window.H}
}

// placeAxis returns the window start on one axis. [lo, hi] is the base
// extent, size the window extent and [f0, f1] the focus extent.
func placeAxis(lo, hi, size, f0, f1, center float64) float64 {
	minStart, maxStart := lo, hi-size
	start := center - size/2
	if f1-f0 <= size {
		// Any start in [f1-size, f0] keeps the focus inside.
		minStart = max(minStart, f1-size)
		maxStart = min(maxStart, f0)
	}
	if minStart > maxStart {
		minStart, maxStart = lo, hi-size
	}
	return geometry.Clamp(start, minStart, maxStart)
}

// refine searches offsets around window for a placement that keeps regions
// covered and away from the edges. The analytic placement wins ties.
func (c *Calculator) refine(base, window geometry.Rect, cands []candidate) geometry.Rect {
	p := c.params
	if len(cands) == 0 || p.RefineRadius <= 0 {
		return window
	}

	best := window
	bestScore := c.windowScore(window, cands)
	steps := int(p.RefineRadius / p.RefineStep)
	for iy := -steps; iy <= steps; iy++ {
		for ix := -steps; ix <= steps; ix++ {
			if ix == 0 && iy == 0 {
				continue
			}
			x := geometry.Clamp(window.X+float64(ix)*p.RefineStep, base.X, base.Right()-window.W)
			y := geometry.Clamp(window.Y+float64(iy)*p.RefineStep, base.Y, base.Bottom()-window.H)
			cand := geometry.Rect{X: x, Y: y, W: window.W, H: window.H}
			if score := c.windowScore(cand, cands); score > bestScore+1e-9 {
				best, bestScore = cand, score
			}
		}
	}
	return best
}

func (c *Calculator) windowScore(window geometry.Rect, cands []candidate) float64 {
	p := c.params
	threshold := p.BorderThreshold * min(window.W, window.H)
	score := 0.0
	for _, cd := range cands {
		area := cd.padded.Area()
		if area <= 0 {
			continue
		}
		coverage := cd.padded.Intersect(window).Area() / area
		score += cd.weight * coverage
		if coverage > 0 {
			score -= p.BorderLambda * cd.weight * borderPenalty(window, cd.padded, threshold)
		}
	}
	return score
}

// borderPenalty grows from 0 to 1 as the region's smallest margin to the
// window edge drops from threshold to 0.
func borderPenalty(window, region geometry.Rect, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	margin := min(
		region.X-window.X,
		region.Y-window.Y,
		window.Right()-region.Right(),
		window.Bottom()-region.Bottom(),
	)
	if margin >= threshold {
		return 0
	}
	return min(1, (threshold-margin)/threshold)
}

// faceFloor makes sure faces stay visible at a minimum size. The required
// region is the padded face grown to at least MinFaceSize on each side; if
// the window does not contain it the window grows (keeping its aspect, up to
// the maximal fit) and is re-placed around it.
func (c *Calculator) faceFloor(base, window geometry.Rect, cands []candidate) geometry.Rect {
	aspect := window.Aspect()
	if !(aspect > 0) {
		return window
	}
	maxFit := MaximalFit(base, aspect)

	var required geometry.Rect
	for _, cd := range cands {
		if cd.kind != geometry.KindFace {
			continue
		}
		r := c.requiredFaceRegion(base, cd, maxFit)
		if grown := required.Union(r); fitsSize(grown, maxFit) {
			required = grown
		} else if required.Empty() {
			required = r
		}
	}
	if required.Empty() || window.Contains(required, 1e-6) {
		return window
	}

	w := max(window.W, required.W, required.H*aspect)
	w = min(w, maxFit.W)
	h := w / aspect
	grown := geometry.Rect{X: window.X, Y: window.Y, W: w, H: h}
	return placeAround(base, grown, required)
}

func (c *Calculator) requiredFaceRegion(base geometry.Rect, cd candidate, maxFit geometry.Rect) geometry.Rect {
	r := cd.padded
	w := min(max(r.W, c.params.MinFaceSize), maxFit.W)
	h := min(max(r.H, c.params.MinFaceSize), maxFit.H)
	cx, cy := r.Center()
	req := geometry.CenteredAt(cx, cy, w, h)
	// Keep the enlarged region inside base without shrinking it.
	req.X = geometry.Clamp(req.X, base.X, base.Right()-req.W)
	req.Y = geometry.Clamp(req.Y, base.Y, base.Bottom()-req.H)
	return req
}

func fitsSize(r, window geometry.Rect) bool {
	return r.W <= window.W+1e-9 && r.H <= window.H+1e-9
}
