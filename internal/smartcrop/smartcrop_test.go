package smartcrop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

func TestConvergeAspect(t *testing.T) {
	c := New(DefaultParams())
	tests := []struct {
		name      string
		intrinsic float64
		target    float64
		want      float64
	}{
		{"non-extreme within band", 1.2, 1.3, 1.3},
		{"non-extreme too wide", 1.0, 3.0, 1.25},
		{"non-extreme too tall", 1.0, 0.2, 0.8},
		{"extreme portrait wide target", 700.0 / 1200.0, 2.5, 1.0},
		{"extreme portrait tall target", 0.2, 0.1, 1 / 1.5},
		{"extreme landscape tall target", 4.0, 0.5, 1.0},
		{"extreme landscape wide target", 4.0, 9.0, 1.5},
		{"invalid target keeps intrinsic", 1.2, math.NaN(), 1.2},
		{"invalid intrinsic", 0, 1.3, 1.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, c.ConvergeAspect(tt.intrinsic, tt.target), 1e-12)
		})
	}
}

func TestMaximalFit(t *testing.T) {
	base := geometry.Rect{X: 100, Y: 50, W: 1000, H: 500}
	got := MaximalFit(base, 1)
	assert.Equal(t, geometry.Rect{X: 350, Y: 50, W: 500, H: 500}, got)

	got = MaximalFit(base, 4)
	assert.InDelta(t, 1000, got.W, 1e-9)
	assert.InDelta(t, 250, got.H, 1e-9)
	assert.InDelta(t, 175, got.Y, 1e-9)
}

func TestPadRegion(t *testing.T) {
	got := PadRegion(geometry.Rect{X: 100, Y: 100, W: 200, H: 100}, 0.12)
	assert.Equal(t, geometry.Rect{X: 88, Y: 88, W: 224, H: 124}, got)
}

func TestComputeCrop_NoRegionsIsCenteredFit(t *testing.T) {
	base := geometry.Rect{X: 0, Y: 0, W: 1000, H: 1000}
	got := ComputeCrop(1000, 1000, base, 1, nil)
	assert.Equal(t, base, got)

	got = ComputeCrop(1200, 1000, geometry.Rect{W: 1200, H: 1000}, 1.0, nil)
	assert.InDelta(t, 1.0, got.Aspect(), 1e-9)
	assert.InDelta(t, 100, got.X, 1e-9)
}

func TestComputeCrop_AspectBoundForNonExtreme(t *testing.T) {
	intrinsics := []float64{0.67, 0.8, 1.0, 1.25, 1.5}
	targets := []float64{0.05, 0.3, 0.7, 1, 1.4, 2.5, 12}
	for _, a := range intrinsics {
		w, h := 1000*a, 1000.0
		for _, target := range targets {
			crop := ComputeCrop(w, h, geometry.Rect{W: w, H: h}, target, nil)
			dev := math.Abs(math.Log(crop.Aspect()) - math.Log(a))
			assert.LessOrEqualf(t, dev, math.Log(1.25)+1e-9, "intrinsic=%v target=%v aspect=%v", a, target, crop.Aspect())
		}
	}
}

func TestComputeCrop_ExtremePortrait(t *testing.T) {
	base := geometry.Rect{W: 700, H: 1200}
	crop := ComputeCrop(700, 1200, base, 2.5, nil)
	require.True(t, base.Contains(crop, 1e-9))
	assert.GreaterOrEqual(t, crop.Aspect(), 1/1.5-1e-9)
	assert.LessOrEqual(t, crop.Aspect(), 1.0+1e-9)
}

func TestComputeCrop_FaceContainment(t *testing.T) {
	face := geometry.Rect{X: 3500, Y: 150, W: 300, H: 300}
	regions := []geometry.KeepRegion{{Kind: geometry.KindFace, Box: face, Score: 0.95}}
	base := geometry.Rect{W: 4000, H: 3000}

	crop := ComputeCrop(4000, 3000, base, 1.0, regions)
	require.True(t, base.Contains(crop, 1e-9))
	assert.True(t, crop.Contains(PadRegion(face, 0.12), 1e-9), "crop %+v misses face", crop)

	// Same face on the left side.
	face = geometry.Rect{X: 80, Y: 2500, W: 250, H: 250}
	regions[0].Box = face
	crop = ComputeCrop(4000, 3000, base, 0.9, regions)
	assert.True(t, crop.Contains(PadRegion(face, 0.12), 1e-9), "crop %+v misses face", crop)
}

func TestComputeCrop_FacePreferredOverObject(t *testing.T) {
	face := geometry.Rect{X: 2500, Y: 400, W: 100, H: 100}
	object := geometry.Rect{X: 100, Y: 100, W: 300, H: 300}
	regions := []geometry.KeepRegion{
		{Kind: geometry.KindObject, Box: object, Score: 0.9},
		{Kind: geometry.KindFace, Box: face, Score: 0.9},
	}
	crop := ComputeCrop(3000, 1000, geometry.Rect{W: 3000, H: 1000}, 1.0, regions)
	assert.InDelta(t, 1.0, crop.Aspect(), 1e-9)
	assert.True(t, crop.Contains(face, 1e-9))
	assert.False(t, crop.Contains(object, 1e-9))
}

func TestComputeCrop_PortraitToLandscapeKeepsHeadroom(t *testing.T) {
	face := geometry.Rect{X: 1000, Y: 300, W: 400, H: 400}
	regions := []geometry.KeepRegion{
		{Kind: geometry.KindFace, Box: face, Score: 1},
		{Kind: geometry.KindObject, Box: geometry.Rect{X: 100, Y: 2700, W: 200, H: 200}, Score: 1},
	}
	crop := ComputeCrop(2400, 3000, geometry.Rect{W: 2400, H: 3000}, 1.5, regions)
	assert.InDelta(t, 1.0, crop.Aspect(), 1e-9)
	assert.True(t, crop.Contains(face, 1e-9))
	// 65% of the extra 0.65·h sits above the face.
	assert.LessOrEqual(t, crop.Y, face.Y-0.65*0.65*face.H)
}

func TestComputeCrop_RespectsBaseCrop(t *testing.T) {
	base := geometry.Rect{X: 200, Y: 100, W: 1200, H: 900}
	regions := []geometry.KeepRegion{
		{Kind: geometry.KindFace, Box: geometry.Rect{X: 0, Y: 0, W: 150, H: 150}, Score: 1},
		{Kind: geometry.KindObject, Box: geometry.Rect{X: 1300, Y: 900, W: 400, H: 300}, Score: 0.5},
	}
	for _, target := range []float64{0.5, 1, 1.33, 2} {
		crop := ComputeCrop(2000, 1500, base, target, regions)
		assert.Truef(t, base.Contains(crop, 1e-6), "target %v: crop %+v outside base", target, crop)
	}
}

func TestComputeCrop_Degenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		got := ComputeCrop(0, 0, geometry.Rect{}, 1.5, nil)
		assert.True(t, got.Empty())
	})

	got := ComputeCrop(1000, 800, geometry.Rect{X: math.NaN()}, math.Inf(1), []geometry.KeepRegion{
		{Kind: geometry.KindFace, Box: geometry.Rect{X: math.NaN(), W: 10, H: 10}},
	})
	assert.Equal(t, geometry.Rect{W: 1000, H: 800}, got)
}

func TestBorderPenalty(t *testing.T) {
	window := geometry.Rect{W: 1000, H: 1000}
	threshold := 150.0
	assert.Zero(t, borderPenalty(window, geometry.Rect{X: 400, Y: 400, W: 200, H: 200}, threshold))
	assert.InDelta(t, 1.0, borderPenalty(window, geometry.Rect{X: 0, Y: 400, W: 200, H: 200}, threshold), 1e-12)
	assert.InDelta(t, 0.5, borderPenalty(window, geometry.Rect{X: 75, Y: 400, W: 200, H: 200}, threshold), 1e-12)
	assert.InDelta(t, 1.0, borderPenalty(window, geometry.Rect{X: -50, Y: 400, W: 200, H: 200}, threshold), 1e-12)
}

func TestParamsNormalize(t *testing.T) {
	c := New(Params{})
	assert.Equal(t, DefaultParams(), c.Params())
}

func TestRefine(t *testing.T) {
	c := New(DefaultParams())
	base := geometry.Rect{W: 2000, H: 1000}
	window := geometry.Rect{X: 500, W: 1000, H: 1000}

	tests := []struct {
		name   string
		region geometry.Rect
		want   geometry.Rect
	}{
		{
			// Sliding left by the full radius keeps full coverage and
			// leaves an 80px margin.
			name:   "pulls region off the edge",
			region: geometry.Rect{X: 500, Y: 400, W: 200, H: 200},
			want:   geometry.Rect{X: 420, W: 1000, H: 1000},
		},
		{
			name:   "centered region keeps the analytic placement",
			region: geometry.Rect{X: 900, Y: 400, W: 200, H: 200},
			want:   window,
		},
		{
			// Every shift would cut the region, which costs more than the
			// border penalty saves.
			name:   "coverage outweighs border penalty",
			region: geometry.Rect{X: 500, Y: 400, W: 1000, H: 200},
			want:   window,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := []candidate{{kind: geometry.KindObject, raw: tt.region, padded: tt.region, weight: 1}}
			got := c.refine(base, window, cands)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.Equal(t, window.W, got.W)
			assert.Equal(t, window.H, got.H)
			assert.GreaterOrEqual(t, c.windowScore(got, cands), c.windowScore(window, cands))
		})
	}
}

func TestFaceFloor(t *testing.T) {
	c := New(DefaultParams())
	base := geometry.Rect{W: 3000, H: 2000}

	tests := []struct {
		name     string
		kind     geometry.RegionKind
		window   geometry.Rect
		padded   geometry.Rect
		want     geometry.Rect
		required geometry.Rect
	}{
		{
			name:     "small face grows the window",
			kind:     geometry.KindFace,
			window:   geometry.Rect{X: 1000, Y: 500, W: 60, H: 40},
			padded:   geometry.Rect{X: 1010, Y: 505, W: 30, H: 30},
			want:     geometry.Rect{X: 950, Y: 470, W: 150, H: 100},
			required: geometry.Rect{X: 975, Y: 470, W: 100, H: 100},
		},
		{
			name:     "required region stays inside base",
			kind:     geometry.KindFace,
			window:   geometry.Rect{W: 60, H: 40},
			padded:   geometry.Rect{W: 40, H: 40},
			want:     geometry.Rect{W: 150, H: 100},
			required: geometry.Rect{W: 100, H: 100},
		},
		{
			name:     "window re-placed around a face near its edge",
			kind:     geometry.KindFace,
			window:   geometry.Rect{X: 1000, Y: 500, W: 600, H: 400},
			padded:   geometry.Rect{X: 1560, Y: 600, W: 50, H: 50},
			want:     geometry.Rect{X: 1285, Y: 425, W: 600, H: 400},
			required: geometry.Rect{X: 1535, Y: 575, W: 100, H: 100},
		},
		{
			name:   "objects have no floor",
			kind:   geometry.KindObject,
			window: geometry.Rect{X: 1000, Y: 500, W: 60, H: 40},
			padded: geometry.Rect{X: 1010, Y: 505, W: 30, H: 30},
			want:   geometry.Rect{X: 1000, Y: 500, W: 60, H: 40},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := []candidate{{kind: tt.kind, raw: tt.padded, padded: tt.padded, weight: 1}}
			got := c.faceFloor(base, tt.window, cands)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.W, got.W, 1e-9)
			assert.InDelta(t, tt.want.H, got.H, 1e-9)
			assert.InDelta(t, tt.window.Aspect(), got.Aspect(), 1e-9)
			assert.True(t, base.Contains(got, 1e-9))
			if !tt.required.Empty() {
				assert.Truef(t, got.Contains(tt.required, 1e-9), "window %+v misses %+v", got, tt.required)
			}
		})
	}
}
