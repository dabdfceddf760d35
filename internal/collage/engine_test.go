package collage

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/photo-collage/internal/geometry"
	"github.com/kozaktomas/photo-collage/internal/validate"
)

func seed(v uint32) *uint32 { return &v }

func randomPhotos(n int, rng *rand.Rand) []Photo {
	photos := make([]Photo, n)
	for i := range photos {
		aspect := 0.18 + rng.Float64()*(4.2-0.18)
		w := 2000.0
		h := math.Round(w / aspect)
		photos[i] = Photo{
			ID:          fmt.Sprintf("photo-%02d", i),
			ImageWidth:  w,
			ImageHeight: h,
			Crop:        geometry.Rect{W: w, H: h},
		}
		if i%3 == 0 {
			photos[i].KeepRegions = []geometry.KeepRegion{{
				Kind:  geometry.KindFace,
				Box:   geometry.Rect{X: w * 0.6, Y: h * 0.2, W: w * 0.1, H: w * 0.1},
				Score: 0.9,
			}}
		}
	}
	return photos
}

func TestLayout_TwentyPhotoScenario(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	req := Request{
		RequestID:    "scenario",
		Photos:       randomPhotos(20, rand.New(rand.NewPCG(2026, 2026))),
		CanvasWidth:  3200,
		CanvasHeight: 2400,
		Options:      &Options{Seed: seed(2026)},
	}

	res, err := engine.Layout(req)
	require.NoError(t, err)
	require.Len(t, res.Placements, 20)

	rep := validate.ValidateLayout(res.Tiles, res.Placements, 3200, 2400, validate.Cover)
	assert.True(t, rep.OK, rep.Issues)

	drawn := 0.0
	ids := map[string]bool{}
	for i, p := range res.Placements {
		assert.Equal(t, req.Photos[i].ID, p.ID)
		assert.Zero(t, p.Rotation)
		assert.True(t, req.Photos[i].Crop.Contains(p.Crop, 1e-6))
		drawn += p.Drawn().Area()
		ids[p.ID] = true
	}
	assert.Len(t, ids, 20)
	assert.GreaterOrEqual(t, drawn, 3200*2400-1.0)
	assert.NotEmpty(t, res.Attempts)
}

func TestLayout_CoverValidityAcrossSizes(t *testing.T) {
	cfg := DefaultConfig()
	engine := NewEngine(cfg, nil)
	rng := rand.New(rand.NewPCG(1, 99))
	sizes := []int{1, 2, 3, 5, 8, 13, 40, 150}
	failed := 0
	for _, n := range sizes {
		req := Request{
			Photos:       randomPhotos(n, rng),
			CanvasWidth:  2480,
			CanvasHeight: 3508,
			Options:      &Options{Seed: seed(uint32(n))},
		}
		res, err := engine.Layout(req)
		if err != nil {
			// Only an unsatisfiable cover check may fail the call, and only
			// after every seeded attempt and the grid have been tried.
			require.ErrorIsf(t, err, ErrValidationFailed, "n=%d", n)
			require.NotNilf(t, res, "n=%d", n)
			assert.Truef(t, res.UsedFallback, "n=%d", n)
			require.Lenf(t, res.Attempts, cfg.Attempts+1, "n=%d", n)
			assert.Truef(t, res.Attempts[cfg.Attempts].UsedGrid, "n=%d", n)
			assert.Emptyf(t, res.Placements, "n=%d", n)
			failed++
			continue
		}
		require.Lenf(t, res.Placements, n, "n=%d", n)
		for i, p := range res.Placements {
			v := validate.Validate(res.Tiles[i], p, req.CanvasWidth, req.CanvasHeight, validate.Cover)
			require.Truef(t, v.OK, "n=%d placement %d: %s", n, i, v.Reason)
		}
	}
	t.Logf("%d of %d random photo sets had no valid cover layout", failed, len(sizes))
}

func TestLayout_FallbackRescuesGridFriendlyPhotos(t *testing.T) {
	cfg := DefaultConfig()
	engine := NewEngine(cfg, nil)
	for _, n := range []int{1, 2, 3, 4, 6} {
		// An n×1 strip of square tiles always fits square photos.
		req := Request{CanvasWidth: 600 * float64(n), CanvasHeight: 600}
		for i := range n {
			req.Photos = append(req.Photos, Photo{ID: fmt.Sprintf("sq-%d", i), ImageWidth: 900, ImageHeight: 900})
		}
		res, err := engine.Layout(req)
		require.NoErrorf(t, err, "n=%d", n)
		require.Lenf(t, res.Placements, n, "n=%d", n)
		rep := validate.ValidateLayout(res.Tiles, res.Placements, req.CanvasWidth, req.CanvasHeight, validate.Cover)
		assert.Truef(t, rep.OK, "n=%d: %v", n, rep.Issues)
	}
}

func TestLayout_UnsatisfiableCoverReportsAttempts(t *testing.T) {
	cfg := DefaultConfig()
	engine := NewEngine(cfg, nil)
	// Any two-tile cut of a square gives tiles of one orientation, so a
	// landscape and a portrait photo can never both stay within the cap.
	req := Request{
		RequestID:    "mixed",
		CanvasWidth:  1000,
		CanvasHeight: 1000,
		Photos: []Photo{
			{ID: "landscape", ImageWidth: 1200, ImageHeight: 800},
			{ID: "portrait", ImageWidth: 800, ImageHeight: 1200},
		},
	}
	res, err := engine.Layout(req)
	require.ErrorIs(t, err, ErrValidationFailed)
	require.NotNil(t, res)
	assert.True(t, res.UsedFallback)
	assert.Len(t, res.Attempts, cfg.Attempts+1)

	resp := engine.Handle(req)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "overflows tile")
	assert.Empty(t, resp.Placements)
}

func TestLayout_RegionKinds(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	face := geometry.Rect{X: 300, Y: 200, W: 150, H: 150}
	request := func(kind string) Request {
		return Request{
			RequestID:    "kinds",
			CanvasWidth:  1000,
			CanvasHeight: 1000,
			Photos: []Photo{{
				ID:          "p",
				ImageWidth:  1600,
				ImageHeight: 1200,
				KeepRegions: []geometry.KeepRegion{{Kind: geometry.RegionKind(kind), Box: face, Score: 1}},
			}},
		}
	}

	t.Run("unknown kind is rejected", func(t *testing.T) {
		for _, kind := range []string{"banana", ""} {
			_, err := engine.Layout(request(kind))
			assert.ErrorIsf(t, err, ErrInvalidInput, "kind %q", kind)
			assert.False(t, engine.Handle(request(kind)).OK)
		}
	})

	t.Run("kind is case-insensitive", func(t *testing.T) {
		want, err := json.Marshal(engine.Handle(request("face")))
		require.NoError(t, err)
		got, err := json.Marshal(engine.Handle(request(" FACE ")))
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
	})

	t.Run("caller regions are not modified", func(t *testing.T) {
		req := request("Face")
		_, err := engine.Layout(req)
		require.NoError(t, err)
		assert.Equal(t, geometry.RegionKind("Face"), req.Photos[0].KeepRegions[0].Kind)
	})
}

func TestLayout_Deterministic(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	req := Request{
		RequestID:    "det",
		Photos:       randomPhotos(17, rand.New(rand.NewPCG(5, 5))),
		CanvasWidth:  1920,
		CanvasHeight: 1080,
		Options:      &Options{Seed: seed(42)},
	}
	a, err := json.Marshal(engine.Handle(req))
	require.NoError(t, err)
	b, err := json.Marshal(engine.Handle(req))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	// Without an explicit seed the layout is still reproducible.
	req.Options = nil
	c, _ := json.Marshal(engine.Handle(req))
	d, _ := json.Marshal(engine.Handle(req))
	assert.Equal(t, string(c), string(d))
}

func TestLayout_SinglePhoto(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	res, err := engine.Layout(Request{
		Photos:       []Photo{{ID: "only", ImageWidth: 1500, ImageHeight: 1200}},
		CanvasWidth:  1000,
		CanvasHeight: 1000,
	})
	require.NoError(t, err)
	require.Len(t, res.Tiles, 1)
	assert.Equal(t, geometry.Rect{W: 1000, H: 1000}, res.Tiles[0])

	p := res.Placements[0]
	assert.InDelta(t, 1.0, p.Crop.Aspect(), 1e-9)
	assert.InDelta(t, 500, p.CenterX, 1e-9)
	assert.InDelta(t, 500, p.CenterY, 1e-9)
	assert.InDelta(t, 1000/p.Crop.W, p.Scale, 1e-9)
}

func TestLayout_InputErrors(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)
	valid := Photo{ID: "a", ImageWidth: 100, ImageHeight: 100}
	tests := []struct {
		name string
		req  Request
	}{
		{"no photos", Request{CanvasWidth: 100, CanvasHeight: 100}},
		{"zero canvas", Request{Photos: []Photo{valid}, CanvasWidth: 0, CanvasHeight: 100}},
		{"infinite canvas", Request{Photos: []Photo{valid}, CanvasWidth: math.Inf(1), CanvasHeight: 100}},
		{"nan image", Request{Photos: []Photo{{ID: "a", ImageWidth: math.NaN(), ImageHeight: 1}}, CanvasWidth: 100, CanvasHeight: 100}},
		{"missing id", Request{Photos: []Photo{{ImageWidth: 1, ImageHeight: 1}}, CanvasWidth: 100, CanvasHeight: 100}},
		{"duplicate id", Request{Photos: []Photo{valid, valid}, CanvasWidth: 100, CanvasHeight: 100}},
		{"crop outside image", Request{Photos: []Photo{{ID: "a", ImageWidth: 100, ImageHeight: 100, Crop: geometry.Rect{X: 200, Y: 200, W: 10, H: 10}}}, CanvasWidth: 100, CanvasHeight: 100}},
		{"bad ratios", Request{Photos: []Photo{valid}, CanvasWidth: 100, CanvasHeight: 100, Options: &Options{SplitRatioMin: ptr(0.8), SplitRatioMax: ptr(0.2)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Layout(tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)

			resp := engine.Handle(tt.req)
			assert.False(t, resp.OK)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, resp.Placements)
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestAttemptScore_Better(t *testing.T) {
	base := AttemptScore{ValidationFailures: 0, OrientationViolations: 1, CenterCost: 2, NonExtremeDistortion: 3, WeightedDistortion: 4}

	worse := base
	worse.ValidationFailures = 1
	worse.OrientationViolations = 0
	assert.True(t, base.Better(worse))

	fewerFlips := base
	fewerFlips.OrientationViolations = 0
	fewerFlips.CenterCost = 100
	assert.True(t, fewerFlips.Better(base))

	lowerCenter := base
	lowerCenter.CenterCost = 1
	assert.True(t, lowerCenter.Better(base))

	tiny := base
	tiny.CenterCost += 1e-12
	tiny.NonExtremeDistortion = 2
	assert.True(t, tiny.Better(base), "differences below epsilon fall through to the next key")

	assert.False(t, base.Better(base))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"a", "b"})
	assert.Equal(t, a, Fingerprint([]string{"a", "b"}))
	assert.NotEqual(t, a, Fingerprint([]string{"b", "a"}))
	assert.NotEqual(t, Fingerprint([]string{"ab"}), Fingerprint([]string{"a", "b"}))
	assert.Len(t, a, 64)
}
