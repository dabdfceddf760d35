package geometry

import (
	"math"
	"testing"
)

func TestComputeIoU(t *testing.T) {
	tests := []struct {
		name     string
		a        Rect
		b        Rect
		expected float64
	}{
		{
			name:     "identical boxes",
			a:        Rect{0, 0, 10, 10},
			b:        Rect{0, 0, 10, 10},
			expected: 1.0,
		},
		{
			name:     "no overlap",
			a:        Rect{0, 0, 10, 10},
			b:        Rect{20, 20, 10, 10},
			expected: 0.0,
		},
		{
			name:     "partial overlap",
			a:        Rect{0, 0, 10, 10},
			b:        Rect{5, 5, 10, 10},
			expected: 25.0 / 175.0, // intersection=25, union=100+100-25=175
		},
		{
			name:     "one inside other",
			a:        Rect{0, 0, 20, 20},
			b:        Rect{5, 5, 10, 10},
			expected: 100.0 / 400.0,
		},
		{
			name:     "empty boxes",
			a:        Rect{},
			b:        Rect{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeIoU(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ComputeIoU(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestNewRectFromCorners(t *testing.T) {
	r := NewRectFromCorners(30, 40, 10, 20)
	want := Rect{X: 10, Y: 20, W: 20, H: 20}
	if r != want {
		t.Errorf("NewRectFromCorners() = %v, want %v", r, want)
	}
}

func TestRect_UnionAndContains(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{20, 5, 10, 10}
	u := a.Union(b)

	if u != (Rect{0, 0, 30, 15}) {
		t.Fatalf("Union() = %v", u)
	}
	if !u.Contains(a, 0) || !u.Contains(b, 0) {
		t.Error("union should contain both inputs")
	}
	if a.Contains(b, 0) {
		t.Error("a should not contain b")
	}
	if (Rect{}).Union(a) != a {
		t.Error("union with empty rect should return the other rect")
	}
}

func TestRect_Intersect(t *testing.T) {
	got := Rect{0, 0, 10, 10}.Intersect(Rect{5, -5, 10, 10})
	if got != (Rect{5, 0, 5, 5}) {
		t.Errorf("Intersect() = %v", got)
	}
	if !(Rect{0, 0, 1, 1}).Intersect(Rect{2, 2, 1, 1}).Empty() {
		t.Error("disjoint rects should intersect to empty")
	}
}

func TestRect_Finite(t *testing.T) {
	if !(Rect{1, 2, 3, 4}).Finite() {
		t.Error("expected finite rect")
	}
	if (Rect{math.NaN(), 0, 1, 1}).Finite() {
		t.Error("NaN rect should not be finite")
	}
	if (Rect{0, 0, math.Inf(1), 1}).Finite() {
		t.Error("Inf rect should not be finite")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Error("Clamp returned wrong value")
	}
	if Clamp(1, 4, 2) != 3 {
		t.Error("Clamp with inverted bounds should return the midpoint")
	}
}

func TestParseRegionKind(t *testing.T) {
	tests := []struct {
		input   string
		want    RegionKind
		wantErr bool
	}{
		{"face", KindFace, false},
		{"FACE", KindFace, false},
		{" object ", KindObject, false},
		{"person", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRegionKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRegionKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRegionKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertRelativeBoxToPixels(t *testing.T) {
	got := ConvertRelativeBoxToPixels(Rect{0.1, 0.2, 0.5, 0.25}, 1000, 800)
	want := Rect{100, 160, 500, 200}
	for i, v := range got.Corners() {
		if math.Abs(v-want.Corners()[i]) > 1e-9 {
			t.Fatalf("ConvertRelativeBoxToPixels() = %v, want %v", got, want)
		}
	}

	// Zero dimensions leave the box untouched.
	box := Rect{0.1, 0.2, 0.3, 0.4}
	if ConvertRelativeBoxToPixels(box, 0, 800) != box {
		t.Error("expected unchanged box for zero width")
	}
	back := ConvertPixelBoxToRelative(want, 1000, 800)
	if math.Abs(back.X-0.1) > 1e-9 || math.Abs(back.H-0.25) > 1e-9 {
		t.Errorf("ConvertPixelBoxToRelative() = %v", back)
	}
}
