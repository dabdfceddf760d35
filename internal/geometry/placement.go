package geometry

// Placement positions a cropped photo on the canvas. The crop (in image
// pixels) is scaled by Scale and centered on (CenterX, CenterY).
type Placement struct {
	ID       string  `json:"id"`
	CenterX  float64 `json:"centerX"`
	CenterY  float64 `json:"centerY"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Crop     Rect    `json:"crop"`
}

// Drawn returns the canvas rectangle covered by the placement.
func (p Placement) Drawn() Rect {
	return CenteredAt(p.CenterX, p.CenterY, p.Crop.W*p.Scale, p.Crop.H*p.Scale)
}

// CoverPlacement scales crop so it covers tile and centers it on the tile.
func CoverPlacement(id string, tile, crop Rect) Placement {
	scale := 0.0
	if crop.W > 0 && crop.H > 0 {
		scale = max(tile.W/crop.W, tile.H/crop.H)
	}
	cx, cy := tile.Center()
	return Placement{ID: id, CenterX: cx, CenterY: cy, Scale: scale, Crop: crop}
}
