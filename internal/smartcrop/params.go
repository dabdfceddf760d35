package smartcrop

import "math"

// Params tune the crop calculator.
type Params struct {
	// ExtremeBand: images with aspect outside [1/ExtremeBand, ExtremeBand] are extreme.
	ExtremeBand float64 `yaml:"extreme_band" json:"extremeBand"`
	// NonExtremeBand bounds the crop aspect of a non-extreme image to
	// intrinsic·[1/NonExtremeBand, NonExtremeBand].
	NonExtremeBand float64 `yaml:"non_extreme_band" json:"nonExtremeBand"`
	SquareEpsilon  float64 `yaml:"square_epsilon" json:"squareEpsilon"`

	MarginRatio  float64 `yaml:"margin_ratio" json:"marginRatio"`
	FaceWeight   float64 `yaml:"face_weight" json:"faceWeight"`
	ObjectWeight float64 `yaml:"object_weight" json:"objectWeight"`
	TopK         int     `yaml:"top_k" json:"topK"`
	AreaPenalty  float64 `yaml:"area_penalty" json:"areaPenalty"`

	PortraitFaceWidthPad   float64 `yaml:"portrait_face_width_pad" json:"portraitFaceWidthPad"`
	PortraitFaceHeightPad  float64 `yaml:"portrait_face_height_pad" json:"portraitFaceHeightPad"`
	PortraitFaceAboveShare float64 `yaml:"portrait_face_above_share" json:"portraitFaceAboveShare"`

	RefineStep      float64 `yaml:"refine_step" json:"refineStep"`
	RefineRadius    float64 `yaml:"refine_radius" json:"refineRadius"`
	BorderLambda    float64 `yaml:"border_lambda" json:"borderLambda"`
	BorderThreshold float64 `yaml:"border_threshold" json:"borderThreshold"`

	MinFaceSize float64 `yaml:"min_face_size" json:"minFaceSize"`
}

// DefaultParams returns the calculator defaults.
func DefaultParams() Params {
	return Params{
		ExtremeBand:            1.5,
		NonExtremeBand:         1.25,
		SquareEpsilon:          0.05,
		MarginRatio:            0.12,
		FaceWeight:             10,
		ObjectWeight:           3,
		TopK:                   5,
		AreaPenalty:            0.65,
		PortraitFaceWidthPad:   1.15,
		PortraitFaceHeightPad:  1.65,
		PortraitFaceAboveShare: 0.65,
		RefineStep:             20,
		RefineRadius:           80,
		BorderLambda:           0.6,
		BorderThreshold:        0.15,
		MinFaceSize:            100,
	}
}

// normalize replaces unset or unusable values with defaults.
func (p Params) normalize() Params {
	d := DefaultParams()
	pos := func(v *float64, def float64) {
		if !(*v > 0) || math.IsInf(*v, 0) {
			*v = def
		}
	}
	if !(p.ExtremeBand > 1) {
		p.ExtremeBand = d.ExtremeBand
	}
	if !(p.NonExtremeBand >= 1) {
		p.NonExtremeBand = d.NonExtremeBand
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if !(p.PortraitFaceWidthPad >= 1) {
		p.PortraitFaceWidthPad = d.PortraitFaceWidthPad
	}
	if !(p.PortraitFaceHeightPad >= 1) {
		p.PortraitFaceHeightPad = d.PortraitFaceHeightPad
	}
	if p.PortraitFaceAboveShare > 1 {
		p.PortraitFaceAboveShare = d.PortraitFaceAboveShare
	}
	for _, f := range []struct {
		v   *float64
		def float64
	}{
		{&p.SquareEpsilon, d.SquareEpsilon},
		{&p.MarginRatio, d.MarginRatio},
		{&p.FaceWeight, d.FaceWeight},
		{&p.ObjectWeight, d.ObjectWeight},
		{&p.AreaPenalty, d.AreaPenalty},
		{&p.PortraitFaceAboveShare, d.PortraitFaceAboveShare},
		{&p.RefineStep, d.RefineStep},
		{&p.RefineRadius, d.RefineRadius},
		{&p.BorderLambda, d.BorderLambda},
		{&p.BorderThreshold, d.BorderThreshold},
		{&p.MinFaceSize, d.MinFaceSize},
	} {
		pos(f.v, f.def)
	}
	return p
}
