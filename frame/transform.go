package frame

// Transform positions and weights one frame's contribution to the composite.
// Fill scale and translation are fractions of the target raster, so a
// transform is independent of the format it is eventually mixed into.
type Transform struct {
	FillScaleX       float64
	FillScaleY       float64
	FillTranslationX float64
	FillTranslationY float64
	Opacity          float64
	Volume           float64
	LayerDepth       int
	IsKey            bool
	Field            FieldMode
}

// IdentityTransform returns the transform that leaves a frame unchanged.
func IdentityTransform() Transform {
	return Transform{
		FillScaleX: 1,
		FillScaleY: 1,
		Opacity:    1,
		Volume:     1,
		Field:      Progressive,
	}
}

// Combine merges a child transform into its parent's, the way nested frames
// accumulate placement on the way down the frame graph.
func (t Transform) Combine(child Transform) Transform {
	out := child
	out.FillTranslationX = t.FillTranslationX + t.FillScaleX*child.FillTranslationX
	out.FillTranslationY = t.FillTranslationY + t.FillScaleY*child.FillTranslationY
	out.FillScaleX = t.FillScaleX * child.FillScaleX
	out.FillScaleY = t.FillScaleY * child.FillScaleY
	out.Opacity = t.Opacity * child.Opacity
	out.Volume = t.Volume * child.Volume
	out.IsKey = t.IsKey || child.IsKey
	if child.Field == Progressive {
		out.Field = t.Field
	}
	return out
}
