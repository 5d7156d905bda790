package attention

import "math"

// OffsetRatio measures how far the nose sits from the midpoint between the eyes,
// relative to the inter-eye distance. Mirroring the face leaves it unchanged.
func OffsetRatio(g FaceGeometry) float64 {
	leftX := meanX(g.LeftEye)
	rightX := meanX(g.RightEye)
	center := (leftX + rightX) / 2

	return math.Abs(g.Nose.X-center) / (math.Abs(rightX-leftX) + Epsilon)
}

// HeadTurned reports whether the offset ratio exceeds the configured threshold
func HeadTurned(ratio float64, cfg Config) bool {
	return ratio > cfg.HeadTurnThreshold
}

func meanX(eye EyeRegion) float64 {
	var sum float64
	for _, p := range eye {
		sum += p.X
	}
	return sum / float64(len(eye))
}
