package attention

import (
	"gonum.org/v1/gonum/floats"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

// EyeRegion holds the six contour points of one eye, ordered p1..p6
type EyeRegion [6]provider.Point

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|).
// The denominator carries Epsilon so a collapsed eye never yields NaN or Inf.
func EyeAspectRatio(eye EyeRegion) float64 {
	vertical := distance(eye[1], eye[5]) + distance(eye[2], eye[4])
	horizontal := distance(eye[0], eye[3])
	return vertical / (2*horizontal + Epsilon)
}

// AverageEAR averages the ratios of both eyes
func AverageEAR(left, right EyeRegion) float64 {
	return (EyeAspectRatio(left) + EyeAspectRatio(right)) / 2
}

func distance(a, b provider.Point) float64 {
	return floats.Distance([]float64{a.X, a.Y}, []float64{b.X, b.Y}, 2)
}
