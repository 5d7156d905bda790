package attention

import (
	"errors"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

var (
	// ErrMalformedLandmarks indicates a landmark set shorter than its scheme requires
	ErrMalformedLandmarks = errors.New("malformed landmark set")
	// ErrUnknownScheme indicates a landmark set whose index layout is not supported
	ErrUnknownScheme = errors.New("unknown landmark scheme")
)

// layout maps semantic points to indices of a landmark scheme.
// Eye indices are ordered p1..p6: p1/p4 horizontal corners, p2/p3 upper lid, p5/p6 lower lid.
type layout struct {
	left  [6]int
	right [6]int
	nose  int
}

var layouts = map[provider.Scheme]layout{
	provider.SchemeFaceMesh: {
		left:  [6]int{33, 160, 158, 133, 153, 144},
		right: [6]int{362, 385, 387, 263, 373, 380},
		nose:  1,
	},
	provider.SchemeDlib68: {
		left:  [6]int{36, 37, 38, 39, 40, 41},
		right: [6]int{42, 43, 44, 45, 46, 47},
		nose:  30,
	},
	provider.SchemeCompact: {
		left:  [6]int{0, 1, 2, 3, 4, 5},
		right: [6]int{6, 7, 8, 9, 10, 11},
		nose:  12,
	},
}

func (l layout) required() int {
	highest := l.nose
	for i := 0; i < 6; i++ {
		highest = max(highest, l.left[i], l.right[i])
	}
	return highest + 1
}

// RequiredPoints returns how many points a landmark set of the scheme must carry
func RequiredPoints(scheme provider.Scheme) (int, error) {
	l, ok := layouts[scheme]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	return l.required(), nil
}

// FaceGeometry is the subset of a landmark set the heuristic reads
type FaceGeometry struct {
	LeftEye  EyeRegion
	RightEye EyeRegion
	Nose     provider.Point
}

// ExtractGeometry pulls both eye regions and the nose tip out of a landmark set.
// An empty scheme is treated as face mesh.
func ExtractGeometry(lm provider.FaceLandmarks) (FaceGeometry, error) {
	scheme := lm.Scheme
	if scheme == "" {
		scheme = provider.SchemeFaceMesh
	}

	l, ok := layouts[scheme]
	if !ok {
		return FaceGeometry{}, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}

	if need := l.required(); len(lm.Points) < need {
		return FaceGeometry{}, fmt.Errorf("%w: %s needs %d points, got %d", ErrMalformedLandmarks, scheme, need, len(lm.Points))
	}

	var g FaceGeometry
	for i := 0; i < 6; i++ {
		g.LeftEye[i] = lm.Points[l.left[i]]
		g.RightEye[i] = lm.Points[l.right[i]]
	}
	g.Nose = lm.Points[l.nose]

	return g, nil
}

// BoundingBoxOf returns the axis-aligned box enclosing every point
func BoundingBoxOf(points []provider.Point) provider.BoundingBox {
	if len(points) == 0 {
		return provider.BoundingBox{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	return provider.BoundingBox{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
