package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrInferenceUnavailable is wrapped by every provider when the underlying
// model (local sidecar, remote service or cloud API) cannot answer.
var ErrInferenceUnavailable = errors.New("inference capability unavailable")

// Unavailable wraps err with ErrInferenceUnavailable. Cancellation by the
// caller is returned as is.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInferenceUnavailable, err)
}

var (
	// ErrInvalidImage is wrapped when the image cannot be read by the backend
	ErrInvalidImage = errors.New("invalid image")
	// ErrNoFace is wrapped by pose providers when there is nothing to estimate
	ErrNoFace = errors.New("no face found")
)

// LandmarkProvider define a interface para provedores de landmarks faciais
type LandmarkProvider interface {
	// DetectLandmarks returns one landmark set per detected face, in pixel space.
	// Zero faces is not an error: an empty slice is returned.
	DetectLandmarks(ctx context.Context, image []byte) ([]FaceLandmarks, error)
}

// PoseProvider estimates head orientation for the most confident face in an image.
type PoseProvider interface {
	EstimatePose(ctx context.Context, image []byte) (*PoseEstimate, error)
}

// Scheme names the index layout of a landmark set.
type Scheme string

const (
	// SchemeFaceMesh is the MediaPipe face mesh layout (468 points, 478 refined)
	SchemeFaceMesh Scheme = "facemesh"
	// SchemeDlib68 is the iBUG 300-W layout produced by dlib's shape predictor
	SchemeDlib68 Scheme = "dlib68"
	// SchemeCompact is 6 left-eye points, 6 right-eye points and the nose tip
	SchemeCompact Scheme = "compact13"
)

// Point is a 2D landmark in pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceLandmarks is the landmark set of one detected face
type FaceLandmarks struct {
	Scheme      Scheme       `json:"scheme"`
	Points      []Point      `json:"points"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Confidence  float64      `json:"confidence"`
	Pose        *Pose        `json:"pose,omitempty"`
}

// Pose represents face orientation angles in degrees
type Pose struct {
	Pitch float64 `json:"pitch"` // up/down rotation
	Roll  float64 `json:"roll"`  // tilted rotation
	Yaw   float64 `json:"yaw"`   // left/right rotation
}

// PoseEstimate is the answer of a PoseProvider
type PoseEstimate struct {
	Pose        Pose        `json:"pose"`
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
