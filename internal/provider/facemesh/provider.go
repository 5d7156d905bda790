package facemesh

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

// Provider implements provider.LandmarkProvider on top of the face mesh sidecar
type Provider struct {
	client *Client
}

// NewProvider creates a new face mesh provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// DetectLandmarks returns one 468/478-point mesh per detected face, in pixels
func (p *Provider) DetectLandmarks(ctx context.Context, image []byte) ([]provider.FaceLandmarks, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	resp, err := p.client.Landmarks(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return nil, fmt.Errorf("detect landmarks: %w", err)
	}

	faces := make([]provider.FaceLandmarks, 0, len(resp.Faces))
	for _, mesh := range resp.Faces {
		points := toPixels(mesh, resp.Width, resp.Height)
		box := attention.BoundingBoxOf(points)

		faces = append(faces, provider.FaceLandmarks{
			Scheme:      provider.SchemeFaceMesh,
			Points:      points,
			BoundingBox: &box,
			Confidence:  mesh.Score,
		})
	}

	return faces, nil
}

// Ping checks that the sidecar is up
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.Health(ctx)
	return err
}

func toPixels(mesh MeshResult, width, height int) []provider.Point {
	sx, sy := 1.0, 1.0
	if mesh.Normalized {
		sx, sy = float64(width), float64(height)
	}

	points := make([]provider.Point, len(mesh.Points))
	for i, p := range mesh.Points {
		points[i] = provider.Point{X: p[0] * sx, Y: p[1] * sy}
	}
	return points
}

var _ provider.LandmarkProvider = (*Provider)(nil)
