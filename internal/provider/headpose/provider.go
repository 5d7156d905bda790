package headpose

import (
	"context"
	"fmt"
	"image"

	"github.com/samber/lo"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

// Provider implements provider.PoseProvider against the head pose service.
// With a locator the face is found locally and only a loose crop is uploaded;
// without one the whole frame is sent and the service detects the face itself.
type Provider struct {
	client  *Client
	locator provider.LandmarkProvider
}

// Option configures a Provider
type Option func(*Provider)

// WithLocator finds faces locally before uploading
func WithLocator(locator provider.LandmarkProvider) Option {
	return func(p *Provider) {
		p.locator = locator
	}
}

// NewProvider creates a new head pose provider
func NewProvider(config Config, opts ...Option) *Provider {
	p := &Provider{client: NewClient(config)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EstimatePose returns yaw, pitch and roll of the most confident face
func (p *Provider) EstimatePose(ctx context.Context, img []byte) (*provider.PoseEstimate, error) {
	if len(img) == 0 {
		return nil, ErrEmptyImage
	}

	payload := img
	var origin image.Point

	if p.locator != nil {
		faces, err := p.locator.DetectLandmarks(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("locate face: %w", err)
		}
		if len(faces) == 0 {
			return nil, ErrNoFace
		}

		best := lo.MaxBy(faces, func(a, b provider.FaceLandmarks) bool {
			return a.Confidence > b.Confidence
		})
		if best.BoundingBox != nil {
			crop, at, err := LooseCrop(img, *best.BoundingBox)
			if err != nil {
				return nil, fmt.Errorf("crop face: %w", err)
			}
			payload, origin = crop, at
		}
	}

	resp, err := p.client.Identify(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("estimate pose: %w", err)
	}
	if resp.Face == nil {
		return nil, ErrNoFace
	}

	return &provider.PoseEstimate{
		Pose: provider.Pose{
			Pitch: resp.Pitch,
			Roll:  resp.Roll,
			Yaw:   resp.Yaw,
		},
		BoundingBox: provider.BoundingBox{
			X:      float64(resp.Face.XMin) + float64(origin.X),
			Y:      float64(resp.Face.YMin) + float64(origin.Y),
			Width:  float64(resp.Face.XMax - resp.Face.XMin),
			Height: float64(resp.Face.YMax - resp.Face.YMin),
		},
		Confidence: float64(resp.Face.Confidence),
	}, nil
}

var _ provider.PoseProvider = (*Provider)(nil)
