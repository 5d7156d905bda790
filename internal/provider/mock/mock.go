package mock

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

const minImageSize = 1000

// Provider implementa provider.LandmarkProvider e provider.PoseProvider para testes e desenvolvimento.
// Os sinais são derivados do hash da imagem, então a mesma imagem sempre gera o mesmo resultado.
type Provider struct {
	faces       int
	unavailable atomic.Bool
}

// New cria um MockProvider que detecta o número indicado de rostos em cada imagem
func New(faces int) *Provider {
	if faces < 0 {
		faces = 0
	}
	return &Provider{faces: faces}
}

// SetUnavailable simula queda do serviço de inferência
func (p *Provider) SetUnavailable(down bool) {
	p.unavailable.Store(down)
}

// DetectLandmarks gera um conjunto compact13 por face
func (p *Provider) DetectLandmarks(ctx context.Context, image []byte) ([]provider.FaceLandmarks, error) {
	if err := p.check(image); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(image)
	faces := make([]provider.FaceLandmarks, 0, p.faces)
	for i := 0; i < p.faces; i++ {
		seed := rotate(hash[:], i*5)
		ear := 0.15 + float64(seed[0])/255*0.2
		offset := (float64(seed[1])/255 - 0.5) * 0.8
		pose := hashPose(seed)

		faces = append(faces, provider.FaceLandmarks{
			Scheme:     provider.SchemeCompact,
			Points:     compactFace(float64(i)*200, ear, offset),
			Confidence: 0.99,
			Pose:       &pose,
		})
	}

	return faces, nil
}

// EstimatePose devolve uma pose determinística
func (p *Provider) EstimatePose(ctx context.Context, image []byte) (*provider.PoseEstimate, error) {
	if err := p.check(image); err != nil {
		return nil, err
	}
	if p.faces == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	hash := sha256.Sum256(image)
	return &provider.PoseEstimate{
		Pose:        hashPose(hash[:]),
		BoundingBox: provider.BoundingBox{X: 40, Y: 40, Width: 120, Height: 140},
		Confidence:  0.99,
	}, nil
}

func (p *Provider) check(image []byte) error {
	if p.unavailable.Load() {
		return fmt.Errorf("mock: %w", provider.ErrInferenceUnavailable)
	}
	if len(image) < minImageSize {
		return domain.ErrInvalidImage
	}
	return nil
}

// hashPose maps hash bytes to pitch and roll in [-40, 40) and yaw in [-60, 60)
func hashPose(seed []byte) provider.Pose {
	return provider.Pose{
		Pitch: float64(seed[2])/255*80 - 40,
		Roll:  float64(seed[3])/255*80 - 40,
		Yaw:   float64(seed[4])/255*120 - 60,
	}
}

func rotate(b []byte, n int) []byte {
	n %= len(b)
	return append(append([]byte{}, b[n:]...), b[:n]...)
}

// compactFace lays out two 30px eyes 60px apart with the requested EAR and
// the nose shifted by offset times the inter-eye distance
func compactFace(dx, ear, offset float64) []provider.Point {
	eye := func(cx float64) []provider.Point {
		const w, cy = 30.0, 100.0
		h := ear * w
		return []provider.Point{
			{X: cx - w/2, Y: cy},
			{X: cx - w/6, Y: cy - h/2},
			{X: cx + w/6, Y: cy - h/2},
			{X: cx + w/2, Y: cy},
			{X: cx + w/6, Y: cy + h/2},
			{X: cx - w/6, Y: cy + h/2},
		}
	}

	points := append(eye(dx+100), eye(dx+160)...)
	return append(points, provider.Point{X: dx + 130 + offset*60, Y: 130})
}

var (
	_ provider.LandmarkProvider = (*Provider)(nil)
	_ provider.PoseProvider     = (*Provider)(nil)
)
