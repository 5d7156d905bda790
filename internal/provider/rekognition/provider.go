package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/samber/lo"

	"github.com/saturnino-fabrica-de-software/atento/internal/audit"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Rekognition only returns corners plus upper and lower lid midpoints per eye,
// so each lid point is used twice to fill the six-point contour.
var (
	leftEyeContour = [6]types.LandmarkType{
		types.LandmarkTypeLeftEyeLeft, types.LandmarkTypeLeftEyeUp, types.LandmarkTypeLeftEyeUp,
		types.LandmarkTypeLeftEyeRight, types.LandmarkTypeLeftEyeDown, types.LandmarkTypeLeftEyeDown,
	}
	rightEyeContour = [6]types.LandmarkType{
		types.LandmarkTypeRightEyeLeft, types.LandmarkTypeRightEyeUp, types.LandmarkTypeRightEyeUp,
		types.LandmarkTypeRightEyeRight, types.LandmarkTypeRightEyeDown, types.LandmarkTypeRightEyeDown,
	}
	compactOrder = append(append(leftEyeContour[:], rightEyeContour[:]...), types.LandmarkTypeNose)
)

// Provider implements both provider.LandmarkProvider and provider.PoseProvider
// on top of AWS Rekognition DetectFaces
type Provider struct {
	api           DetectFacesAPI
	minConfidence float64
	auditLogger   audit.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

var (
	_ provider.LandmarkProvider = (*Provider)(nil)
	_ provider.PoseProvider     = (*Provider)(nil)
)

// NewProvider creates a provider backed by a real Rekognition client
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewProviderWithAPI(client, cfg, opts...), nil
}

// NewProviderWithAPI creates a provider over any DetectFaces implementation
func NewProviderWithAPI(api DetectFacesAPI, cfg Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		api:           api,
		minConfidence: cfg.MinConfidence,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// logAudit is fire-and-forget: audit failures never fail the operation
func (p *Provider) logAudit(ctx context.Context, eventType audit.EventType, started time.Time, err error, metadata map[string]string) {
	if p.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: eventType,
		Provider:  "rekognition",
		Success:   err == nil,
		Latency:   time.Since(started),
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	_ = p.auditLogger.Log(ctx, event)
}

func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

func (p *Provider) detect(ctx context.Context, img []byte, attr types.Attribute) ([]types.FaceDetail, error) {
	if err := validateImage(img); err != nil {
		return nil, err
	}

	output, err := p.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: img},
		Attributes: []types.Attribute{attr},
	})
	if err != nil {
		return nil, classifyError(err)
	}

	return lo.Filter(output.FaceDetails, func(d types.FaceDetail, _ int) bool {
		return float64(aws.ToFloat32(d.Confidence)) >= p.minConfidence
	}), nil
}

// DetectLandmarks returns a compact13 landmark set and the pose of every face.
// Rekognition reports ratios of the image size; they are scaled to pixels here.
func (p *Provider) DetectLandmarks(ctx context.Context, img []byte) ([]provider.FaceLandmarks, error) {
	started := time.Now()
	metadata := map[string]string{"image_size": strconv.Itoa(len(img))}

	if err := validateImage(img); err != nil {
		p.logAudit(ctx, audit.EventLandmarksDetected, started, err, metadata)
		return nil, fmt.Errorf("detect landmarks: %w", err)
	}

	dims, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidImage, err)
		p.logAudit(ctx, audit.EventLandmarksDetected, started, err, metadata)
		return nil, fmt.Errorf("detect landmarks: %w", err)
	}

	details, err := p.detect(ctx, img, types.AttributeAll)
	if err != nil {
		p.logAudit(ctx, audit.EventLandmarksDetected, started, err, metadata)
		return nil, fmt.Errorf("detect landmarks: %w", err)
	}

	faces := make([]provider.FaceLandmarks, 0, len(details))
	for _, d := range details {
		faces = append(faces, toLandmarks(d, float64(dims.Width), float64(dims.Height)))
	}

	metadata["faces_count"] = strconv.Itoa(len(faces))
	p.logAudit(ctx, audit.EventLandmarksDetected, started, nil, metadata)

	return faces, nil
}

// EstimatePose returns the pose of the most confident face
func (p *Provider) EstimatePose(ctx context.Context, img []byte) (*provider.PoseEstimate, error) {
	started := time.Now()
	metadata := map[string]string{"image_size": strconv.Itoa(len(img))}

	details, err := p.detect(ctx, img, types.AttributeDefault)
	if err != nil {
		p.logAudit(ctx, audit.EventPoseEstimated, started, err, metadata)
		return nil, fmt.Errorf("estimate pose: %w", err)
	}
	if len(details) == 0 {
		p.logAudit(ctx, audit.EventPoseEstimated, started, ErrNoFaceDetected, metadata)
		return nil, ErrNoFaceDetected
	}

	best := lo.MaxBy(details, func(a, b types.FaceDetail) bool {
		return aws.ToFloat32(a.Confidence) > aws.ToFloat32(b.Confidence)
	})

	width, height := imageSize(img)
	est := &provider.PoseEstimate{
		Pose:        toPose(best.Pose),
		BoundingBox: toBoundingBox(best.BoundingBox, width, height),
		Confidence:  float64(aws.ToFloat32(best.Confidence)) / 100,
	}

	metadata["faces_count"] = strconv.Itoa(len(details))
	p.logAudit(ctx, audit.EventPoseEstimated, started, nil, metadata)

	return est, nil
}

// imageSize returns pixel dimensions, or 1x1 so boxes stay as ratios when the
// header cannot be read
func imageSize(img []byte) (float64, float64) {
	dims, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 1, 1
	}
	return float64(dims.Width), float64(dims.Height)
}

// toLandmarks leaves Points empty when a required eye or nose landmark is
// missing; the scorer then rejects the face as malformed.
func toLandmarks(d types.FaceDetail, width, height float64) provider.FaceLandmarks {
	if width == 0 || height == 0 {
		width, height = 1, 1
	}

	byType := make(map[types.LandmarkType]provider.Point, len(d.Landmarks))
	for _, lm := range d.Landmarks {
		byType[lm.Type] = provider.Point{
			X: float64(aws.ToFloat32(lm.X)) * width,
			Y: float64(aws.ToFloat32(lm.Y)) * height,
		}
	}

	box := toBoundingBox(d.BoundingBox, width, height)
	pose := toPose(d.Pose)
	face := provider.FaceLandmarks{
		Scheme:      provider.SchemeCompact,
		BoundingBox: &box,
		Confidence:  float64(aws.ToFloat32(d.Confidence)) / 100,
		Pose:        &pose,
	}

	points := make([]provider.Point, 0, len(compactOrder))
	for _, lt := range compactOrder {
		pt, ok := byType[lt]
		if !ok {
			return face
		}
		points = append(points, pt)
	}
	face.Points = points

	return face
}

func toBoundingBox(b *types.BoundingBox, width, height float64) provider.BoundingBox {
	if b == nil {
		return provider.BoundingBox{}
	}
	return provider.BoundingBox{
		X:      float64(aws.ToFloat32(b.Left)) * width,
		Y:      float64(aws.ToFloat32(b.Top)) * height,
		Width:  float64(aws.ToFloat32(b.Width)) * width,
		Height: float64(aws.ToFloat32(b.Height)) * height,
	}
}

func toPose(p *types.Pose) provider.Pose {
	if p == nil {
		return provider.Pose{}
	}
	return provider.Pose{
		Pitch: float64(aws.ToFloat32(p.Pitch)),
		Roll:  float64(aws.ToFloat32(p.Roll)),
		Yaw:   float64(aws.ToFloat32(p.Yaw)),
	}
}
