package face

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/saturnino-fabrica-de-software/atento/internal/audit"
	"github.com/saturnino-fabrica-de-software/atento/internal/config"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider/facemesh"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider/headpose"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider/rekognition"
)

// ProviderType defines supported inference backends
type ProviderType string

const (
	// ProviderTypeFaceMesh is the local face mesh sidecar (landmarks only)
	ProviderTypeFaceMesh ProviderType = "facemesh"
	// ProviderTypeHeadPose is the remote head pose regression service (pose only)
	ProviderTypeHeadPose ProviderType = "headpose"
	// ProviderTypeRekognition is AWS Rekognition (landmarks and pose)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock is the deterministic in-process provider
	ProviderTypeMock ProviderType = "mock"
)

// NewLandmarkProvider creates the landmark backend named by LANDMARK_PROVIDER
//
// Environment variables:
//   - LANDMARK_PROVIDER: "facemesh", "rekognition" or "mock" (default: "facemesh")
//   - FACEMESH_URL: face mesh sidecar URL
//   - AWS_REGION: AWS region for Rekognition (credentials via the SDK chain)
func NewLandmarkProvider(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.LandmarkProvider, error) {
	switch ProviderType(cfg.LandmarkProvider) {
	case ProviderTypeFaceMesh, "":
		meshConfig := facemesh.DefaultConfig()
		if cfg.FaceMeshURL != "" {
			meshConfig.BaseURL = cfg.FaceMeshURL
		}
		return &auditedLandmarks{
			next:   facemesh.NewProvider(meshConfig),
			name:   string(ProviderTypeFaceMesh),
			logger: auditLogger,
		}, nil

	case ProviderTypeRekognition:
		return createRekognitionProvider(ctx, cfg, auditLogger)

	case ProviderTypeMock:
		return mock.New(cfg.MockFaces), nil

	default:
		return nil, fmt.Errorf("unknown landmark provider: %s (supported: %s, %s, %s)",
			cfg.LandmarkProvider, ProviderTypeFaceMesh, ProviderTypeRekognition, ProviderTypeMock)
	}
}

// NewPoseProvider creates the pose backend named by POSE_PROVIDER. With
// HEADPOSE_LOCAL_CROP the locator finds the face before upload.
func NewPoseProvider(ctx context.Context, cfg *config.Config, locator provider.LandmarkProvider, auditLogger audit.Logger) (provider.PoseProvider, error) {
	switch ProviderType(cfg.PoseProvider) {
	case ProviderTypeHeadPose, "":
		poseConfig := headpose.DefaultConfig()
		if cfg.HeadPoseURL != "" {
			poseConfig.BaseURL = cfg.HeadPoseURL
		}
		poseConfig.RequestsPerSecond = cfg.HeadPoseRPS

		var opts []headpose.Option
		if cfg.HeadPoseLocalCrop && locator != nil {
			opts = append(opts, headpose.WithLocator(locator))
		}
		return &auditedPose{
			next:   headpose.NewProvider(poseConfig, opts...),
			name:   string(ProviderTypeHeadPose),
			logger: auditLogger,
		}, nil

	case ProviderTypeRekognition:
		return createRekognitionProvider(ctx, cfg, auditLogger)

	case ProviderTypeMock:
		return mock.New(cfg.MockFaces), nil

	default:
		return nil, fmt.Errorf("unknown pose provider: %s (supported: %s, %s, %s)",
			cfg.PoseProvider, ProviderTypeHeadPose, ProviderTypeRekognition, ProviderTypeMock)
	}
}

func createRekognitionProvider(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (*rekognition.Provider, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}

	var opts []rekognition.ProviderOption
	if auditLogger != nil {
		opts = append(opts, rekognition.WithAuditLogger(auditLogger))
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rekognition provider: %w", err)
	}
	return prov, nil
}

// auditedLandmarks records an audit event around every landmark call
type auditedLandmarks struct {
	next   provider.LandmarkProvider
	name   string
	logger audit.Logger
}

func (a *auditedLandmarks) DetectLandmarks(ctx context.Context, image []byte) ([]provider.FaceLandmarks, error) {
	started := time.Now()
	faces, err := a.next.DetectLandmarks(ctx, image)
	record(ctx, a.logger, audit.EventLandmarksDetected, a.name, started, err, len(faces))
	return faces, err
}

// Ping forwards readiness checks to providers that support them
func (a *auditedLandmarks) Ping(ctx context.Context) error {
	if p, ok := a.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// auditedPose records an audit event around every pose call
type auditedPose struct {
	next   provider.PoseProvider
	name   string
	logger audit.Logger
}

func (a *auditedPose) EstimatePose(ctx context.Context, image []byte) (*provider.PoseEstimate, error) {
	started := time.Now()
	est, err := a.next.EstimatePose(ctx, image)
	faces := 0
	if est != nil {
		faces = 1
	}
	record(ctx, a.logger, audit.EventPoseEstimated, a.name, started, err, faces)
	return est, err
}

func record(ctx context.Context, logger audit.Logger, eventType audit.EventType, name string, started time.Time, err error, faces int) {
	if logger == nil {
		return
	}

	event := audit.Event{
		EventType: eventType,
		Provider:  name,
		Success:   err == nil,
		Latency:   time.Since(started),
		Metadata:  map[string]string{"faces_count": strconv.Itoa(faces)},
	}
	if err != nil {
		event.Error = err.Error()
	}

	_ = logger.Log(ctx, event)
}
