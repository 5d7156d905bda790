package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/audit"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
	"github.com/saturnino-fabrica-de-software/atento/internal/session"
	"github.com/saturnino-fabrica-de-software/atento/internal/webhook"
	"github.com/saturnino-fabrica-de-software/atento/internal/ws"
)

// PoseResult is a head pose estimate with its pitch and roll warnings
type PoseResult struct {
	Pose        provider.Pose          `json:"pose"`
	BoundingBox provider.BoundingBox   `json:"bounding_box"`
	Confidence  float64                `json:"confidence"`
	Warnings    attention.PoseWarnings `json:"warnings"`
}

// AttentionService runs frames through the inference providers and the
// per-session scorers, then records, broadcasts and notifies the outcome
type AttentionService struct {
	registry  *session.Registry
	landmarks provider.LandmarkProvider
	pose      provider.PoseProvider
	defaults  attention.Config

	sessionRepo SessionRepositoryInterface
	logRepo     LogRepositoryInterface
	hub         Broadcaster
	notifier    Notifier
	audit       audit.Logger
	logger      *slog.Logger
	now         func() time.Time

	landmarksOutage outage
	poseOutage      outage

	// stopped sessions kept in memory when they could not be persisted
	retainStopped int

	wg sync.WaitGroup
}

// DefaultStoppedRetention is the number of unpersisted stopped sessions kept in memory
const DefaultStoppedRetention = 100

// Option configures an AttentionService
type Option func(*AttentionService)

// WithPersistence stores sessions and log rows in addition to the in-memory registry
func WithPersistence(sessions SessionRepositoryInterface, logs LogRepositoryInterface) Option {
	return func(s *AttentionService) {
		s.sessionRepo = sessions
		s.logRepo = logs
	}
}

func WithBroadcaster(hub Broadcaster) Option {
	return func(s *AttentionService) {
		s.hub = hub
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *AttentionService) {
		s.notifier = n
	}
}

func WithAuditLogger(l audit.Logger) Option {
	return func(s *AttentionService) {
		s.audit = l
	}
}

// WithClock replaces time.Now for session timestamps
func WithClock(now func() time.Time) Option {
	return func(s *AttentionService) {
		s.now = now
	}
}

// WithStoppedRetention bounds how many stopped sessions stay in memory when
// they are not persisted
func WithStoppedRetention(n int) Option {
	return func(s *AttentionService) {
		s.retainStopped = n
	}
}

// NewAttentionService wires the providers; pose may be nil when only landmarks are served
func NewAttentionService(
	landmarks provider.LandmarkProvider,
	pose provider.PoseProvider,
	defaults attention.Config,
	logger *slog.Logger,
	opts ...Option,
) *AttentionService {
	s := &AttentionService{
		registry:        session.NewRegistry(),
		landmarks:       landmarks,
		pose:            pose,
		defaults:        defaults,
		audit:           &audit.NoOpLogger{},
		logger:          logger,
		now:             time.Now,
		landmarksOutage: outage{capability: "landmarks"},
		poseOutage:      outage{capability: "pose"},
		retainStopped:   DefaultStoppedRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the thresholds used when a session does not override them
func (s *AttentionService) Defaults() attention.Config {
	return s.defaults
}

// StartSession creates a session with fresh face tracks. A nil cfg uses the defaults.
func (s *AttentionService) StartSession(ctx context.Context, name string, cfg *attention.Config) (*domain.Session, error) {
	effective := s.defaults
	if cfg != nil {
		effective = *cfg
	}

	sess, err := session.New(uuid.New(), name, effective, session.WithClock(s.now))
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	snap := sess.Snapshot()
	snap.Summary = nil

	if s.sessionRepo != nil {
		if err := s.sessionRepo.Create(ctx, &snap); err != nil {
			return nil, fmt.Errorf("session %s: persist: %w", snap.ID, err)
		}
	}

	s.registry.Add(sess)
	s.record(ctx, audit.EventSessionStarted, snap.ID, nil)

	s.logger.InfoContext(ctx, "session started",
		slog.String("session_id", snap.ID.String()),
		slog.String("name", name),
	)

	return &snap, nil
}

// ProcessFrame detects landmarks in an image and scores them. When inference
// is unavailable the frame is skipped: nothing is scored or logged.
func (s *AttentionService) ProcessFrame(ctx context.Context, sessionID uuid.UUID, image []byte) (*attention.FrameResult, error) {
	sess, err := s.active(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Stopped() {
		return nil, domain.ErrSessionStopped
	}

	faces, err := s.landmarks.DetectLandmarks(ctx, image)
	if err != nil {
		return nil, s.providerError(ctx, &s.landmarksOutage, err)
	}
	s.inferenceSucceeded(ctx, &s.landmarksOutage)

	return s.score(ctx, sess, faces)
}

// ProcessLandmarks scores landmark sets computed by the caller
func (s *AttentionService) ProcessLandmarks(ctx context.Context, sessionID uuid.UUID, faces []provider.FaceLandmarks) (*attention.FrameResult, error) {
	sess, err := s.active(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return s.score(ctx, sess, faces)
}

func (s *AttentionService) score(ctx context.Context, sess *session.Session, faces []provider.FaceLandmarks) (*attention.FrameResult, error) {
	observations, dropped := attention.Observe(faces)
	if dropped != nil {
		s.logger.WarnContext(ctx, "dropped malformed faces",
			slog.String("session_id", sess.ID().String()),
			slog.Int("dropped", len(multierr.Errors(dropped))),
			slog.Int("faces", len(faces)),
			slog.Any("error", dropped),
		)
	}

	result, err := sess.Process(observations)
	if errors.Is(err, session.ErrStopped) {
		return nil, domain.ErrSessionStopped
	}
	if err != nil {
		return nil, err
	}

	if s.logRepo != nil {
		if err := s.logRepo.Append(ctx, sess.ID(), session.RowOf(result)); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist log row",
				slog.String("session_id", sess.ID().String()),
				slog.Int("frame", result.Frame),
				slog.Any("error", err),
			)
		}
	}

	if s.hub != nil {
		s.hub.Broadcast(sess.ID(), ws.EventFrameScored, result)
	}

	return &result, nil
}

// EstimatePose returns the pose of the most confident face with pitch and roll warnings
func (s *AttentionService) EstimatePose(ctx context.Context, image []byte) (*PoseResult, error) {
	if s.pose == nil {
		return nil, domain.ErrInferenceUnavailable.WithError(errors.New("no pose provider configured"))
	}

	est, err := s.pose.EstimatePose(ctx, image)
	if err != nil {
		return nil, s.providerError(ctx, &s.poseOutage, err)
	}
	s.inferenceSucceeded(ctx, &s.poseOutage)

	return &PoseResult{
		Pose:        est.Pose,
		BoundingBox: est.BoundingBox,
		Confidence:  est.Confidence,
		Warnings:    attention.EvaluatePose(est.Pose, s.defaults),
	}, nil
}

// StopSession ends a live session and returns it with its final summary
func (s *AttentionService) StopSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		if _, err := s.GetSession(ctx, sessionID); err != nil {
			return nil, err
		}
		// scorers live in the process that started the session
		return nil, domain.ErrSessionStopped
	}

	summary, err := sess.Stop()
	if errors.Is(err, session.ErrStopped) {
		return nil, domain.ErrSessionStopped
	}
	if err != nil {
		return nil, err
	}

	snap := sess.Snapshot()

	persisted := false
	if s.sessionRepo != nil {
		if err := s.sessionRepo.Stop(ctx, sessionID, summary, *snap.StoppedAt); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist stopped session",
				slog.String("session_id", sessionID.String()),
				slog.Any("error", err),
			)
		} else {
			persisted = true
		}
	}

	// persisted sessions are served by the repositories from now on
	if persisted {
		s.registry.Remove(sessionID)
	} else {
		for _, id := range s.registry.Retire(sessionID, s.retainStopped) {
			s.logger.DebugContext(ctx, "evicted stopped session", slog.String("session_id", id.String()))
		}
	}

	if s.hub != nil {
		s.hub.Broadcast(sessionID, ws.EventSessionStopped, summary)
	}
	s.notify(ctx, webhook.EventSessionStopped, &sessionID, summary)
	s.record(ctx, audit.EventSessionStopped, sessionID, map[string]string{
		"frames": strconv.Itoa(summary.Frames),
		"score":  fmt.Sprintf("%.2f", summary.Score),
		"band":   string(summary.Band),
	})

	s.logger.InfoContext(ctx, "session stopped",
		slog.String("session_id", sessionID.String()),
		slog.Int("frames", summary.Frames),
		slog.Float64("score", summary.Score),
		slog.String("band", string(summary.Band)),
	)

	return &snap, nil
}

// GetSession returns a live session, or a persisted one when persistence is enabled
func (s *AttentionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if sess, ok := s.registry.Get(sessionID); ok {
		snap := sess.Snapshot()
		return &snap, nil
	}

	if s.sessionRepo == nil {
		return nil, domain.ErrSessionNotFound
	}

	return s.sessionRepo.GetByID(ctx, sessionID)
}

// SessionLog returns the per-frame rows of a session in frame order
func (s *AttentionService) SessionLog(ctx context.Context, sessionID uuid.UUID) ([]session.LogRow, error) {
	if sess, ok := s.registry.Get(sessionID); ok {
		return sess.Log(), nil
	}

	if s.logRepo == nil {
		return nil, domain.ErrSessionNotFound
	}

	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	return s.logRepo.ListBySession(ctx, sessionID)
}

// ActiveSessions counts sessions held in memory that have not been stopped
func (s *AttentionService) ActiveSessions() int {
	n := 0
	for _, sess := range s.registry.List() {
		if snap := sess.Snapshot(); snap.IsActive() {
			n++
		}
	}
	return n
}

// Ready checks the landmark provider when it exposes a health check
func (s *AttentionService) Ready(ctx context.Context) error {
	if p, ok := s.landmarks.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return domain.ErrInferenceUnavailable.WithError(err)
		}
	}
	return nil
}

// Close waits for pending notifications
func (s *AttentionService) Close() {
	s.wg.Wait()
}

// active resolves a live session. Sessions evicted after being persisted as
// stopped report ErrSessionStopped.
func (s *AttentionService) active(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	sess, ok := s.registry.Get(sessionID)
	if ok {
		return sess, nil
	}
	if s.sessionRepo == nil {
		return nil, domain.ErrSessionNotFound
	}
	if _, err := s.sessionRepo.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return nil, domain.ErrSessionStopped
}

// providerError maps provider failures onto the API error catalogue
func (s *AttentionService) providerError(ctx context.Context, o *outage, err error) error {
	var appErr *domain.AppError
	switch {
	case errors.Is(err, provider.ErrInferenceUnavailable):
		s.inferenceFailed(ctx, o, err)
		return domain.ErrInferenceUnavailable.WithError(err)
	case errors.Is(err, provider.ErrInvalidImage):
		return domain.ErrInvalidImage.WithError(err)
	case errors.Is(err, provider.ErrNoFace):
		return domain.ErrNoFaceDetected.WithError(err)
	case errors.As(err, &appErr):
		return err
	default:
		return fmt.Errorf("%s provider: %w", o.capability, err)
	}
}

// notify delivers in the background so a slow endpoint never delays a frame
func (s *AttentionService) notify(ctx context.Context, eventType webhook.EventType, sessionID *uuid.UUID, data interface{}) {
	if s.notifier == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.notifier.Notify(ctx, eventType, sessionID, data); err != nil {
			s.logger.WarnContext(ctx, "failed to send webhook",
				slog.String("event_type", string(eventType)),
				slog.Any("error", err),
			)
		}
	}()
}

func (s *AttentionService) record(ctx context.Context, eventType audit.EventType, sessionID uuid.UUID, metadata map[string]string) {
	_ = s.audit.Log(ctx, audit.Event{
		EventType: eventType,
		SessionID: sessionID,
		Success:   true,
		Metadata:  metadata,
	})
}
