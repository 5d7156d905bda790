package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
	"github.com/saturnino-fabrica-de-software/atento/internal/session"
	"github.com/saturnino-fabrica-de-software/atento/internal/ws"
)

// SessionServiceInterface defines the interface for session operations
type SessionServiceInterface interface {
	Defaults() attention.Config
	StartSession(ctx context.Context, name string, cfg *attention.Config) (*domain.Session, error)
	ProcessFrame(ctx context.Context, sessionID uuid.UUID, image []byte) (*attention.FrameResult, error)
	ProcessLandmarks(ctx context.Context, sessionID uuid.UUID, faces []provider.FaceLandmarks) (*attention.FrameResult, error)
	StopSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	SessionLog(ctx context.Context, sessionID uuid.UUID) ([]session.LogRow, error)
}

var validate = validator.New()

type SessionHandler struct {
	service SessionServiceInterface
	logger  *slog.Logger
}

func NewSessionHandler(service SessionServiceInterface, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// CreateSessionRequest starts a session. Config fields that are present
// override the server defaults; missing ones keep them.
type CreateSessionRequest struct {
	Name   string          `json:"name" validate:"max=255"`
	Config json.RawMessage `json:"config,omitempty"`
}

// LandmarksRequest submits pre-computed landmarks for one frame
type LandmarksRequest struct {
	Faces []provider.FaceLandmarks `json:"faces" validate:"lte=64"`
}

// Create handles POST /v1/sessions
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.ErrBadRequest.WithError(err)
		}
	}
	if err := validate.Struct(req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	cfg := h.service.Defaults()
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return domain.ErrBadRequest.WithError(err)
		}
	}

	sess, err := h.service.StartSession(c.UserContext(), req.Name, &cfg)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(sess)
}

// Get handles GET /v1/sessions/:id
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	sess, err := h.service.GetSession(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(sess)
}

// Stop handles DELETE /v1/sessions/:id
func (h *SessionHandler) Stop(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	sess, err := h.service.StopSession(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(sess)
}

// Frame handles POST /v1/sessions/:id/frames
func (h *SessionHandler) Frame(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	image, err := extractImage(c, "frame")
	if err != nil {
		return err
	}

	result, err := h.service.ProcessFrame(c.UserContext(), id, image)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Landmarks handles POST /v1/sessions/:id/landmarks
func (h *SessionHandler) Landmarks(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	var req LandmarksRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if err := validate.Struct(req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	result, err := h.service.ProcessLandmarks(c.UserContext(), id, req.Faces)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// LogCSV handles GET /v1/sessions/:id/log.csv
func (h *SessionHandler) LogCSV(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	rows, err := h.service.SessionLog(c.UserContext(), id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := session.WriteCSV(&buf, rows); err != nil {
		return domain.ErrInternal.WithError(err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="session-%s.csv"`, id))
	return c.Send(buf.Bytes())
}

// Subscribe resolves the session of a websocket upgrade. Only live sessions
// can be followed.
func (h *SessionHandler) Subscribe(c *fiber.Ctx) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	sess, err := h.service.GetSession(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !sess.IsActive() {
		return domain.ErrSessionStopped
	}

	c.Locals(ws.LocalSessionID, id)
	return c.Next()
}

func sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrSessionNotFound
	}
	return id, nil
}
