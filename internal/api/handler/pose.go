package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/atento/internal/service"
)

// PoseServiceInterface defines the interface for stateless pose estimation
type PoseServiceInterface interface {
	EstimatePose(ctx context.Context, image []byte) (*service.PoseResult, error)
}

type PoseHandler struct {
	service PoseServiceInterface
	logger  *slog.Logger
}

func NewPoseHandler(service PoseServiceInterface, logger *slog.Logger) *PoseHandler {
	return &PoseHandler{
		service: service,
		logger:  logger,
	}
}

// Estimate handles POST /v1/pose
func (h *PoseHandler) Estimate(c *fiber.Ctx) error {
	image, err := extractImage(c, "image")
	if err != nil {
		return err
	}

	result, err := h.service.EstimatePose(c.UserContext(), image)
	if err != nil {
		return err
	}

	if result.Warnings.Any() {
		h.logger.DebugContext(c.UserContext(), "pose outside limits",
			slog.Float64("pitch", result.Pose.Pitch),
			slog.Float64("roll", result.Pose.Roll),
		)
	}

	return c.JSON(result)
}
