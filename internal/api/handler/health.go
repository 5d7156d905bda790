package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/atento/internal/database"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

const readyTimeout = 3 * time.Second

// ReadinessChecker reports whether the inference backend can answer
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type HealthHandler struct {
	inference ReadinessChecker
	db        database.Pinger
	logger    *slog.Logger
}

// NewHealthHandler builds the health endpoints. Nil dependencies are skipped
// by the readiness check.
func NewHealthHandler(inference ReadinessChecker, db database.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		inference: inference,
		db:        db,
		logger:    logger,
	}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if h.inference != nil {
		checks["inference"] = "ok"
		if err := h.inference.Ready(ctx); err != nil {
			h.logger.WarnContext(ctx, "inference not ready", slog.Any("error", err))
			checks["inference"] = "unavailable"
			ready = false
		}
	}

	if h.db != nil {
		checks["database"] = "ok"
		if err := database.HealthCheck(ctx, h.db); err != nil {
			h.logger.WarnContext(ctx, "database not ready", slog.Any("error", err))
			checks["database"] = "unavailable"
			ready = false
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status: "not_ready",
			Checks: checks,
		})
	}

	return c.JSON(HealthResponse{
		Status: "ready",
		Checks: checks,
	})
}
