package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/atento/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/atento/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/atento/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/atento/internal/database"
	"github.com/saturnino-fabrica-de-software/atento/internal/ws"
)

// AttentionService is everything the HTTP layer needs from the service
type AttentionService interface {
	handler.SessionServiceInterface
	handler.PoseServiceInterface
	handler.ReadinessChecker
}

type Dependencies struct {
	Service AttentionService
	Hub     *ws.Hub
	// DB is nil when persistence is disabled
	DB database.Pinger
	// RateLimit is the number of requests per minute per client IP
	RateLimit int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Atento API",
		BodyLimit:    12 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var (
		inference handler.ReadinessChecker
		db        database.Pinger
	)
	if r.deps != nil {
		if r.deps.Service != nil {
			inference = r.deps.Service
		}
		db = r.deps.DB
	}

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(inference, db, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Only configure API routes if dependencies were provided
	if r.deps == nil || r.deps.Service == nil {
		return
	}

	v1 := r.app.Group("/v1")

	// Rate limiting (per client IP)
	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: r.deps.RateLimit,
	})
	v1.Use(r.rateLimiter.Handler())

	sessionHandler := handler.NewSessionHandler(r.deps.Service, r.logger)
	poseHandler := handler.NewPoseHandler(r.deps.Service, r.logger)

	// Session routes
	v1.Post("/sessions", sessionHandler.Create)
	v1.Get("/sessions/:id", sessionHandler.Get)
	v1.Delete("/sessions/:id", sessionHandler.Stop)
	v1.Post("/sessions/:id/frames", sessionHandler.Frame)
	v1.Post("/sessions/:id/landmarks", sessionHandler.Landmarks)
	v1.Get("/sessions/:id/log.csv", sessionHandler.LogCSV)

	// Pose route
	v1.Post("/pose", poseHandler.Estimate)

	// WebSocket endpoint
	if r.deps.Hub != nil {
		v1.Get("/sessions/:id/ws", ws.UpgradeMiddleware(), sessionHandler.Subscribe, ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.ShutdownWithContext(context.Background())
}

// ShutdownWithContext waits for in-flight requests until ctx is done
func (r *Router) ShutdownWithContext(ctx context.Context) error {
	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.ShutdownWithContext(ctx)
}
