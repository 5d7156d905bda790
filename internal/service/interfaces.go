package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
	"github.com/saturnino-fabrica-de-software/atento/internal/session"
	"github.com/saturnino-fabrica-de-software/atento/internal/webhook"
	"github.com/saturnino-fabrica-de-software/atento/internal/ws"
)

type SessionRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Session) error
	Stop(ctx context.Context, id uuid.UUID, summary attention.Summary, stoppedAt time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
}

type LogRepositoryInterface interface {
	Append(ctx context.Context, sessionID uuid.UUID, row session.LogRow) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]session.LogRow, error)
}

// Broadcaster pushes live events to subscribers of a session
type Broadcaster interface {
	Broadcast(sessionID uuid.UUID, eventType ws.EventType, data interface{})
}

// Notifier delivers out-of-band events such as webhooks
type Notifier interface {
	Notify(ctx context.Context, eventType webhook.EventType, sessionID *uuid.UUID, data interface{}) error
}
