package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
	"github.com/saturnino-fabrica-de-software/atento/internal/session"
)

// PgxPool is the subset of *pgxpool.Pool the repositories use; pgxmock pools satisfy it too
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRepositoryInterface defines operations for session data access
type SessionRepositoryInterface interface {
	Create(ctx context.Context, s *domain.Session) error
	Stop(ctx context.Context, id uuid.UUID, summary attention.Summary, stoppedAt time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	List(ctx context.Context, limit int) ([]domain.Session, error)
}

// LogRepositoryInterface defines operations for the per-frame session log
type LogRepositoryInterface interface {
	Append(ctx context.Context, sessionID uuid.UUID, row session.LogRow) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]session.LogRow, error)
}
