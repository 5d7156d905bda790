package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
	"github.com/saturnino-fabrica-de-software/atento/internal/domain"
)

type SessionRepository struct {
	pool PgxPool
}

func NewSessionRepository(pool PgxPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (id, name, status, config, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	config, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("marshal session config: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, s.ID, s.Name, string(s.Status), config, s.StartedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.AppError{
				Code:       "SESSION_ALREADY_EXISTS",
				Message:    "Session with this id already exists",
				StatusCode: 409,
			}
		}
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// Stop marks the session stopped and stores its final summary
func (r *SessionRepository) Stop(ctx context.Context, id uuid.UUID, summary attention.Summary, stoppedAt time.Time) error {
	query := `
		UPDATE sessions
		SET status = 'stopped', summary = $2, stopped_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal session summary: %w", err)
	}

	result, err := r.pool.Exec(ctx, query, id, payload, stoppedAt)
	if err != nil {
		return fmt.Errorf("stop session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, name, status, config, summary, started_at, stopped_at
		FROM sessions
		WHERE id = $1
	`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return s, nil
}

// List returns the most recently started sessions first
func (r *SessionRepository) List(ctx context.Context, limit int) ([]domain.Session, error) {
	query := `
		SELECT id, name, status, config, summary, started_at, stopped_at
		FROM sessions
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s       domain.Session
		status  string
		config  []byte
		summary []byte
	)

	err := row.Scan(
		&s.ID,
		&s.Name,
		&status,
		&config,
		&summary,
		&s.StartedAt,
		&s.StoppedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = domain.SessionStatus(status)

	if err := json.Unmarshal(config, &s.Config); err != nil {
		return nil, fmt.Errorf("unmarshal session config: %w", err)
	}

	if len(summary) > 0 {
		s.Summary = &attention.Summary{}
		if err := json.Unmarshal(summary, s.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal session summary: %w", err)
		}
	}

	return &s, nil
}
