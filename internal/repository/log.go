package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/atento/internal/session"
)

type LogRepository struct {
	pool PgxPool
}

func NewLogRepository(pool PgxPool) *LogRepository {
	return &LogRepository{pool: pool}
}

// Append stores one log row. Re-sending a frame index overwrites the stored row.
func (r *LogRepository) Append(ctx context.Context, sessionID uuid.UUID, row session.LogRow) error {
	query := `
		INSERT INTO session_logs (session_id, frame_index, recorded_at, attentive_count, total_faces, cheating_flag_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, frame_index) DO UPDATE
		SET recorded_at = EXCLUDED.recorded_at,
		    attentive_count = EXCLUDED.attentive_count,
		    total_faces = EXCLUDED.total_faces,
		    cheating_flag_count = EXCLUDED.cheating_flag_count
	`

	_, err := r.pool.Exec(ctx, query,
		sessionID,
		row.FrameIndex,
		row.Timestamp,
		row.AttentiveCount,
		row.TotalFaces,
		row.CheatingFlagCount,
	)
	if err != nil {
		return fmt.Errorf("append session log: %w", err)
	}

	return nil
}

// ListBySession returns the rows of a session in frame order
func (r *LogRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]session.LogRow, error) {
	query := `
		SELECT recorded_at, frame_index, attentive_count, total_faces, cheating_flag_count
		FROM session_logs
		WHERE session_id = $1
		ORDER BY frame_index ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session log: %w", err)
	}
	defer rows.Close()

	logRows := make([]session.LogRow, 0)
	for rows.Next() {
		var row session.LogRow
		if err := rows.Scan(
			&row.Timestamp,
			&row.FrameIndex,
			&row.AttentiveCount,
			&row.TotalFaces,
			&row.CheatingFlagCount,
		); err != nil {
			return nil, fmt.Errorf("scan session log: %w", err)
		}
		logRows = append(logRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session log: %w", err)
	}

	return logRows, nil
}

var (
	_ SessionRepositoryInterface = (*SessionRepository)(nil)
	_ LogRepositoryInterface     = (*LogRepository)(nil)
)
