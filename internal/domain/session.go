package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/atento/internal/attention"
)

// SessionStatus is the lifecycle state of a scoring session
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
)

// Session representa uma sessão de monitoramento persistida
type Session struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name,omitempty"`
	Status    SessionStatus      `json:"status"`
	Config    attention.Config   `json:"config"`
	Summary   *attention.Summary `json:"summary,omitempty"`
	StartedAt time.Time          `json:"started_at"`
	StoppedAt *time.Time         `json:"stopped_at,omitempty"`
}

// IsActive reports whether frames may still be submitted
func (s *Session) IsActive() bool {
	return s.Status == SessionActive
}
