package webhook

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionStopped       EventType = "session.stopped"
	EventInferenceUnavailable EventType = "inference.unavailable"
)

// Job is a delivery waiting in webhook_queue
type Job struct {
	ID          uuid.UUID  `json:"id"`
	EventType   EventType  `json:"event_type"`
	Payload     []byte     `json:"payload"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
}

type EventPayload struct {
	Type      EventType   `json:"type"`
	SessionID *uuid.UUID  `json:"session_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
