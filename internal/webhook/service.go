package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the queue storage; *pgxpool.Pool satisfies it
type Store interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// Service posts signed events to a single configured endpoint. Failed
// deliveries go to webhook_queue when a Store is configured.
type Service struct {
	url    string
	secret string
	store  Store
	client *http.Client
}

// NewService creates a notifier; store may be nil, in which case failures are only returned
func NewService(cfg Config, store Store) *Service {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Service{
		url:    cfg.URL,
		secret: cfg.Secret,
		store:  store,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Enabled reports whether an endpoint is configured
func (s *Service) Enabled() bool {
	return s != nil && s.url != ""
}

// Notify builds an event and sends it. It is a no-op when no endpoint is configured.
func (s *Service) Notify(ctx context.Context, eventType EventType, sessionID *uuid.UUID, data interface{}) error {
	if !s.Enabled() {
		return nil
	}

	return s.Send(ctx, EventPayload{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Service) Send(ctx context.Context, event EventPayload) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.deliver(ctx, event.Type, payload); err != nil {
		if s.store == nil {
			return err
		}
		return s.enqueue(ctx, event.Type, payload, err.Error())
	}

	return nil
}

func (s *Service) deliver(ctx context.Context, eventType EventType, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(s.secret, payload))
	req.Header.Set("X-Atento-Event", string(eventType))
	req.Header.Set("User-Agent", "Atento-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("deliver webhook: HTTP %d", resp.StatusCode)
	}

	return nil
}

func (s *Service) enqueue(ctx context.Context, eventType EventType, payload []byte, errorMsg string) error {
	query := `
		INSERT INTO webhook_queue (event_type, payload, next_retry_at, last_error)
		VALUES ($1, $2, NOW() + INTERVAL '1 second', $3)
	`

	_, err := s.store.Exec(ctx, query, string(eventType), payload, errorMsg)
	if err != nil {
		return fmt.Errorf("enqueue webhook: %w", err)
	}

	return nil
}
