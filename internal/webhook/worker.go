package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultPollInterval = 5 * time.Second

// Worker retries queued deliveries with exponential backoff
type Worker struct {
	store    Store
	service  *Service
	logger   *slog.Logger
	interval time.Duration
}

func NewWorker(store Store, service *Service, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		service:  service,
		logger:   logger,
		interval: defaultPollInterval,
	}
}

// Run polls the queue until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("webhook worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped")
			return nil
		case <-ticker.C:
			if err := w.processQueue(ctx); err != nil {
				w.logger.Error("failed to process webhook queue", "error", err)
			}
		}
	}
}

func (w *Worker) processQueue(ctx context.Context) error {
	jobs, err := w.dueJobs(ctx)
	if err != nil {
		return err
	}

	for i := range jobs {
		job := &jobs[i]
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("failed to process webhook job",
				"job_id", job.ID,
				"event_type", job.EventType,
				"attempts", job.Attempts,
				"error", err,
			)
		}
	}

	return nil
}

func (w *Worker) dueJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, event_type, payload, attempts, max_attempts
		FROM webhook_queue
		WHERE status = 'pending' AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT 10
	`

	rows, err := w.store.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query webhook queue: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job       Job
			eventType string
		)
		if err := rows.Scan(&job.ID, &eventType, &job.Payload, &job.Attempts, &job.MaxAttempts); err != nil {
			return nil, fmt.Errorf("scan webhook job: %w", err)
		}
		job.EventType = EventType(eventType)
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (w *Worker) processJob(ctx context.Context, job *Job) error {
	if !w.service.Enabled() {
		return w.markFailed(ctx, job.ID, "webhook disabled")
	}

	if err := w.service.deliver(ctx, job.EventType, job.Payload); err != nil {
		return w.scheduleRetry(ctx, job, err.Error())
	}

	return w.markDelivered(ctx, job.ID)
}

func (w *Worker) scheduleRetry(ctx context.Context, job *Job, errorMsg string) error {
	if job.Attempts+1 >= job.MaxAttempts {
		return w.markFailed(ctx, job.ID, errorMsg)
	}

	delay := time.Duration(1<<job.Attempts) * time.Second
	nextRetry := time.Now().Add(delay)

	query := `
		UPDATE webhook_queue
		SET attempts = attempts + 1,
		    next_retry_at = $1,
		    last_error = $2,
		    updated_at = NOW()
		WHERE id = $3
	`

	if _, err := w.store.Exec(ctx, query, nextRetry, errorMsg, job.ID); err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}

	w.logger.Info("webhook job scheduled for retry",
		"job_id", job.ID,
		"attempts", job.Attempts+1,
		"next_retry", nextRetry,
	)

	return nil
}

func (w *Worker) markDelivered(ctx context.Context, jobID uuid.UUID) error {
	query := `
		UPDATE webhook_queue
		SET status = 'delivered',
		    attempts = attempts + 1,
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := w.store.Exec(ctx, query, jobID); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}

	w.logger.Info("webhook job delivered", "job_id", jobID)
	return nil
}

func (w *Worker) markFailed(ctx context.Context, jobID uuid.UUID, errorMsg string) error {
	query := `
		UPDATE webhook_queue
		SET status = 'failed',
		    attempts = attempts + 1,
		    last_error = $1,
		    updated_at = NOW()
		WHERE id = $2
	`

	if _, err := w.store.Exec(ctx, query, errorMsg, jobID); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	w.logger.Warn("webhook job failed", "job_id", jobID, "error", errorMsg)
	return nil
}
