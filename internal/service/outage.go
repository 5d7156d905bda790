package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/saturnino-fabrica-de-software/atento/internal/webhook"
)

// outage latches the first inference failure after a healthy period. Only
// that failure is reported at WARN and sent to the notifier; later ones are
// logged at DEBUG until a success clears the latch.
type outage struct {
	capability string
	down       atomic.Bool
}

// InferenceOutage is the webhook payload of an inference.unavailable event
type InferenceOutage struct {
	Capability string `json:"capability"`
	Error      string `json:"error"`
}

func (s *AttentionService) inferenceFailed(ctx context.Context, o *outage, err error) {
	if !o.down.CompareAndSwap(false, true) {
		s.logger.DebugContext(ctx, "inference still unavailable",
			slog.String("capability", o.capability),
			slog.Any("error", err),
		)
		return
	}

	s.logger.WarnContext(ctx, "inference unavailable, frames are being skipped",
		slog.String("capability", o.capability),
		slog.Any("error", err),
	)

	s.notify(ctx, webhook.EventInferenceUnavailable, nil, InferenceOutage{
		Capability: o.capability,
		Error:      err.Error(),
	})
}

func (s *AttentionService) inferenceSucceeded(ctx context.Context, o *outage) {
	if o.down.CompareAndSwap(true, false) {
		s.logger.InfoContext(ctx, "inference recovered", slog.String("capability", o.capability))
	}
}
