// Package worker processes raw webhook payloads off the inbox so the HTTP
// handler can acknowledge the gateway without waiting on reconciliation.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"schoolpay/internal/payment"
	"schoolpay/internal/payment/metrics"
	"schoolpay/internal/platform/kafka"
	"schoolpay/pkg/platform/sentinel"
)

// Reconciler is the dispatcher surface the worker drives.
type Reconciler interface {
	Reconcile(ctx context.Context, n payment.GatewayNotification) (payment.Outcome, error)
}

// Worker normalizes and reconciles webhook payloads from an in-process inbox
// channel. The same Process path backs the Kafka consumer, so both transports
// share one classification of soft and hard failures.
type Worker struct {
	reconciler Reconciler
	inbox      chan []byte
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(reconciler Reconciler, logger *slog.Logger, m *metrics.Metrics, buffer int) *Worker {
	return &Worker{
		reconciler: reconciler,
		inbox:      make(chan []byte, buffer),
		logger:     logger,
		metrics:    m,
	}
}

// Enqueue hands a payload to the worker without blocking. A full inbox
// returns sentinel.ErrUnavailable so the HTTP handler can signal the gateway
// to redeliver.
func (w *Worker) Enqueue(_ context.Context, payload []byte) error {
	select {
	case w.inbox <- payload:
		return nil
	default:
		return sentinel.ErrUnavailable
	}
}

// Run drains the inbox until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-w.inbox:
			w.Process(ctx, payload)
		}
	}
}

// HandleMessage adapts Process to the Kafka consumer. It never returns an
// error: reconciliation is idempotent and failure classification already
// happened, so a poison payload must not wedge the partition.
func (w *Worker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	w.Process(ctx, msg.Value)
	return nil
}

// Process runs one payload through the adapter and dispatcher, classifying
// every outcome for the operator log. Nothing here surfaces to the gateway;
// it already got its ack.
func (w *Worker) Process(ctx context.Context, payload []byte) {
	n, err := payment.Normalize(payload)
	switch {
	case errors.Is(err, payment.ErrUnsupportedEventType):
		w.metrics.IncReconciliationFailure("unsupported_event_type")
		w.logger.InfoContext(ctx, "skipping unsupported gateway event", "error", err)
		return
	case err != nil:
		w.metrics.IncReconciliationFailure("malformed_payload")
		w.logger.ErrorContext(ctx, "malformed gateway payload", "error", err)
		return
	}

	outcome, err := w.reconciler.Reconcile(ctx, n)
	switch {
	case errors.Is(err, payment.ErrUnknownReference):
		// Record data may arrive later; no marker was written, so a
		// redelivery reconciles cleanly.
		w.metrics.IncReconciliationFailure("unknown_reference")
		w.logger.WarnContext(ctx, "webhook references unknown payment",
			"event_id", n.EventID,
			"reference", n.Reference,
		)
	case errors.Is(err, payment.ErrUnknownPayer):
		w.metrics.IncReconciliationFailure("unknown_payer")
		w.logger.ErrorContext(ctx, "webhook references unknown payer",
			"event_id", n.EventID,
			"reference", n.Reference,
		)
	case errors.Is(err, payment.ErrInvariantViolation):
		// Fatal to this reconciliation; not retried automatically.
		w.metrics.IncReconciliationFailure("invariant_violation")
		w.logger.ErrorContext(ctx, "entitlement invariant violation",
			"event_id", n.EventID,
			"error", err,
		)
	case err != nil:
		w.metrics.IncReconciliationFailure("persistence_failure")
		w.logger.ErrorContext(ctx, "reconciliation failed, awaiting redelivery",
			"event_id", n.EventID,
			"error", err,
		)
	default:
		w.logger.InfoContext(ctx, "webhook reconciled",
			"event_id", n.EventID,
			"event_type", string(n.EventType),
			"outcome", string(outcome.Status),
		)
	}
}
