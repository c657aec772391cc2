package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolpay/internal/payment"
	"schoolpay/internal/payment/metrics"
	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/platform/httputil"
	"schoolpay/pkg/requestcontext"
)

// maxWebhookBody caps gateway payload size; real notifications are a few KB.
const maxWebhookBody = 1 << 20

// Service is the payment operations surface.
type Service interface {
	GatewayToken(ctx context.Context) (json.RawMessage, error)
	InitiateTransaction(ctx context.Context, in payment.InitiateInput) (json.RawMessage, error)
	InitiateSubscription(ctx context.Context, in payment.SubscribeInput) (json.RawMessage, error)
}

// Inbox accepts raw webhook payloads for asynchronous reconciliation.
// Backed by the in-process worker or the Kafka producer.
type Inbox interface {
	Enqueue(ctx context.Context, payload []byte) error
}

// Handler wires payment endpoints to the payment service.
type Handler struct {
	service Service
	inbox   Inbox
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service Service, inbox Inbox, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		inbox:   inbox,
		logger:  logger,
		metrics: m,
	}
}

// Register mounts the authenticated payment endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payments/transactions", h.HandleInitiateTransaction)
	r.Post("/payments/subscriptions", h.HandleInitiateSubscription)
}

// RegisterAdmin mounts the admin-only endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/payments/token", h.HandleGatewayToken)
}

// RegisterWebhook mounts the unauthenticated gateway callback.
func (h *Handler) RegisterWebhook(r chi.Router) {
	r.Post("/payments/webhook", h.HandleWebhook)
}

// HandleWebhook accepts one gateway notification. It acknowledges receipt as
// soon as the payload is on the inbox; reconciliation happens asynchronously.
// A full or unreachable inbox returns 503 so the gateway redelivers.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable payload"))
		return
	}

	h.metrics.IncWebhookReceived()

	if err := h.inbox.Enqueue(ctx, payload); err != nil {
		h.logger.ErrorContext(ctx, "webhook inbox rejected payload",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "try again"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// HandleGatewayToken handles GET /payments/token.
func (h *Handler) HandleGatewayToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := h.service.GatewayToken(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "gateway token generation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

// HandleInitiateTransaction handles POST /payments/transactions.
func (h *Handler) HandleInitiateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[TransactionRequest](w, r)
	if !ok {
		return
	}

	data, err := h.service.InitiateTransaction(ctx, payment.InitiateInput{
		UserID:   requestcontext.UserID(ctx),
		Term:     req.Term,
		FeeLines: toFeeLines(req.Fee),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "transaction initiation failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", requestcontext.UserID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

// HandleInitiateSubscription handles POST /payments/subscriptions.
func (h *Handler) HandleInitiateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[SubscriptionRequest](w, r)
	if !ok {
		return
	}

	data, err := h.service.InitiateSubscription(ctx, payment.SubscribeInput{
		UserID:   requestcontext.UserID(ctx),
		Term:     req.Term,
		FeeLines: toFeeLines(req.Fee),
		Card: payment.CardDetails{
			Number:      req.CardNumber,
			ExpiryMonth: req.ExpiryMonth,
			ExpiryYear:  req.ExpiryYear,
			CVV:         req.CVV,
			Name:        req.CardName,
		},
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "subscription initiation failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", requestcontext.UserID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}
