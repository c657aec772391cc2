package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpay/internal/payment"
	"schoolpay/internal/payment/handler"
	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/platform/sentinel"
)

type stubService struct {
	transactions  []payment.InitiateInput
	subscriptions []payment.SubscribeInput
	err           error
}

func (s *stubService) GatewayToken(context.Context) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"encryptedKey":"tok"}`), nil
}

func (s *stubService) InitiateTransaction(_ context.Context, in payment.InitiateInput) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.transactions = append(s.transactions, in)
	return json.RawMessage(`{"redirectLink":"https://checkout.example"}`), nil
}

func (s *stubService) InitiateSubscription(_ context.Context, in payment.SubscribeInput) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.subscriptions = append(s.subscriptions, in)
	return json.RawMessage(`{"status":"SUCCESS"}`), nil
}

type stubInbox struct {
	payloads [][]byte
	err      error
}

func (s *stubInbox) Enqueue(_ context.Context, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func newRouter(svc *stubService, inbox *stubInbox) http.Handler {
	h := handler.New(svc, inbox, slog.Default(), nil)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	h.RegisterWebhook(r)
	return r
}

func TestHandleWebhook_AcksAndEnqueues(t *testing.T) {
	inbox := &stubInbox{}
	router := newRouter(&stubService{}, inbox)

	body := `{"notificationItems":[{"notificationRequestItem":{"eventId":"evt-1"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The ack must not depend on the payload being valid; classification
	// happens asynchronously.
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, inbox.payloads, 1)
	assert.JSONEq(t, body, string(inbox.payloads[0]))
}

func TestHandleWebhook_FullInboxAsksForRedelivery(t *testing.T) {
	inbox := &stubInbox{err: sentinel.ErrUnavailable}
	router := newRouter(&stubService{}, inbox)

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleInitiateTransaction(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc, &stubInbox{})

	body := `{"term": 2, "fee": [{"name": "tuition", "amount": 45000}, {"name": "books", "amount": 5000}]}`
	req := httptest.NewRequest(http.MethodPost, "/payments/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.transactions, 1)
	in := svc.transactions[0]
	assert.Equal(t, 2, in.Term)
	require.Len(t, in.FeeLines, 2)
	assert.Equal(t, "tuition", in.FeeLines[0].Name)

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), "redirectLink")
}

func TestHandleInitiateTransaction_ServiceErrorsMapToStatus(t *testing.T) {
	svc := &stubService{err: dErrors.New(dErrors.CodeConflict, "tuition for this term is already settled")}
	router := newRouter(svc, &stubInbox{})

	req := httptest.NewRequest(http.MethodPost, "/payments/transactions",
		strings.NewReader(`{"term": 1, "fee": [{"name": "tuition", "amount": 1}]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already settled")
}

func TestHandleInitiateTransaction_RejectsUnknownFields(t *testing.T) {
	router := newRouter(&stubService{}, &stubInbox{})

	req := httptest.NewRequest(http.MethodPost, "/payments/transactions",
		strings.NewReader(`{"term": 1, "fee": [], "surprise": true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInitiateSubscription(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc, &stubInbox{})

	body := `{
		"term": 1,
		"fee": [{"name": "tuition", "amount": 50000}],
		"cardNo": "5123450000000008",
		"month": "05",
		"year": "29",
		"cvv": "100",
		"cardName": "Ada Obi"
	}`
	req := httptest.NewRequest(http.MethodPost, "/payments/subscriptions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.subscriptions, 1)
	assert.Equal(t, "5123450000000008", svc.subscriptions[0].Card.Number)
	assert.Equal(t, "Ada Obi", svc.subscriptions[0].Card.Name)
}

func TestHandleGatewayToken(t *testing.T) {
	router := newRouter(&stubService{}, &stubInbox{})

	req := httptest.NewRequest(http.MethodGet, "/payments/token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "encryptedKey")

	errRouter := newRouter(&stubService{err: errors.New("boom")}, &stubInbox{})
	rec = httptest.NewRecorder()
	errRouter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/token", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
