package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolpay/internal/platform/config"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(config.GatewayConfig{
		BaseURL:      srv.URL,
		PublicKey:    "pub",
		SecretKey:    "sec",
		EncryptedKey: "enc-key",
	})
	return client, srv
}

func TestEncryptKeys(t *testing.T) {
	var gotBody map[string]string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/encrypt/keys", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data": {"EncryptedSecKey": {"encryptedKey": "tok"}}}`))
	})
	defer srv.Close()

	data, err := client.EncryptKeys(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sec.pub", gotBody["key"], "key is secret.public")
	assert.Contains(t, string(data), "tok")
}

func TestGenerateHash(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/encrypt/hashs", r.URL.Path)
		w.Write([]byte(`{"data": {"hash": {"hash": "abc123"}}}`))
	})
	defer srv.Close()

	hash, err := client.GenerateHash(context.Background(), CheckoutRequest{PaymentReference: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
}

func TestGenerateHash_EmptyHash(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"hash": {}}}`))
	})
	defer srv.Close()

	_, err := client.GenerateHash(context.Background(), CheckoutRequest{})
	require.Error(t, err)
}

func TestInitiatePayment_SendsBearer(t *testing.T) {
	var gotReq CheckoutRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer enc-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"data": {"payments": {"redirectLink": "https://checkout.example"}}}`))
	})
	defer srv.Close()

	data, err := client.InitiatePayment(context.Background(), CheckoutRequest{
		Amount:           "500.00",
		PaymentReference: "ref-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "500.00", gotReq.Amount)
	assert.Contains(t, string(data), "redirectLink")
}

func TestPost_ErrorStatus(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.InitiatePayment(context.Background(), CheckoutRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPost_MissingDataEnvelope(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	})
	defer srv.Close()

	_, err := client.CreateSubscription(context.Background(), SubscriptionRequest{})
	require.Error(t, err)
}
