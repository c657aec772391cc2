// Package gateway is the HTTP client for the payment provider's API. All
// calls are opaque remote JSON exchanges; reconciliation never depends on
// their response bodies beyond success.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"schoolpay/internal/platform/config"
)

// CheckoutRequest is the one-shot payment initiation payload. Amount is a
// decimal string with two fractional digits, as the provider requires.
type CheckoutRequest struct {
	PublicKey          string `json:"publicKey"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	Country            string `json:"country"`
	PaymentReference   string `json:"paymentReference"`
	Email              string `json:"email"`
	ProductID          string `json:"productId"`
	ProductDescription string `json:"productDescription"`
	CallbackURL        string `json:"callbackUrl"`
	Hash               string `json:"hash,omitempty"`
	HashType           string `json:"hashType,omitempty"`
}

// SubscriptionRequest initiates a recurring 3-installment billing plan.
type SubscriptionRequest struct {
	PublicKey          string `json:"publicKey"`
	PaymentReference   string `json:"paymentReference"`
	PlanID             string `json:"planId"`
	CardNumber         string `json:"cardNumber"`
	ExpiryMonth        string `json:"expiryMonth"`
	ExpiryYear         string `json:"expiryYear"`
	CVV                string `json:"cvv"`
	CardName           string `json:"cardName"`
	Amount             string `json:"amount"`
	CallbackURL        string `json:"callbackUrl"`
	Currency           string `json:"currency"`
	ProductID          string `json:"productId"`
	ProductDescription string `json:"productDescription"`
	Country            string `json:"country"`
	StartDate          string `json:"startDate"`
	BillingCycle       string `json:"billingCycle"`
	BillingPeriod      string `json:"billingPeriod"`
	Type               string `json:"type"`
	Email              string `json:"email"`
	CustomerID         string `json:"customerId"`
	MobileNumber       string `json:"mobileNumber"`
	SubscriptionAmount bool   `json:"subscriptionAmount"`
}

// Client calls the provider API with the configured credentials.
type Client struct {
	cfg  config.GatewayConfig
	http *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// EncryptKeys exchanges the secret.public key pair for an encrypted bearer
// key. The response is passed through untouched.
func (c *Client) EncryptKeys(ctx context.Context) (json.RawMessage, error) {
	body := map[string]string{
		"key": c.cfg.SecretKey + "." + c.cfg.PublicKey,
	}
	return c.post(ctx, "/encrypt/keys", body, "")
}

// GenerateHash asks the provider to hash a checkout payload.
func (c *Client) GenerateHash(ctx context.Context, req CheckoutRequest) (string, error) {
	data, err := c.post(ctx, "/encrypt/hashs", req, "")
	if err != nil {
		return "", err
	}

	var envelope struct {
		Hash struct {
			Hash string `json:"hash"`
		} `json:"hash"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", fmt.Errorf("decode hash response: %w", err)
	}
	if envelope.Hash.Hash == "" {
		return "", fmt.Errorf("gateway returned empty hash")
	}
	return envelope.Hash.Hash, nil
}

// InitiatePayment starts a one-shot checkout.
func (c *Client) InitiatePayment(ctx context.Context, req CheckoutRequest) (json.RawMessage, error) {
	return c.post(ctx, "/payments", req, c.cfg.EncryptedKey)
}

// CreateSubscription starts a recurring billing plan.
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (json.RawMessage, error) {
	return c.post(ctx, "/recurring/subscribes", req, c.cfg.EncryptedKey)
}

func (c *Client) post(ctx context.Context, path string, body any, bearer string) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway %s: unexpected status %d", path, resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("gateway %s: empty response data", path)
	}
	return envelope.Data, nil
}
