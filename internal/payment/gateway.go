package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ajopay/pkg/errors"
)

// GatewayClient talks to the card-payment gateway's REST API with
// secret-key bearer auth.
type GatewayClient struct {
	baseURL     string
	secretKey   string
	callbackURL string
	http        *http.Client
}

func NewGatewayClient(baseURL, secretKey, callbackURL string) *GatewayClient {
	return &GatewayClient{
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: callbackURL,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

type initializeRequest struct {
	Email       string `json:"email"`
	AmountKobo  int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// InitializeResult carries the gateway's checkout handle.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the gateway's view of a transaction.
type VerifyResult struct {
	Status     string `json:"status"`
	Reference  string `json:"reference"`
	AmountKobo int64  `json:"amount"`
	Currency   string `json:"currency"`
	Channel    string `json:"channel"`
	PaidAt     string `json:"paid_at"`
}

type gatewayEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize registers a pending transaction with the gateway and returns
// the hosted checkout URL.
func (c *GatewayClient) Initialize(ctx context.Context, email string, amountKobo int64, currency, reference string) (*InitializeResult, error) {
	body := initializeRequest{
		Email:       email,
		AmountKobo:  amountKobo,
		Currency:    currency,
		Reference:   reference,
		CallbackURL: c.callbackURL,
	}

	var result InitializeResult
	if err := c.post(ctx, "/transaction/initialize", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Verify fetches the transaction's settled state by reference.
func (c *GatewayClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	var result VerifyResult
	if err := c.get(ctx, "/transaction/verify/"+reference, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *GatewayClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal gateway request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *GatewayClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build gateway request")
	}
	return c.do(req, out)
}

func (c *GatewayClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.ErrProviderUnavailable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read gateway response")
	}

	if resp.StatusCode >= 500 {
		return errors.ErrProviderUnavailable
	}

	var envelope gatewayEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return errors.Wrap(err, "decode gateway response")
	}
	if resp.StatusCode != http.StatusOK || !envelope.Status {
		if envelope.Message != "" {
			return fmt.Errorf("%w: %s", errors.ErrGatewayRejected, envelope.Message)
		}
		return errors.ErrGatewayRejected
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.Wrap(err, "decode gateway data")
	}
	return nil
}
