// Package sms is a thin HTTP client for the transactional SMS provider.
package sms

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

// Client sends messages through the provider's REST API using API-key auth.
type Client struct {
	baseURL  string
	apiKey   string
	senderID string
	http     *http.Client
}

func NewClient(baseURL, apiKey, senderID string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		senderID: senderID,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Body    string `json:"sms"`
	Type    string `json:"type"`
	Channel string `json:"channel"`
	APIKey  string `json:"api_key"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Send dispatches one message and returns the provider's message id, used
// later to correlate delivery-status webhooks.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(sendRequest{
		To:      to,
		From:    c.senderID,
		Body:    body,
		Type:    "plain",
		Channel: "generic",
		APIKey:  c.apiKey,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal sms request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sms/send", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "build sms request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sms provider request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read sms response")
	}

	if resp.StatusCode != http.StatusOK {
		var provErr sendResponse
		if json.Unmarshal(respBody, &provErr) == nil && provErr.Message != "" {
			return "", fmt.Errorf("sms provider error (%d): %s", resp.StatusCode, provErr.Message)
		}
		return "", fmt.Errorf("sms provider error (%d)", resp.StatusCode)
	}

	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", errors.Wrap(err, "decode sms response")
	}
	return out.MessageID, nil
}
