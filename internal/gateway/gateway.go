// Package gateway is the thin client for the external payment gateway. The
// core only initiates; completion arrives out of band and is recorded through
// the normal payment endpoint.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	BaseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.BaseURL != ""
}

type initiateRequest struct {
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
}

type InitiateResult struct {
	RedirectURL string `json:"redirectUrl"`
}

func (c *Client) Initiate(ctx context.Context, amount float64, reference string) (InitiateResult, error) {
	var result InitiateResult
	if !c.Enabled() {
		return result, fmt.Errorf("payment gateway is not configured")
	}

	body, err := json.Marshal(initiateRequest{Amount: amount, Reference: reference})
	if err != nil {
		return result, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/payment-links", bytes.NewReader(body))
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, err
	}
	return result, nil
}
