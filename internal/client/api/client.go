// Package api talks to the analysis proxy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atinyakov/BagWardrobe/internal/models"
)

// AnalyzePath is the proxy route used by the client.
const AnalyzePath = "/analyze"

const maxErrorBody = 1 << 20

// Client posts analysis requests to the proxy at BaseURL.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// New returns a Client for baseURL using httpClient, or http.DefaultClient when nil.
func New(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, BaseURL: strings.TrimRight(baseURL, "/")}
}

type analyzeRequest struct {
	APIKey       string             `json:"apiKey"`
	Bags         []models.BagRecord `json:"bags"`
	CustomPrompt string             `json:"customPrompt,omitempty"`
}

type errorBody struct {
	Error json.RawMessage `json:"error"`
}

// Analyze sends bags with the user's credential and returns the raw provider reply.
// A non-2xx answer is returned as an error describing what the proxy or provider reported.
func (c *Client) Analyze(ctx context.Context, credential string, bags []models.BagRecord, prompt string) ([]byte, error) {
	if bags == nil {
		bags = []models.BagRecord{}
	}
	payload, err := json.Marshal(analyzeRequest{APIKey: credential, Bags: bags, CustomPrompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+AnalyzePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// StatusError is a non-2xx reply from the proxy.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// errorMessage prefers the provider's error.message, then a plain error string
// from the proxy, then a generic status line.
func errorMessage(body []byte, status int) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(eb.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if err := json.Unmarshal(eb.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}
	return fmt.Sprintf("API Error: %d", status)
}
