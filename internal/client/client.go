// Package client talks to the chatbot HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "http://127.0.0.1:8080"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question string `json:"question"`
	UseModel bool   `json:"use_model"`
}

// ChatReply is the answer returned by POST /chat.
type ChatReply struct {
	Source  string `json:"source"`
	Answer  string `json:"answer"`
	Success bool   `json:"success"`
	IsFAQ   bool   `json:"is_faq"`
}

// Health is the body of GET /health.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	FAQEntries  int    `json:"faq_entries"`
}

// APIError is a non-2xx reply from the API.
type APIError struct {
	Status int
	Detail string
	Code   string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status=%d", e.Status)
	}
	return fmt.Sprintf("api error: status=%d detail=%s", e.Status, e.Detail)
}

// Client performs HTTP requests against the chatbot API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a client. Generation can take minutes on CPU, so the
// default timeout is generous.
func New(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat asks a single question.
func (c *Client) Chat(ctx context.Context, question string, useModel bool) (ChatReply, error) {
	var out ChatReply
	err := c.do(ctx, http.MethodPost, "/chat", ChatRequest{Question: question, UseModel: useModel}, &out)
	return out, err
}

// Health fetches the service state.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var payload struct {
			Detail string `json:"detail"`
			Code   string `json:"code"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Detail = payload.Detail
			apiErr.Code = payload.Code
		} else {
			apiErr.Detail = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
