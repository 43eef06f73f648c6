package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config represents the hosted model endpoint configuration. The endpoint
// speaks the chat-completions protocol; BaseURL selects hosted or local
// deployments without any provider switching in code.
type Config struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key,omitempty"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout"`
}

// Client is the production Completer implementation
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new model client with the given configuration
func NewClient(config Config) (*Client, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Complete sends one completion request and classifies any failure. The
// caller's context deadline is honored; an expired deadline or client
// timeout surfaces as KindTimeout rather than blocking.
func (c *Client) Complete(ctx context.Context, req Request) (Completion, error) {
	body := chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Completion{}, &CallError{Kind: KindUnknown, Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return Completion{}, &CallError{Kind: KindUnknown, Message: "failed to create request", Cause: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Completion{}, &CallError{Kind: KindTimeout, Message: "request timed out", Cause: err}
		}

		return Completion{}, &CallError{Kind: KindUnknown, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &CallError{Kind: KindUnknown, Message: "failed to read response", Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Completion{}, &CallError{Kind: KindRateLimited,
			Message: fmt.Sprintf("rate limited: %s", truncate(respBody))}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Completion{}, &CallError{Kind: KindAuthFailure,
			Message: fmt.Sprintf("authentication failed with status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return Completion{}, &CallError{Kind: KindUnknown,
			Message: fmt.Sprintf("request failed with status %d: %s", resp.StatusCode, truncate(respBody))}
	}

	var response chatResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return Completion{}, &CallError{Kind: KindMalformedResponse, Message: "failed to parse response", Cause: err}
	}

	if response.Error != nil {
		return Completion{}, &CallError{Kind: KindUnknown,
			Message: fmt.Sprintf("API error: %s", response.Error.Message)}
	}

	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return Completion{}, &CallError{Kind: KindMalformedResponse, Message: "response contains no completion"}
	}

	return Completion{Text: response.Choices[0].Message.Content}, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}

	return string(body)
}
