package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
)

// ChatConfig configures an OpenAI-compatible chat completions endpoint.
type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
	// Retries is the number of extra attempts after a retryable failure.
	Retries      int
	RetryBackoff time.Duration
}

// ChatClient implements Completer against /chat/completions.
type ChatClient struct {
	http         *resty.Client
	model        string
	temperature  float64
	maxTokens    int
	retries      uint64
	retryBackoff time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// NewChatClient returns a client for cfg.
func NewChatClient(cfg ChatConfig) *ChatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	client := resty.New().
		SetBaseURL(normalizeBaseURL(cfg.BaseURL)).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &ChatClient{
		http:         client,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		retries:      uint64(retries),
		retryBackoff: backoff,
	}
}

// Complete sends one system+user exchange and returns the reply content.
// Transport errors, 429 and 5xx replies are retried a fixed number of times.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	backoff := retry.WithMaxRetries(c.retries, retry.WithCappedDuration(8*time.Second, retry.NewExponential(c.retryBackoff)))

	var content string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			Post("/chat/completions")
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("request failed: %w", err))
		}
		if resp.IsError() {
			statusErr := fmt.Errorf("status %s", resp.Status())
			if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500 {
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}
		result := gjson.GetBytes(resp.Body(), "choices.0.message.content")
		if !result.Exists() {
			return errors.New("response missing choices")
		}
		content = result.String()
		if strings.TrimSpace(content) == "" {
			return errors.New("response empty")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return content, nil
}

func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}
