// Package llm provides a minimal client for OpenAI-compatible chat
// completion APIs. The default endpoint targets Groq's free tier; any
// compatible server works by overriding BaseURL.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// Config configures the completion client.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxPromptTokens truncates oversized prompts before sending. 0 uses
	// the default budget.
	MaxPromptTokens int     `yaml:"max_prompt_tokens"`
	Temperature     float32 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
}

// Metrics receives one observation per completion call, including token
// usage as the API reported it. The Prometheus collector implements it.
type Metrics interface {
	RecordLLMRequest(model, status string, promptTokens, completionTokens int)
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg     Config
	client  *http.Client
	encoder *tiktoken.Tiktoken
	metrics Metrics
	logger  *zap.Logger
}

// Option configures a client.
type Option func(*Client)

// WithMetrics attaches a per-request metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a completion client.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.1-70b-versatile"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = 6000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// cl100k_base covers the llama/gpt tokenizer families closely enough
	// for budgeting purposes.
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("tokenizer unavailable, prompt budgeting disabled", zap.Error(err))
	}

	c := &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		encoder: encoder,
		logger:  logger.With(zap.String("component", "llm_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends prompt as a single user message and returns the assistant
// reply. Oversized prompts are truncated to the configured token budget.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", types.NewError(types.ErrInvalidRequest, "llm api key not configured")
	}

	prompt = c.truncate(prompt)

	status := "error"
	var promptTokens, completionTokens int
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordLLMRequest(c.cfg.Model, status, promptTokens, completionTokens)
		}
	}()

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "completion request failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("completion returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))).
			WithRetryable(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", types.NewError(types.ErrUpstreamError, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", types.NewError(types.ErrUpstreamError, "completion returned no choices")
	}

	status = "success"
	promptTokens = parsed.Usage.PromptTokens
	completionTokens = parsed.Usage.CompletionTokens

	c.logger.Debug("completion",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_tokens", parsed.Usage.PromptTokens),
		zap.Int("completion_tokens", parsed.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)

	return parsed.Choices[0].Message.Content, nil
}

// truncate enforces the prompt token budget. Without a tokenizer it falls
// back to a conservative byte estimate (4 bytes per token).
func (c *Client) truncate(prompt string) string {
	budget := c.cfg.MaxPromptTokens
	if c.encoder == nil {
		max := budget * 4
		if len(prompt) > max {
			return prompt[:max]
		}
		return prompt
	}

	tokens := c.encoder.Encode(prompt, nil, nil)
	if len(tokens) <= budget {
		return prompt
	}
	c.logger.Warn("prompt truncated to token budget",
		zap.Int("tokens", len(tokens)),
		zap.Int("budget", budget),
	)
	return c.encoder.Decode(tokens[:budget])
}
