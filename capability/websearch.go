package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// WebSearchConfig configures the web search handler.
type WebSearchConfig struct {
	// BaseURL of the DuckDuckGo instant-answer API. Defaults to the public
	// endpoint; overridable for tests.
	BaseURL string
	// MaxResults caps the number of related topics returned.
	MaxResults int
	Timeout    time.Duration
}

// WebSearchHandler performs web searches via the DuckDuckGo instant-answer
// API, which requires no API key.
type WebSearchHandler struct {
	cfg    WebSearchConfig
	client *http.Client
	logger *zap.Logger
}

// NewWebSearchHandler creates a web search handler.
func NewWebSearchHandler(cfg WebSearchConfig, logger *zap.Logger) *WebSearchHandler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.duckduckgo.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearchHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "capability_websearch")),
	}
}

func (h *WebSearchHandler) Name() string { return "web_search" }

func (h *WebSearchHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	return h.Search(ctx, input)
}

type ddgResponse struct {
	AbstractText  string `json:"AbstractText"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search queries the instant-answer API and returns the top related topics.
func (h *WebSearchHandler) Search(ctx context.Context, query string) (*types.TaskResult, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1",
		strings.TrimRight(h.cfg.BaseURL, "/"), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("web search returned status %d", resp.StatusCode)).
			WithRetryable(resp.StatusCode >= 500)
	}

	var body ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]map[string]any, 0, h.cfg.MaxResults)
	for _, topic := range body.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		results = append(results, map[string]any{
			"text": topic.Text,
			"url":  topic.FirstURL,
		})
		if len(results) >= h.cfg.MaxResults {
			break
		}
	}

	h.logger.Debug("web search completed",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)

	return types.SuccessResult(map[string]any{
		"query":    query,
		"abstract": body.AbstractText,
		"results":  results,
		"source":   "DuckDuckGo",
	}), nil
}
