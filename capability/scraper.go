package capability

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ScraperConfig configures the web scraper handler.
type ScraperConfig struct {
	Timeout time.Duration
	// MaxBodyBytes caps how much of a page is read. 0 uses the default.
	MaxBodyBytes int64
}

// ScraperHandler fetches a page and extracts the text of matching elements.
// Input is "<url> [tag]"; the tag defaults to p. It is registered as a
// plugin, not a routed kind.
type ScraperHandler struct {
	cfg    ScraperConfig
	client *http.Client
	logger *zap.Logger
}

// NewScraperHandler creates a scraper handler.
func NewScraperHandler(cfg ScraperConfig, logger *zap.Logger) *ScraperHandler {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScraperHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "capability_scraper")),
	}
}

func (h *ScraperHandler) Name() string { return "scraper" }

func (h *ScraperHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "url is required")
	}
	target := fields[0]
	tag := "p"
	if len(fields) > 1 {
		tag = strings.ToLower(fields[1])
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("invalid url %q", target))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("page returned status %d", resp.StatusCode)).
			WithRetryable(resp.StatusCode >= 500)
	}

	root, err := html.Parse(http.MaxBytesReader(nil, resp.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	content := elementTexts(root, tag)
	return types.SuccessResult(map[string]any{
		"url":     target,
		"tag":     tag,
		"content": content,
		"count":   len(content),
	}), nil
}

// elementTexts walks the parsed tree and collects the flattened text of
// every element with the given tag name, in document order.
func elementTexts(root *html.Node, tag string) []string {
	texts := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				texts = append(texts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return texts
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
