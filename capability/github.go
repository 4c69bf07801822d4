package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// GitHubConfig configures the GitHub handler.
type GitHubConfig struct {
	Token string
	// BaseURL of the GitHub REST API. Overridable for tests.
	BaseURL string
	Timeout time.Duration
}

// GitHubHandler creates repositories through the GitHub REST v3 API.
// The task description is used as the repository description; the repository
// name is derived from it.
type GitHubHandler struct {
	cfg    GitHubConfig
	client *http.Client
	logger *zap.Logger
}

// NewGitHubHandler creates a GitHub handler.
func NewGitHubHandler(cfg GitHubConfig, logger *zap.Logger) *GitHubHandler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "capability_github")),
	}
}

func (h *GitHubHandler) Name() string { return "github" }

func (h *GitHubHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	if h.cfg.Token == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "github token not configured")
	}

	payload := map[string]any{
		"name":        repoNameFromDescription(input),
		"description": input,
		"private":     false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal repo request: %w", err)
	}

	endpoint := strings.TrimRight(h.cfg.BaseURL, "/") + "/user/repos"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build repo request: %w", err)
	}
	req.Header.Set("Authorization", "token "+h.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create repo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("github returned status %d", resp.StatusCode)).
			WithRetryable(resp.StatusCode >= 500)
	}

	var created struct {
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode repo response: %w", err)
	}

	h.logger.Info("repository created", zap.String("url", created.HTMLURL))

	return types.SuccessResult(map[string]any{
		"repo_url": created.HTMLURL,
		"message":  "Repository created",
	}), nil
}

// repoNameFromDescription derives a repository slug from free text: the
// first six words, lowercased, joined by dashes, non-alphanumerics dropped.
func repoNameFromDescription(desc string) string {
	words := strings.Fields(strings.ToLower(desc))
	if len(words) > 6 {
		words = words[:6]
	}
	var parts []string
	for _, w := range words {
		var b strings.Builder
		for _, r := range w {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	if len(parts) == 0 {
		return "taskforge-repo"
	}
	return strings.Join(parts, "-")
}
