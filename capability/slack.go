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

// SlackConfig configures the Slack handler.
type SlackConfig struct {
	BotToken string
	Channel  string
	// BaseURL of the Slack Web API. Overridable for tests.
	BaseURL string
	Timeout time.Duration
}

// SlackHandler posts messages via chat.postMessage.
type SlackHandler struct {
	cfg    SlackConfig
	client *http.Client
	logger *zap.Logger
}

// NewSlackHandler creates a Slack handler.
func NewSlackHandler(cfg SlackConfig, logger *zap.Logger) *SlackHandler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://slack.com/api"
	}
	if cfg.Channel == "" {
		cfg.Channel = "#general"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "capability_slack")),
	}
}

func (h *SlackHandler) Name() string { return "slack" }

func (h *SlackHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	return h.PostMessage(ctx, h.cfg.Channel, input)
}

// PostMessage posts text to the given channel.
func (h *SlackHandler) PostMessage(ctx context.Context, channel, text string) (*types.TaskResult, error) {
	if h.cfg.BotToken == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "slack bot token not configured")
	}

	body, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal slack message: %w", err)
	}

	endpoint := strings.TrimRight(h.cfg.BaseURL, "/") + "/chat.postMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.cfg.BotToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	var ack struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode slack response: %w", err)
	}
	if !ack.OK {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("slack rejected message: %s", ack.Error))
	}

	h.logger.Info("slack message posted", zap.String("channel", channel))

	return types.SuccessResult(map[string]any{
		"channel": channel,
		"message": "Message posted to Slack",
	}), nil
}
