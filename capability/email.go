package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// EmailConfig configures the SendGrid email handler.
type EmailConfig struct {
	APIKey    string
	FromEmail string
	ToEmail   string
	Subject   string
	// BaseURL of the SendGrid v3 API. Overridable for tests.
	BaseURL string
	Timeout time.Duration
}

// EmailHandler sends email through the SendGrid v3 mail send endpoint.
type EmailHandler struct {
	cfg    EmailConfig
	client *http.Client
	logger *zap.Logger
}

// NewEmailHandler creates an email handler.
func NewEmailHandler(cfg EmailConfig, logger *zap.Logger) *EmailHandler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = "agent@taskforge.dev"
	}
	if cfg.ToEmail == "" {
		cfg.ToEmail = "user@example.com"
	}
	if cfg.Subject == "" {
		cfg.Subject = "TaskForge notification"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "capability_email")),
	}
}

func (h *EmailHandler) Name() string { return "email" }

type sendgridRequest struct {
	Personalizations []struct {
		To []map[string]string `json:"to"`
	} `json:"personalizations"`
	From    map[string]string   `json:"from"`
	Subject string              `json:"subject"`
	Content []map[string]string `json:"content"`
}

func (h *EmailHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	if h.cfg.APIKey == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "sendgrid api key not configured")
	}

	payload := sendgridRequest{
		From:    map[string]string{"email": h.cfg.FromEmail},
		Subject: h.cfg.Subject,
		Content: []map[string]string{{"type": "text/html", "value": fmt.Sprintf("<strong>%s</strong>", input)}},
	}
	payload.Personalizations = append(payload.Personalizations, struct {
		To []map[string]string `json:"to"`
	}{To: []map[string]string{{"email": h.cfg.ToEmail}}})

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal mail: %w", err)
	}

	endpoint := strings.TrimRight(h.cfg.BaseURL, "/") + "/v3/mail/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("sendgrid returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))).
			WithRetryable(resp.StatusCode >= 500)
	}

	h.logger.Info("email sent",
		zap.String("to", h.cfg.ToEmail),
		zap.Int("status_code", resp.StatusCode),
	)

	return types.SuccessResult(map[string]any{
		"status_code": resp.StatusCode,
		"message":     "Email sent successfully",
	}), nil
}
