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

// WeatherConfig configures the weather handler.
type WeatherConfig struct {
	// BaseURL of the wttr.in service. Overridable for tests.
	BaseURL string
	// DefaultLocation used when the input does not name one.
	DefaultLocation string
	Timeout         time.Duration
}

// WeatherHandler fetches current conditions from wttr.in, which needs no
// API key. It is registered as an extra plugin rather than a routed kind.
type WeatherHandler struct {
	cfg    WeatherConfig
	client *http.Client
	logger *zap.Logger
}

// NewWeatherHandler creates a weather handler.
func NewWeatherHandler(cfg WeatherConfig, logger *zap.Logger) *WeatherHandler {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://wttr.in"
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = "New York"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "capability_weather")),
	}
}

func (h *WeatherHandler) Name() string { return "weather" }

type wttrResponse struct {
	CurrentCondition []struct {
		TempC       string `json:"temp_C"`
		Humidity    string `json:"humidity"`
		WindspeedKm string `json:"windspeedKmph"`
		WeatherDesc []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

func (h *WeatherHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	location := strings.TrimSpace(input)
	if location == "" {
		location = h.cfg.DefaultLocation
	}

	endpoint := fmt.Sprintf("%s/%s?format=j1",
		strings.TrimRight(h.cfg.BaseURL, "/"), url.PathEscape(location))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("weather service returned status %d", resp.StatusCode)).
			WithRetryable(resp.StatusCode >= 500)
	}

	var body wttrResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	if len(body.CurrentCondition) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "weather response missing current conditions")
	}

	current := body.CurrentCondition[0]
	condition := ""
	if len(current.WeatherDesc) > 0 {
		condition = current.WeatherDesc[0].Value
	}

	return types.SuccessResult(map[string]any{
		"location":    location,
		"temperature": current.TempC,
		"condition":   condition,
		"humidity":    current.Humidity,
		"wind_speed":  current.WindspeedKm,
	}), nil
}
