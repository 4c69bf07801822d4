package handlers

import (
	"net/http"
	"time"

	"github.com/taskforge-ai/taskforge/capability"
	"go.uber.org/zap"
)

// ServiceInfo describes the running service on the root endpoint.
type ServiceInfo struct {
	Service      string    `json:"service"`
	Status       string    `json:"status"`
	Capabilities []string  `json:"capabilities"`
	Workflows    []string  `json:"workflows"`
	Timestamp    time.Time `json:"timestamp"`
}

// HealthHandler serves the root service descriptor and liveness probe.
type HealthHandler struct {
	registry  *capability.Registry
	workflows func() []string
	logger    *zap.Logger
}

// NewHealthHandler creates the handler. workflows lists the names in the
// workflow library and may be nil.
func NewHealthHandler(registry *capability.Registry, workflows func() []string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		registry:  registry,
		workflows: workflows,
		logger:    logger.With(zap.String("component", "health_handler")),
	}
}

// HandleRoot serves GET / with the service descriptor: registered
// capabilities and available workflows.
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	info := ServiceInfo{
		Service:   "taskforge",
		Status:    "running",
		Timestamp: time.Now().UTC(),
	}
	if h.registry != nil {
		for _, kind := range h.registry.Kinds() {
			info.Capabilities = append(info.Capabilities, string(kind))
		}
	}
	if h.workflows != nil {
		info.Workflows = h.workflows()
	}
	WriteJSON(w, http.StatusOK, info)
}

// HandleHealthz serves the liveness probe.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
