package handlers

import (
	"net/http"
	"sort"

	"github.com/taskforge-ai/taskforge/capability"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// PluginRequest is the body of POST /plugin/{name}.
type PluginRequest struct {
	Input string `json:"input"`
}

// PluginHandler exposes named capabilities directly, outside the routing
// pipeline. Plugins extend the service beyond the classified task kinds.
type PluginHandler struct {
	plugins map[string]capability.Handler
	logger  *zap.Logger
}

// NewPluginHandler creates the handler over a set of named plugins.
func NewPluginHandler(plugins map[string]capability.Handler, logger *zap.Logger) *PluginHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if plugins == nil {
		plugins = make(map[string]capability.Handler)
	}
	return &PluginHandler{
		plugins: plugins,
		logger:  logger.With(zap.String("component", "plugin_handler")),
	}
}

// Names returns the registered plugin names in sorted order.
func (h *PluginHandler) Names() []string {
	names := make([]string, 0, len(h.plugins))
	for name := range h.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleList serves GET /plugins.
func (h *PluginHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]any{"plugins": h.Names()})
}

// HandleExecute serves POST /plugin/{name}.
func (h *PluginHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	plugin, ok := h.plugins[name]
	if !ok {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "unknown plugin: "+name).
			WithHTTPStatus(http.StatusNotFound), h.logger)
		return
	}

	var req PluginRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	result, err := plugin.Execute(r.Context(), req.Input)
	if err != nil {
		WriteError(w, types.NewError(types.ErrHandlerFailure, "plugin execution failed").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, result)
}
