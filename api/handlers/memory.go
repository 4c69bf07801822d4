package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/taskforge-ai/taskforge/memory"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

const defaultSearchLimit = 10

// MemoryHandler serves GET /memory/search over the memory store.
type MemoryHandler struct {
	store  memory.Store
	logger *zap.Logger
}

// NewMemoryHandler creates the handler.
func NewMemoryHandler(store memory.Store, logger *zap.Logger) *MemoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryHandler{
		store:  store,
		logger: logger.With(zap.String("component", "memory_handler")),
	}
}

// HandleSearch serves GET /memory/search?q=...&limit=N.
func (h *MemoryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, types.NewError(types.ErrMemoryFailure, "memory store is not configured"), h.logger)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "query parameter q is required"), h.logger)
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, types.NewError(types.ErrInvalidRequest, "limit must be a positive integer"), h.logger)
			return
		}
		limit = n
	}

	records, err := h.store.Search(r.Context(), query, limit)
	if err != nil {
		WriteError(w, types.NewError(types.ErrMemoryFailure, "memory search failed").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, map[string]any{
		"query":   query,
		"results": records,
	})
}
