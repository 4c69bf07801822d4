package capability

import (
	"sort"
	"sync"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// Registry maps task kinds to capability handlers. It is an explicit object
// constructed at startup and passed into the router, executor, and workflow
// engine; there is no process-wide registry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.TaskKind]Handler
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[types.TaskKind]Handler),
		logger:   logger.With(zap.String("component", "capability_registry")),
	}
}

// Register binds a handler to a task kind, replacing any previous binding.
func (r *Registry) Register(kind types.TaskKind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
	r.logger.Info("registered capability",
		zap.String("kind", string(kind)),
		zap.String("handler", h.Name()),
	)
}

// Get returns the handler registered for kind.
func (r *Registry) Get(kind types.TaskKind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns the registered task kinds in sorted order.
func (r *Registry) Kinds() []types.TaskKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]types.TaskKind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
