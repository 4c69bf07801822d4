package capability

import (
	"context"

	"github.com/taskforge-ai/taskforge/types"
)

// Handler is the uniform execute interface implemented once per integration.
// Execute receives the task description (or serialized parameters) and
// returns either a structured result or an error; the executor converts
// errors into failed task results.
//
// Implementations must be safe for concurrent use: the executor may fan out
// independent tasks.
type Handler interface {
	Name() string
	Execute(ctx context.Context, input string) (*types.TaskResult, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	name string
	fn   func(ctx context.Context, input string) (*types.TaskResult, error)
}

// NewHandlerFunc wraps fn as a named Handler.
func NewHandlerFunc(name string, fn func(ctx context.Context, input string) (*types.TaskResult, error)) *HandlerFunc {
	return &HandlerFunc{name: name, fn: fn}
}

func (h *HandlerFunc) Name() string { return h.name }

func (h *HandlerFunc) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	return h.fn(ctx, input)
}

// Completer abstracts the LLM completion collaborator used by the handlers
// that generate text (code generation, research synthesis, reports).
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Searcher abstracts web search so composite handlers (research) can reuse
// the web search integration without binding to its concrete type.
type Searcher interface {
	Search(ctx context.Context, query string) (*types.TaskResult, error)
}
