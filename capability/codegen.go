package capability

import (
	"context"
	"fmt"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// CodeGenHandler generates code from a free-text requirement via the LLM
// completion collaborator.
type CodeGenHandler struct {
	completer Completer
	logger    *zap.Logger
}

// NewCodeGenHandler creates a code generation handler.
func NewCodeGenHandler(completer Completer, logger *zap.Logger) *CodeGenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeGenHandler{
		completer: completer,
		logger:    logger.With(zap.String("component", "capability_codegen")),
	}
}

func (h *CodeGenHandler) Name() string { return "code_generation" }

func (h *CodeGenHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	if h.completer == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "completion provider not configured")
	}

	prompt := fmt.Sprintf(`Generate production-ready code for:
%s

Include error handling, comments, and best practices.`, input)

	code, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	h.logger.Debug("code generated", zap.Int("bytes", len(code)))

	return types.SuccessResult(map[string]any{
		"code": code,
	}), nil
}
