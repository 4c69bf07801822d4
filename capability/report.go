package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// ReportHandler turns analysis text into a professional report via the LLM
// completion collaborator.
type ReportHandler struct {
	completer Completer
	logger    *zap.Logger
}

// NewReportHandler creates a report generation handler.
func NewReportHandler(completer Completer, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		completer: completer,
		logger:    logger.With(zap.String("component", "capability_report")),
	}
}

func (h *ReportHandler) Name() string { return "report_generation" }

func (h *ReportHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	if h.completer == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "completion provider not configured")
	}

	prompt := fmt.Sprintf(`Write a professional report based on this analysis:
%s

Include:
- Executive Summary
- Key Findings
- Detailed Analysis
- Recommendations
- Conclusion`, input)

	report, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}

	return types.SuccessResult(map[string]any{
		"report":     report,
		"word_count": len(strings.Fields(report)),
		"format":     "markdown",
	}), nil
}
