package capability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// ResearchHandler performs deep research on a topic by fanning a few related
// queries through the search collaborator and synthesizing the findings with
// the LLM. Individual search failures are tolerated; the synthesis runs over
// whatever came back.
type ResearchHandler struct {
	searcher  Searcher
	completer Completer
	logger    *zap.Logger
}

// NewResearchHandler creates a research handler.
func NewResearchHandler(searcher Searcher, completer Completer, logger *zap.Logger) *ResearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResearchHandler{
		searcher:  searcher,
		completer: completer,
		logger:    logger.With(zap.String("component", "capability_research")),
	}
}

func (h *ResearchHandler) Name() string { return "research" }

func (h *ResearchHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	queries := []string{
		input + " overview",
		input + " latest developments",
		input + " best practices",
	}

	findings := make([]map[string]any, 0, len(queries))
	for _, q := range queries {
		if h.searcher == nil {
			break
		}
		result, err := h.searcher.Search(ctx, q)
		if err != nil {
			h.logger.Warn("research search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		findings = append(findings, result.Data)
	}

	report, err := h.synthesize(ctx, findings)
	if err != nil {
		return nil, err
	}

	return types.SuccessResult(map[string]any{
		"topic":   input,
		"report":  report,
		"sources": len(findings),
	}), nil
}

func (h *ResearchHandler) synthesize(ctx context.Context, findings []map[string]any) (string, error) {
	if h.completer == nil {
		return "", types.NewError(types.ErrInvalidRequest, "completion provider not configured")
	}

	serialized, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}

	prompt := fmt.Sprintf(`Synthesize these research findings into a comprehensive report:
%s

Create a structured report with:
1. Executive Summary
2. Key Findings
3. Detailed Analysis
4. Recommendations`, serialized)

	report, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesize findings: %w", err)
	}
	return report, nil
}
