package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// Classifier maps free text to an intent and an ordered task list. It may be
// backed by a language model; callers must treat any error (including
// unparseable output) as recoverable and fall back deterministically.
type Classifier interface {
	Classify(ctx context.Context, input string) (*types.Classification, error)
}

// Completer is the LLM collaborator behind LLMClassifier.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMClassifier asks the completion collaborator to analyze the request and
// return a JSON classification.
type LLMClassifier struct {
	completer Completer
	logger    *zap.Logger
}

// NewLLMClassifier creates an LLM-backed classifier.
func NewLLMClassifier(completer Completer, logger *zap.Logger) *LLMClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMClassifier{
		completer: completer,
		logger:    logger.With(zap.String("component", "llm_classifier")),
	}
}

// Classify sends the classification instruction and parses the reply.
// Any transport error or malformed reply is returned as an error so the
// router can apply its deterministic fallback.
func (c *LLMClassifier) Classify(ctx context.Context, input string) (*types.Classification, error) {
	if c.completer == nil {
		return nil, types.NewError(types.ErrClassifierFailure, "completion provider not configured")
	}

	prompt := fmt.Sprintf(`Analyze this user request and determine what actions to take:

User Request: %s

Respond in JSON format with:
- intent: primary goal (research, code, email, data_analysis, etc.)
- tasks: list of specific tasks to accomplish
`, input)

	reply, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, types.NewError(types.ErrClassifierFailure, "classification call failed").WithCause(err)
	}

	parsed, err := parseClassification(reply)
	if err != nil {
		c.logger.Warn("unparseable classification", zap.Error(err))
		return nil, types.NewError(types.ErrClassifierFailure, "unparseable classification").WithCause(err)
	}
	return parsed, nil
}

// parseClassification extracts a Classification from the model reply.
// Models wrap JSON in prose or code fences often enough that we scan for the
// outermost object instead of decoding the raw reply.
func parseClassification(reply string) (*types.Classification, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var parsed types.Classification
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if len(parsed.Tasks) == 0 {
		return nil, fmt.Errorf("classification has no tasks")
	}
	if parsed.Intent == "" {
		parsed.Intent = "general"
	}
	return &parsed, nil
}
