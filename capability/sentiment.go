package capability

import (
	"context"
	"strings"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// Polarity word lists for the lexicon scorer. Deliberately small; the
// handler reports NEUTRAL rather than guessing when nothing matches.
var (
	positiveWords = map[string]struct{}{
		"good": {}, "great": {}, "excellent": {}, "amazing": {}, "love": {},
		"happy": {}, "fantastic": {}, "wonderful": {}, "best": {}, "awesome": {},
		"success": {}, "successful": {}, "win": {}, "perfect": {}, "enjoy": {},
		"like": {}, "helpful": {}, "fast": {}, "reliable": {}, "easy": {},
	}
	negativeWords = map[string]struct{}{
		"bad": {}, "terrible": {}, "awful": {}, "hate": {}, "sad": {},
		"horrible": {}, "worst": {}, "fail": {}, "failure": {}, "broken": {},
		"slow": {}, "angry": {}, "poor": {}, "useless": {}, "bug": {},
		"crash": {}, "wrong": {}, "unreliable": {}, "hard": {}, "problem": {},
	}
)

// SentimentHandler scores text polarity with a fixed lexicon. It runs
// entirely in process and is registered as a plugin, not a routed kind.
type SentimentHandler struct {
	logger *zap.Logger
}

// NewSentimentHandler creates a sentiment handler.
func NewSentimentHandler(logger *zap.Logger) *SentimentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SentimentHandler{
		logger: logger.With(zap.String("component", "capability_sentiment")),
	}
}

func (h *SentimentHandler) Name() string { return "sentiment" }

func (h *SentimentHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "text is required")
	}

	positive, negative := 0, 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if _, ok := positiveWords[word]; ok {
			positive++
		}
		if _, ok := negativeWords[word]; ok {
			negative++
		}
	}

	label := "NEUTRAL"
	confidence := 0.0
	if matched := positive + negative; matched > 0 {
		switch {
		case positive > negative:
			label = "POSITIVE"
			confidence = float64(positive) / float64(matched)
		case negative > positive:
			label = "NEGATIVE"
			confidence = float64(negative) / float64(matched)
		default:
			confidence = 0.5
		}
	}

	return types.SuccessResult(map[string]any{
		"text":       text,
		"sentiment":  label,
		"confidence": confidence,
	}), nil
}
