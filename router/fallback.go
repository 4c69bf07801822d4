package router

import (
	"strings"

	"github.com/taskforge-ai/taskforge/types"
)

// FallbackClassify is the deterministic keyword classification used when the
// external classifier fails. It is total: it never fails and always returns
// at least one task, and it is idempotent for a given input.
func FallbackClassify(input string) *types.Classification {
	lower := strings.ToLower(input)

	switch {
	case strings.Contains(lower, "research") || strings.Contains(lower, "find"):
		return &types.Classification{
			Intent: "research",
			Tasks:  []string{"web_search", "synthesize"},
		}
	case strings.Contains(lower, "code") || strings.Contains(lower, "build"):
		return &types.Classification{
			Intent: "code",
			Tasks:  []string{"code_generation"},
		}
	case strings.Contains(lower, "email"):
		return &types.Classification{
			Intent: "email",
			Tasks:  []string{"draft_email", "send_email"},
		}
	default:
		return &types.Classification{
			Intent: "general",
			Tasks:  []string{"process"},
		}
	}
}
