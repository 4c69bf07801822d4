package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/taskforge-ai/taskforge/types"
)

// placeholderPattern matches {name} references in step descriptions. Step
// names are restricted to word characters, so arbitrary braced text in a
// description can never match a step by coincidence.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// resolveTemplate substitutes every {name} placeholder in description with
// the serialized result stored under that name in the workflow context.
//
// Referencing a name not yet in the context fails the resolution: the
// engine treats forward or dangling references as a step failure rather
// than passing the literal placeholder through. This is deterministic and
// surfaces workflow authoring mistakes immediately.
func resolveTemplate(description string, wctx *types.WorkflowContext) (string, error) {
	var unresolved []string

	resolved := placeholderPattern.ReplaceAllStringFunc(description, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		result, ok := wctx.Get(name)
		if !ok {
			unresolved = append(unresolved, name)
			return match
		}
		return renderResult(result)
	})

	if len(unresolved) > 0 {
		return "", types.NewError(types.ErrUnresolvedPlaceholder,
			fmt.Sprintf("step description references unknown steps %v", unresolved))
	}
	return resolved, nil
}

// renderResult serializes a step result for interpolation. Successful
// results render their data payload; failures render the error message so
// downstream steps see what happened.
func renderResult(result *types.TaskResult) string {
	if result == nil {
		return ""
	}
	if result.Error != "" {
		return fmt.Sprintf("(failed: %s)", result.Error)
	}
	if len(result.Data) == 0 {
		return string(result.Status)
	}
	data, err := json.Marshal(result.Data)
	if err != nil {
		return string(result.Status)
	}
	return string(data)
}
