package memory

import "strings"

// relevance scores content against a query by token overlap: the fraction of
// distinct query tokens that occur in the content. Both sides are lowercased.
// An empty query scores every record 0, which leaves recency as the order.
func relevance(query, content string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	contentSet := make(map[string]struct{})
	for _, tok := range tokenize(content) {
		contentSet[tok] = struct{}{}
	}

	matched := 0
	seen := make(map[string]struct{})
	for _, tok := range queryTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := contentSet[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(seen))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}
