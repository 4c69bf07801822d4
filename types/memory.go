package types

import "time"

// MemoryRecord is one stored memory entry: free text plus tagging metadata.
// Relevance ranking semantics belong to the store implementation.
type MemoryRecord struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Score     float64           `json:"score,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
