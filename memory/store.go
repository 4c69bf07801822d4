// Package memory provides the agent's knowledge store: free-text entries
// tagged with metadata, retrievable by naive relevance ranking.
//
// Two implementations exist: a GORM-backed store for durable deployments
// (sqlite, postgres, or mysql) and an in-memory store for tests and local
// runs. Real vector similarity is out of scope; ranking is token overlap
// with a recency tiebreak.
package memory

import (
	"context"

	"github.com/taskforge-ai/taskforge/types"
)

// Store is the memory collaborator contract used by the workflow engine and
// the agent. Implementations must be safe for concurrent use.
type Store interface {
	// Store persists content with its metadata tags.
	Store(ctx context.Context, content string, metadata map[string]string) error
	// Search returns up to limit records ordered by descending relevance.
	Search(ctx context.Context, query string, limit int) ([]types.MemoryRecord, error)
}
