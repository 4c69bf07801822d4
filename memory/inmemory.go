package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskforge-ai/taskforge/types"
)

// InMemoryConfig configures the in-memory store.
type InMemoryConfig struct {
	// MaxEntries is a global cap; 0 means unbounded. The oldest entries are
	// evicted first.
	MaxEntries int
	// TTL expires entries after the given duration; 0 disables expiry.
	TTL time.Duration
	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// InMemoryStore is a Store for tests, local development, and small-scale
// runs. It keeps entries in process memory with optional TTL and cap.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []types.MemoryRecord
	cfg     InMemoryConfig
	now     func() time.Time
}

// NewInMemoryStore creates an in-memory store.
func NewInMemoryStore(cfg InMemoryConfig) *InMemoryStore {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{cfg: cfg, now: now}
}

// Store appends an entry, evicting expired and over-cap entries.
func (s *InMemoryStore) Store(ctx context.Context, content string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if content == "" {
		return types.NewError(types.ErrInvalidRequest, "content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	s.entries = append(s.entries, types.MemoryRecord{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  meta,
		CreatedAt: s.now(),
	})

	s.cleanupLocked()
	return nil
}

// Search ranks live entries by token overlap, recency breaking ties.
func (s *InMemoryStore) Search(ctx context.Context, query string, limit int) ([]types.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	records := make([]types.MemoryRecord, 0, len(s.entries))
	for _, e := range s.entries {
		if s.expired(e, now) {
			continue
		}
		e.Score = relevance(query, e.Content)
		records = append(records, e)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Len returns the number of live entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryStore) expired(e types.MemoryRecord, now time.Time) bool {
	return s.cfg.TTL > 0 && now.Sub(e.CreatedAt) > s.cfg.TTL
}

func (s *InMemoryStore) cleanupLocked() {
	now := s.now()
	live := s.entries[:0]
	for _, e := range s.entries {
		if !s.expired(e, now) {
			live = append(live, e)
		}
	}
	s.entries = live

	if s.cfg.MaxEntries > 0 && len(s.entries) > s.cfg.MaxEntries {
		s.entries = s.entries[len(s.entries)-s.cfg.MaxEntries:]
	}
}
