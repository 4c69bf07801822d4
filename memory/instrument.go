package memory

import (
	"context"

	"github.com/taskforge-ai/taskforge/types"
)

// Metrics receives one observation per store operation. The Prometheus
// collector implements it.
type Metrics interface {
	RecordMemoryOp(operation, status string)
}

// Instrument wraps a store so every operation is counted. A nil store or
// recorder returns the store unchanged.
func Instrument(store Store, m Metrics) Store {
	if store == nil || m == nil {
		return store
	}
	return &instrumentedStore{store: store, metrics: m}
}

type instrumentedStore struct {
	store   Store
	metrics Metrics
}

func (s *instrumentedStore) Store(ctx context.Context, content string, metadata map[string]string) error {
	err := s.store.Store(ctx, content, metadata)
	s.metrics.RecordMemoryOp("store", opStatus(err))
	return err
}

func (s *instrumentedStore) Search(ctx context.Context, query string, limit int) ([]types.MemoryRecord, error) {
	records, err := s.store.Search(ctx, query, limit)
	s.metrics.RecordMemoryOp("search", opStatus(err))
	return records, err
}

func opStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
