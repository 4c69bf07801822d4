package capability

import (
	"context"
	"fmt"
	"time"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HistoryEntry is one processed request recorded by the database handler.
type HistoryEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Query     string    `gorm:"size:2048;not null"`
	Status    string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName keeps the table name used by the agent history store.
func (HistoryEntry) TableName() string { return "agent_history" }

// DatabaseHandler records task descriptions into the agent history table.
// It backs both the data_analysis kind and the request-history audit trail.
type DatabaseHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDatabaseHandler creates a database handler and migrates its table.
func NewDatabaseHandler(db *gorm.DB, logger *zap.Logger) (*DatabaseHandler, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("migrate agent_history: %w", err)
	}
	return &DatabaseHandler{
		db:     db,
		logger: logger.With(zap.String("component", "capability_database")),
	}, nil
}

func (h *DatabaseHandler) Name() string { return "database" }

func (h *DatabaseHandler) Execute(ctx context.Context, input string) (*types.TaskResult, error) {
	entry := HistoryEntry{
		Query:     input,
		Status:    "processed",
		CreatedAt: time.Now().UTC(),
	}

	if err := h.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "database insert failed").WithCause(err)
	}

	h.logger.Debug("history entry recorded", zap.Uint("id", entry.ID))

	return types.SuccessResult(map[string]any{
		"id":      entry.ID,
		"message": "Database operation completed",
	}), nil
}

// History returns the most recent history entries, newest first.
func (h *DatabaseHandler) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []HistoryEntry
	err := h.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}
