package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// knowledgeEntry is the GORM model backing the knowledge store.
type knowledgeEntry struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Content   string    `gorm:"type:text;not null"`
	Metadata  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (knowledgeEntry) TableName() string { return "agent_knowledge" }

// GormStoreConfig configures the durable knowledge store.
type GormStoreConfig struct {
	// Driver selects the dialector: "sqlite" (default), "postgres", or "mysql".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific data source name. For sqlite this is the
	// database file path; ":memory:" works for throwaway instances.
	DSN string `yaml:"dsn"`
	// MaxCandidates bounds how many recent rows are loaded for ranking.
	MaxCandidates int `yaml:"max_candidates"`
}

// GormStore is the GORM-backed Store implementation.
type GormStore struct {
	db     *gorm.DB
	cfg    GormStoreConfig
	logger *zap.Logger
}

// OpenDatabase opens a gorm.DB for the configured driver. It is shared with
// the database capability handler so both use one connection pool.
func OpenDatabase(cfg GormStoreConfig) (*gorm.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "taskforge.db"
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// NewGormStore creates the knowledge store on an open database, migrating
// its table.
func NewGormStore(db *gorm.DB, cfg GormStoreConfig, logger *zap.Logger) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&knowledgeEntry{}); err != nil {
		return nil, fmt.Errorf("migrate agent_knowledge: %w", err)
	}
	return &GormStore{
		db:     db,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "memory_store")),
	}, nil
}

// Store persists one knowledge entry.
func (s *GormStore) Store(ctx context.Context, content string, metadata map[string]string) error {
	if content == "" {
		return types.NewError(types.ErrInvalidRequest, "content is required")
	}

	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	entry := knowledgeEntry{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  string(meta),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return types.NewError(types.ErrMemoryFailure, "store knowledge entry").WithCause(err)
	}

	s.logger.Debug("knowledge stored", zap.String("id", entry.ID))
	return nil
}

// Search loads the most recent candidates and ranks them by token overlap
// with the query, recency breaking ties.
func (s *GormStore) Search(ctx context.Context, query string, limit int) ([]types.MemoryRecord, error) {
	if limit <= 0 {
		limit = 5
	}

	var entries []knowledgeEntry
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(s.cfg.MaxCandidates).
		Find(&entries).Error
	if err != nil {
		return nil, types.NewError(types.ErrMemoryFailure, "load knowledge entries").WithCause(err)
	}

	records := make([]types.MemoryRecord, 0, len(entries))
	for _, e := range entries {
		var meta map[string]string
		if e.Metadata != "" {
			// Corrupt metadata is tolerated; the record still matches on content.
			_ = json.Unmarshal([]byte(e.Metadata), &meta)
		}
		records = append(records, types.MemoryRecord{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  meta,
			Score:     relevance(query, e.Content),
			CreatedAt: e.CreatedAt,
		})
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
