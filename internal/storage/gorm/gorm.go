// Package gormstorage implements storage.Backend and storage.Catalogue on
// top of any GORM dialect. Writes are synchronous; the sqlite backend wraps
// it and the postgres backend layers a queue writer over the same reads.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/aircraftstudio/skirmish/internal/database"
	"github.com/aircraftstudio/skirmish/internal/logging"
	"github.com/aircraftstudio/skirmish/internal/model"
	"github.com/aircraftstudio/skirmish/internal/model/convert"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database connection")
	}
	b.deps.LogManager.WriteLog("gorm:Init", "Migrating schema", "INFO")
	return database.Migrate(b.deps.DB)
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// SubmitResult inserts one leaderboard row.
func (b *Backend) SubmitResult(e *core.LeaderboardEntry) error {
	row, err := convert.EntryToGorm(*e)
	if err != nil {
		return fmt.Errorf("convert entry %s: %w", e.ID, err)
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	return nil
}

// InsertEntries writes a batch of rows in one transaction.
func (b *Backend) InsertEntries(rows []model.LeaderboardEntry) error {
	if len(rows) == 0 {
		return nil
	}
	return b.deps.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}

// OrderClauses returns the ORDER BY terms for a sort key. Rows without a
// clear time always sort after timed ones.
func OrderClauses(key core.SortKey) []string {
	if key == core.SortTime {
		return []string{"clear_time IS NULL", "clear_time ASC", "score DESC", "created_at ASC"}
	}
	return []string{"score DESC", "clear_time IS NULL", "clear_time ASC", "created_at ASC"}
}

// TopResults returns at most limit entries ordered by key.
func (b *Backend) TopResults(limit int, key core.SortKey) ([]core.LeaderboardEntry, error) {
	q := b.deps.DB.Model(&model.LeaderboardEntry{})
	for _, clause := range OrderClauses(key) {
		q = q.Order(clause)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []model.LeaderboardEntry
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query top results: %w", err)
	}

	out := make([]core.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		e, err := convert.EntryToCore(row)
		if err != nil {
			b.deps.LogManager.WriteLog("gorm:TopResults", fmt.Sprintf("Skipping unreadable entry: %v", err), "WARN")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// RecordPerformance inserts a session sample.
func (b *Backend) RecordPerformance(s *core.PerformanceSample) error {
	row := convert.PerformanceToGorm(*s)
	return b.deps.DB.Create(&row).Error
}

// SaveModel inserts or replaces a catalogue entry.
func (b *Backend) SaveModel(entry core.ModelEntry, blob []byte) error {
	if entry.ID == "" {
		return fmt.Errorf("model id is required")
	}
	row := convert.ModelToGorm(entry, blob)
	if err := b.deps.DB.Save(&row).Error; err != nil {
		return fmt.Errorf("save model %s: %w", entry.ID, err)
	}
	return nil
}

// LoadModel returns a catalogue entry and its payload.
func (b *Backend) LoadModel(id string) (core.ModelEntry, []byte, error) {
	var row model.ModelAsset
	err := b.deps.DB.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ModelEntry{}, nil, fmt.Errorf("model %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.ModelEntry{}, nil, fmt.Errorf("load model %s: %w", id, err)
	}
	return convert.ModelToCore(row), row.Blob, nil
}

// DeleteModel removes a catalogue entry.
func (b *Backend) DeleteModel(id string) error {
	res := b.deps.DB.Where("id = ?", id).Delete(&model.ModelAsset{})
	if res.Error != nil {
		return fmt.Errorf("delete model %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("model %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListModels returns every catalogue entry without payloads, newest first.
func (b *Backend) ListModels() ([]core.ModelEntry, error) {
	var rows []model.ModelAsset
	err := b.deps.DB.
		Select("id", "name", "asset_ref", "thumbnail", "size", "created_at").
		Order("created_at DESC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	out := make([]core.ModelEntry, len(rows))
	for i, row := range rows {
		out[i] = convert.ModelToCore(row)
	}
	return out, nil
}
