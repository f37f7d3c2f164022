// Package postgres is the shared leaderboard on PostgreSQL. Writes are
// buffered and committed in batches by a background writer; reads and the
// model catalogue go straight to the database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/database"
	"github.com/aircraftstudio/skirmish/internal/logging"
	"github.com/aircraftstudio/skirmish/internal/model"
	"github.com/aircraftstudio/skirmish/internal/model/convert"
	"github.com/aircraftstudio/skirmish/internal/queue"
	gormstorage "github.com/aircraftstudio/skirmish/internal/storage/gorm"
	"github.com/aircraftstudio/skirmish/pkg/core"

	"gorm.io/gorm"
)

const (
	// DefaultFlushInterval is how often the writer commits queued rows.
	DefaultFlushInterval = 2 * time.Second
	// DefaultBatchSize caps the rows of one commit.
	DefaultBatchSize = 500
)

var errNotReady = errors.New("postgres backend not initialized")

type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
	BatchSize     int
}

type Backend struct {
	deps    Dependencies
	entries *queue.Queue[model.LeaderboardEntry]
	samples *queue.Queue[model.SortiePerformance]
	reader  *gormstorage.Backend

	stop   context.CancelFunc
	writer sync.WaitGroup
}

func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	return &Backend{
		deps:    deps,
		entries: queue.New[model.LeaderboardEntry](),
		samples: queue.New[model.SortiePerformance](),
	}
}

// Init connects from the db.* config unless a DB was injected, migrates
// and starts the writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(database.PostgresConfigFromViper())
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		b.deps.DB = db
	}

	reader := gormstorage.New(gormstorage.Dependencies{DB: b.deps.DB, LogManager: b.deps.LogManager})
	if err := reader.Init(); err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}
	b.reader = reader

	ctx, cancel := context.WithCancel(context.Background())
	b.stop = cancel
	b.writer.Add(1)
	go b.writeEvery(ctx)
	return nil
}

// Close stops the writer, commits what is left and closes the pool.
func (b *Backend) Close() error {
	if b.stop == nil {
		return nil
	}
	b.stop()
	b.writer.Wait()
	b.stop = nil

	b.flush()
	return b.reader.Close()
}

func (b *Backend) SubmitResult(e *core.LeaderboardEntry) error {
	row, err := convert.EntryToGorm(*e)
	if err != nil {
		return fmt.Errorf("convert entry %s: %w", e.ID, err)
	}
	b.entries.Push(row)
	return nil
}

func (b *Backend) RecordPerformance(s *core.PerformanceSample) error {
	b.samples.Push(convert.PerformanceToGorm(*s))
	return nil
}

// TopResults commits pending entries first so a pilot sees their own run.
func (b *Backend) TopResults(limit int, key core.SortKey) ([]core.LeaderboardEntry, error) {
	if b.reader == nil {
		return nil, errNotReady
	}
	b.flush()
	return b.reader.TopResults(limit, key)
}

func (b *Backend) SaveModel(entry core.ModelEntry, blob []byte) error {
	if b.reader == nil {
		return errNotReady
	}
	return b.reader.SaveModel(entry, blob)
}

func (b *Backend) LoadModel(id string) (core.ModelEntry, []byte, error) {
	if b.reader == nil {
		return core.ModelEntry{}, nil, errNotReady
	}
	return b.reader.LoadModel(id)
}

func (b *Backend) DeleteModel(id string) error {
	if b.reader == nil {
		return errNotReady
	}
	return b.reader.DeleteModel(id)
}

func (b *Backend) ListModels() ([]core.ModelEntry, error) {
	if b.reader == nil {
		return nil, errNotReady
	}
	return b.reader.ListModels()
}

func (b *Backend) writeEvery(ctx context.Context) {
	defer b.writer.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

func (b *Backend) flush() {
	log := b.deps.LogManager.WriteLog
	commitBatches(b.deps.DB, b.entries, b.deps.BatchSize, "leaderboard entries", log)
	commitBatches(b.deps.DB, b.samples, b.deps.BatchSize, "sortie performance", log)
}

// commitBatches writes q in transactions of up to size rows. A failed batch
// goes back to the head of q and ends this round.
func commitBatches[T any](db *gorm.DB, q *queue.Queue[T], size int, what string, log func(string, string, string)) {
	for !q.Empty() {
		batch := q.Drain(size)
		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		})
		if err != nil {
			log("postgres:commit", fmt.Sprintf("Writing %d %s failed: %v", len(batch), what, err), "ERROR")
			q.Requeue(batch)
			return
		}
	}
}
