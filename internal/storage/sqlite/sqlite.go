// Package sqlitestorage keeps the leaderboard in a private in-memory SQLite
// database and snapshots it to a dump file with VACUUM INTO.
package sqlitestorage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aircraftstudio/skirmish/internal/database"
	"github.com/aircraftstudio/skirmish/internal/logging"
	gormstorage "github.com/aircraftstudio/skirmish/internal/storage/gorm"

	"gorm.io/gorm"
)

type Config struct {
	// DumpInterval spaces periodic dumps; zero dumps only on Close.
	DumpInterval time.Duration
	// DumpPath is the dump file; empty disables dumping.
	DumpPath string
}

// Backend is the GORM backend plus the dump schedule.
type Backend struct {
	*gormstorage.Backend
	db   *gorm.DB
	cfg  Config
	logs *logging.SlogManager

	cancel    context.CancelFunc
	loop      sync.WaitGroup
	closeOnce sync.Once
	lastDump  atomic.Int64
}

// memoryDSN names a fresh shared-cache memory database so that two
// backends in one process never see each other's rows.
func memoryDSN() string {
	return fmt.Sprintf("file:skirmish-%d?mode=memory&cache=shared", time.Now().UnixNano())
}

func New(cfg Config, logs *logging.SlogManager) (*Backend, error) {
	db, err := database.OpenSQLite(memoryDSN())
	if err != nil {
		return nil, fmt.Errorf("open in-memory SQLite: %w", err)
	}
	if logs == nil {
		logs = logging.NewSlogManager()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, LogManager: logs}),
		db:      db,
		cfg:     cfg,
		logs:    logs,
		cancel:  func() {},
	}, nil
}

func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" || b.cfg.DumpInterval <= 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.loop.Add(1)
	go b.dumpEvery(ctx, b.cfg.DumpInterval)
	return nil
}

// Close stops the schedule, writes a last dump and closes the database.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.cancel()
		b.loop.Wait()
		if b.cfg.DumpPath != "" {
			if derr := b.Dump(); derr != nil {
				b.logs.Logger().Error("Final SQLite dump failed", "path", b.cfg.DumpPath, "error", derr)
			}
		}
		err = b.Backend.Close()
	})
	return err
}

// Dump snapshots the database to DumpPath.
func (b *Backend) Dump() error {
	if err := database.VacuumInto(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.lastDump.Store(time.Now().UnixNano())
	return nil
}

// LastDump is the time of the latest successful dump, zero if none.
func (b *Backend) LastDump() time.Time {
	n := b.lastDump.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (b *Backend) dumpEvery(ctx context.Context, every time.Duration) {
	defer b.loop.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	logger := b.logs.Logger().With("path", b.cfg.DumpPath)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				logger.Error("SQLite dump failed", "error", err)
				continue
			}
			logger.Debug("SQLite dumped", "took", time.Since(start))
		}
	}
}
