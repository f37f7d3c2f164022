package postgres

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aircraftstudio/skirmish/internal/database"
	"github.com/aircraftstudio/skirmish/internal/logging"
	"github.com/aircraftstudio/skirmish/internal/model"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Compile-time interface checks
var (
	_ storage.Backend             = (*Backend)(nil)
	_ storage.Catalogue           = (*Backend)(nil)
	_ storage.PerformanceRecorder = (*Backend)(nil)
)

func sqliteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "pg.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{LogManager: logging.NewSlogManager()})
}

func TestNew(t *testing.T) {
	b := newTestBackend()
	require.NotNil(t, b)
	assert.Equal(t, DefaultFlushInterval, b.deps.FlushInterval)
	assert.Equal(t, DefaultBatchSize, b.deps.BatchSize)
}

func TestSubmitResult_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()

	err := b.SubmitResult(&core.LeaderboardEntry{ID: "q1", Score: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, b.entries.Len())

	require.NoError(t, b.RecordPerformance(&core.PerformanceSample{SessionID: "s"}))
	assert.Equal(t, 1, b.samples.Len())
}

func TestNotInitialized(t *testing.T) {
	b := newTestBackend()

	_, err := b.TopResults(10, core.SortScore)
	assert.Error(t, err)
	_, err = b.ListModels()
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}

func TestInitClose_FlushesPending(t *testing.T) {
	db := sqliteDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})

	require.NoError(t, b.Init())
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "late", Score: 1100, CreatedAt: time.Now().UTC()}))
	require.NoError(t, b.RecordPerformance(&core.PerformanceSample{SessionID: "s", Time: time.Now().UTC()}))
	require.NoError(t, b.Close())

	assert.True(t, b.entries.Empty())
	assert.True(t, b.samples.Empty())
}

func TestWriterGoroutine_DrainsQueues(t *testing.T) {
	db := sqliteDB(t)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "tick", Score: 900, CreatedAt: time.Now().UTC()}))

	assert.Eventually(t, func() bool {
		return b.entries.Empty()
	}, 2*time.Second, 10*time.Millisecond)

	var count int64
	require.NoError(t, db.Model(&model.LeaderboardEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTopResults_ReadsOwnWrites(t *testing.T) {
	b := New(Dependencies{DB: sqliteDB(t), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	defer b.Close()

	ct := 22.5
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "a", Score: 1000, CreatedAt: time.Now().UTC()}))
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "b", Score: 800, ClearTime: &ct, CreatedAt: time.Now().UTC()}))

	top, err := b.TopResults(10, core.SortTime)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].ID)
}

func TestCommitBatches_RequeuesOnError(t *testing.T) {
	db := sqliteDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	defer b.Close()

	// duplicate primary keys fail the whole batch
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "dup", CreatedAt: time.Now().UTC()}))
	require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: "dup", CreatedAt: time.Now().UTC()}))

	var logged []string
	commitBatches(db, b.entries, 10, "entries", func(fn, msg, level string) {
		logged = append(logged, level)
	})
	assert.Equal(t, 2, b.entries.Len())
	assert.Equal(t, []string{"ERROR"}, logged)

	b.entries.Clear()
}

func TestCommitBatches_Splits(t *testing.T) {
	db := sqliteDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour, BatchSize: 2})
	require.NoError(t, b.Init())
	defer b.Close()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: id, CreatedAt: time.Now().UTC()}))
	}
	b.flush()

	assert.True(t, b.entries.Empty())
	var count int64
	require.NoError(t, db.Model(&model.LeaderboardEntry{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestCommitBatches_FailedBatchStaysInFront(t *testing.T) {
	db := sqliteDB(t)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour, BatchSize: 2})
	require.NoError(t, b.Init())
	defer b.Close()

	for _, id := range []string{"x", "x", "y"} {
		require.NoError(t, b.SubmitResult(&core.LeaderboardEntry{ID: id, CreatedAt: time.Now().UTC()}))
	}
	commitBatches(db, b.entries, 2, "entries", func(string, string, string) {})

	left := b.entries.Drain(0)
	require.Len(t, left, 3)
	assert.Equal(t, "x", left[0].ID)
	assert.Equal(t, "y", left[2].ID)
}

func TestCatalogue_Delegates(t *testing.T) {
	b := New(Dependencies{DB: sqliteDB(t), FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.SaveModel(core.ModelEntry{ID: "m", Name: "Kite", CreatedAt: time.Now().UTC()}, []byte("glTF")))
	list, err := b.ListModels()
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, blob, err := b.LoadModel("m")
	require.NoError(t, err)
	assert.Equal(t, []byte("glTF"), blob)

	require.NoError(t, b.DeleteModel("m"))
	assert.True(t, errors.Is(b.DeleteModel("m"), storage.ErrNotFound))
}
