package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/internal/leaderboard"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
)

// ModelRecord groups a catalogue entry with its payload
type ModelRecord struct {
	Entry core.ModelEntry
	Blob  []byte
}

// Backend keeps the leaderboard and model catalogue in memory and exports
// the leaderboard to JSON on Close.
type Backend struct {
	cfg config.MemoryConfig

	entries     []core.LeaderboardEntry
	models      map[string]*ModelRecord // keyed by model ID
	performance []core.PerformanceSample

	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		models: make(map[string]*ModelRecord),
		now:    time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the leaderboard when an output directory is configured
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.Export()
	return err
}

// SubmitResult appends an entry to the leaderboard
func (b *Backend) SubmitResult(e *core.LeaderboardEntry) error {
	if e == nil {
		return fmt.Errorf("nil leaderboard entry")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, *e)
	return nil
}

// TopResults returns the best entries under the given ordering
func (b *Backend) TopResults(limit int, key core.SortKey) ([]core.LeaderboardEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return leaderboard.Top(b.entries, limit, key), nil
}

// Entries returns a copy of every stored entry in submission order
func (b *Backend) Entries() []core.LeaderboardEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.LeaderboardEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// RecordPerformance keeps a session sample
func (b *Backend) RecordPerformance(s *core.PerformanceSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.performance = append(b.performance, *s)
	return nil
}

// SaveModel stores or replaces a model
func (b *Backend) SaveModel(entry core.ModelEntry, blob []byte) error {
	if entry.ID == "" {
		return fmt.Errorf("model id is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]byte, len(blob))
	copy(data, blob)
	b.models[entry.ID] = &ModelRecord{Entry: entry, Blob: data}
	return nil
}

// LoadModel looks up a model and its payload by ID
func (b *Backend) LoadModel(id string) (core.ModelEntry, []byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.models[id]
	if !ok {
		return core.ModelEntry{}, nil, fmt.Errorf("model %s: %w", id, storage.ErrNotFound)
	}
	return record.Entry, record.Blob, nil
}

// DeleteModel removes a model
func (b *Backend) DeleteModel(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.models[id]; !ok {
		return fmt.Errorf("model %s: %w", id, storage.ErrNotFound)
	}
	delete(b.models, id)
	return nil
}

// ListModels returns every model, newest first
func (b *Backend) ListModels() ([]core.ModelEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.ModelEntry, 0, len(b.models))
	for _, record := range b.models {
		out = append(out, record.Entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
