package storage

import (
	"errors"

	"github.com/aircraftstudio/skirmish/pkg/core"
)

var (
	// ErrNotSupported is returned by backends that cannot serve a call,
	// such as reading the leaderboard through a forward-only stream.
	ErrNotSupported = errors.New("operation not supported by storage backend")
	// ErrNotFound is returned when a model or entry does not exist.
	ErrNotFound = errors.New("not found")
)

// Backend is the interface all leaderboard storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SubmitResult stores a normalized entry.
	SubmitResult(e *core.LeaderboardEntry) error
	// TopResults returns at most limit entries ordered by key.
	TopResults(limit int, key core.SortKey) ([]core.LeaderboardEntry, error)
}

// Catalogue stores generated aircraft models and their GLB payloads.
type Catalogue interface {
	SaveModel(entry core.ModelEntry, blob []byte) error
	LoadModel(id string) (core.ModelEntry, []byte, error)
	DeleteModel(id string) error
	// ListModels returns every entry, newest first.
	ListModels() ([]core.ModelEntry, error)
}

// PerformanceRecorder is an optional interface for backends that keep
// per-second session samples.
type PerformanceRecorder interface {
	RecordPerformance(s *core.PerformanceSample) error
}

// Exportable is an optional interface for backends that can write the
// leaderboard to a file.
type Exportable interface {
	Export() (string, error)
	GetExportedFilePath() string
}
