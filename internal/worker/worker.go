// Package worker stores leaderboard submissions in the background and
// routes bridge events to the running session.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/cache"
	"github.com/aircraftstudio/skirmish/internal/leaderboard"
	"github.com/aircraftstudio/skirmish/internal/logging"
	"github.com/aircraftstudio/skirmish/internal/parser"
	"github.com/aircraftstudio/skirmish/internal/queue"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
)

// DefaultFlushInterval is how often queued submissions are written when
// nothing wakes the writer earlier.
const DefaultFlushInterval = 500 * time.Millisecond

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager    *logging.SlogManager
	Parser        *parser.Parser
	FlushInterval time.Duration
	Now           func() time.Time
}

// Manager normalizes results and writes them to the storage backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	pending *queue.Queue[core.LeaderboardEntry]
	wake    chan struct{}

	Stored cache.Counter
	Failed cache.Counter

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.LogManager.Logger())
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		pending: queue.New[core.LeaderboardEntry](),
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the background writer.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.stopChan = make(chan struct{})
	m.wg.Add(1)
	go m.writeLoop()
}

// Stop halts the writer after storing whatever is still pending.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	m.Flush()
}

func (m *Manager) writeLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-m.wake:
			m.Flush()
		case <-ticker.C:
			m.Flush()
		}
	}
}

// Flush writes every pending entry. Failed writes are logged and dropped.
func (m *Manager) Flush() {
	for _, e := range m.pending.Drain(0) {
		if err := m.backend.SubmitResult(&e); err != nil {
			m.Failed.Inc()
			m.deps.LogManager.WriteLog("worker:Flush", fmt.Sprintf("Failed to store entry %s: %v", e.ID, err), "ERROR")
			continue
		}
		m.Stored.Inc()
	}
}

// Pending is the number of entries waiting to be written.
func (m *Manager) Pending() int {
	return m.pending.Len()
}

// Normalize converts a result into an entry stamped with the current time.
func (m *Manager) Normalize(user core.User, result core.SessionResult) (core.LeaderboardEntry, error) {
	return leaderboard.Normalize(result, user, m.deps.Now())
}

// Enqueue normalizes result and queues it for the writer. Only
// normalization errors are returned.
func (m *Manager) Enqueue(user core.User, result core.SessionResult) (core.LeaderboardEntry, error) {
	entry, err := m.Normalize(user, result)
	if err != nil {
		return entry, err
	}
	m.pending.Push(entry)
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return entry, nil
}

// Store normalizes result and writes it immediately.
func (m *Manager) Store(user core.User, result core.SessionResult) (core.LeaderboardEntry, error) {
	entry, err := m.Normalize(user, result)
	if err != nil {
		return entry, err
	}
	if err := m.backend.SubmitResult(&entry); err != nil {
		m.Failed.Inc()
		return entry, fmt.Errorf("failed to store entry: %w", err)
	}
	m.Stored.Inc()
	return entry, nil
}

// Accept writes an entry that was already normalized elsewhere.
func (m *Manager) Accept(entry *core.LeaderboardEntry) error {
	if err := m.backend.SubmitResult(entry); err != nil {
		m.Failed.Inc()
		return fmt.Errorf("failed to store entry: %w", err)
	}
	m.Stored.Inc()
	return nil
}

// Top reads the leaderboard.
func (m *Manager) Top(limit int, key core.SortKey) ([]core.LeaderboardEntry, error) {
	m.Flush()
	return m.backend.TopResults(limit, key)
}

// ForUser returns a submitter that queues results on behalf of user.
func (m *Manager) ForUser(user core.User) *UserSubmitter {
	return &UserSubmitter{manager: m, user: user}
}

// UserSubmitter queues session results for one user.
type UserSubmitter struct {
	manager *Manager
	user    core.User
}

// Submit queues result. It never blocks on storage.
func (s *UserSubmitter) Submit(_ context.Context, result core.SessionResult) error {
	_, err := s.manager.Enqueue(s.user, result)
	return err
}
