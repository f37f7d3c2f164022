package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aircraftstudio/skirmish/internal/leaderboard"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu      sync.Mutex
	entries []core.LeaderboardEntry
	failing bool
}

var _ storage.Backend = (*mockBackend)(nil)

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) SubmitResult(e *core.LeaderboardEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return errors.New("disk full")
	}
	b.entries = append(b.entries, *e)
	return nil
}

func (b *mockBackend) TopResults(limit int, key core.SortKey) ([]core.LeaderboardEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return leaderboard.Top(b.entries, limit, key), nil
}

func (b *mockBackend) stored() []core.LeaderboardEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.LeaderboardEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

func fixedNow() time.Time {
	return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func pilot() core.User {
	return core.User{Sub: "local|pilot", Name: "Pilot"}
}

func clearTime(v float64) *float64 { return &v }

func TestStore(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{Now: fixedNow}, backend)

	entry, err := m.Store(pilot(), core.SessionResult{Score: 1234.7, ShotsFired: 8, Hits: 6, ClearTime: clearTime(41.2)})
	require.NoError(t, err)
	assert.Equal(t, 1234, entry.Score)
	assert.Equal(t, 0.75, entry.Accuracy)
	assert.Equal(t, fixedNow(), entry.CreatedAt)

	require.Len(t, backend.stored(), 1)
	assert.Equal(t, 1, m.Stored.Value())
}

func TestStore_Unauthenticated(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{}, backend)

	_, err := m.Store(core.User{}, core.SessionResult{Score: 1000})
	assert.ErrorIs(t, err, leaderboard.ErrUnauthenticated)
	assert.Empty(t, backend.stored())
}

func TestStore_BackendFailure(t *testing.T) {
	m := NewManager(Dependencies{}, &mockBackend{failing: true})
	_, err := m.Store(pilot(), core.SessionResult{Score: 1000})
	assert.Error(t, err)
	assert.Equal(t, 1, m.Failed.Value())
}

func TestEnqueue_WrittenByLoop(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{FlushInterval: time.Hour}, backend)
	m.Start()
	defer m.Stop()

	_, err := m.Enqueue(pilot(), core.SessionResult{Score: 900})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(backend.stored()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, m.Pending())
}

func TestStop_FlushesPending(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{}, backend)

	_, _ = m.Enqueue(pilot(), core.SessionResult{Score: 1})
	_, _ = m.Enqueue(pilot(), core.SessionResult{Score: 2})
	assert.Equal(t, 2, m.Pending())

	m.Start()
	m.Stop()
	m.Stop()

	assert.Len(t, backend.stored(), 2)
	assert.Equal(t, 0, m.Pending())
}

func TestFlush_DropsFailedWrites(t *testing.T) {
	backend := &mockBackend{failing: true}
	m := NewManager(Dependencies{}, backend)

	_, _ = m.Enqueue(pilot(), core.SessionResult{Score: 1})
	m.Flush()

	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 1, m.Failed.Value())
}

func TestTop_SeesQueuedEntries(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{}, backend)

	_, _ = m.Enqueue(pilot(), core.SessionResult{Score: 800})
	_, _ = m.Enqueue(pilot(), core.SessionResult{Score: 1500})

	top, err := m.Top(1, core.SortScore)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1500, top[0].Score)
}

func TestUserSubmitter(t *testing.T) {
	backend := &mockBackend{}
	m := NewManager(Dependencies{}, backend)

	sub := m.ForUser(pilot())
	require.NoError(t, sub.Submit(context.Background(), core.SessionResult{Score: 1000, ModelID: "m1"}))
	m.Flush()

	stored := backend.stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "Pilot", stored[0].User.Name)
	require.NotNil(t, stored[0].Model.ID)
	assert.Equal(t, "m1", *stored[0].Model.ID)

	anon := m.ForUser(core.User{})
	assert.ErrorIs(t, anon.Submit(context.Background(), core.SessionResult{}), leaderboard.ErrUnauthenticated)
}
