package convert

import (
	"testing"
	"time"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryRoundTrip(t *testing.T) {
	ct := 31.5
	name := "Falcon"
	in := core.LeaderboardEntry{
		ID:               "e1",
		User:             core.User{Sub: "auth0|7", Name: "Ace"},
		Score:            1420,
		ClearTime:        &ct,
		EnemiesDestroyed: 4,
		ShotsFired:       30,
		Hits:             21,
		Accuracy:         0.7,
		Model:            core.ModelRef{Name: &name},
		Track:            []mgl64.Vec2{{0, 0}, {1, -2}, {3, -4}},
		Anchor:           &core.GeoAnchor{Longitude: 13.4, Latitude: 52.5},
		CreatedAt:        time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	row, err := EntryToGorm(in)
	require.NoError(t, err)
	assert.Equal(t, "auth0|7", row.UserSub)
	assert.True(t, row.ClearTime.Valid)
	assert.Equal(t, 3, row.Track.Coordinates().Length())

	out, err := EntryToCore(row)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.User.Name, out.User.Name)
	assert.Equal(t, 31.5, *out.ClearTime)
	assert.Equal(t, "Falcon", *out.Model.Name)
	assert.Nil(t, out.Model.ID)
	assert.Equal(t, in.Track, out.Track)
	require.NotNil(t, out.Anchor)
	assert.InDelta(t, 13.4, out.Anchor.Longitude, 1e-6)
	assert.InDelta(t, 52.5, out.Anchor.Latitude, 1e-6)
}

func TestEntryToGorm_NullableFields(t *testing.T) {
	row, err := EntryToGorm(core.LeaderboardEntry{ID: "e2", User: core.User{Sub: "u"}})
	require.NoError(t, err)
	assert.False(t, row.ClearTime.Valid)
	assert.True(t, row.Anchor.IsEmpty())

	out, err := EntryToCore(row)
	require.NoError(t, err)
	assert.Nil(t, out.ClearTime)
	assert.Nil(t, out.Anchor)
	assert.Empty(t, out.Track)
}

func TestEntryToGorm_BadAnchor(t *testing.T) {
	_, err := EntryToGorm(core.LeaderboardEntry{Anchor: &core.GeoAnchor{Longitude: 500}})
	assert.Error(t, err)
}

func TestModelConversion(t *testing.T) {
	now := time.Now().UTC()
	row := ModelToGorm(core.ModelEntry{ID: "m", Name: "Jet", AssetRef: "/api/models/m", CreatedAt: now}, []byte("glTF1234"))
	assert.Equal(t, 8, row.Size)

	e := ModelToCore(row)
	assert.Equal(t, "Jet", e.Name)
	assert.Equal(t, "/api/models/m", e.AssetRef)
	assert.Equal(t, now, e.CreatedAt)
}

func TestPerformanceToGorm(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	row := PerformanceToGorm(core.PerformanceSample{
		Time: at, SessionID: "s1", State: core.StateActive, Frames: 60, Alive: 3, Beams: 7, Score: 1100,
	})
	assert.Equal(t, at, row.Time)
	assert.Equal(t, "active", row.State)
	assert.Equal(t, 60, row.Frames)
	assert.Equal(t, 1100, row.Score)
}
