package convert

import (
	"encoding/json"
	"fmt"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/internal/model"
	"github.com/aircraftstudio/skirmish/pkg/core"
)

// EntryToCore converts a table row back into a leaderboard entry.
func EntryToCore(m model.LeaderboardEntry) (core.LeaderboardEntry, error) {
	e := core.LeaderboardEntry{
		ID:               m.ID,
		Score:            m.Score,
		EnemiesDestroyed: m.EnemiesDestroyed,
		ShotsFired:       m.ShotsFired,
		Hits:             m.Hits,
		Accuracy:         m.Accuracy,
		Track:            geo.TrackFromLineString(m.Track),
		Anchor:           geo.AnchorFromPoint(m.Anchor),
		CreatedAt:        m.CreatedAt,
	}
	if m.ClearTime.Valid {
		ct := m.ClearTime.Float64
		e.ClearTime = &ct
	}
	if len(m.User) > 0 {
		if err := json.Unmarshal(m.User, &e.User); err != nil {
			return core.LeaderboardEntry{}, fmt.Errorf("unmarshal user of %s: %w", m.ID, err)
		}
	}
	if len(m.Model) > 0 {
		if err := json.Unmarshal(m.Model, &e.Model); err != nil {
			return core.LeaderboardEntry{}, fmt.Errorf("unmarshal model of %s: %w", m.ID, err)
		}
	}
	return e, nil
}

// ModelToCore converts a catalogue row into its listing entry.
func ModelToCore(m model.ModelAsset) core.ModelEntry {
	return core.ModelEntry{
		ID:        m.ID,
		Name:      m.Name,
		AssetRef:  m.AssetRef,
		Thumbnail: m.Thumbnail,
		CreatedAt: m.CreatedAt,
	}
}
