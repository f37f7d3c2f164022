// Package convert maps simulation and leaderboard data between the plain
// core types and their database rows.
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/internal/model"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"gorm.io/datatypes"
)

// EntryToGorm converts a leaderboard entry into its table row.
func EntryToGorm(e core.LeaderboardEntry) (model.LeaderboardEntry, error) {
	user, err := json.Marshal(e.User)
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("marshal user: %w", err)
	}
	ref, err := json.Marshal(e.Model)
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("marshal model: %w", err)
	}
	anchor, err := geo.AnchorPoint(e.Anchor)
	if err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("anchor: %w", err)
	}

	var clearTime sql.NullFloat64
	if e.ClearTime != nil {
		clearTime = sql.NullFloat64{Float64: *e.ClearTime, Valid: true}
	}

	return model.LeaderboardEntry{
		ID:               e.ID,
		UserSub:          e.User.Sub,
		User:             datatypes.JSON(user),
		Score:            e.Score,
		ClearTime:        clearTime,
		EnemiesDestroyed: e.EnemiesDestroyed,
		ShotsFired:       e.ShotsFired,
		Hits:             e.Hits,
		Accuracy:         e.Accuracy,
		Model:            datatypes.JSON(ref),
		Track:            geo.TrackLineString(e.Track),
		Anchor:           anchor,
		CreatedAt:        e.CreatedAt,
	}, nil
}

// ModelToGorm converts a catalogue entry and its payload into a table row.
func ModelToGorm(e core.ModelEntry, blob []byte) model.ModelAsset {
	return model.ModelAsset{
		ID:        e.ID,
		Name:      e.Name,
		AssetRef:  e.AssetRef,
		Thumbnail: e.Thumbnail,
		Blob:      blob,
		Size:      len(blob),
		CreatedAt: e.CreatedAt,
	}
}

// PerformanceToGorm converts a session sample into its table row.
func PerformanceToGorm(s core.PerformanceSample) model.SortiePerformance {
	return model.SortiePerformance{
		Time:      s.Time,
		SessionID: s.SessionID,
		State:     string(s.State),
		Frames:    s.Frames,
		Alive:     s.Alive,
		Beams:     s.Beams,
		Score:     s.Score,
	}
}
