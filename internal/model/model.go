package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&LeaderboardEntry{},
	&ModelAsset{},
	&SortiePerformance{},
}

////////////////////////
// LEADERBOARD
////////////////////////

// LeaderboardEntry is one submitted, normalized session result.
type LeaderboardEntry struct {
	ID               string          `json:"id" gorm:"primaryKey;size:36"`
	UserSub          string          `json:"userSub" gorm:"size:255;index:idx_leaderboard_user_sub"`
	User             datatypes.JSON  `json:"user"`
	Score            int             `json:"score" gorm:"index:idx_leaderboard_score"`
	ClearTime        sql.NullFloat64 `json:"clearTime" gorm:"index:idx_leaderboard_clear_time"`
	EnemiesDestroyed int             `json:"enemiesDestroyed"`
	ShotsFired       int             `json:"shotsFired"`
	Hits             int             `json:"hits"`
	Accuracy         float64         `json:"accuracy"`
	Model            datatypes.JSON  `json:"model"`
	Track            geom.LineString `json:"-" gorm:"type:bytes"` // player XZ path
	Anchor           geom.Point      `json:"-" gorm:"type:bytes"` // EPSG:3857, empty when unknown
	CreatedAt        time.Time       `json:"createdAt" gorm:"index:idx_leaderboard_created_at"`
}

func (*LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}

////////////////////////
// MODEL CATALOGUE
////////////////////////

// ModelAsset is a stored aircraft model and its GLB payload.
type ModelAsset struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Name      string    `json:"name" gorm:"size:255"`
	AssetRef  string    `json:"assetRef" gorm:"size:1024"`
	Thumbnail string    `json:"thumbnail" gorm:"size:1024"`
	Blob      []byte    `json:"-"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_model_created_at"`
}

func (*ModelAsset) TableName() string {
	return "model_assets"
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SortiePerformance is a once-per-second sample of a running session.
type SortiePerformance struct {
	Time      time.Time `json:"time" gorm:"index:idx_perf_time"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_perf_session_id"`
	State     string    `json:"state" gorm:"size:16"`
	Frames    int       `json:"frames"`
	Alive     int       `json:"alive"`
	Beams     int       `json:"beams"`
	Score     int       `json:"score"`
}

func (*SortiePerformance) TableName() string {
	return "sortie_performances"
}
