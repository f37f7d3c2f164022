package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// SessionResult is the record emitted at wave clear. Numeric fields are
// float64 because remote clients submit plain JSON numbers that are
// normalized before storage.
type SessionResult struct {
	Score            float64  `json:"score"`
	ClearTime        *float64 `json:"clearTime"`
	EnemiesDestroyed float64  `json:"enemiesDestroyed"`
	ShotsFired       float64  `json:"shotsFired"`
	Hits             float64  `json:"hits"`
	ModelID          string   `json:"modelId,omitempty"`
	ModelName        string   `json:"modelName,omitempty"`
	ModelPath        string   `json:"modelPath,omitempty"`

	// Track holds the player's horizontal path sampled during the sortie.
	Track []mgl64.Vec2 `json:"track,omitempty"`
	// Anchor is the optional geographic location of the AR session.
	Anchor *GeoAnchor `json:"anchor,omitempty"`
}

// GeoAnchor is a WGS84 longitude/latitude pair.
type GeoAnchor struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// User is the authenticated identity of a submitter.
type User struct {
	Sub      string  `json:"sub"`
	Name     string  `json:"name"`
	Nickname string  `json:"nickname,omitempty"`
	Email    string  `json:"email,omitempty"`
	Picture  *string `json:"picture"`
}

// ModelRef identifies the aircraft flown for an entry.
type ModelRef struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
	Path *string `json:"path"`
}

// LeaderboardEntry is a normalized, stored session result.
type LeaderboardEntry struct {
	ID               string       `json:"id"`
	User             User         `json:"user"`
	Score            int          `json:"score"`
	ClearTime        *float64     `json:"clearTime"`
	EnemiesDestroyed int          `json:"enemiesDestroyed"`
	ShotsFired       int          `json:"shotsFired"`
	Hits             int          `json:"hits"`
	Accuracy         float64      `json:"accuracy"`
	Model            ModelRef     `json:"model"`
	Track            []mgl64.Vec2 `json:"track,omitempty"`
	Anchor           *GeoAnchor   `json:"anchor,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// SortKey selects the leaderboard ordering.
type SortKey string

const (
	// SortScore orders by score descending, then clear time ascending.
	SortScore SortKey = "score"
	// SortTime orders by clear time ascending, then score descending.
	SortTime SortKey = "time"
)
