// Package score derives the live session score and builds the result
// record handed to the leaderboard at wave clear.
package score

import (
	"math"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	Base           = 1000
	PerDestroyed   = 100
	PerHit         = 25
	PerShot        = 5
	PerTenthSecond = 1

	// RefreshInterval is how often the live score is recomputed.
	RefreshInterval = 0.25
)

// Compute returns the score for the given counters and elapsed seconds.
func Compute(destroyed, hits, shots int, elapsed float64) int {
	raw := float64(Base+destroyed*PerDestroyed+hits*PerHit-shots*PerShot) -
		math.Floor(elapsed*10)*PerTenthSecond
	return int(math.Max(0, math.Round(raw)))
}

// FromStats is Compute over a stats value.
func FromStats(s core.Stats, elapsed float64) int {
	return Compute(s.EnemiesDestroyed, s.Hits, s.ShotsFired, elapsed)
}

// Tracker throttles live score updates to RefreshInterval.
type Tracker struct {
	startedAt float64
	lastAt    float64
	value     int
	primed    bool
}

// NewTracker starts tracking a session that began at startedAt.
func NewTracker(startedAt float64) *Tracker {
	return &Tracker{startedAt: startedAt, value: Base}
}

// Update recomputes the score if at least RefreshInterval has passed since
// the previous recompute and returns the current value.
func (t *Tracker) Update(now float64, s core.Stats) int {
	if t.primed && now-t.lastAt < RefreshInterval {
		return t.value
	}
	t.primed = true
	t.lastAt = now
	t.value = FromStats(s, now-t.startedAt)
	return t.value
}

// Final recomputes the score unconditionally.
func (t *Tracker) Final(now float64, s core.Stats) int {
	t.primed = true
	t.lastAt = now
	t.value = FromStats(s, now-t.startedAt)
	return t.value
}

// Value is the most recently computed score.
func (t *Tracker) Value() int {
	return t.value
}

// Elapsed returns the seconds since the session started.
func (t *Tracker) Elapsed(now float64) float64 {
	return now - t.startedAt
}

// Result builds the record for a cleared session.
func Result(final int, clearTime float64, s core.Stats, model core.ModelHandle, track []mgl64.Vec2, anchor *core.GeoAnchor) core.SessionResult {
	ct := clearTime
	return core.SessionResult{
		Score:            float64(final),
		ClearTime:        &ct,
		EnemiesDestroyed: float64(s.EnemiesDestroyed),
		ShotsFired:       float64(s.ShotsFired),
		Hits:             float64(s.Hits),
		ModelID:          model.ID,
		ModelName:        model.Name,
		ModelPath:        model.Source,
		Track:            track,
		Anchor:           anchor,
	}
}
