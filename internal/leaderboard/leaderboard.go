// Package leaderboard normalizes submitted session results into stored
// entries and applies the top-list query rules.
package leaderboard

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aircraftstudio/skirmish/internal/util"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ErrUnauthenticated is returned for submissions without a user identity.
var ErrUnauthenticated = errors.New("authentication required")

// Normalize validates a submitted result and converts it to a stored entry.
func Normalize(result core.SessionResult, user core.User, now time.Time) (core.LeaderboardEntry, error) {
	if strings.TrimSpace(user.Sub) == "" {
		return core.LeaderboardEntry{}, ErrUnauthenticated
	}

	shots := count(result.ShotsFired)
	hits := count(result.Hits)

	var clearTime *float64
	if result.ClearTime != nil && finite(*result.ClearTime) {
		ct := *result.ClearTime
		clearTime = &ct
	}

	return core.LeaderboardEntry{
		ID: uuid.NewString(),
		User: core.User{
			Sub:      user.Sub,
			Name:     util.FirstNonEmpty(user.Name, user.Nickname, user.Email, "User"),
			Nickname: user.Nickname,
			Email:    user.Email,
			Picture:  user.Picture,
		},
		Score:            count(result.Score),
		ClearTime:        clearTime,
		EnemiesDestroyed: count(result.EnemiesDestroyed),
		ShotsFired:       shots,
		Hits:             hits,
		Accuracy:         Accuracy(hits, shots),
		Model: core.ModelRef{
			ID:   util.StringPtr(result.ModelID),
			Name: util.StringPtr(result.ModelName),
			Path: util.StringPtr(result.ModelPath),
		},
		Track:     result.Track,
		Anchor:    result.Anchor,
		CreatedAt: now.UTC(),
	}, nil
}

// Accuracy is hits over shots clamped to [0, 1], or 0 without shots.
func Accuracy(hits, shots int) float64 {
	if shots <= 0 {
		return 0
	}
	return math.Min(1, math.Max(0, float64(hits)/float64(shots)))
}

func count(v float64) int {
	if !finite(v) {
		return 0
	}
	return int(math.Max(0, math.Floor(v)))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseTopQuery applies the limit bounds and sort selection of a top
// request given the raw query values.
func ParseTopQuery(limit, sortKey string) (int, core.SortKey) {
	n, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || n == 0 {
		n = DefaultLimit
	}
	n = min(MaxLimit, max(1, n))

	if sortKey == string(core.SortTime) {
		return n, core.SortTime
	}
	return n, core.SortScore
}

// Less reports whether a ranks before b under key.
func Less(a, b core.LeaderboardEntry, key core.SortKey) bool {
	if key == core.SortTime {
		if c := compareClear(a.ClearTime, b.ClearTime); c != 0 {
			return c < 0
		}
		return a.Score > b.Score
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return compareClear(a.ClearTime, b.ClearTime) < 0
}

// compareClear orders clear times ascending with missing times last.
func compareClear(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

// Sort orders entries in place.
func Sort(entries []core.LeaderboardEntry, key core.SortKey) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i], entries[j], key)
	})
}

// Top returns the first limit entries of a sorted copy of entries.
func Top(entries []core.LeaderboardEntry, limit int, key core.SortKey) []core.LeaderboardEntry {
	out := make([]core.LeaderboardEntry, len(entries))
	copy(out, entries)
	Sort(out, key)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
