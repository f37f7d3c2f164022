package session

import (
	"math"
	"math/rand/v2"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	RingMinRadius = 1.5
	RingMaxRadius = 3.5
	// RingJitter is the largest angular offset from an evenly spaced slot.
	// It stays below half the slot width for the largest wave.
	RingJitter   = 0.25
	HeightJitter = 0.3
)

// Ring places n points around center at evenly spaced angles, each nudged
// by up to RingJitter radians, at a random radius and height.
func Ring(center mgl64.Vec3, n int, rng *rand.Rand) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, n)
	for i := 0; i < n; i++ {
		angle := 2*math.Pi*float64(i)/float64(n) + geo.UniformRange(rng, -RingJitter, RingJitter)
		radius := geo.UniformRange(rng, RingMinRadius, RingMaxRadius)
		out = append(out, center.Add(mgl64.Vec3{
			math.Cos(angle) * radius,
			geo.UniformRange(rng, -HeightJitter, HeightJitter),
			math.Sin(angle) * radius,
		}))
	}
	return out
}

// Roster picks the model for each enemy of the wave. Models other than the
// player's are cycled through; with none available the player's own model
// is flown by every enemy. The wave size is the number of other models,
// clamped to [lo, hi].
func Roster(available []core.ModelEntry, playerID string, lo, hi int) []string {
	var others []string
	for _, m := range available {
		if m.ID != "" && m.ID != playerID {
			others = append(others, m.ID)
		}
	}

	n := min(max(len(others), lo), hi)

	roster := make([]string, n)
	for i := range roster {
		if len(others) == 0 {
			roster[i] = playerID
			continue
		}
		roster[i] = others[i%len(others)]
	}
	return roster
}
