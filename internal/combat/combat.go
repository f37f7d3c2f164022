// Package combat resolves player beams against enemies and tracks the
// explosions left behind by destroyed craft.
package combat

import (
	"github.com/aircraftstudio/skirmish/internal/enemy"
	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/internal/weapon"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// EnemyRadius is the collision radius of an enemy craft.
const EnemyRadius = 0.35

// Kill describes an enemy destroyed during a resolve pass.
type Kill struct {
	EnemyID  int
	Position mgl64.Vec3
}

// HitThreshold is the largest beam-to-enemy distance that counts as a hit.
func HitThreshold(b *weapon.Beam) float64 {
	return EnemyRadius + b.Width*0.6
}

// Resolve tests every live player beam against every live enemy. Each
// hit costs the enemy one hit point; enemies that reach zero are marked
// dead and reported. Beams are not consumed and may hit several enemies,
// but never the same enemy twice.
func Resolve(beams []*weapon.Beam, enemies []enemy.State, stats *core.Stats) []Kill {
	var kills []Kill
	for _, b := range beams {
		if b.Owner != core.OwnerPlayer || b.Retired() {
			continue
		}
		start, end := b.Start, b.End()
		threshold := HitThreshold(b)

		for i := range enemies {
			e := &enemies[i]
			if !e.Alive {
				continue
			}
			if geo.DistanceToSegment(e.Position, start, end) > threshold {
				continue
			}
			if !b.MarkHit(e.ID) {
				continue
			}

			stats.Hits++
			e.HP--
			if e.HP <= 0 {
				e.Alive = false
				stats.EnemiesDestroyed++
				kills = append(kills, Kill{EnemyID: e.ID, Position: e.Position})
			}
		}
	}
	return kills
}
