// Package weapon spawns and advances beam projectiles. Beams fly straight
// along the direction they were fired with and never re-aim.
package weapon

import (
	"math/rand/v2"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	PlayerCooldown = 0.18
	Speed          = 8.0
	Lifetime       = 0.7
	Width          = 0.05
	MinLength      = 0.2
	MaxLength      = 3.0
)

var (
	// MuzzleOffset is the nose gun position in craft-local space.
	MuzzleOffset = mgl64.Vec3{0, 0.05, -0.35}

	PlayerSpread = mgl64.DegToRad(10)
	EnemySpread  = mgl64.DegToRad(8)
)

// Beam is one projectile in flight.
type Beam struct {
	ID        int
	Owner     core.Owner
	SpawnedAt float64
	Lifetime  float64
	Start     mgl64.Vec3
	Direction mgl64.Vec3
	Length    float64
	Width     float64
	Velocity  mgl64.Vec3

	hits    map[int]struct{}
	age     float64
	retired bool
}

// Spawn creates a beam fired at now from muzzle along dir.
func Spawn(id int, owner core.Owner, now float64, muzzle, dir mgl64.Vec3, length float64) *Beam {
	dir = dir.Normalize()
	return &Beam{
		ID:        id,
		Owner:     owner,
		SpawnedAt: now,
		Lifetime:  Lifetime,
		Start:     muzzle,
		Direction: dir,
		Length:    length,
		Width:     Width,
		Velocity:  dir.Mul(Speed),
		hits:      make(map[int]struct{}),
	}
}

// Advance moves the beam for a frame ending at now. It returns true once
// the beam has reached the end of its life; a retired beam never moves
// again.
func (b *Beam) Advance(now, dt float64) bool {
	if b.retired {
		return true
	}
	if age := (now - b.SpawnedAt) / b.Lifetime; age > b.age {
		b.age = age
	}
	if b.age >= 1 {
		b.retired = true
		return true
	}
	b.Start = b.Start.Add(b.Velocity.Mul(dt))
	return false
}

// Age is the normalized age in [0, 1].
func (b *Beam) Age() float64 {
	return mgl64.Clamp(b.age, 0, 1)
}

// Retired reports whether the beam has been retired.
func (b *Beam) Retired() bool {
	return b.retired
}

// End is the far end of the beam's travel segment.
func (b *Beam) End() mgl64.Vec3 {
	return b.Start.Add(b.Direction.Mul(b.Length))
}

// MarkHit records a hit on target id. It returns false when the beam has
// already hit that target.
func (b *Beam) MarkHit(id int) bool {
	if _, ok := b.hits[id]; ok {
		return false
	}
	b.hits[id] = struct{}{}
	return true
}

// View returns the render-facing state of the beam.
func (b *Beam) View() core.BeamView {
	return core.BeamView{
		Owner:     b.Owner,
		Start:     geo.ToView(b.Start),
		Direction: geo.ToView(b.Direction),
		Length:    b.Length,
		Width:     b.Width,
		Age:       b.Age(),
	}
}

// Gun rate-limits shots against the simulation clock.
type Gun struct {
	Cooldown float64
	lastShot float64
	fired    bool
}

// NewGun returns a gun with the given cooldown in seconds.
func NewGun(cooldown float64) *Gun {
	return &Gun{Cooldown: cooldown}
}

// TryFire reports whether a shot may be fired at now and, if so, records it.
func (g *Gun) TryFire(now float64) bool {
	if g.fired && now-g.lastShot < g.Cooldown {
		return false
	}
	g.lastShot = now
	g.fired = true
	return true
}

// Reset forgets the last shot.
func (g *Gun) Reset() {
	g.fired = false
	g.lastShot = 0
}

// Target is a candidate for auto-aim.
type Target struct {
	ID       int
	Position mgl64.Vec3
}

// Nearest picks the target closest to from.
func Nearest(from mgl64.Vec3, targets []Target) (Target, bool) {
	best := -1
	bestDist := 0.0
	for i, t := range targets {
		d := t.Position.Sub(from).Len()
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Target{}, false
	}
	return targets[best], true
}

// Aim computes a beam direction and length from muzzle. With a target the
// beam points at it within the spread cone and is no longer than the
// distance to it; without one it flies straight along nose at the maximum
// length.
func Aim(muzzle, nose mgl64.Vec3, target *mgl64.Vec3, spread float64, rng *rand.Rand) (mgl64.Vec3, float64) {
	if target == nil {
		return nose.Normalize(), MaxLength
	}
	to := target.Sub(muzzle)
	dist := to.Len()
	if dist < 1e-9 {
		return geo.ConeSample(nose, spread, rng), MinLength
	}
	return geo.ConeSample(to.Mul(1/dist), spread, rng), mgl64.Clamp(dist, MinLength, MaxLength)
}
