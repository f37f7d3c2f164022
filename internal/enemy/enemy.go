// Package enemy implements the steering behaviour of hostile craft:
// pursuit of the player, separation from each other, a little wander, and
// a soft leash around the play area.
package enemy

import (
	"math/rand/v2"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultHP = 10

	MinDesiredSpeed = 0.45
	MaxDesiredSpeed = 2.5
	BaseSpeed       = 0.6
	SpeedPerMeter   = 0.085
	SteerGain       = 2.5

	WanderJitter = 0.8

	SeparationRadius = 1.0
	SeparationGain   = 2.0

	LeashRadius = 18.0
	LeashPull   = 0.75

	YawSlerp   = 0.12
	StillSpeed = 0.05

	InitialFireMin = 0.6
	InitialFireMax = 2.1
	RefireMin      = 0.9
	RefireMax      = 2.0
)

// Limit bounds the world-space velocity of an enemy per axis.
var Limit = mgl64.Vec3{2.5, 1.5, 2.5}

// State is everything the simulation tracks for one enemy.
type State struct {
	ID          int
	ModelID     string
	Placeholder bool
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Velocity    mgl64.Vec3
	Scale       float64
	HP          int
	NextFireAt  float64
	Alive       bool
}

// New spawns an enemy at pos and staggers its first shot after now.
func New(id int, pos mgl64.Vec3, now float64, rng *rand.Rand) State {
	return State{
		ID:          id,
		Position:    pos,
		Orientation: mgl64.QuatIdent(),
		Scale:       1,
		HP:          DefaultHP,
		NextFireAt:  now + geo.UniformRange(rng, InitialFireMin, InitialFireMax),
		Alive:       true,
	}
}

// DesiredSpeed is the closing speed wanted at the given distance to the player.
func DesiredSpeed(distance float64) float64 {
	return mgl64.Clamp(BaseSpeed+distance*SpeedPerMeter, MinDesiredSpeed, MaxDesiredSpeed)
}

// Step advances one enemy by dt. neighbors holds the positions of the
// other live enemies.
func Step(s State, dt float64, player mgl64.Vec3, neighbors []mgl64.Vec3, rng *rand.Rand) State {
	toPlayer := player.Sub(s.Position)
	dist := toPlayer.Len()

	v := s.Velocity
	if dist > 1e-9 {
		desired := toPlayer.Mul(1 / dist).Mul(DesiredSpeed(dist))
		v = v.Add(desired.Sub(v).Mul(SteerGain * dt))
	}

	v[0] += (rng.Float64() - 0.5) * WanderJitter * dt
	v[1] += (rng.Float64() - 0.5) * WanderJitter * dt

	for _, other := range neighbors {
		away := s.Position.Sub(other)
		d := away.Len()
		if d >= SeparationRadius || d < 1e-9 {
			continue
		}
		v = v.Add(away.Mul(1 / d).Mul((SeparationRadius - d) * SeparationGain * dt))
	}

	v = geo.ClampVec(v, Limit)
	s.Velocity = v
	s.Position = s.Position.Add(v.Mul(dt))

	heading, ok := geo.HeadingTo(v)
	if v.Len() < StillSpeed || !ok {
		heading, ok = geo.HeadingTo(toPlayer)
	}
	if ok {
		s.Orientation = geo.SlerpShortest(s.Orientation, geo.YawQuat(heading), YawSlerp)
	}

	if s.Position.Len() > LeashRadius {
		s.Position = s.Position.Mul(LeashPull)
	}
	return s
}

// ReadyToFire reports whether the enemy's scheduled shot is due.
func (s State) ReadyToFire(now float64) bool {
	return s.Alive && now >= s.NextFireAt
}

// Reschedule sets the next shot a random interval after now.
func (s State) Reschedule(now float64, rng *rand.Rand) State {
	s.NextFireAt = now + geo.UniformRange(rng, RefireMin, RefireMax)
	return s
}

// View returns the render-facing state of the enemy.
func (s State) View() core.CraftView {
	return core.CraftView{
		ID:          s.ID,
		ModelID:     s.ModelID,
		Position:    geo.ToView(s.Position),
		Orientation: geo.RotView(s.Orientation),
		Scale:       s.Scale,
		HP:          s.HP,
		Placeholder: s.Placeholder,
	}
}
