// Package flight integrates the player craft from directional input.
package flight

import (
	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Tuning constants. Relaxation factors are applied once per frame.
const (
	BaseForward   = -0.6
	ForwardRelax  = 0.08
	ForwardNudge  = 0.6
	MinForward    = -1.7
	MaxForward    = -0.25
	LateralTarget = 0.6
	LateralRelax  = 0.12
	MaxLateral    = 0.9
	VerticalRelax = 0.12
	MaxVertical   = 0.6
	MaxYawRate    = 2.0
	BankAngle     = 0.45
	PitchAngle    = 0.45
	AttitudeSlerp = 0.12
)

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// Craft is the player's aircraft. Velocity is expressed in the craft's
// local frame as (lateral, vertical, forward); forward is always negative.
type Craft struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Velocity    mgl64.Vec3
	Scale       float64
}

// New places a craft at pos facing -Z at cruise speed.
func New(pos mgl64.Vec3, scale float64) *Craft {
	return &Craft{
		Position:    pos,
		Orientation: mgl64.QuatIdent(),
		Velocity:    mgl64.Vec3{0, 0, BaseForward},
		Scale:       scale,
	}
}

// Step advances the craft by one frame.
func (c *Craft) Step(in core.Input, dt float64) {
	in = in.Clamp()
	fwd := float64(in.Forward)
	right := float64(in.Right)

	vx := geo.Lerp(c.Velocity.X(), right*LateralTarget, LateralRelax)
	vy := geo.Lerp(c.Velocity.Y(), 0, VerticalRelax)
	vz := geo.Lerp(c.Velocity.Z(), BaseForward, ForwardRelax)
	vz -= fwd * ForwardNudge * dt

	c.Velocity = mgl64.Vec3{
		mgl64.Clamp(vx, -MaxLateral, MaxLateral),
		mgl64.Clamp(vy, -MaxVertical, MaxVertical),
		mgl64.Clamp(vz, MinForward, MaxForward),
	}

	if in.Right != 0 {
		c.Orientation = geo.YawQuat(right * -MaxYawRate * dt).Mul(c.Orientation).Normalize()
	}

	target := geo.YawQuat(geo.YawOf(c.Orientation)).
		Mul(mgl64.QuatRotate(fwd*PitchAngle, axisX)).
		Mul(mgl64.QuatRotate(right*-BankAngle, axisZ))
	c.Orientation = geo.SlerpShortest(c.Orientation, target, AttitudeSlerp)

	c.Position = c.Position.Add(c.Orientation.Rotate(c.Velocity).Mul(dt))
}

// LocalToWorld transforms a point given in the craft's local frame.
func (c *Craft) LocalToWorld(offset mgl64.Vec3) mgl64.Vec3 {
	return c.Position.Add(c.Orientation.Rotate(offset))
}

// View returns the render-facing state of the craft.
func (c *Craft) View(modelID string) core.CraftView {
	return core.CraftView{
		ModelID:     modelID,
		Position:    geo.ToView(c.Position),
		Orientation: geo.RotView(c.Orientation),
		Scale:       c.Scale,
	}
}
