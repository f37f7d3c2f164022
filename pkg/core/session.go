package core

import "github.com/go-gl/mathgl/mgl64"

// State is the lifecycle state of a simulation session.
type State string

const (
	StateIdle    State = "idle"
	StateActive  State = "active"
	StateCleared State = "cleared"
)

// Owner tags who fired a beam.
type Owner string

const (
	OwnerPlayer Owner = "player"
	OwnerEnemy  Owner = "enemy"
)

// Input is the directional pad and fire button state.
// Forward and Right are each one of -1, 0 or 1.
type Input struct {
	Forward int  `json:"forward"`
	Right   int  `json:"right"`
	Fire    bool `json:"fire"`
}

// Clamp snaps both axes into {-1, 0, 1}.
func (in Input) Clamp() Input {
	return Input{Forward: sign(in.Forward), Right: sign(in.Right), Fire: in.Fire}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Pose is a camera position and orientation in world space.
type Pose struct {
	Position    mgl64.Vec3 `json:"position"`
	Orientation mgl64.Quat `json:"orientation"`
}

// IdentityPose is a camera at the origin looking down -Z.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// Viewport describes the rendering surface.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// FovY is the vertical field of view in degrees.
	FovY float64 `json:"fovY"`
	Near float64 `json:"near"`
	Far  float64 `json:"far"`
}

// DefaultViewport mirrors a typical phone camera frustum.
func DefaultViewport(width, height float64) Viewport {
	return Viewport{Width: width, Height: height, FovY: 70, Near: 0.01, Far: 100}
}

// Aspect returns width over height, falling back to 1 for degenerate sizes.
func (v Viewport) Aspect() float64 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return v.Width / v.Height
}

// Cue identifies an audio event raised by the simulation.
type Cue string

const (
	CuePlayerShot Cue = "player_shot"
	CueEnemyShot  Cue = "enemy_shot"
	CueExplosion  Cue = "explosion"
	CueClear      Cue = "clear"
)
