package combat

import (
	"math"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	ExplosionLife   = 0.6
	ExplosionScale  = 0.15
	ExplosionGrowth = 6.0
)

// Explosion is a short expanding, fading burst.
type Explosion struct {
	Position  mgl64.Vec3
	StartedAt float64
	Life      float64

	progress float64
}

// NewExplosion starts an explosion at pos.
func NewExplosion(pos mgl64.Vec3, now float64) *Explosion {
	return &Explosion{Position: pos, StartedAt: now, Life: ExplosionLife}
}

// Advance updates the explosion for now and reports whether it has finished.
func (e *Explosion) Advance(now float64) bool {
	e.progress = mgl64.Clamp((now-e.StartedAt)/e.Life, 0, 1)
	return e.progress >= 1
}

// Scale grows geometrically over the explosion's life.
func (e *Explosion) Scale() float64 {
	return ExplosionScale * math.Pow(ExplosionGrowth, e.progress)
}

// Opacity fades linearly to zero.
func (e *Explosion) Opacity() float64 {
	return 1 - e.progress
}

// View returns the render-facing state of the explosion.
func (e *Explosion) View() core.ExplosionView {
	return core.ExplosionView{
		Position: geo.ToView(e.Position),
		Scale:    e.Scale(),
		Opacity:  e.Opacity(),
	}
}
