package enemy

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestDesiredSpeed(t *testing.T) {
	assert.InDelta(t, 0.6, DesiredSpeed(0), 1e-9)
	assert.InDelta(t, 1.45, DesiredSpeed(10), 1e-9)
	assert.Equal(t, MaxDesiredSpeed, DesiredSpeed(100))
	assert.Equal(t, MinDesiredSpeed, DesiredSpeed(-5))
}

func TestNew_StaggersFirstShot(t *testing.T) {
	rng := newRand()
	for i := 0; i < 100; i++ {
		s := New(i, mgl64.Vec3{}, 3, rng)
		assert.True(t, s.Alive)
		assert.Equal(t, DefaultHP, s.HP)
		assert.GreaterOrEqual(t, s.NextFireAt, 3+InitialFireMin)
		assert.Less(t, s.NextFireAt, 3+InitialFireMax)
	}
}

func TestReschedule(t *testing.T) {
	rng := newRand()
	s := New(1, mgl64.Vec3{}, 0, rng)
	assert.False(t, s.ReadyToFire(0))
	assert.True(t, s.ReadyToFire(s.NextFireAt))

	s = s.Reschedule(5, rng)
	assert.GreaterOrEqual(t, s.NextFireAt, 5+RefireMin)
	assert.Less(t, s.NextFireAt, 5+RefireMax)

	s.Alive = false
	assert.False(t, s.ReadyToFire(100))
}

func TestStep_PursuesPlayer(t *testing.T) {
	rng := newRand()
	s := New(1, mgl64.Vec3{5, 0, 0}, 0, rng)
	player := mgl64.Vec3{}

	start := s.Position.Sub(player).Len()
	for i := 0; i < 60; i++ {
		s = Step(s, 1.0/60, player, nil, rng)
	}
	assert.Less(t, s.Position.Sub(player).Len(), start)
	assert.Less(t, s.Velocity.X(), 0.0)
}

func TestStep_SeparatesFromNeighbors(t *testing.T) {
	rng := newRand()
	s := New(1, mgl64.Vec3{}, 0, rng)
	s = Step(s, 0.05, mgl64.Vec3{0, 0, -10}, []mgl64.Vec3{{0.5, 0, 0}}, rng)
	assert.Less(t, s.Velocity.X(), 0.0, "should be pushed away from the neighbor")
}

func TestStep_IgnoresDistantNeighbors(t *testing.T) {
	a := New(1, mgl64.Vec3{}, 0, newRand())
	b := a
	a = Step(a, 0.05, mgl64.Vec3{0, 0, -10}, nil, newRand())
	b = Step(b, 0.05, mgl64.Vec3{0, 0, -10}, []mgl64.Vec3{{3, 0, 0}}, newRand())
	assert.Equal(t, a.Velocity, b.Velocity)
}

func TestStep_VelocityStaysBounded(t *testing.T) {
	rng := newRand()
	s := New(1, mgl64.Vec3{10, 5, 10}, 0, rng)
	s.Velocity = mgl64.Vec3{9, -9, 9}
	for i := 0; i < 2000; i++ {
		s = Step(s, 0.05, mgl64.Vec3{}, []mgl64.Vec3{{10.2, 5, 10}}, rng)
		require.LessOrEqual(t, math.Abs(s.Velocity.X()), Limit.X())
		require.LessOrEqual(t, math.Abs(s.Velocity.Y()), Limit.Y())
		require.LessOrEqual(t, math.Abs(s.Velocity.Z()), Limit.Z())
	}
}

func TestStep_LeashPullsBack(t *testing.T) {
	rng := newRand()
	s := New(1, mgl64.Vec3{18.5, 0, 0}, 0, rng)
	s = Step(s, 0.05, mgl64.Vec3{40, 0, 0}, nil, rng)
	assert.Less(t, s.Position.Len(), LeashRadius)
	assert.InDelta(t, 18.5*LeashPull, s.Position.X(), 0.1)
}

func TestStep_TurnsTowardTravel(t *testing.T) {
	rng := newRand()
	s := New(1, mgl64.Vec3{}, 0, rng)
	for i := 0; i < 300; i++ {
		s = Step(s, 1.0/60, mgl64.Vec3{-10, 0, 0}, nil, rng)
	}
	assert.InDelta(t, math.Pi/2, geo.YawOf(s.Orientation), 0.05)
}

func TestView(t *testing.T) {
	s := New(4, mgl64.Vec3{1, 2, 3}, 0, newRand())
	s.ModelID = "m1"
	v := s.View()
	assert.Equal(t, 4, v.ID)
	assert.Equal(t, "m1", v.ModelID)
	assert.Equal(t, DefaultHP, v.HP)
	assert.Equal(t, 1.0, v.Position[0])
}
