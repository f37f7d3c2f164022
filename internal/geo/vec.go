// Package geo holds the vector and quaternion helpers shared by the
// simulation, plus conversions of sortie data into stored geometries.
//
// World space follows the rendering convention: +Y is up and a craft's
// nose points down its local -Z axis.
package geo

import (
	"math"
	"math/rand/v2"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// Up is the world up axis.
	Up = mgl64.Vec3{0, 1, 0}
	// Forward is the local nose direction of every craft.
	Forward = mgl64.Vec3{0, 0, -1}
)

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ClampVec clamps each component of v into [-limit[i], limit[i]].
func ClampVec(v, limit mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(v[0], -limit[0], limit[0]),
		mgl64.Clamp(v[1], -limit[1], limit[1]),
		mgl64.Clamp(v[2], -limit[2], limit[2]),
	}
}

// YawOf extracts the heading of q around the world up axis.
func YawOf(q mgl64.Quat) float64 {
	f := q.Rotate(Forward)
	return math.Atan2(-f.X(), -f.Z())
}

// YawQuat builds a pure heading rotation.
func YawQuat(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, Up)
}

// HeadingTo returns the yaw that points the nose along dir projected onto
// the horizontal plane. ok is false when dir has no horizontal component.
func HeadingTo(dir mgl64.Vec3) (yaw float64, ok bool) {
	if math.Hypot(dir.X(), dir.Z()) < 1e-6 {
		return 0, false
	}
	return math.Atan2(-dir.X(), -dir.Z()), true
}

// SlerpShortest interpolates from a toward b along the shorter arc.
func SlerpShortest(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t).Normalize()
}

// ClosestPointOnSegment projects p onto the segment a→b and returns the
// closest point together with its clamped parameter t in [0,1].
func ClosestPointOnSegment(p, a, b mgl64.Vec3) (mgl64.Vec3, float64) {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a, 0
	}
	t := mgl64.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t)), t
}

// DistanceToSegment is the distance from p to the closest point on a→b.
func DistanceToSegment(p, a, b mgl64.Vec3) float64 {
	c, _ := ClosestPointOnSegment(p, a, b)
	return p.Sub(c).Len()
}

// ConeSample perturbs the unit direction dir by a random offset inside a cone
// of the given half-angle (radians). The offset is drawn from a disk with
// radius sqrt(u), which weights samples toward the cone axis.
func ConeSample(dir mgl64.Vec3, halfAngle float64, rng *rand.Rand) mgl64.Vec3 {
	dir = dir.Normalize()
	if halfAngle <= 0 {
		return dir
	}
	u, v := basis(dir)
	r := math.Sqrt(rng.Float64()) * math.Tan(halfAngle)
	phi := 2 * math.Pi * rng.Float64()
	return dir.Add(u.Mul(r * math.Cos(phi))).Add(v.Mul(r * math.Sin(phi))).Normalize()
}

// basis returns two unit vectors orthogonal to dir and to each other.
func basis(dir mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	helper := Up
	if math.Abs(dir.Dot(Up)) > 0.99 {
		helper = mgl64.Vec3{1, 0, 0}
	}
	u := dir.Cross(helper).Normalize()
	v := dir.Cross(u).Normalize()
	return u, v
}

// UniformRange draws from [lo, hi).
func UniformRange(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// ToView converts a vector for serialization.
func ToView(v mgl64.Vec3) core.Vec {
	return core.Vec{v[0], v[1], v[2]}
}

// RotView converts a quaternion to (x, y, z, w) for serialization.
func RotView(q mgl64.Quat) core.Rot {
	return core.Rot{q.V[0], q.V[1], q.V[2], q.W}
}

// QuatFromXYZW builds a normalized quaternion from (x, y, z, w), treating an
// all-zero input as the identity.
func QuatFromXYZW(r [4]float64) mgl64.Quat {
	q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}
	if q.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
