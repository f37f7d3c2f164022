// Package hud projects the player craft into the camera frame and, when it
// leaves the screen, places an edge marker pointing toward it.
package hud

import (
	"errors"
	"fmt"
	"math"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// EdgeInset keeps the clamped marker just inside the frame.
const EdgeInset = 0.95

// ErrDegenerate is returned when the projection produces no usable point.
var ErrDegenerate = errors.New("degenerate projection")

// ViewMatrix returns the world-to-camera transform for a camera pose.
func ViewMatrix(cam core.Pose) mgl64.Mat4 {
	world := mgl64.Translate3D(cam.Position.X(), cam.Position.Y(), cam.Position.Z()).
		Mul4(cam.Orientation.Normalize().Mat4())
	return world.Inv()
}

// ProjectionMatrix returns the perspective transform for a viewport.
func ProjectionMatrix(vp core.Viewport) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(vp.FovY), vp.Aspect(), vp.Near, vp.Far)
}

// NDC projects a world point into normalized device coordinates. Points
// behind the camera come out with z greater than 1.
func NDC(target mgl64.Vec3, cam core.Pose, vp core.Viewport) (mgl64.Vec3, error) {
	clip := ProjectionMatrix(vp).Mul4(ViewMatrix(cam)).Mul4x1(target.Vec4(1))
	w := clip.W()
	if math.Abs(w) < 1e-12 {
		return mgl64.Vec3{}, ErrDegenerate
	}
	ndc := clip.Vec3().Mul(1 / w)
	for _, c := range ndc {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return mgl64.Vec3{}, ErrDegenerate
		}
	}
	return ndc, nil
}

// OnScreen reports whether an NDC point lies inside the visible frustum cube.
func OnScreen(ndc mgl64.Vec3) bool {
	return math.Abs(ndc.X()) <= 1 && math.Abs(ndc.Y()) <= 1 && ndc.Z() <= 1
}

// Project computes the targeting indicator for target seen from cam. The
// indicator is hidden while the target is on screen.
func Project(target mgl64.Vec3, cam core.Pose, vp core.Viewport) (core.Indicator, error) {
	ndc, err := NDC(target, cam, vp)
	if err != nil {
		return core.Indicator{}, err
	}
	if OnScreen(ndc) {
		return core.Indicator{}, nil
	}

	x := mgl64.Clamp(ndc.X(), -EdgeInset, EdgeInset)
	y := mgl64.Clamp(ndc.Y(), -EdgeInset, EdgeInset)
	px := (x*0.5 + 0.5) * vp.Width
	py := (1 - (y*0.5 + 0.5)) * vp.Height

	// Behind the camera the projection is flipped; mirror it back.
	if ndc.Z() > 1 {
		px = vp.Width - px
		py = vp.Height - py
	}

	dist := target.Sub(cam.Position).Len()
	return core.Indicator{
		Visible:  true,
		X:        px,
		Y:        py,
		Angle:    math.Atan2(py-vp.Height/2, px-vp.Width/2),
		Distance: dist,
		Label:    fmt.Sprintf("%.1f m", dist),
	}, nil
}
