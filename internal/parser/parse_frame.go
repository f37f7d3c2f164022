package parser

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
)

// Frame is a decoded per-frame camera update.
type Frame struct {
	Pose     core.Pose
	DT       float64
	Viewport *core.Viewport
}

// ParseFrame decodes a frame message. The orientation is normalized;
// a zero quaternion or any non-finite component is rejected. Negative dt
// is treated as zero.
func (p *Parser) ParseFrame(payload json.RawMessage) (Frame, error) {
	var raw streaming.FramePayload
	if err := decode(payload, &raw); err != nil {
		return Frame{}, err
	}

	if !finite(raw.Position[:]...) || !finite(raw.Orientation[:]...) {
		return Frame{}, fmt.Errorf("frame: non-finite pose")
	}
	if !finite(raw.DT) {
		return Frame{}, fmt.Errorf("frame: non-finite dt")
	}

	o := raw.Orientation
	if math.Sqrt(o[0]*o[0]+o[1]*o[1]+o[2]*o[2]+o[3]*o[3]) < 1e-9 {
		return Frame{}, fmt.Errorf("frame: zero orientation")
	}

	f := Frame{
		Pose: core.Pose{
			Position:    raw.Position,
			Orientation: geo.QuatFromXYZW(o),
		},
		DT: math.Max(0, raw.DT),
	}

	if raw.Viewport != nil {
		vp, err := p.ParseViewport(*raw.Viewport)
		if err != nil {
			return Frame{}, err
		}
		f.Viewport = &vp
	}
	return f, nil
}

// rawInput mirrors core.Input with float axes.
type rawInput struct {
	Forward float64 `json:"forward"`
	Right   float64 `json:"right"`
	Fire    bool    `json:"fire"`
}

// ParseInput decodes directional pad state. Axes must be whole numbers and
// are clamped into {-1, 0, 1}.
func (p *Parser) ParseInput(payload json.RawMessage) (core.Input, error) {
	var raw rawInput
	if err := decode(payload, &raw); err != nil {
		return core.Input{}, err
	}

	forward, err := intFromFloat(raw.Forward)
	if err != nil {
		return core.Input{}, fmt.Errorf("input forward: %w", err)
	}
	right, err := intFromFloat(raw.Right)
	if err != nil {
		return core.Input{}, fmt.Errorf("input right: %w", err)
	}

	in := core.Input{Forward: forward, Right: right, Fire: raw.Fire}
	clamped := in.Clamp()
	if clamped != in {
		p.logger.Debug("input axis out of range, clamped", "forward", forward, "right", right)
	}
	return clamped, nil
}
