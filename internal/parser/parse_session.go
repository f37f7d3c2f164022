package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
)

// Fallback surface used when a start message carries no viewport.
const (
	defaultWidth  = 1280
	defaultHeight = 720
)

// ParseStart decodes a start message. Missing viewport fields are filled
// from core.DefaultViewport.
func (p *Parser) ParseStart(payload json.RawMessage) (streaming.StartPayload, error) {
	var start streaming.StartPayload
	if err := decode(payload, &start); err != nil {
		return start, err
	}

	start.ModelID = strings.TrimSpace(start.ModelID)
	if start.ModelID == "" {
		return start, fmt.Errorf("start: modelId is required")
	}

	start.Viewport = p.fillViewport(start.Viewport)
	return start, nil
}

// ParseViewport validates a viewport update, filling missing fields.
func (p *Parser) ParseViewport(vp core.Viewport) (core.Viewport, error) {
	if !finite(vp.Width, vp.Height, vp.FovY, vp.Near, vp.Far) {
		return vp, fmt.Errorf("viewport: non-finite value")
	}
	return p.fillViewport(vp), nil
}

func (p *Parser) fillViewport(vp core.Viewport) core.Viewport {
	def := core.DefaultViewport(defaultWidth, defaultHeight)
	if vp.Width <= 0 || vp.Height <= 0 {
		p.logger.Debug("viewport size missing, using default", "width", vp.Width, "height", vp.Height)
		vp.Width, vp.Height = def.Width, def.Height
	}
	if vp.FovY <= 0 || vp.FovY >= 180 {
		vp.FovY = def.FovY
	}
	if vp.Near <= 0 {
		vp.Near = def.Near
	}
	if vp.Far <= vp.Near {
		vp.Far = def.Far
	}
	return vp
}
