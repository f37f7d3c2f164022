package main

import (
	"fmt"
	"math"

	"github.com/aircraftstudio/skirmish/internal/geo"
	"github.com/aircraftstudio/skirmish/internal/hud"
	"github.com/aircraftstudio/skirmish/internal/leaderboard"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// Terminal cells are about twice as tall as they are wide.
const cellAspect = 2

var (
	styleDim       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleText      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	stylePlayer    = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleEnemy     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleStandIn   = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
	stylePlayerFx  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleEnemyFx   = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleBlast     = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	styleIndicator = tcell.StyleDefault.Foreground(tcell.ColorLime).Bold(true)
)

// arrows are indexed by screen angle in eighths of a turn, clockwise from
// east with y pointing down.
var arrows = [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// viewportFor returns the projection viewport of a w by h cell screen.
func viewportFor(w, h int) core.Viewport {
	return core.DefaultViewport(float64(w), float64(h*cellAspect))
}

// toCell maps an NDC point to a screen cell.
func toCell(ndc mgl64.Vec3, w, h int) (int, int) {
	x := int(math.Floor((ndc.X() + 1) / 2 * float64(w)))
	y := int(math.Floor((1 - ndc.Y()) / 2 * float64(h)))
	return min(max(x, 0), w-1), min(max(y, 0), h-1)
}

// arrowFor picks the arrow glyph closest to angle.
func arrowFor(angle float64) rune {
	i := int(math.Round(angle/(math.Pi/4))) % 8
	if i < 0 {
		i += 8
	}
	return arrows[i]
}

type canvas struct {
	screen tcell.Screen
	w, h   int
	cam    core.Pose
	vp     core.Viewport
}

func (c canvas) plot(p mgl64.Vec3, r rune, style tcell.Style) {
	ndc, err := hud.NDC(p, c.cam, c.vp)
	if err != nil || !hud.OnScreen(ndc) {
		return
	}
	x, y := toCell(ndc, c.w, c.h)
	c.screen.SetContent(x, y, r, nil, style)
}

func (c canvas) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		if x >= c.w {
			return
		}
		c.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (c canvas) centered(y int, s string, style tcell.Style) {
	c.text(max(0, (c.w-len([]rune(s)))/2), y, s, style)
}

func vec(v core.Vec) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

// draw renders one snapshot.
func (c canvas) draw(snap core.Snapshot) {
	c.screen.Clear()

	c.ground()

	for _, b := range snap.Beams {
		style, r := stylePlayerFx, '*'
		if b.Owner == core.OwnerEnemy {
			style, r = styleEnemyFx, '~'
		}
		start, dir := vec(b.Start), vec(b.Direction)
		for t := 0.0; t <= b.Length; t += 0.08 {
			c.plot(start.Add(dir.Mul(t)), r, style)
		}
	}

	for _, e := range snap.Enemies {
		if e.Placeholder {
			c.plot(vec(e.Position), 'x', styleStandIn)
			continue
		}
		c.plot(vec(e.Position), 'W', styleEnemy)
	}

	if snap.State != core.StateIdle {
		c.plot(vec(snap.Player.Position), 'A', stylePlayer)
	}

	for _, x := range snap.Explosions {
		r := '+'
		switch {
		case x.Opacity > 0.66:
			r = '@'
		case x.Opacity > 0.33:
			r = '#'
		}
		c.plot(vec(x.Position), r, styleBlast)
	}

	if snap.HUD.Visible {
		x := int(snap.HUD.X)
		y := int(snap.HUD.Y / cellAspect)
		x, y = min(max(x, 0), c.w-1), min(max(y, 0), c.h-1)
		c.screen.SetContent(x, y, arrowFor(snap.HUD.Angle), nil, styleIndicator)
		label := snap.HUD.Label
		lx := min(max(0, x-len(label)/2), max(0, c.w-len(label)))
		ly := y + 1
		if ly >= c.h-1 {
			ly = y - 1
		}
		c.text(lx, ly, label, styleIndicator)
	}

	c.status(snap)
	if snap.State == core.StateCleared && snap.Result != nil {
		c.summary(*snap.Result)
	}
	c.screen.Show()
}

// ground marks a grid under the arena for depth.
func (c canvas) ground() {
	for x := -4.0; x <= 4; x++ {
		for z := -6.0; z <= 3; z++ {
			c.plot(mgl64.Vec3{x, -0.8, z}, '·', styleDim)
		}
	}
}

func (c canvas) status(snap core.Snapshot) {
	line := fmt.Sprintf(" SCORE %4d  TIME %5.1fs  ENEMIES %d  SHOTS %d  HITS %d ",
		snap.Score, snap.Time, snap.Alive, snap.Stats.ShotsFired, snap.Stats.Hits)
	c.text(0, 0, line, styleText.Reverse(true))
	c.text(0, c.h-1, " ←↑↓→/WASD fly  SPACE fire  R new sortie  Q quit", styleDim)
}

func (c canvas) summary(r core.SessionResult) {
	shots := int(r.ShotsFired)
	hits := int(r.Hits)
	lines := []string{
		"WAVE CLEARED",
		"",
		fmt.Sprintf("score     %d", int(r.Score)),
		fmt.Sprintf("accuracy  %.0f%%", leaderboard.Accuracy(hits, shots)*100),
		fmt.Sprintf("flown     %.1f m", geo.TrackLength(r.Track)),
	}
	if r.ClearTime != nil {
		lines = append(lines, fmt.Sprintf("time      %.1f s", *r.ClearTime))
	}
	top := c.h/2 - len(lines)/2
	for i, l := range lines {
		c.centered(top+i, l, styleText.Bold(i == 0))
	}
}
